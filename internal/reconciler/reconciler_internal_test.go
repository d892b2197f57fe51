package reconciler

import (
	"testing"

	"github.com/attendly/attendance-core/internal/autocheckout"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutReasonFor(t *testing.T) {
	cases := []struct {
		pendingReason string
		want          string
	}{
		{autocheckout.ReasonGPSBlocked, "LOCATION_DISABLED"},
		{autocheckout.ReasonOutsideBranch, "OUT_OF_BRANCH"},
		{"SOMETHING_UNKNOWN", "SOMETHING_UNKNOWN"},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, checkoutReasonFor(c.pendingReason))
	}
}
