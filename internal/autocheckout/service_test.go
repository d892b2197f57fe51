package autocheckout_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/attendly/attendance-core/internal/attendance"
	"github.com/attendly/attendance-core/internal/autocheckout"
	"github.com/attendly/attendance-core/internal/directory"
	"github.com/attendly/attendance-core/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFSM_DrivesServiceCancelForLog drives the reference FSM (internal/
// autocheckout.FSM) through a WARNING->recovery sequence and checks that
// the ActionCancelRecovered it emits is exactly what Service.CancelForLog
// needs to resolve a real PENDING row - proving the pure reference
// implementation's output is wire-compatible with the persistence layer a
// real client talks to, not just internally self-consistent.
func TestFSM_DrivesServiceCancelForLog(t *testing.T) {
	ctx := context.Background()
	tenant := suite.SetupCompany(t, ctx, "test-fsm-drives-cancel")
	tenantCtx := suite.CompanyContext(tenant)

	branches := directory.NewBranchRepository(suite.DB)
	branch := suite.Fixtures.Branch(testutil.WithBranchCoordinates(1, 1))
	require.NoError(t, branches.Create(tenantCtx, branch))
	employees := directory.NewEmployeeRepository(suite.DB)
	employee := suite.Fixtures.Employee(branch.ID, testutil.WithSalary(decimal.NewFromInt(2000)))
	require.NoError(t, employees.Create(tenantCtx, employee))
	logs := attendance.NewRepository(suite.DB)
	entry := suite.Fixtures.AttendanceLog(tenant.ID, employee, branch)
	require.NoError(t, logs.InsertCheckIn(tenantCtx, entry))

	pendingRepo := autocheckout.NewRepository(suite.DB)
	service := autocheckout.NewService(pendingRepo, nil)

	now := time.Now()
	params := autocheckout.NewParams(3, 900)
	f := autocheckout.NewFSM()

	action, reason := f.Tick(autocheckout.RawReasonLocationDisabled, params, now)
	require.Equal(t, autocheckout.ActionCreatePending, action)
	err := suite.DB.WithTenantRLSSerializable(tenantCtx, tenant.ID, func(ctx context.Context) error {
		p := &autocheckout.Pending{
			CompanyID: tenant.ID, AttendanceLogID: entry.ID, EmployeeID: entry.EmployeeID,
			Reason: string(reason), EndsAt: f.EndsAt(),
		}
		return pendingRepo.Create(ctx, p)
	})
	require.NoError(t, err)

	f.Tick(autocheckout.RawReasonNone, params, now)
	action, _ = f.Tick(autocheckout.RawReasonNone, params, now)
	require.Equal(t, autocheckout.ActionCancelRecovered, action)

	require.NoError(t, service.CancelForLog(tenantCtx, entry.ID, autocheckout.CancelReasonRecovered))

	_, err = pendingRepo.GetOpenForLog(tenantCtx, entry.ID)
	assert.Error(t, err, "FSM-driven recovery must leave no open PENDING row")
}
