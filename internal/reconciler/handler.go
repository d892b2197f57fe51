package reconciler

import (
	"net/http"

	"github.com/attendly/attendance-core/pkg/httputil"
	"github.com/attendly/attendance-core/pkg/logger"
)

// Handler exposes a manual trigger for the reconciler sweep, for ops to run
// an out-of-band pass without waiting for the next scheduled tick.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a reconciler handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

// Run handles POST /internal/reconciler/run.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Run(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}
