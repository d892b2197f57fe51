package autocheckout

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/httputil"
	"github.com/attendly/attendance-core/pkg/logger"
	"github.com/attendly/attendance-core/internal/tenantauth"
)

// Handler exposes the client-driven half of C4: the client's FSM decides
// when to propose a countdown or recover from one, the server only persists
// the decision.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates an auto-checkout handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

type proposeBody struct {
	AttendanceLogID string `json:"attendance_log_id" validate:"required,uuid"`
	EmployeeID      string `json:"employee_id" validate:"required,uuid"`
	Reason          string `json:"reason" validate:"required,oneof=GPS_BLOCKED OUTSIDE_BRANCH"`
	AfterSeconds    int    `json:"after_seconds" validate:"required,min=1"`
}

// Propose handles POST /attendance/auto-checkout/propose, called by the
// client FSM on transitioning into COUNTDOWN.
func (h *Handler) Propose(w http.ResponseWriter, r *http.Request) {
	principal, err := tenantauth.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var body proposeBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}
	if !principal.IsAdmin() && !principal.OwnsEmployee(body.EmployeeID) {
		httputil.Error(w, errors.Forbidden("cannot propose auto-checkout for another employee"))
		return
	}

	pending, err := h.service.Propose(r.Context(), body.AttendanceLogID, body.EmployeeID, body.Reason, body.AfterSeconds)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, pending)
}

type cancelBody struct {
	Reason string `json:"reason" validate:"required"`
}

// Cancel handles POST /attendance/auto-checkout/{log_id}/cancel, called by
// the client FSM on recovering (RECOVERED).
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	logID := chi.URLParam(r, "log_id")

	if _, err := tenantauth.FromContext(r.Context()); err != nil {
		httputil.Error(w, err)
		return
	}

	var body cancelBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.CancelForLog(r.Context(), logID, body.Reason); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Current handles GET /attendance/auto-checkout/{log_id}, letting a
// reconnecting client recompute its remaining countdown as
// max(0, ends_at - now) without ever trusting a client-held ends_at.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	logID := chi.URLParam(r, "log_id")

	if _, err := tenantauth.FromContext(r.Context()); err != nil {
		httputil.Error(w, err)
		return
	}

	pending, err := h.service.GetOpenForLog(r.Context(), logID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, pending)
}
