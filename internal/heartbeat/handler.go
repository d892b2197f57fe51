package heartbeat

import (
	"net/http"

	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/httputil"
	"github.com/attendly/attendance-core/pkg/logger"
	"github.com/attendly/attendance-core/internal/tenantauth"
)

// Handler exposes the Heartbeat Sink (C5) over HTTP: a fire-and-forget tick
// from a client with an open session.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a heartbeat handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

type tickBody struct {
	EmployeeID      string  `json:"employee_id" validate:"required,uuid"`
	AttendanceLogID string  `json:"attendance_log_id" validate:"required,uuid"`
	Latitude        float64 `json:"latitude" validate:"required"`
	Longitude       float64 `json:"longitude" validate:"required"`
	InBranch        bool    `json:"in_branch"`
	GPSOk           bool    `json:"gps_ok"`
	Reason          *string `json:"reason,omitempty"`
}

// Record handles POST /attendance/heartbeat.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	principal, err := tenantauth.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var body tickBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}
	if !principal.IsAdmin() && !principal.OwnsEmployee(body.EmployeeID) {
		httputil.Error(w, errors.Forbidden("cannot report heartbeats for another employee"))
		return
	}

	err = h.service.Record(r.Context(), Input{
		EmployeeID:      body.EmployeeID,
		AttendanceLogID: body.AttendanceLogID,
		Latitude:        body.Latitude,
		Longitude:       body.Longitude,
		InBranch:        body.InBranch,
		GPSOk:           body.GPSOk,
		Reason:          body.Reason,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
