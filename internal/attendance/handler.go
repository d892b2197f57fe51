package attendance

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/httputil"
	"github.com/attendly/attendance-core/pkg/logger"
	"github.com/attendly/attendance-core/internal/tenantauth"
)

// Handler exposes the Admission Controller (C2) over HTTP.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates an attendance handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

type checkInBody struct {
	BranchID   string    `json:"branch_id" validate:"required,uuid"`
	Latitude   float64   `json:"latitude" validate:"required"`
	Longitude  float64   `json:"longitude" validate:"required"`
	AccuracyM  float64   `json:"accuracy_m"`
	DeviceTime time.Time `json:"device_time" validate:"required"`
}

// CheckIn handles POST /attendance/employees/{employee_id}/check-in.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employee_id")

	principal, err := tenantauth.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var body checkInBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}

	log, err := h.service.CheckIn(r.Context(), principal, employeeID, body.BranchID, CheckInRequest{
		Latitude:   body.Latitude,
		Longitude:  body.Longitude,
		AccuracyM:  body.AccuracyM,
		DeviceTime: body.DeviceTime,
		DeviceID:   principal.DeviceID,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, log)
}

type checkOutBody struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	AccuracyM *float64 `json:"accuracy_m"`
}

// CheckOut handles POST /attendance/employees/{employee_id}/check-out.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employee_id")

	principal, err := tenantauth.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var body checkOutBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}

	log, err := h.service.CheckOut(r.Context(), principal, employeeID, CheckOutRequest{
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
		AccuracyM: body.AccuracyM,
		Source:    CheckOutSourceManual,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, log)
}

// Current handles GET /attendance/employees/{employee_id}/current, returning
// the employee's open session if any.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employee_id")

	principal, err := tenantauth.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if !principal.IsAdmin() && !principal.OwnsEmployee(employeeID) {
		httputil.Error(w, errors.Forbidden("cannot view another employee's session"))
		return
	}

	log, err := h.service.repo.FindOpenSession(r.Context(), employeeID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, log)
}

type correctBody struct {
	Reason                string    `json:"reason" validate:"required"`
	CorrectedCheckOutTime time.Time `json:"corrected_check_out_time" validate:"required"`
}

// Correct handles POST /attendance/logs/{log_id}/correct: an admin-only
// force-close of a session the client never closed, with an audit row
// recording who corrected it and why. Mounted behind tenantauth.RequireAdmin.
func (h *Handler) Correct(w http.ResponseWriter, r *http.Request) {
	logID := chi.URLParam(r, "log_id")

	principal, err := tenantauth.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var body correctBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}

	corrected, err := h.service.CorrectCheckout(r.Context(), principal, logID, principal.SubjectID, body.Reason, body.CorrectedCheckOutTime)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, corrected)
}
