package payroll

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/httputil"
	"github.com/attendly/attendance-core/pkg/logger"
	"github.com/attendly/attendance-core/internal/tenantauth"
)

// Handler exposes the Payroll Projector (C7) as a read-only computation
// over an employee and date range. It writes nothing; callers persist the
// result themselves if they need a payroll run record.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a payroll handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{service: svc, logger: log}
}

const dateLayout = "2006-01-02"

// Project handles GET /payroll/employees/{employee_id}/projection, admin-only
// since it exposes salary-derived figures.
func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	principal, err := tenantauth.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if !principal.IsAdmin() {
		httputil.Error(w, errors.Forbidden("payroll projection requires admin credentials"))
		return
	}

	employeeID := chi.URLParam(r, "employee_id")

	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("from must be YYYY-MM-DD"))
		return
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("to must be YYYY-MM-DD"))
		return
	}

	overtime, err := decimalQueryParam(r, "overtime")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	bonuses, err := decimalQueryParam(r, "bonuses")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	penalties, err := decimalQueryParam(r, "penalties")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	projection, err := h.service.ProjectForEmployee(r.Context(), employeeID, from, to, overtime, bonuses, penalties)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, projection)
}

// decimalQueryParam parses an optional decimal-valued query parameter,
// defaulting to zero when absent so a caller that only wants the base
// projection doesn't have to pass overtime=0&bonuses=0&penalties=0.
func decimalQueryParam(r *http.Request, name string) (decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, errors.BadRequest(name + " must be a decimal number")
	}
	return value, nil
}
