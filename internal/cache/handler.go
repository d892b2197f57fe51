package cache

import (
	"net/http"

	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/httputil"
	"github.com/attendly/attendance-core/pkg/logger"
	"github.com/attendly/attendance-core/pkg/tenant"
	"github.com/attendly/attendance-core/internal/tenantauth"
)

// SettingsHandler exposes CompanySettings read access through the settings
// cache, for clients that need the server-configured auto-checkout tunables
// (verify_outside_with_n_readings, after_seconds) to drive their own FSM.
type SettingsHandler struct {
	cache  *SettingsCache
	logger *logger.Logger
}

// NewSettingsHandler creates a cached settings handler.
func NewSettingsHandler(c *SettingsCache, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{cache: c, logger: log}
}

// Get handles GET /attendance/settings, returning the caller's own company
// settings. company_id is always resolved from the authenticated tenant
// context, never from a query parameter.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, err := tenantauth.FromContext(r.Context()); err != nil {
		httputil.Error(w, err)
		return
	}

	companyID, err := tenant.TenantID(r.Context())
	if err != nil {
		httputil.Error(w, errors.Unauthenticated("no tenant resolved"))
		return
	}

	settings, err := h.cache.Get(r.Context(), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, settings)
}
