package directory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/tenant"
)

// InsuranceTaxType selects how a CompanySettings monetary rule is applied.
type InsuranceTaxType string

const (
	RuleTypePercentage InsuranceTaxType = "percentage"
	RuleTypeFixed      InsuranceTaxType = "fixed"
)

// CompanySettings holds the per-company tunables the core reads on every
// admission, auto-checkout, and payroll decision. Exactly one row per
// company; auto-created by CompanyRepository.Create.
type CompanySettings struct {
	CompanyID                 string           `db:"company_id"`
	Timezone                  string           `db:"timezone"`
	AutoCheckoutEnabled       bool             `db:"auto_checkout_enabled"`
	AfterSeconds              int              `db:"after_seconds"`
	VerifyOutsideWithNReadings int              `db:"verify_outside_with_n_readings"`
	WorkdaysPerMonth          int              `db:"workdays_per_month"`
	InsuranceType             InsuranceTaxType `db:"insurance_type"`
	InsuranceValue            decimal.Decimal  `db:"insurance_value"`
	TaxType                   InsuranceTaxType `db:"tax_type"`
	TaxValue                  decimal.Decimal  `db:"tax_value"`
	OvertimeMultiplier        decimal.Decimal  `db:"overtime_multiplier"`
	StaleAfterHours           int              `db:"stale_after_hours"`
	UpdatedAt                 time.Time        `db:"updated_at"`
}

// Location resolves Timezone to a *time.Location, falling back to UTC for
// an empty or unrecognized zone rather than failing every admission/payroll
// computation on a bad setting.
func (s *CompanySettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SettingsRepository persists CompanySettings, RLS-scoped to company_id.
type SettingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a settings repository.
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get fetches the caller's company settings. Exactly one row is expected
// to exist (seeded at company creation); a missing row is a provisioning
// bug, not a normal not-found case, so it is returned unwrapped.
func (r *SettingsRepository) Get(ctx context.Context) (*CompanySettings, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var s CompanySettings
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT company_id, timezone, auto_checkout_enabled, after_seconds, verify_outside_with_n_readings,
			       workdays_per_month, insurance_type, insurance_value, tax_type, tax_value,
			       overtime_multiplier, stale_after_hours, updated_at
			FROM company_settings WHERE company_id = $1
		`
		return r.db.GetContext(ctx, &s, query, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Update persists changed CompanySettings fields. Thin admin surface;
// there is no partial-update support beyond writing the full row back.
func (r *SettingsRepository) Update(ctx context.Context, s *CompanySettings) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE company_settings SET
				timezone = $2, auto_checkout_enabled = $3, after_seconds = $4, verify_outside_with_n_readings = $5,
				workdays_per_month = $6, insurance_type = $7, insurance_value = $8,
				tax_type = $9, tax_value = $10, overtime_multiplier = $11, stale_after_hours = $12
			WHERE company_id = $1
		`
		_, err := r.db.ExecContext(ctx, query,
			tenantID, s.Timezone, s.AutoCheckoutEnabled, s.AfterSeconds, s.VerifyOutsideWithNReadings,
			s.WorkdaysPerMonth, s.InsuranceType, s.InsuranceValue,
			s.TaxType, s.TaxValue, s.OvertimeMultiplier, s.StaleAfterHours,
		)
		return err
	})
}
