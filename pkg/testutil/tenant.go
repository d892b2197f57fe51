package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/attendly/attendance-core/pkg/tenant"
)

// TestTenant represents a company created for testing. The RLS model used by
// this service scopes everything by a single `company_id` column rather than
// a per-tenant schema, so there is no schema to create or drop here - just a
// row in `companies`.
type TestTenant struct {
	ID   string
	Name string
}

// TenantManager creates and tears down test companies.
type TenantManager struct {
	db      *sqlx.DB
	tenants []TestTenant
	mu      sync.Mutex
}

// NewTenantManager creates a new tenant manager for tests.
func NewTenantManager(db *sqlx.DB) *TenantManager {
	return &TenantManager{db: db, tenants: make([]TestTenant, 0)}
}

// CreateTenant inserts a company row for testing.
//
// Usage:
//
//	tm := testutil.NewTenantManager(db)
//	company, err := tm.CreateTenant(ctx, "acme-clinic")
//	ctx = testutil.WithTestTenant(ctx, company)
func (tm *TenantManager) CreateTenant(ctx context.Context, name string) (*TestTenant, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	id := uuid.New().String()
	_, err := tm.db.ExecContext(ctx, `
		INSERT INTO companies (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, id, name)
	if err != nil {
		return nil, fmt.Errorf("failed to register test company: %w", err)
	}

	_, err = tm.db.ExecContext(ctx, `
		INSERT INTO company_settings (company_id)
		VALUES ($1)
		ON CONFLICT (company_id) DO NOTHING
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to seed default company settings: %w", err)
	}

	t := TestTenant{ID: id, Name: name}
	tm.tenants = append(tm.tenants, t)
	return &t, nil
}

// DropTenant removes a company and everything RLS-scoped beneath it via
// ON DELETE CASCADE.
func (tm *TenantManager) DropTenant(ctx context.Context, t *TestTenant) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	_, err := tm.db.ExecContext(ctx, "DELETE FROM companies WHERE id = $1", t.ID)
	if err != nil {
		return fmt.Errorf("failed to delete test company: %w", err)
	}

	for i, tracked := range tm.tenants {
		if tracked.ID == t.ID {
			tm.tenants = append(tm.tenants[:i], tm.tenants[i+1:]...)
			break
		}
	}
	return nil
}

// Cleanup drops every company created by this manager. Call from TestMain or
// a suite teardown.
func (tm *TenantManager) Cleanup(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var lastErr error
	for _, t := range tm.tenants {
		if _, err := tm.db.ExecContext(ctx, "DELETE FROM companies WHERE id = $1", t.ID); err != nil {
			lastErr = err
		}
	}
	tm.tenants = make([]TestTenant, 0)
	return lastErr
}

// WithTestTenant adds the company ID to the context the way
// internal/tenantauth's middleware would after validating a bearer token.
func WithTestTenant(ctx context.Context, t *TestTenant) context.Context {
	return tenant.WithTenantID(ctx, t.ID)
}

// WithTestTenantID is a convenience wrapper for tests that only have a raw ID.
func WithTestTenantID(ctx context.Context, id string) context.Context {
	return tenant.WithTenantID(ctx, id)
}

// TestTenantContext returns a context carrying a fixed fake company ID, for
// unit tests that don't touch a real database.
func TestTenantContext() context.Context {
	return tenant.WithTenantID(context.Background(), "00000000-0000-0000-0000-000000000001")
}

// AttendanceMigrations returns the DDL for this service's schema: companies,
// company_settings, branches, shifts, employees, employee_device_sessions,
// attendance_logs, auto_checkout_pending, location_heartbeats, leaves,
// delay_permissions, attendance_corrections.
// Row-level security follows the same tenant-isolation policy idiom
// throughout (`USING (company_id = current_setting('app.current_tenant')::uuid)`),
// applied per-table instead of per-schema.
func AttendanceMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS company_settings (
			company_id UUID PRIMARY KEY REFERENCES companies(id) ON DELETE CASCADE,
			timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
			auto_checkout_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			verify_outside_with_n_readings INT NOT NULL DEFAULT 3,
			after_seconds INT NOT NULL DEFAULT 900,
			stale_after_hours INT NOT NULL DEFAULT 18,
			workdays_per_month INT NOT NULL DEFAULT 26,
			insurance_type VARCHAR(20) NOT NULL DEFAULT 'percentage',
			insurance_value NUMERIC(12,4) NOT NULL DEFAULT 0,
			tax_type VARCHAR(20) NOT NULL DEFAULT 'percentage',
			tax_value NUMERIC(12,4) NOT NULL DEFAULT 0,
			overtime_multiplier NUMERIC(6,2) NOT NULL DEFAULT 1.5,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT insurance_type_valid CHECK (insurance_type IN ('percentage', 'fixed')),
			CONSTRAINT tax_type_valid CHECK (tax_type IN ('percentage', 'fixed'))
		)`,

		`CREATE TABLE IF NOT EXISTS branches (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			geofence_radius_m DOUBLE PRECISION NOT NULL DEFAULT 150,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT geofence_radius_positive CHECK (geofence_radius_m > 0)
		)`,
		`ALTER TABLE branches ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY tenant_isolation ON branches FOR ALL
			USING (company_id = current_setting('app.current_tenant')::uuid)
			WITH CHECK (company_id = current_setting('app.current_tenant')::uuid)`,

		`CREATE TABLE IF NOT EXISTS shifts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			start_time TIME NOT NULL,
			end_time TIME NOT NULL,
			grace_minutes INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`ALTER TABLE shifts ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY tenant_isolation ON shifts FOR ALL
			USING (company_id = current_setting('app.current_tenant')::uuid)
			WITH CHECK (company_id = current_setting('app.current_tenant')::uuid)`,

		`CREATE TABLE IF NOT EXISTS employees (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			branch_id UUID NOT NULL REFERENCES branches(id) ON DELETE RESTRICT,
			shift_id UUID REFERENCES shifts(id) ON DELETE SET NULL,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			base_monthly_salary NUMERIC(12,2) NOT NULL DEFAULT 0,
			monthly_allowances NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT status_valid CHECK (status IN ('active', 'on_leave', 'suspended', 'terminated'))
		)`,
		`ALTER TABLE employees ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY tenant_isolation ON employees FOR ALL
			USING (company_id = current_setting('app.current_tenant')::uuid)
			WITH CHECK (company_id = current_setting('app.current_tenant')::uuid)`,

		`CREATE TABLE IF NOT EXISTS employee_device_sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			employee_id UUID NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
			company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			device_id VARCHAR(255) NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			revoked_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_employee_device_sessions_lookup
			ON employee_device_sessions(employee_id, device_id)`,

		`CREATE TABLE IF NOT EXISTS attendance_logs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			employee_id UUID NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
			branch_id UUID NOT NULL REFERENCES branches(id),
			check_in_time TIMESTAMPTZ NOT NULL,
			check_in_device_time TIMESTAMPTZ,
			check_in_lat DOUBLE PRECISION NOT NULL,
			check_in_lng DOUBLE PRECISION NOT NULL,
			check_in_accuracy_m DOUBLE PRECISION NOT NULL DEFAULT 0,
			check_in_distance_m DOUBLE PRECISION NOT NULL DEFAULT 0,
			check_out_time TIMESTAMPTZ,
			check_out_lat DOUBLE PRECISION,
			check_out_lng DOUBLE PRECISION,
			checkout_type VARCHAR(20),
			checkout_reason VARCHAR(40),
			status VARCHAR(20) NOT NULL DEFAULT 'on_time',
			late_minutes INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT checkout_type_valid CHECK (
				checkout_type IS NULL OR checkout_type IN ('MANUAL', 'AUTO')
			),
			CONSTRAINT checkout_reason_valid CHECK (
				checkout_reason IS NULL OR checkout_reason IN (
					'MANUAL_CHECKOUT', 'AUTO_GEOFENCE', 'STALE_SESSION'
				)
			),
			CONSTRAINT status_valid CHECK (status IN ('on_time', 'late')),
			CONSTRAINT checkout_after_checkin CHECK (check_out_time IS NULL OR check_out_time >= check_in_time)
		)`,
		`ALTER TABLE attendance_logs ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY tenant_isolation ON attendance_logs FOR ALL
			USING (company_id = current_setting('app.current_tenant')::uuid)
			WITH CHECK (company_id = current_setting('app.current_tenant')::uuid)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS one_open_session_per_employee
			ON attendance_logs(employee_id) WHERE check_out_time IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_logs_employee_range
			ON attendance_logs(employee_id, check_in_time)`,

		`CREATE TABLE IF NOT EXISTS auto_checkout_pending (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			attendance_log_id UUID NOT NULL REFERENCES attendance_logs(id) ON DELETE CASCADE,
			employee_id UUID NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
			reason VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			ends_at TIMESTAMPTZ NOT NULL,
			cancel_reason VARCHAR(40),
			cancelled_at TIMESTAMPTZ,
			done_at TIMESTAMPTZ,
			resolved_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT pending_reason_valid CHECK (reason IN ('GPS_BLOCKED', 'OUTSIDE_BRANCH')),
			CONSTRAINT pending_status_valid CHECK (status IN ('PENDING', 'CANCELLED', 'DONE')),
			CONSTRAINT pending_cancel_reason_valid CHECK (
				cancel_reason IS NULL OR cancel_reason IN (
					'RECOVERED', 'RECOVERED_BEFORE_EXEC', 'SUPERSEDED', 'LOG_NOT_FOUND', 'MANUAL_CHECKOUT'
				)
			)
		)`,
		`ALTER TABLE auto_checkout_pending ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY tenant_isolation ON auto_checkout_pending FOR ALL
			USING (company_id = current_setting('app.current_tenant')::uuid)
			WITH CHECK (company_id = current_setting('app.current_tenant')::uuid)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS pending_one_per_log
			ON auto_checkout_pending(attendance_log_id) WHERE status = 'PENDING'`,
		`CREATE INDEX IF NOT EXISTS idx_pending_ends_at
			ON auto_checkout_pending(ends_at) WHERE status = 'PENDING'`,

		`CREATE TABLE IF NOT EXISTS location_heartbeats (
			employee_id UUID NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
			attendance_log_id UUID NOT NULL REFERENCES attendance_logs(id) ON DELETE CASCADE,
			company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			in_branch BOOLEAN NOT NULL DEFAULT TRUE,
			gps_ok BOOLEAN NOT NULL DEFAULT TRUE,
			reason VARCHAR(40),
			last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (employee_id, attendance_log_id)
		)`,
		`ALTER TABLE location_heartbeats ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY tenant_isolation ON location_heartbeats FOR ALL
			USING (company_id = current_setting('app.current_tenant')::uuid)
			WITH CHECK (company_id = current_setting('app.current_tenant')::uuid)`,

		`CREATE TABLE IF NOT EXISTS leaves (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			employee_id UUID NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'approved',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`ALTER TABLE leaves ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY tenant_isolation ON leaves FOR ALL
			USING (company_id = current_setting('app.current_tenant')::uuid)
			WITH CHECK (company_id = current_setting('app.current_tenant')::uuid)`,

		`CREATE TABLE IF NOT EXISTS delay_permissions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			employee_id UUID NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
			permission_date DATE NOT NULL,
			grace_minutes INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`ALTER TABLE delay_permissions ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY tenant_isolation ON delay_permissions FOR ALL
			USING (company_id = current_setting('app.current_tenant')::uuid)
			WITH CHECK (company_id = current_setting('app.current_tenant')::uuid)`,

		`CREATE TABLE IF NOT EXISTS attendance_corrections (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			attendance_log_id UUID NOT NULL REFERENCES attendance_logs(id) ON DELETE CASCADE,
			corrected_by UUID NOT NULL,
			reason TEXT NOT NULL,
			original_check_out_time TIMESTAMPTZ,
			corrected_check_out_time TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`ALTER TABLE attendance_corrections ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY tenant_isolation ON attendance_corrections FOR ALL
			USING (company_id = current_setting('app.current_tenant')::uuid)
			WITH CHECK (company_id = current_setting('app.current_tenant')::uuid)`,
	}
}
