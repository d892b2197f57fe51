// Package heartbeat implements the Heartbeat Sink (C5): a single upserted
// row per open session tracking the client's last known location state.
package heartbeat

import (
	"context"
	"database/sql"
	"time"

	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/tenant"
)

// freshnessWindow is how recently a heartbeat must have landed to be
// considered live rather than stale, per the reconciler's final gate check.
const freshnessWindow = 2 * time.Minute

// Heartbeat is a LocationHeartbeat row.
type Heartbeat struct {
	EmployeeID      string    `db:"employee_id"`
	AttendanceLogID string    `db:"attendance_log_id"`
	CompanyID       string    `db:"company_id"`
	Latitude        float64   `db:"latitude"`
	Longitude       float64   `db:"longitude"`
	InBranch        bool      `db:"in_branch"`
	GPSOk           bool      `db:"gps_ok"`
	Reason          *string   `db:"reason"`
	LastSeenAt      time.Time `db:"last_seen_at"`
}

// IsFresh reports whether this heartbeat landed within the freshness window
// of asOf.
func (h *Heartbeat) IsFresh(asOf time.Time) bool {
	return !h.LastSeenAt.Before(asOf.Add(-freshnessWindow))
}

// Repository persists LocationHeartbeat rows, RLS-scoped to company_id.
type Repository struct {
	db *database.DB
}

// NewRepository creates a heartbeat repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Upsert records the latest location sample for a session. (employee_id,
// attendance_log_id) is the primary key so repeated ticks overwrite in
// place rather than accumulating history.
func (r *Repository) Upsert(ctx context.Context, h *Heartbeat) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}
	h.CompanyID = tenantID

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO location_heartbeats
				(employee_id, attendance_log_id, company_id, latitude, longitude, in_branch, gps_ok, reason, last_seen_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			ON CONFLICT (employee_id, attendance_log_id) DO UPDATE SET
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				in_branch = EXCLUDED.in_branch,
				gps_ok = EXCLUDED.gps_ok,
				reason = EXCLUDED.reason,
				last_seen_at = NOW()
		`
		_, err := r.db.ExecContext(ctx, query,
			h.EmployeeID, h.AttendanceLogID, h.CompanyID, h.Latitude, h.Longitude, h.InBranch, h.GPSOk, h.Reason,
		)
		return err
	})
}

// Get fetches the heartbeat for a session.
func (r *Repository) Get(ctx context.Context, employeeID, attendanceLogID string) (*Heartbeat, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var h Heartbeat
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT employee_id, attendance_log_id, company_id, latitude, longitude, in_branch, gps_ok, reason, last_seen_at
			FROM location_heartbeats WHERE employee_id = $1 AND attendance_log_id = $2
		`
		return r.db.GetContext(ctx, &h, query, employeeID, attendanceLogID)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("heartbeat")
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetByLogID fetches a heartbeat across all companies by attendance log id,
// for the reconciler's final gate check where no tenant context is active.
func (r *Repository) GetByLogID(ctx context.Context, attendanceLogID string) (*Heartbeat, error) {
	var h Heartbeat
	query := `
		SELECT employee_id, attendance_log_id, company_id, latitude, longitude, in_branch, gps_ok, reason, last_seen_at
		FROM location_heartbeats WHERE attendance_log_id = $1
	`
	if err := r.db.GetContext(ctx, &h, query, attendanceLogID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("heartbeat")
		}
		return nil, err
	}
	return &h, nil
}

// Delete removes the heartbeat row for a session, called when the session
// closes (manual or auto checkout both clear retention immediately).
func (r *Repository) Delete(ctx context.Context, employeeID, attendanceLogID string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}
	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM location_heartbeats WHERE employee_id = $1 AND attendance_log_id = $2`, employeeID, attendanceLogID)
		return err
	})
}
