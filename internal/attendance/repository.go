// Package attendance implements the Attendance Ledger (C3) and the
// admission logic (C2) that writes to it: check-in, check-out, and the
// distinct-day projection payroll reads from.
package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/tenant"
)

const (
	CheckoutTypeManual = "MANUAL"
	CheckoutTypeAuto   = "AUTO"

	CheckoutReasonManual  = "MANUAL_CHECKOUT"
	CheckoutReasonGeofence = "AUTO_GEOFENCE"
	CheckoutReasonStale   = "STALE_SESSION"

	StatusOnTime = "on_time"
	StatusLate   = "late"
)

// Log is an AttendanceLog row: one check-in/check-out pair.
type Log struct {
	ID                string     `db:"id"`
	CompanyID         string     `db:"company_id"`
	EmployeeID        string     `db:"employee_id"`
	BranchID          string     `db:"branch_id"`
	CheckInTime       time.Time  `db:"check_in_time"`
	CheckInDeviceTime *time.Time `db:"check_in_device_time"`
	CheckInLat        float64    `db:"check_in_lat"`
	CheckInLng        float64    `db:"check_in_lng"`
	CheckInAccuracyM  float64    `db:"check_in_accuracy_m"`
	CheckInDistanceM  float64    `db:"check_in_distance_m"`
	CheckOutTime      *time.Time `db:"check_out_time"`
	CheckOutLat       *float64   `db:"check_out_lat"`
	CheckOutLng       *float64   `db:"check_out_lng"`
	CheckoutType      *string    `db:"checkout_type"`
	CheckoutReason    *string    `db:"checkout_reason"`
	Status            string     `db:"status"`
	LateMinutes       int        `db:"late_minutes"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// IsOpen reports whether this session has no check-out yet.
func (l *Log) IsOpen() bool { return l.CheckOutTime == nil }

// DayPresence is one row of the distinct-day projection: a single calendar
// day on which an employee had at least one attendance session, collapsed
// from however many sessions actually occurred that day.
type DayPresence struct {
	EmployeeID  string    `db:"employee_id"`
	Day         time.Time `db:"day"`
	LateMinutes int       `db:"late_minutes"`
}

const logColumns = `
	id, company_id, employee_id, branch_id,
	check_in_time, check_in_device_time, check_in_lat, check_in_lng, check_in_accuracy_m, check_in_distance_m,
	check_out_time, check_out_lat, check_out_lng, checkout_type, checkout_reason,
	status, late_minutes, created_at, updated_at
`

// Repository persists AttendanceLog rows, RLS-scoped to company_id.
type Repository struct {
	db *database.DB
}

// NewRepository creates an attendance repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// FindOpenSession returns the employee's currently open session, if any.
// errors.NotCheckedIn is returned (not a bare sql.ErrNoRows) when there
// isn't one, since callers treat "no open session" as a normal, expected outcome.
func (r *Repository) FindOpenSession(ctx context.Context, employeeID string) (*Log, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var log Log
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + logColumns + ` FROM attendance_logs
			WHERE employee_id = $1 AND check_out_time IS NULL`
		return r.db.GetContext(ctx, &log, query, employeeID)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotCheckedIn(employeeID)
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// FindMostRecentClosed returns the employee's most recently closed session,
// if any. Used by Service.CheckOut to answer a post-success retry: the spec
// requires a client that retries check-out after it already succeeded to
// get back the closed session, not an error.
func (r *Repository) FindMostRecentClosed(ctx context.Context, employeeID string) (*Log, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var log Log
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + logColumns + ` FROM attendance_logs
			WHERE employee_id = $1 AND check_out_time IS NOT NULL
			ORDER BY check_out_time DESC LIMIT 1`
		return r.db.GetContext(ctx, &log, query, employeeID)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotCheckedIn(employeeID)
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// GetByID fetches a single attendance log by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Log, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var log Log
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + logColumns + ` FROM attendance_logs WHERE id = $1`
		return r.db.GetContext(ctx, &log, query, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("attendance log")
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// InsertCheckIn creates a new open session inside an already-open
// serializable transaction (see Service.CheckIn, which is the only caller
// that needs the duplicate-session guarantee this implies).
func (r *Repository) InsertCheckIn(ctx context.Context, log *Log) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	query := `
		INSERT INTO attendance_logs (
			id, company_id, employee_id, branch_id,
			check_in_time, check_in_device_time, check_in_lat, check_in_lng, check_in_accuracy_m, check_in_distance_m,
			status, late_minutes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		log.ID, log.CompanyID, log.EmployeeID, log.BranchID,
		log.CheckInTime, log.CheckInDeviceTime, log.CheckInLat, log.CheckInLng, log.CheckInAccuracyM, log.CheckInDistanceM,
		log.Status, log.LateMinutes,
	).Scan(&log.CreatedAt, &log.UpdatedAt)
}

// CloseSession writes check-out fields onto an open log row.
func (r *Repository) CloseSession(ctx context.Context, logID string, checkOutTime time.Time, lat, lng *float64, checkoutType, checkoutReason string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE attendance_logs
			SET check_out_time = $2, check_out_lat = $3, check_out_lng = $4,
				checkout_type = $5, checkout_reason = $6, updated_at = NOW()
			WHERE id = $1 AND check_out_time IS NULL
		`
		res, err := r.db.ExecContext(ctx, query, logID, checkOutTime, lat, lng, checkoutType, checkoutReason)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.Conflict("session already closed")
		}
		return nil
	})
}

// ListSessionsInRange returns every session (open or closed) for an employee
// whose check-in falls within [from, to), for the payroll projector and for
// admin review screens.
func (r *Repository) ListSessionsInRange(ctx context.Context, employeeID string, from, to time.Time) ([]Log, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var logs []Log
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + logColumns + ` FROM attendance_logs
			WHERE employee_id = $1 AND check_in_time >= $2 AND check_in_time < $3
			ORDER BY check_in_time`
		return r.db.SelectContext(ctx, &logs, query, employeeID, from, to)
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// ListPresentDaysInRange returns the distinct-day projection (P5): one row
// per calendar day the employee had any session in [from, to), carrying the
// maximum late_minutes across that day's sessions so a short late session
// followed by an on-time one can't erase the lateness. timezone is the
// owning company's IANA zone (from CompanySettings); the session's TIME
// ZONE is pinned to it for the query so date_trunc('day', ...) buckets on
// the company's calendar day instead of the server's.
func (r *Repository) ListPresentDaysInRange(ctx context.Context, employeeID string, from, to time.Time, timezone string) ([]DayPresence, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var days []DayPresence
	err = r.db.WithTenantRLSInZone(ctx, tenantID, timezone, func(ctx context.Context) error {
		query := `
			SELECT employee_id, date_trunc('day', check_in_time) AS day, MAX(late_minutes) AS late_minutes
			FROM attendance_logs
			WHERE employee_id = $1 AND check_in_time >= $2 AND check_in_time < $3
			GROUP BY employee_id, date_trunc('day', check_in_time)
			ORDER BY day
		`
		return r.db.SelectContext(ctx, &days, query, employeeID, from, to)
	})
	if err != nil {
		return nil, err
	}
	return days, nil
}

// ListStaleOpenSessions returns open sessions whose check-in happened more
// than maxAgeHours ago and that have no PENDING auto-checkout row, for the
// reconciler's supplemented stale-session sweep (a session nobody ever
// closed, with no live heartbeat to trigger an auto-checkout proposal).
func (r *Repository) ListStaleOpenSessions(ctx context.Context, maxAgeHours int) ([]Log, error) {
	var logs []Log
	query := `SELECT ` + logColumns + ` FROM attendance_logs
		WHERE check_out_time IS NULL AND check_in_time < NOW() - ($1 || ' hours')::interval
		AND NOT EXISTS (
			SELECT 1 FROM auto_checkout_pending p
			WHERE p.attendance_log_id = attendance_logs.id AND p.status = 'PENDING'
		)`
	if err := r.db.SelectContext(ctx, &logs, query, maxAgeHours); err != nil {
		return nil, err
	}
	return logs, nil
}
