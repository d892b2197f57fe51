// Package autocheckout implements the Auto-Checkout State Machine (C4):
// the pure, deterministic FSM reference implementation (fsm.go) that the
// mobile/web client contract mirrors, plus the server-side storage for
// PENDING auto-checkout proposals and the supersede-then-insert /
// idempotent-cancel semantics both the real client and the reconciler
// depend on. In production the FSM itself runs on the client; the server
// only observes its decisions through the rows it writes, which is why
// FSM.Tick never calls Service directly - this package's own tests are
// what exercise that boundary.
package autocheckout

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
	ReasonGPSBlocked    = "GPS_BLOCKED"
	ReasonOutsideBranch = "OUTSIDE_BRANCH"

	StatusPending   = "PENDING"
	StatusCancelled = "CANCELLED"
	StatusDone      = "DONE"

	CancelReasonRecovered            = "RECOVERED"
	CancelReasonRecoveredBeforeExec  = "RECOVERED_BEFORE_EXEC"
	CancelReasonSuperseded           = "SUPERSEDED"
	CancelReasonLogNotFound          = "LOG_NOT_FOUND"
	CancelReasonManualCheckout       = "MANUAL_CHECKOUT"
)

// Pending is an AutoCheckoutPending row.
type Pending struct {
	ID              string     `db:"id"`
	CompanyID       string     `db:"company_id"`
	AttendanceLogID string     `db:"attendance_log_id"`
	EmployeeID      string     `db:"employee_id"`
	Reason          string     `db:"reason"`
	Status          string     `db:"status"`
	EndsAt          time.Time  `db:"ends_at"`
	CancelReason    *string    `db:"cancel_reason"`
	CancelledAt     *time.Time `db:"cancelled_at"`
	DoneAt          *time.Time `db:"done_at"`
	CreatedAt       time.Time  `db:"created_at"`
}

const pendingColumns = `
	id, company_id, attendance_log_id, employee_id, reason, status,
	ends_at, cancel_reason, cancelled_at, done_at, created_at
`

// Repository persists AutoCheckoutPending rows, RLS-scoped to company_id.
type Repository struct {
	db *database.DB
}

// NewRepository creates an auto-checkout pending repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new PENDING row inside an already-open transaction (see
// Service.Propose, the only caller, which wraps this together with the
// supersede step in one serializable transaction).
func (r *Repository) Create(ctx context.Context, p *Pending) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	query := `
		INSERT INTO auto_checkout_pending (id, company_id, attendance_log_id, employee_id, reason, status, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		p.ID, p.CompanyID, p.AttendanceLogID, p.EmployeeID, p.Reason, p.Status, p.EndsAt,
	).Scan(&p.CreatedAt)
}

// cancelOpenPending supersedes/cancels any existing PENDING row for a log,
// inside an already-open transaction. Returns the number of rows cancelled
// (0 or 1, since pending_one_per_log enforces at most one).
func (r *Repository) cancelOpenPending(ctx context.Context, attendanceLogID, cancelReason string) (int64, error) {
	query := `
		UPDATE auto_checkout_pending
		SET status = $2, cancel_reason = $3, cancelled_at = NOW()
		WHERE attendance_log_id = $1 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, attendanceLogID, StatusCancelled, cancelReason, StatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetOpenForLog returns the PENDING row for a log, if any.
func (r *Repository) GetOpenForLog(ctx context.Context, attendanceLogID string) (*Pending, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var p Pending
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + pendingColumns + ` FROM auto_checkout_pending
			WHERE attendance_log_id = $1 AND status = $2`
		return r.db.GetContext(ctx, &p, query, attendanceLogID, StatusPending)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("pending auto-checkout")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListDue returns every PENDING row across all companies whose ends_at has
// passed, for the reconciler's sweep. Runs outside RLS deliberately: the
// reconciler is a trusted internal process that must see every tenant's
// due rows in one pass rather than iterating company-by-company.
func (r *Repository) ListDue(ctx context.Context, asOf time.Time) ([]Pending, error) {
	var rows []Pending
	query := `SELECT ` + pendingColumns + ` FROM auto_checkout_pending
		WHERE status = $1 AND ends_at <= $2
		ORDER BY ends_at`
	if err := r.db.SelectContext(ctx, &rows, query, StatusPending, asOf); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkDone closes out a PENDING row as executed, inside the reconciler's
// per-row transaction.
func (r *Repository) MarkDone(ctx context.Context, id string) error {
	query := `UPDATE auto_checkout_pending SET status = $2, done_at = NOW() WHERE id = $1 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, StatusDone, StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Conflict("pending row no longer PENDING")
	}
	return nil
}

// CancelByID cancels a single PENDING row by id, inside the reconciler's
// per-row transaction (used for the RECOVERED_BEFORE_EXEC final gate).
func (r *Repository) CancelByID(ctx context.Context, id, cancelReason string) error {
	query := `
		UPDATE auto_checkout_pending
		SET status = $2, cancel_reason = $3, cancelled_at = NOW()
		WHERE id = $1 AND status = $4
	`
	_, err := r.db.ExecContext(ctx, query, id, StatusCancelled, cancelReason, StatusPending)
	return err
}
