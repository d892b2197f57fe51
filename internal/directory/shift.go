package directory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/tenant"
)

// Shift is a wall-clock work window in the company's timezone.
// EndTime < StartTime denotes an overnight shift.
type Shift struct {
	ID           string    `db:"id"`
	CompanyID    string    `db:"company_id"`
	StartTime    string    `db:"start_time"` // HH:MM:SS
	EndTime      string    `db:"end_time"`   // HH:MM:SS
	GraceMinutes int       `db:"grace_minutes"`
	CreatedAt    time.Time `db:"created_at"`
}

// TodayStart resolves start_time onto the calendar day of ref as observed
// in loc (the owning company's timezone), giving the scheduled start
// instant the admission controller compares a check-in against. Overnight
// shifts (end_time < start_time) are out of scope for this core's
// lateness model; ref's own calendar day in loc is always used.
func (s *Shift) TodayStart(ref time.Time, loc *time.Location) (time.Time, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s.StartTime, "%d:%d:%d", &h, &m, &sec); err != nil {
		return time.Time{}, fmt.Errorf("invalid shift start_time %q: %w", s.StartTime, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	year, month, day := ref.In(loc).Date()
	return time.Date(year, month, day, h, m, sec, 0, loc), nil
}

// ShiftRepository persists Shift rows, RLS-scoped to company_id. A thin
// read-mostly surface: the admission controller and payroll projector are
// its only real callers, not a full shift-planning UI.
type ShiftRepository struct {
	db *database.DB
}

// NewShiftRepository creates a shift repository.
func NewShiftRepository(db *database.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// GetByID fetches a shift by id, scoped to the caller's tenant.
func (r *ShiftRepository) GetByID(ctx context.Context, id string) (*Shift, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var s Shift
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, company_id, start_time::text as start_time, end_time::text as end_time,
			       grace_minutes, created_at
			FROM shifts WHERE id = $1
		`
		return r.db.GetContext(ctx, &s, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("shift")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new shift.
func (r *ShiftRepository) Create(ctx context.Context, s *Shift) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CompanyID = tenantID

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO shifts (id, company_id, start_time, end_time, grace_minutes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`
		return r.db.QueryRowxContext(ctx, query,
			s.ID, s.CompanyID, s.StartTime, s.EndTime, s.GraceMinutes,
		).Scan(&s.CreatedAt)
	})
}
