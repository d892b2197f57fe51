package directory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/tenant"
)

// Leave is an approved absence window whose days are subtracted from an
// employee's absence_days_in_range in the payroll projection. Creation and approval
// workflows live outside this core; this repository only answers "was this
// employee on leave on day X".
type Leave struct {
	ID         string    `db:"id"`
	CompanyID  string    `db:"company_id"`
	EmployeeID string    `db:"employee_id"`
	StartDate  time.Time `db:"start_date"`
	EndDate    time.Time `db:"end_date"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

// LeaveRepository is a read-mostly repository over approved leave windows.
type LeaveRepository struct {
	db *database.DB
}

// NewLeaveRepository creates a leave repository.
func NewLeaveRepository(db *database.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create inserts a leave window.
func (r *LeaveRepository) Create(ctx context.Context, l *Leave) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.CompanyID = tenantID
	if l.Status == "" {
		l.Status = "approved"
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO leaves (id, company_id, employee_id, start_date, end_date, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`
		return r.db.QueryRowxContext(ctx, query,
			l.ID, l.CompanyID, l.EmployeeID, l.StartDate, l.EndDate, l.Status,
		).Scan(&l.CreatedAt)
	})
}

// ListApprovedInRange returns every approved leave window for an employee
// that overlaps [from, to], for the payroll projector to subtract from the
// range's working days.
func (r *LeaveRepository) ListApprovedInRange(ctx context.Context, employeeID string, from, to time.Time) ([]Leave, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var leaves []Leave
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, company_id, employee_id, start_date, end_date, status, created_at
			FROM leaves
			WHERE employee_id = $1 AND status = 'approved'
				AND start_date <= $3 AND end_date >= $2
			ORDER BY start_date
		`
		return r.db.SelectContext(ctx, &leaves, query, employeeID, from, to)
	})
	if err != nil {
		return nil, err
	}
	return leaves, nil
}
