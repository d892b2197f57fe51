package directory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/tenant"
)

// DelayPermission grants an employee extra grace minutes on a specific
// calendar date, offsetting (but never reversing) the lateness deduction in
// the payroll projection for that day.
type DelayPermission struct {
	ID             string    `db:"id"`
	CompanyID      string    `db:"company_id"`
	EmployeeID     string    `db:"employee_id"`
	PermissionDate time.Time `db:"permission_date"`
	GraceMinutes   int       `db:"grace_minutes"`
	CreatedAt      time.Time `db:"created_at"`
}

// DelayPermissionRepository is a read-mostly repository over per-day grace
// grants.
type DelayPermissionRepository struct {
	db *database.DB
}

// NewDelayPermissionRepository creates a delay permission repository.
func NewDelayPermissionRepository(db *database.DB) *DelayPermissionRepository {
	return &DelayPermissionRepository{db: db}
}

// Create inserts a delay permission for a single date.
func (r *DelayPermissionRepository) Create(ctx context.Context, p *DelayPermission) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CompanyID = tenantID

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO delay_permissions (id, company_id, employee_id, permission_date, grace_minutes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`
		return r.db.QueryRowxContext(ctx, query,
			p.ID, p.CompanyID, p.EmployeeID, p.PermissionDate, p.GraceMinutes,
		).Scan(&p.CreatedAt)
	})
}

// ListInRange returns every delay permission granted to an employee within
// [from, to], keyed by date, for the payroll projector's lateness offset.
func (r *DelayPermissionRepository) ListInRange(ctx context.Context, employeeID string, from, to time.Time) ([]DelayPermission, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var perms []DelayPermission
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, company_id, employee_id, permission_date, grace_minutes, created_at
			FROM delay_permissions
			WHERE employee_id = $1 AND permission_date BETWEEN $2 AND $3
			ORDER BY permission_date
		`
		return r.db.SelectContext(ctx, &perms, query, employeeID, from, to)
	})
	if err != nil {
		return nil, err
	}
	return perms, nil
}
