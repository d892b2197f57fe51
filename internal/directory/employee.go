package directory

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/tenant"
)

// Employee status values. Soft-deactivation only — never hard-deleted
// while attendance references exist.
const (
	EmployeeStatusActive      = "active"
	EmployeeStatusOnLeave     = "on_leave"
	EmployeeStatusSuspended   = "suspended"
	EmployeeStatusTerminated  = "terminated"
)

// Employee belongs to exactly one company, one branch, optionally one
// shift. Login identifiers are out of this core's scope; identity here is
// the opaque id the gatekeeper resolves.
type Employee struct {
	ID                string          `db:"id"`
	CompanyID         string          `db:"company_id"`
	BranchID          string          `db:"branch_id"`
	ShiftID           *string         `db:"shift_id"`
	Name              string          `db:"name"`
	Status            string          `db:"status"`
	BaseMonthlySalary decimal.Decimal `db:"base_monthly_salary"`
	MonthlyAllowances decimal.Decimal `db:"monthly_allowances"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// IsActive reports whether the employee may check in.
func (e *Employee) IsActive() bool {
	return e.Status == EmployeeStatusActive
}

// EmployeeRepository persists Employee rows, RLS-scoped to company_id.
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates an employee repository.
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// GetByID fetches an employee by id, scoped to the caller's tenant.
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*Employee, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var e Employee
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, company_id, branch_id, shift_id, name, status,
			       base_monthly_salary, monthly_allowances, created_at, updated_at
			FROM employees WHERE id = $1
		`
		return r.db.GetContext(ctx, &e, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("employee")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new employee.
func (r *EmployeeRepository) Create(ctx context.Context, e *Employee) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = EmployeeStatusActive
	}
	e.CompanyID = tenantID

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO employees (
				id, company_id, branch_id, shift_id, name, status,
				base_monthly_salary, monthly_allowances
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query,
			e.ID, e.CompanyID, e.BranchID, e.ShiftID, e.Name, e.Status,
			e.BaseMonthlySalary, e.MonthlyAllowances,
		).Scan(&e.CreatedAt, &e.UpdatedAt)
	})
}

// Deactivate soft-deactivates an employee (status -> terminated). Employee
// rows are never hard-deleted while attendance references exist.
func (r *EmployeeRepository) Deactivate(ctx context.Context, id string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `UPDATE employees SET status = $2 WHERE id = $1`
		result, err := r.db.ExecContext(ctx, query, id, EmployeeStatusTerminated)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("employee")
		}
		return nil
	})
}
