// Package directory holds the thin master-data repositories the core reads
// constantly (Company, Employee, Branch, Shift, CompanySettings) and the
// payroll-adjacent inputs (Leave, DelayPermission). Write-side CRUD is
// intentionally minimal: admin management of these entities is an external
// collaborator's job; this package exists so the core has something
// concrete to query.
package directory

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/errors"
)

// Company is the tenant root. Identity is immutable once created.
type Company struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// CompanyRepository persists Company rows. Unlike every other repository in
// this package, it operates outside RLS: there is no tenant context yet
// until a company exists to be one.
type CompanyRepository struct {
	db *database.DB
}

// NewCompanyRepository creates a company repository.
func NewCompanyRepository(db *database.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create inserts a new company and seeds its CompanySettings row: every
// company has exactly one settings row from the moment it is provisioned.
// timezone must be a valid IANA zone name; every wall-clock computation
// for this company (shift start times, day bucketing, payroll ranges) is
// anchored to it rather than to the server process's own zone.
func (r *CompanyRepository) Create(ctx context.Context, name, timezone string) (*Company, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, errors.BadRequest("invalid timezone: " + timezone)
	}

	c := &Company{ID: uuid.New().String(), Name: name}

	query := `INSERT INTO companies (id, name) VALUES ($1, $2) RETURNING created_at`
	if err := r.db.QueryRowxContext(ctx, query, c.ID, c.Name).Scan(&c.CreatedAt); err != nil {
		return nil, err
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO company_settings (company_id, timezone) VALUES ($1, $2)`, c.ID, timezone)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// GetByID fetches a company by id.
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*Company, error) {
	var c Company
	query := `SELECT id, name, created_at FROM companies WHERE id = $1`
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("company")
		}
		return nil, err
	}
	return &c, nil
}
