package directory

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/tenant"
)

// Branch is a geofenced company location.
type Branch struct {
	ID              string    `db:"id"`
	CompanyID       string    `db:"company_id"`
	Name            string    `db:"name"`
	Latitude        float64   `db:"latitude"`
	Longitude       float64   `db:"longitude"`
	GeofenceRadiusM float64   `db:"geofence_radius_m"`
	IsActive        bool      `db:"is_active"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// BranchRepository persists Branch rows, RLS-scoped to company_id.
type BranchRepository struct {
	db *database.DB
}

// NewBranchRepository creates a branch repository.
func NewBranchRepository(db *database.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

// GetByID fetches a branch by id, scoped to the caller's tenant.
func (r *BranchRepository) GetByID(ctx context.Context, id string) (*Branch, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var b Branch
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, company_id, name, latitude, longitude, geofence_radius_m, is_active, created_at, updated_at
			FROM branches WHERE id = $1
		`
		return r.db.GetContext(ctx, &b, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("branch")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new branch. Thin admin CRUD surface — the core's
// primary consumer is GetByID during check-in admission.
func (r *BranchRepository) Create(ctx context.Context, b *Branch) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	b.CompanyID = tenantID

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO branches (id, company_id, name, latitude, longitude, geofence_radius_m, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query,
			b.ID, b.CompanyID, b.Name, b.Latitude, b.Longitude, b.GeofenceRadiusM, b.IsActive,
		).Scan(&b.CreatedAt, &b.UpdatedAt)
	})
}
