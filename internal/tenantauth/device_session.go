package tenantauth

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/errors"
)

// DeviceSession binds an employee session token to the device that
// activated it. The gatekeeper re-reads this row on every request so a
// revoked or re-bound device can never be impersonated by a stolen token
// whose claims alone would otherwise still look valid.
type DeviceSession struct {
	ID         string     `db:"id"`
	EmployeeID string     `db:"employee_id"`
	CompanyID  string     `db:"company_id"`
	DeviceID   string     `db:"device_id"`
	ExpiresAt  time.Time  `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
	RevokedAt  *time.Time `db:"revoked_at"`
}

// DeviceSessionRepository persists employee device bindings. It is
// intentionally outside RLS: the gatekeeper must resolve company_id
// from this table *before* a tenant context exists to scope the query.
type DeviceSessionRepository struct {
	db *database.DB
}

// NewDeviceSessionRepository creates a device session repository.
func NewDeviceSessionRepository(db *database.DB) *DeviceSessionRepository {
	return &DeviceSessionRepository{db: db}
}

// Create records a new device-bound session. Superseding prior sessions
// for the same device is the caller's responsibility (it happens at
// device-activation time, outside this core's scope).
func (r *DeviceSessionRepository) Create(ctx context.Context, employeeID, companyID, deviceID string, expiresAt time.Time) (*DeviceSession, error) {
	s := &DeviceSession{
		ID:         uuid.New().String(),
		EmployeeID: employeeID,
		CompanyID:  companyID,
		DeviceID:   deviceID,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now(),
	}

	query := `
		INSERT INTO employee_device_sessions (id, employee_id, company_id, device_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.EmployeeID, s.CompanyID, s.DeviceID, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetActive resolves an employee+device pair to its active session row,
// the authoritative source of company_id for the gatekeeper.
func (r *DeviceSessionRepository) GetActive(ctx context.Context, employeeID, deviceID string) (*DeviceSession, error) {
	var s DeviceSession
	query := `
		SELECT id, employee_id, company_id, device_id, expires_at, created_at, revoked_at
		FROM employee_device_sessions
		WHERE employee_id = $1 AND device_id = $2
			AND revoked_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &s, query, employeeID, deviceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Unauthenticated("no active session for this employee/device")
		}
		return nil, err
	}
	return &s, nil
}

// Revoke invalidates a device session (used when a device is deactivated).
func (r *DeviceSessionRepository) Revoke(ctx context.Context, id string) error {
	query := `UPDATE employee_device_sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
