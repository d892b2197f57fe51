package directory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/tenant"
)

// AttendanceCorrection is an audit row written whenever an admin submits a
// check-out correction for an AttendanceLog. An open log is closed at the
// corrected time; an already closed log keeps its recorded check-out time.
// Either way the row sits alongside the log as a record of who asked for
// what and why.
type AttendanceCorrection struct {
	ID                     string    `db:"id"`
	CompanyID              string    `db:"company_id"`
	AttendanceLogID        string    `db:"attendance_log_id"`
	CorrectedBy            string    `db:"corrected_by"`
	Reason                 string    `db:"reason"`
	OriginalCheckOutTime   *time.Time `db:"original_check_out_time"`
	CorrectedCheckOutTime  *time.Time `db:"corrected_check_out_time"`
	CreatedAt              time.Time `db:"created_at"`
}

// CorrectionRepository is an append-only writer for the attendance
// correction audit trail.
type CorrectionRepository struct {
	db *database.DB
}

// NewCorrectionRepository creates a correction repository.
func NewCorrectionRepository(db *database.DB) *CorrectionRepository {
	return &CorrectionRepository{db: db}
}

// Record inserts an audit row for a manual correction.
func (r *CorrectionRepository) Record(ctx context.Context, c *AttendanceCorrection) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CompanyID = tenantID

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO attendance_corrections
				(id, company_id, attendance_log_id, corrected_by, reason, original_check_out_time, corrected_check_out_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`
		return r.db.QueryRowxContext(ctx, query,
			c.ID, c.CompanyID, c.AttendanceLogID, c.CorrectedBy, c.Reason,
			c.OriginalCheckOutTime, c.CorrectedCheckOutTime,
		).Scan(&c.CreatedAt)
	})
}

// ListForLog returns the correction history for a single attendance log,
// most recent first.
func (r *CorrectionRepository) ListForLog(ctx context.Context, attendanceLogID string) ([]AttendanceCorrection, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var corrections []AttendanceCorrection
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, company_id, attendance_log_id, corrected_by, reason,
				original_check_out_time, corrected_check_out_time, created_at
			FROM attendance_corrections
			WHERE attendance_log_id = $1
			ORDER BY created_at DESC
		`
		return r.db.SelectContext(ctx, &corrections, query, attendanceLogID)
	})
	if err != nil {
		return nil, err
	}
	return corrections, nil
}
