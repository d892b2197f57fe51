package heartbeat

import (
	"context"
	"time"

	"github.com/attendly/attendance-core/pkg/errors"
)

// Input is a single heartbeat tick from a connected client.
type Input struct {
	EmployeeID      string
	AttendanceLogID string
	Latitude        float64
	Longitude       float64
	InBranch        bool
	GPSOk           bool
	Reason          *string
}

// Service wraps the heartbeat repository for the attendance admission
// controller's dependency on clearing a session's row at check-out.
// Implements attendance.HeartbeatClearer.
type Service struct {
	repo *Repository
}

// NewService creates a heartbeat service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Record upserts a heartbeat tick.
func (s *Service) Record(ctx context.Context, in Input) error {
	return s.repo.Upsert(ctx, &Heartbeat{
		EmployeeID:      in.EmployeeID,
		AttendanceLogID: in.AttendanceLogID,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		InBranch:        in.InBranch,
		GPSOk:           in.GPSOk,
		Reason:          in.Reason,
	})
}

// Clear removes the heartbeat row for a closed session.
func (s *Service) Clear(ctx context.Context, employeeID, attendanceLogID string) error {
	return s.repo.Delete(ctx, employeeID, attendanceLogID)
}

// IsFreshAsOf reports whether the most recent heartbeat for a session was
// seen within the 2-minute freshness window of asOf. Used by the
// reconciler's final gate check; returns false (not fresh) if no heartbeat
// row exists at all.
func (s *Service) IsFreshAsOf(ctx context.Context, attendanceLogID string, asOf time.Time) (bool, *Heartbeat, error) {
	hb, err := s.repo.GetByLogID(ctx, attendanceLogID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}
	return hb.IsFresh(asOf), hb, nil
}
