package autocheckout

import (
	"context"
	"time"

	"github.com/attendly/attendance-core/internal/events"
	"github.com/attendly/attendance-core/pkg/messaging"
	"github.com/attendly/attendance-core/pkg/tenant"
)

// Service implements the server-side half of C4: creating PENDING rows
// under the "supersede then insert" rule (§4.4.1) and cancelling them
// idempotently (§4.4.2). The state machine driving when to call Propose
// lives on the client; this type only persists its decisions.
type Service struct {
	repo      *Repository
	publisher *events.Publisher
}

// NewService wires the auto-checkout pending service.
func NewService(repo *Repository, publisher *events.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// Propose supersedes any existing PENDING row for this attendance log with
// cancel_reason=SUPERSEDED, then inserts a fresh PENDING row with
// ends_at = now + afterSeconds. ends_at is fixed at creation and never
// mutated afterward, per the "single source of truth for the countdown"
// invariant.
func (s *Service) Propose(ctx context.Context, attendanceLogID, employeeID, reason string, afterSeconds int) (*Pending, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var created *Pending
	err = s.repo.db.WithTenantRLSSerializable(ctx, tenantID, func(ctx context.Context) error {
		if _, err := s.repo.cancelOpenPending(ctx, attendanceLogID, CancelReasonSuperseded); err != nil {
			return err
		}

		p := &Pending{
			CompanyID:       tenantID,
			AttendanceLogID: attendanceLogID,
			EmployeeID:      employeeID,
			Reason:          reason,
			Status:          StatusPending,
			EndsAt:          time.Now().Add(time.Duration(afterSeconds) * time.Second),
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishAutoCheckoutPending(ctx, messaging.AttendanceAutoCheckoutPendingEvent{
		PendingID:       created.ID,
		AttendanceLogID: created.AttendanceLogID,
		CompanyID:       created.CompanyID,
		EmployeeID:      created.EmployeeID,
		CountdownStart:  created.CreatedAt,
		FireAt:          created.EndsAt,
	})
	return created, nil
}

// CancelForLog cancels any open PENDING row for an attendance log with the
// given reason. It is idempotent: cancelling a log with no open PENDING row
// is a no-op, not an error, since the client FSM and the server's own
// check-out path may both race to cancel the same row. Implements
// attendance.PendingCanceller.
func (s *Service) CancelForLog(ctx context.Context, attendanceLogID, reason string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}
	return s.repo.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		_, err := s.repo.cancelOpenPending(ctx, attendanceLogID, reason)
		return err
	})
}

// GetOpenForLog exposes the current PENDING row for a log, for clients
// reconnecting mid-countdown to derive remaining time as
// max(0, ends_at - now) without ever recomputing ends_at themselves.
func (s *Service) GetOpenForLog(ctx context.Context, attendanceLogID string) (*Pending, error) {
	return s.repo.GetOpenForLog(ctx, attendanceLogID)
}
