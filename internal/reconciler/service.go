// Package reconciler implements the server-side Reconciler (C6): the
// system-wide sweep that materializes auto-checkouts for PENDING rows whose
// countdown has elapsed, plus a supplemented sweep for sessions nobody ever
// closed and that stopped sending heartbeats entirely.
package reconciler

import (
	"context"
	"database/sql"
	"time"

	"github.com/attendly/attendance-core/internal/attendance"
	"github.com/attendly/attendance-core/internal/autocheckout"
	"github.com/attendly/attendance-core/internal/events"
	"github.com/attendly/attendance-core/internal/heartbeat"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/logger"
	"github.com/attendly/attendance-core/pkg/messaging"
)

const heartbeatGrace = 2 * time.Minute

// checkoutReasonFor maps a pending row's trigger reason onto the
// AttendanceLog's checkout_reason vocabulary.
func checkoutReasonFor(pendingReason string) string {
	switch pendingReason {
	case autocheckout.ReasonGPSBlocked:
		return "LOCATION_DISABLED"
	case autocheckout.ReasonOutsideBranch:
		return "OUT_OF_BRANCH"
	default:
		return pendingReason
	}
}

// Service runs the reconciler's per-invocation sweep. It deliberately holds
// the raw *database.DB (rather than attendance.Repository's RLS-scoped
// methods) for the PENDING-row phase, since each row's transaction must set
// its own company's tenant context individually — there is no single
// principal for a system-wide sweep.
type Service struct {
	db      *database.DB
	pending *autocheckout.Repository
	logs    *attendance.Repository
	hb      *heartbeat.Repository
	publisher *events.Publisher
	logger  *logger.Logger

	staleAfterHours int
}

// NewService wires the reconciler.
func NewService(db *database.DB, pending *autocheckout.Repository, logs *attendance.Repository, hb *heartbeat.Repository, publisher *events.Publisher, log *logger.Logger, staleAfterHours int) *Service {
	return &Service{db: db, pending: pending, logs: logs, hb: hb, publisher: publisher, logger: log, staleAfterHours: staleAfterHours}
}

// Result summarizes one invocation of the sweep, for logging and tests.
type Result struct {
	Done               int
	Cancelled          int
	StaleSessionsClosed int
}

// Run executes one idempotent reconciler pass: resolve every due PENDING
// row, then sweep stale open sessions nobody ever closed or proposed a
// countdown for. Safe to call concurrently or redundantly — each row is
// resolved under its own serializable transaction keyed on its own
// company_id, and a row already resolved by a prior tick is simply skipped.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var result Result

	due, err := s.pending.ListDue(ctx, time.Now())
	if err != nil {
		return result, err
	}

	for _, row := range due {
		resolved, err := s.resolveOne(ctx, row)
		if err != nil {
			s.logger.Error().Err(err).Str("pending_id", row.ID).Msg("reconciler: failed to resolve pending row")
			continue
		}
		switch resolved {
		case "DONE":
			result.Done++
		case "CANCELLED":
			result.Cancelled++
		}
	}

	closed, err := s.sweepStaleSessions(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("reconciler: stale session sweep failed")
	}
	result.StaleSessionsClosed = closed

	return result, nil
}

// resolveOne resolves a single due PENDING row inside its own serializable
// transaction, scoped to that row's own company_id.
func (s *Service) resolveOne(ctx context.Context, row autocheckout.Pending) (string, error) {
	outcome := ""

	err := s.db.WithTenantRLSSerializable(ctx, row.CompanyID, func(ctx context.Context) error {
		var log attendance.Log
		query := `SELECT ` + attendanceLogColumns() + ` FROM attendance_logs WHERE id = $1`
		err := s.db.GetContext(ctx, &log, query, row.AttendanceLogID)
		if err == sql.ErrNoRows {
			if cancelErr := s.cancelRow(ctx, row.ID, autocheckout.CancelReasonLogNotFound); cancelErr != nil {
				return cancelErr
			}
			outcome = "CANCELLED"
			return nil
		}
		if err != nil {
			return err
		}

		if log.CheckOutTime != nil {
			if markErr := s.markDone(ctx, row.ID); markErr != nil {
				return markErr
			}
			outcome = "DONE"
			return nil
		}

		var hb heartbeat.Heartbeat
		hbQuery := `SELECT employee_id, attendance_log_id, company_id, latitude, longitude, in_branch, gps_ok, reason, last_seen_at
			FROM location_heartbeats WHERE employee_id = $1 AND attendance_log_id = $2`
		hbErr := s.db.GetContext(ctx, &hb, hbQuery, row.EmployeeID, row.AttendanceLogID)

		recovered := hbErr == nil && hb.GPSOk && hb.InBranch && !hb.LastSeenAt.Before(row.EndsAt.Add(-heartbeatGrace))
		if recovered {
			if cancelErr := s.cancelRow(ctx, row.ID, autocheckout.CancelReasonRecoveredBeforeExec); cancelErr != nil {
				return cancelErr
			}
			outcome = "CANCELLED"
			return nil
		}

		now := time.Now()
		checkoutReason := checkoutReasonFor(row.Reason)
		updateQuery := `
			UPDATE attendance_logs
			SET check_out_time = $2, checkout_type = $3, checkout_reason = $4, updated_at = NOW()
			WHERE id = $1 AND check_out_time IS NULL
		`
		if _, err := s.db.ExecContext(ctx, updateQuery, row.AttendanceLogID, now, attendance.CheckoutTypeAuto, checkoutReason); err != nil {
			return err
		}
		if markErr := s.markDone(ctx, row.ID); markErr != nil {
			return markErr
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM location_heartbeats WHERE employee_id = $1 AND attendance_log_id = $2`, row.EmployeeID, row.AttendanceLogID); err != nil {
			return err
		}

		s.publisher.PublishAutoCheckoutDone(ctx, messaging.AttendanceAutoCheckoutDoneEvent{
			PendingID:       row.ID,
			AttendanceLogID: row.AttendanceLogID,
			CompanyID:       row.CompanyID,
			EmployeeID:      row.EmployeeID,
			Executed:        true,
			ResolvedAt:      now,
		})
		outcome = "DONE"
		return nil
	})

	return outcome, err
}

func (s *Service) markDone(ctx context.Context, pendingID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE auto_checkout_pending SET status = $2, done_at = NOW() WHERE id = $1 AND status = $3`,
		pendingID, autocheckout.StatusDone, autocheckout.StatusPending)
	return err
}

func (s *Service) cancelRow(ctx context.Context, pendingID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE auto_checkout_pending SET status = $2, cancel_reason = $3, cancelled_at = NOW()
		WHERE id = $1 AND status = $4
	`, pendingID, autocheckout.StatusCancelled, reason, autocheckout.StatusPending)
	return err
}

// sweepStaleSessions closes open sessions whose check-in happened more than
// staleAfterHours ago and that have no live client driving the FSM at all
// (no PENDING row, no fresh heartbeat) — a supplemented safety net for
// abandoned sessions (e.g. an uninstalled app) that the countdown-based FSM
// never catches because it depends on the client still being alive to
// report OUTSIDE_BRANCH/GPS_BLOCKED in the first place.
func (s *Service) sweepStaleSessions(ctx context.Context) (int, error) {
	stale, err := s.logs.ListStaleOpenSessions(ctx, s.staleAfterHours)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, log := range stale {
		fresh, _, err := (&heartbeatChecker{hb: s.hb}).isFresh(ctx, log.ID)
		if err != nil {
			continue
		}
		if fresh {
			continue
		}

		err = s.db.WithTenantRLS(ctx, log.CompanyID, func(ctx context.Context) error {
			now := time.Now()
			query := `
				UPDATE attendance_logs
				SET check_out_time = $2, checkout_type = $3, checkout_reason = $4, updated_at = NOW()
				WHERE id = $1 AND check_out_time IS NULL
			`
			_, err := s.db.ExecContext(ctx, query, log.ID, now, attendance.CheckoutTypeAuto, attendance.CheckoutReasonStale)
			return err
		})
		if err != nil {
			s.logger.Error().Err(err).Str("attendance_log_id", log.ID).Msg("reconciler: failed to close stale session")
			continue
		}
		closed++
	}
	return closed, nil
}

// heartbeatChecker adapts heartbeat.Repository's GetByLogID (no tenant
// context) into a simple freshness check for the stale-session sweep.
type heartbeatChecker struct {
	hb *heartbeat.Repository
}

func (c *heartbeatChecker) isFresh(ctx context.Context, attendanceLogID string) (bool, *heartbeat.Heartbeat, error) {
	hb, err := c.hb.GetByLogID(ctx, attendanceLogID)
	if err != nil {
		return false, nil, nil
	}
	return hb.IsFresh(time.Now()), hb, nil
}

func attendanceLogColumns() string {
	return `
		id, company_id, employee_id, branch_id,
		check_in_time, check_in_device_time, check_in_lat, check_in_lng, check_in_accuracy_m, check_in_distance_m,
		check_out_time, check_out_lat, check_out_lng, checkout_type, checkout_reason,
		status, late_minutes, created_at, updated_at
	`
}
