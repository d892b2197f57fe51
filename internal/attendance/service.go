package attendance

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/attendly/attendance-core/pkg/errors"
	"github.com/attendly/attendance-core/pkg/messaging"
	"github.com/attendly/attendance-core/pkg/tenant"
	"github.com/attendly/attendance-core/internal/directory"
	"github.com/attendly/attendance-core/internal/events"
	"github.com/attendly/attendance-core/internal/geo"
	"github.com/attendly/attendance-core/internal/tenantauth"
)

// CheckInRequest is the admission controller's check-in input (C2 §4.2).
type CheckInRequest struct {
	Latitude   float64
	Longitude  float64
	AccuracyM  float64
	DeviceTime time.Time
	DeviceID   string
}

// CheckOutSource distinguishes a client-initiated check-out from the
// reconciler's internal auto-checkout path. The public handler never accepts
// CheckOutSourceAuto from a request body.
type CheckOutSource string

const (
	CheckOutSourceManual CheckOutSource = "manual"
	CheckOutSourceAuto   CheckOutSource = "auto"
)

// CheckOutRequest is the admission controller's check-out input.
type CheckOutRequest struct {
	Latitude  *float64
	Longitude *float64
	AccuracyM *float64
	Source    CheckOutSource
}

// PendingCanceller is the subset of the auto-checkout service C2 depends on:
// cancelling any PENDING proposal when a session closes manually.
type PendingCanceller interface {
	CancelForLog(ctx context.Context, attendanceLogID, reason string) error
}

// HeartbeatClearer deletes the LocationHeartbeat row for a session once it
// closes (C5's storage is owned by internal/heartbeat, not here).
type HeartbeatClearer interface {
	Clear(ctx context.Context, employeeID, attendanceLogID string) error
}

// Service implements the Admission Controller (C2) on top of the Attendance
// Ledger (C3) repository plus the directory lookups it needs.
type Service struct {
	repo        *Repository
	employees   *directory.EmployeeRepository
	branches    *directory.BranchRepository
	shifts      *directory.ShiftRepository
	settings    *directory.SettingsRepository
	pending     PendingCanceller
	heartbeats  HeartbeatClearer
	corrections *directory.CorrectionRepository
	publisher   *events.Publisher
}

// NewService wires the admission controller.
func NewService(
	repo *Repository,
	employees *directory.EmployeeRepository,
	branches *directory.BranchRepository,
	shifts *directory.ShiftRepository,
	settings *directory.SettingsRepository,
	pending PendingCanceller,
	heartbeats HeartbeatClearer,
	corrections *directory.CorrectionRepository,
	publisher *events.Publisher,
) *Service {
	return &Service{
		repo:        repo,
		employees:   employees,
		branches:    branches,
		shifts:      shifts,
		settings:    settings,
		pending:     pending,
		heartbeats:  heartbeats,
		corrections: corrections,
		publisher:   publisher,
	}
}

// CheckIn runs the full C2 admission algorithm for an employee-scoped
// principal: employee/branch eligibility, geofence, duplicate-session guard,
// and lateness computation, then inserts the AttendanceLog.
func (s *Service) CheckIn(ctx context.Context, principal tenantauth.Principal, employeeID, branchID string, req CheckInRequest) (*Log, error) {
	if err := validateCoordinates(req.Latitude, req.Longitude, req.AccuracyM); err != nil {
		return nil, err
	}

	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if err := tenantauth.RequireCompanyMatch(principal, employee.CompanyID); err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && !principal.OwnsEmployee(employeeID) {
		return nil, errors.Forbidden("cannot check in another employee")
	}
	if !employee.IsActive() {
		return nil, errors.EmployeeInactive(employeeID)
	}

	branch, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if !branch.IsActive {
		return nil, errors.BranchUnavailable(branchID)
	}

	distanceM := geo.HaversineMeters(req.Latitude, req.Longitude, branch.Latitude, branch.Longitude)
	if !geo.WithinRadius(distanceM, branch.GeofenceRadiusM) {
		return nil, errors.OutOfGeofence(distanceM, branch.GeofenceRadiusM)
	}

	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	checkInTime := time.Now()
	status, lateMinutes, err := s.computeLateness(ctx, employee, checkInTime)
	if err != nil {
		return nil, err
	}

	log := &Log{
		CompanyID:         tenantID,
		EmployeeID:        employeeID,
		BranchID:          branchID,
		CheckInTime:       checkInTime,
		CheckInDeviceTime: &req.DeviceTime,
		CheckInLat:        req.Latitude,
		CheckInLng:        req.Longitude,
		CheckInAccuracyM:  req.AccuracyM,
		CheckInDistanceM:  distanceM,
		Status:            status,
		LateMinutes:       lateMinutes,
	}

	err = s.repo.db.WithTenantRLSSerializable(ctx, tenantID, func(ctx context.Context) error {
		existing, err := s.findOpenSessionTx(ctx, employeeID)
		if err == nil {
			return errors.AlreadyCheckedIn(existing.ID)
		}
		if !errors.Is(err, errors.ErrNotCheckedIn) {
			return err
		}
		return s.repo.InsertCheckIn(ctx, log)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishCheckedIn(ctx, messaging.AttendanceCheckedInEvent{
		AttendanceLogID: log.ID,
		CompanyID:       log.CompanyID,
		EmployeeID:      log.EmployeeID,
		BranchID:        log.BranchID,
		ShiftID:         employee.ShiftID,
		CheckInTime:     log.CheckInTime,
		IsLate:          log.Status == StatusLate,
		LateMinutes:     log.LateMinutes,
	})
	return log, nil
}

// findOpenSessionTx is FindOpenSession without re-entering WithTenantRLS,
// for use from inside CheckIn's already-open serializable transaction.
func (s *Service) findOpenSessionTx(ctx context.Context, employeeID string) (*Log, error) {
	var log Log
	query := `SELECT ` + logColumns + ` FROM attendance_logs
		WHERE employee_id = $1 AND check_out_time IS NULL`
	if err := s.repo.db.GetContext(ctx, &log, query, employeeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotCheckedIn(employeeID)
		}
		return nil, err
	}
	return &log, nil
}

// computeLateness resolves the employee's shift and derives status/late
// minutes per §4.2 step 5, bucketing the shift's start time onto the
// company's own calendar day rather than the server process's. An
// employee with no assigned shift is always on_time.
func (s *Service) computeLateness(ctx context.Context, employee *directory.Employee, checkInTime time.Time) (string, int, error) {
	if employee.ShiftID == nil {
		return StatusOnTime, 0, nil
	}

	shift, err := s.shifts.GetByID(ctx, *employee.ShiftID)
	if err != nil {
		return "", 0, err
	}

	loc, err := s.companyLocation(ctx)
	if err != nil {
		return "", 0, err
	}

	scheduledStart, err := shift.TodayStart(checkInTime, loc)
	if err != nil {
		return "", 0, err
	}

	lateSeconds := checkInTime.Sub(scheduledStart).Seconds()
	lateMinutes := int(math.Floor(lateSeconds/60)) - shift.GraceMinutes
	if lateMinutes < 0 {
		lateMinutes = 0
	}
	if lateMinutes > 0 {
		return StatusLate, lateMinutes, nil
	}
	return StatusOnTime, 0, nil
}

// companyLocation resolves the calling company's configured IANA timezone,
// falling back to UTC when settings haven't been provisioned (tests that
// never wire a settings repository) or name a zone the tzdata build
// doesn't recognize.
func (s *Service) companyLocation(ctx context.Context) (*time.Location, error) {
	if s.settings == nil {
		return time.UTC, nil
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return settings.Location(), nil
}

// CheckOut runs the C2 check-out algorithm: idempotent NOT_CHECKED_IN when
// there's nothing open, otherwise closes the session, supersedes any
// PENDING auto-checkout row, and clears the heartbeat.
func (s *Service) CheckOut(ctx context.Context, principal tenantauth.Principal, employeeID string, req CheckOutRequest) (*Log, error) {
	if req.Source != CheckOutSourceManual {
		return nil, errors.BadRequest("public check-out must use source=manual")
	}
	if !principal.IsAdmin() && !principal.OwnsEmployee(employeeID) {
		return nil, errors.Forbidden("cannot check out another employee")
	}

	open, err := s.repo.FindOpenSession(ctx, employeeID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotCheckedIn) {
			return nil, err
		}
		// No open session: either the employee never checked in, or this is
		// a client retry after a check-out that already succeeded. The spec
		// requires the latter to return the closed session rather than an
		// error, so fall back to the most recent one before giving up.
		closed, closedErr := s.repo.FindMostRecentClosed(ctx, employeeID)
		if closedErr != nil {
			return nil, err
		}
		return closed, nil
	}

	now := time.Now()
	if err := s.repo.CloseSession(ctx, open.ID, now, req.Latitude, req.Longitude, CheckoutTypeManual, CheckoutReasonManual); err != nil {
		return nil, err
	}

	if err := s.pending.CancelForLog(ctx, open.ID, "MANUAL_CHECKOUT"); err != nil {
		return nil, err
	}
	if err := s.heartbeats.Clear(ctx, employeeID, open.ID); err != nil {
		return nil, err
	}

	closed, err := s.repo.GetByID(ctx, open.ID)
	if err != nil {
		return nil, err
	}

	workedMinutes := 0
	if closed.CheckOutTime != nil {
		workedMinutes = int(closed.CheckOutTime.Sub(closed.CheckInTime).Minutes())
	}
	s.publisher.PublishCheckedOut(ctx, messaging.AttendanceCheckedOutEvent{
		AttendanceLogID: closed.ID,
		CompanyID:       closed.CompanyID,
		EmployeeID:      closed.EmployeeID,
		CheckOutTime:    *closed.CheckOutTime,
		CheckoutType:    deref(closed.CheckoutType),
		CheckoutReason:  deref(closed.CheckoutReason),
		WorkedMinutes:   workedMinutes,
	})
	return closed, nil
}

// CorrectCheckout is the admin-driven path for a session the client never
// closed (a crashed app, a lost device) and that the reconciler hasn't yet
// force-closed: an admin manually sets the check-out time and the reason
// is recorded as an AttendanceCorrection audit row, never by mutating the
// original check-in fields. Admin-only; not reachable from the employee
// check-out path.
func (s *Service) CorrectCheckout(ctx context.Context, principal tenantauth.Principal, logID, correctedBy, reason string, correctedCheckOutTime time.Time) (*Log, error) {
	if !principal.IsAdmin() {
		return nil, errors.Forbidden("only an admin may correct an attendance log")
	}

	before, err := s.repo.GetByID(ctx, logID)
	if err != nil {
		return nil, err
	}
	if err := tenantauth.RequireCompanyMatch(principal, before.CompanyID); err != nil {
		return nil, err
	}

	originalCheckOutTime := before.CheckOutTime
	if before.IsOpen() {
		if err := s.repo.CloseSession(ctx, logID, correctedCheckOutTime, nil, nil, CheckoutTypeManual, CheckoutReasonManual); err != nil {
			return nil, err
		}
		if err := s.pending.CancelForLog(ctx, logID, "MANUAL_CHECKOUT"); err != nil {
			return nil, err
		}
		if err := s.heartbeats.Clear(ctx, before.EmployeeID, logID); err != nil {
			return nil, err
		}
	}

	if err := s.corrections.Record(ctx, &directory.AttendanceCorrection{
		AttendanceLogID:       logID,
		CorrectedBy:           correctedBy,
		Reason:                reason,
		OriginalCheckOutTime:  originalCheckOutTime,
		CorrectedCheckOutTime: &correctedCheckOutTime,
	}); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, logID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func validateCoordinates(lat, lng, accuracyM float64) error {
	if lat < -90 || lat > 90 {
		return errors.BadRequest("latitude out of range")
	}
	if lng < -180 || lng > 180 {
		return errors.BadRequest("longitude out of range")
	}
	if accuracyM < 0 {
		return errors.BadRequest("accuracy_m must be non-negative")
	}
	return nil
}
