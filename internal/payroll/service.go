package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/attendly/attendance-core/internal/attendance"
	"github.com/attendly/attendance-core/internal/directory"
)

// Service assembles Inputs from the directory and attendance repositories
// and runs Project, so callers (an admin payroll handler, a scheduled
// export job) don't need to know the derivation chain.
type Service struct {
	employees  *directory.EmployeeRepository
	settings   *directory.SettingsRepository
	leaves     *directory.LeaveRepository
	delays     *directory.DelayPermissionRepository
	attendance *attendance.Repository
}

// NewService wires the payroll projector service.
func NewService(
	employees *directory.EmployeeRepository,
	settings *directory.SettingsRepository,
	leaves *directory.LeaveRepository,
	delays *directory.DelayPermissionRepository,
	attendanceRepo *attendance.Repository,
) *Service {
	return &Service{employees: employees, settings: settings, leaves: leaves, delays: delays, attendance: attendanceRepo}
}

// ProjectForEmployee computes the full payroll projection for one employee
// over [from, to], pulling every input from storage.
func (s *Service) ProjectForEmployee(ctx context.Context, employeeID string, from, to time.Time, overtime, bonuses, penalties decimal.Decimal) (Projection, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return Projection{}, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return Projection{}, err
	}

	presentDays, err := s.attendance.ListPresentDaysInRange(ctx, employeeID, from, to, settings.Timezone)
	if err != nil {
		return Projection{}, err
	}
	delays, err := s.delays.ListInRange(ctx, employeeID, from, to)
	if err != nil {
		return Projection{}, err
	}
	graceByDay := make(map[time.Time]int, len(delays))
	for _, d := range delays {
		graceByDay[d.PermissionDate] = d.GraceMinutes
	}

	records := make([]DayRecord, 0, len(presentDays))
	for _, pd := range presentDays {
		records = append(records, DayRecord{
			Day:               pd.Day,
			LateMinutes:       pd.LateMinutes,
			DelayGraceMinutes: graceByDay[pd.Day],
		})
	}

	leaveWindows, err := s.leaves.ListApprovedInRange(ctx, employeeID, from, to)
	if err != nil {
		return Projection{}, err
	}
	approvedLeaveDays := countLeaveDaysInRange(leaveWindows, from, to)

	return Project(Inputs{
		Employee:          employee,
		Settings:          settings,
		From:              from,
		To:                to,
		PresentDays:       records,
		ApprovedLeaveDays: approvedLeaveDays,
		Overtime:          overtime,
		Bonuses:           bonuses,
		Penalties:         penalties,
	}), nil
}

// countLeaveDaysInRange counts the calendar days in [from, to] covered by
// any approved leave window, clamping each window to the range so leave
// outside [from, to] never counts.
func countLeaveDaysInRange(windows []directory.Leave, from, to time.Time) int {
	days := 0
	for _, w := range windows {
		start := w.StartDate
		if start.Before(from) {
			start = from
		}
		end := w.EndDate
		if end.After(to) {
			end = to
		}
		if end.Before(start) {
			continue
		}
		days += int(end.Sub(start).Hours()/24) + 1
	}
	return days
}
