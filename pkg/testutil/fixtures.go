package testutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/attendly/attendance-core/internal/attendance"
	"github.com/attendly/attendance-core/internal/directory"
)

// FixtureFactory builds attendance-domain test values with sensible
// defaults and a monotonically increasing sequence number for uniqueness.
// It exists so integration tests don't all hand-roll the same Branch/
// Shift/Employee boilerplate the way internal/attendance/repository_test.go's
// setupEmployee helper used to.
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory.
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values.
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Branch builds a Branch fixture centered on a fixed coordinate with a
// 150m geofence, active by default. Not yet persisted; the caller still
// passes it to directory.BranchRepository.Create.
func (f *FixtureFactory) Branch(opts ...func(*directory.Branch)) *directory.Branch {
	seq := f.nextSeq()
	b := &directory.Branch{
		Name:            fmt.Sprintf("Test Branch %d", seq),
		Latitude:        24.7136,
		Longitude:       46.6753,
		GeofenceRadiusM: 150,
		IsActive:        true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithBranchName sets the branch's name.
func WithBranchName(name string) func(*directory.Branch) {
	return func(b *directory.Branch) { b.Name = name }
}

// WithGeofenceRadius sets the branch's geofence radius in meters.
func WithGeofenceRadius(radiusM float64) func(*directory.Branch) {
	return func(b *directory.Branch) { b.GeofenceRadiusM = radiusM }
}

// WithBranchCoordinates sets the branch's center point.
func WithBranchCoordinates(lat, lng float64) func(*directory.Branch) {
	return func(b *directory.Branch) {
		b.Latitude = lat
		b.Longitude = lng
	}
}

// WithBranchActive sets the branch's active flag.
func WithBranchActive(active bool) func(*directory.Branch) {
	return func(b *directory.Branch) { b.IsActive = active }
}

// Shift builds a Shift fixture: a 09:00-17:00 window with no grace period.
func (f *FixtureFactory) Shift(opts ...func(*directory.Shift)) *directory.Shift {
	s := &directory.Shift{
		StartTime:    "09:00:00",
		EndTime:      "17:00:00",
		GraceMinutes: 0,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithShiftStart sets the shift's start_time ("HH:MM:SS").
func WithShiftStart(startTime string) func(*directory.Shift) {
	return func(s *directory.Shift) { s.StartTime = startTime }
}

// WithGraceMinutes sets the shift's grace period.
func WithGraceMinutes(minutes int) func(*directory.Shift) {
	return func(s *directory.Shift) { s.GraceMinutes = minutes }
}

// Employee builds an Employee fixture attached to branchID, active, with a
// representative base salary. shiftID is nil unless WithShiftID is applied.
func (f *FixtureFactory) Employee(branchID string, opts ...func(*directory.Employee)) *directory.Employee {
	seq := f.nextSeq()
	e := &directory.Employee{
		BranchID:          branchID,
		Name:              fmt.Sprintf("Test Employee %d", seq),
		Status:            directory.EmployeeStatusActive,
		BaseMonthlySalary: decimal.NewFromInt(2600),
		MonthlyAllowances: decimal.Zero,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithEmployeeName sets the employee's display name.
func WithEmployeeName(name string) func(*directory.Employee) {
	return func(e *directory.Employee) { e.Name = name }
}

// WithEmployeeStatus sets the employee's status.
func WithEmployeeStatus(status string) func(*directory.Employee) {
	return func(e *directory.Employee) { e.Status = status }
}

// WithShiftID assigns the employee a shift.
func WithShiftID(shiftID string) func(*directory.Employee) {
	return func(e *directory.Employee) { e.ShiftID = &shiftID }
}

// WithSalary sets the employee's base monthly salary.
func WithSalary(amount decimal.Decimal) func(*directory.Employee) {
	return func(e *directory.Employee) { e.BaseMonthlySalary = amount }
}

// AttendanceLog builds an open AttendanceLog fixture checked in now, inside
// the given branch's geofence, on time. Tests that need a closed session
// call CloseSession themselves after inserting it.
func (f *FixtureFactory) AttendanceLog(companyID string, employee *directory.Employee, branch *directory.Branch, opts ...func(*attendance.Log)) *attendance.Log {
	l := &attendance.Log{
		CompanyID:   companyID,
		EmployeeID:  employee.ID,
		BranchID:    branch.ID,
		CheckInTime: time.Now(),
		CheckInLat:  branch.Latitude,
		CheckInLng:  branch.Longitude,
		Status:      attendance.StatusOnTime,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithCheckInTime overrides the log's check-in time.
func WithCheckInTime(t time.Time) func(*attendance.Log) {
	return func(l *attendance.Log) { l.CheckInTime = t }
}

// WithLateness marks the log as late by the given number of minutes.
func WithLateness(minutes int) func(*attendance.Log) {
	return func(l *attendance.Log) {
		l.Status = attendance.StatusLate
		l.LateMinutes = minutes
	}
}
