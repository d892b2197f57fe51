package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types published by the attendance core
const (
	EventAttendanceCheckedIn          = "attendance.checked_in"
	EventAttendanceCheckedOut         = "attendance.checked_out"
	EventAttendanceAutoCheckoutPending = "attendance.auto_checkout.pending"
	EventAttendanceAutoCheckoutDone    = "attendance.auto_checkout.done"
)

// ExchangeAttendanceEvents is the single topic exchange every attendance
// event is published to. Downstream collaborators (payroll exports, admin
// notifications) bind their own queues with routing-key wildcards.
const ExchangeAttendanceEvents = "attendance.events"

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// AttendanceCheckedInEvent is published when an employee successfully checks in
type AttendanceCheckedInEvent struct {
	AttendanceLogID string    `json:"attendance_log_id"`
	CompanyID       string    `json:"company_id"`
	EmployeeID      string    `json:"employee_id"`
	BranchID        string    `json:"branch_id"`
	ShiftID         *string   `json:"shift_id,omitempty"`
	CheckInTime     time.Time `json:"check_in_time"`
	IsLate          bool      `json:"is_late"`
	LateMinutes     int       `json:"late_minutes,omitempty"`
}

// AttendanceCheckedOutEvent is published when an attendance session closes,
// whether by the employee, the auto-checkout FSM, or the reconciler's
// stale-session sweep.
type AttendanceCheckedOutEvent struct {
	AttendanceLogID  string    `json:"attendance_log_id"`
	CompanyID        string    `json:"company_id"`
	EmployeeID       string    `json:"employee_id"`
	CheckOutTime     time.Time `json:"check_out_time"`
	CheckoutType     string    `json:"checkout_type"`   // MANUAL or AUTO
	CheckoutReason   string    `json:"checkout_reason"`  // MANUAL_CHECKOUT, AUTO_GEOFENCE, STALE_SESSION
	WorkedMinutes    int       `json:"worked_minutes"`
}

// AttendanceAutoCheckoutPendingEvent is published when the auto-checkout FSM
// enters COUNTDOWN and creates an AutoCheckoutPending row.
type AttendanceAutoCheckoutPendingEvent struct {
	PendingID       string    `json:"pending_id"`
	AttendanceLogID string    `json:"attendance_log_id"`
	CompanyID       string    `json:"company_id"`
	EmployeeID      string    `json:"employee_id"`
	CountdownStart  time.Time `json:"countdown_start"`
	FireAt          time.Time `json:"fire_at"`
}

// AttendanceAutoCheckoutDoneEvent is published when the reconciler executes
// a pending auto-checkout (state DONE) or cancels it.
type AttendanceAutoCheckoutDoneEvent struct {
	PendingID       string    `json:"pending_id"`
	AttendanceLogID string    `json:"attendance_log_id"`
	CompanyID       string    `json:"company_id"`
	EmployeeID      string    `json:"employee_id"`
	Executed        bool      `json:"executed"` // false if cancelled instead (employee came back in range)
	ResolvedAt      time.Time `json:"resolved_at"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
