package autocheckout

import "time"

// State is a client-side Auto-Checkout FSM state (spec §4.4). The FSM runs
// on each connected client for each active check-in; the server only ever
// observes it through the PENDING rows and heartbeats it writes. This type
// is the pure, deterministic reference implementation of that state
// machine: it performs no I/O itself, so the mobile/web client contract and
// this repo's own tests can drive it against identical inputs and expect
// identical Action sequences.
type State string

const (
	StateIdle      State = "IDLE"
	StateWarning   State = "WARNING"
	StateCountdown State = "COUNTDOWN"
	StateDone      State = "DONE"
)

// RawReason is the per-tick signal the FSM debounces against. Computed by
// the caller: LOCATION_DISABLED if GPS is unavailable or permission denied,
// else OUTSIDE_BRANCH if the last known distance exceeds the branch's
// geofence radius, else the zero value (good reading).
type RawReason string

const (
	RawReasonNone             RawReason = ""
	RawReasonLocationDisabled RawReason = "LOCATION_DISABLED"
	RawReasonOutsideBranch    RawReason = "OUTSIDE_BRANCH"
)

// Action is the side effect a Tick call tells the caller to perform against
// the server. The FSM itself never calls autocheckout.Service directly -
// that boundary is exactly what lets the same type serve as both a
// reference implementation and a test harness.
type Action int

const (
	ActionNone Action = iota
	ActionCreatePending
	ActionCancelRecovered
)

// DefaultM is the hard-coded consecutive-good-reading count required to
// clear WARNING or COUNTDOWN back to IDLE (spec §4.4: "M = 2, hard-coded").
const DefaultM = 2

// Params are the CompanySettings-derived debounce parameters for one
// employee's FSM instance.
type Params struct {
	N int           // verify_outside_with_n_readings, default 3
	M int           // consecutive good readings to clear; always DefaultM
	T time.Duration // after_seconds
}

// NewParams builds Params from CompanySettings fields, applying the spec's
// defaults for anything left at its zero value.
func NewParams(verifyOutsideWithNReadings, afterSeconds int) Params {
	n := verifyOutsideWithNReadings
	if n <= 0 {
		n = 3
	}
	t := afterSeconds
	if t <= 0 {
		t = 900
	}
	return Params{N: n, M: DefaultM, T: time.Duration(t) * time.Second}
}

// FSM tracks one employee's active check-in through IDLE/WARNING/COUNTDOWN/
// DONE. Zero value is not usable; construct with NewFSM.
type FSM struct {
	state        State
	outsideCount int
	goodCount    int
	endsAt       time.Time
}

// NewFSM starts a fresh FSM in IDLE, as it is the moment an employee checks
// in.
func NewFSM() *FSM {
	return &FSM{state: StateIdle}
}

// State returns the FSM's current state.
func (f *FSM) State() State { return f.state }

// EndsAt returns the countdown deadline fixed when COUNTDOWN was entered.
// Zero value if the FSM never reached COUNTDOWN.
func (f *FSM) EndsAt() time.Time { return f.endsAt }

// Tick advances the FSM by one observed reading per the §4.4 transition
// table and returns the action the caller must take against the server,
// plus the PENDING reason to use when the action is ActionCreatePending.
// A DONE FSM ignores further ticks - DONE is terminal on the client side;
// the server reconciler is what actually materializes the checkout.
func (f *FSM) Tick(reason RawReason, params Params, now time.Time) (Action, RawReason) {
	if f.state == StateDone {
		return ActionNone, RawReasonNone
	}

	if reason == RawReasonNone {
		f.outsideCount = 0
		if f.state == StateWarning || f.state == StateCountdown {
			f.goodCount++
			if f.goodCount >= m(params) {
				f.state = StateIdle
				f.goodCount = 0
				return ActionCancelRecovered, RawReasonNone
			}
		}
		return ActionNone, RawReasonNone
	}

	f.goodCount = 0

	switch f.state {
	case StateIdle:
		if reason == RawReasonLocationDisabled {
			return f.enterCountdown(reason, params, now), reason
		}
		f.outsideCount++
		if f.outsideCount >= n(params) {
			return f.enterCountdown(reason, params, now), reason
		}
		f.state = StateWarning
		return ActionNone, RawReasonNone

	case StateWarning:
		if reason == RawReasonLocationDisabled {
			return f.enterCountdown(reason, params, now), reason
		}
		f.outsideCount++
		if f.outsideCount >= n(params) {
			return f.enterCountdown(reason, params, now), reason
		}
		return ActionNone, RawReasonNone

	case StateCountdown:
		// Already counting down toward a fixed ends_at; the transition
		// table has no rule for a bad reading re-arming an in-flight
		// countdown, only for recovery (handled above) or elapsing (Elapse).
		return ActionNone, RawReasonNone
	}

	return ActionNone, RawReasonNone
}

func (f *FSM) enterCountdown(reason RawReason, params Params, now time.Time) Action {
	f.state = StateCountdown
	f.outsideCount = 0
	f.endsAt = now.Add(params.T)
	return ActionCreatePending
}

// Elapse checks whether a COUNTDOWN's ends_at has passed and, if so,
// transitions to DONE. Returns whether the transition happened. Per §4.4
// this produces no client-side checkout - the server reconciler is the
// sole executor.
func (f *FSM) Elapse(now time.Time) bool {
	if f.state != StateCountdown {
		return false
	}
	if !now.Before(f.endsAt) {
		f.state = StateDone
		return true
	}
	return false
}

func n(p Params) int {
	if p.N <= 0 {
		return 3
	}
	return p.N
}

func m(p Params) int {
	if p.M <= 0 {
		return DefaultM
	}
	return p.M
}
