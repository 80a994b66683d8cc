// Package flow drives the credential-collection state machine for the
// link-access page: which inputs are still needed, whether submission
// is allowed, and how location acquisition attempts interleave.
package flow

import (
	"errors"

	"github.com/google/uuid"

	"github.com/getmyuri/getmyuri-client/internal/geo"
	"github.com/getmyuri/getmyuri-client/internal/requirement"
)

// State is the machine's current phase.
type State int

const (
	StateIdle State = iota
	StateAwaitingLocation
	StateReadyToSubmit
	StateSubmitting
	StateError
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingLocation:
		return "awaiting_location"
	case StateReadyToSubmit:
		return "ready_to_submit"
	case StateSubmitting:
		return "submitting"
	case StateError:
		return "error"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

var ErrNotReady = errors.New("required credentials are not yet satisfied")

// Machine holds the mutable credential state for one page visit.
// It is not safe for concurrent use; the caller owns serialization,
// matching the single event loop the access page runs on.
type Machine struct {
	req      requirement.Requirement
	password string
	coord    *geo.Coordinate
	state    State
	lastErr  string

	// attempt tokens serialize location acquisition: automatic and
	// manual attempts can overlap in wall time, and only the newest
	// attempt may write the coordinate. Stale completions are dropped.
	attempt uuid.UUID
}

// New builds a machine for the parsed requirement. Location-only links
// start acquiring immediately: there is nothing else to collect first,
// so the machine enters AwaitingLocation without user action.
func New(req requirement.Requirement) *Machine {
	m := &Machine{req: req, state: StateIdle}
	if req.LocationRequired && !req.PasswordRequired {
		m.state = StateAwaitingLocation
		m.attempt = uuid.New()
	}
	m.recompute()
	return m
}

func (m *Machine) State() State { return m.state }

func (m *Machine) LastError() string { return m.lastErr }

func (m *Machine) Password() string { return m.password }

func (m *Machine) Requirement() requirement.Requirement { return m.req }

// Coordinate returns the held position, if acquisition has completed.
func (m *Machine) Coordinate() (geo.Coordinate, bool) {
	if m.coord == nil {
		return geo.Coordinate{}, false
	}
	return *m.coord, true
}

// AttemptToken returns the token of the acquisition attempt currently
// allowed to write the coordinate.
func (m *Machine) AttemptToken() uuid.UUID { return m.attempt }

// NeedsLocation reports whether the manual location button applies:
// location is required and no coordinate is held yet. Manual retry is
// allowed regardless of any automatic attempt still pending.
func (m *Machine) NeedsLocation() bool {
	return m.req.LocationRequired && m.coord == nil
}

// SetPassword records the typed password and re-evaluates readiness.
func (m *Machine) SetPassword(password string) {
	if m.state == StateSubmitting || m.state == StateDone {
		return
	}
	m.password = password
	m.recompute()
}

// BeginLocation starts a fresh acquisition attempt and returns its
// token. Any attempt still in flight is orphaned: its completion will
// carry a stale token and be discarded.
func (m *Machine) BeginLocation() uuid.UUID {
	if !m.NeedsLocation() || m.state == StateSubmitting || m.state == StateDone {
		return uuid.Nil
	}
	m.attempt = uuid.New()
	m.state = StateAwaitingLocation
	m.lastErr = ""
	return m.attempt
}

// CompleteLocation applies a successful acquisition. It reports whether
// the result was accepted; a stale token loses the race and is ignored.
func (m *Machine) CompleteLocation(token uuid.UUID, coord geo.Coordinate) bool {
	if token == uuid.Nil || token != m.attempt {
		return false
	}
	c := coord
	m.coord = &c
	m.lastErr = ""
	if m.state == StateAwaitingLocation {
		m.state = StateIdle
	}
	m.recompute()
	return true
}

// FailLocation records a failed acquisition. Stale tokens are ignored
// the same way successful stale completions are.
func (m *Machine) FailLocation(token uuid.UUID, err error) bool {
	if token == uuid.Nil || token != m.attempt {
		return false
	}
	m.lastErr = err.Error()
	m.state = StateError
	return true
}

// CanSubmit enforces the submission invariant: never while submitting,
// never with a required credential absent.
func (m *Machine) CanSubmit() bool {
	if m.state == StateSubmitting || m.state == StateDone {
		return false
	}
	if m.req.PasswordRequired && m.password == "" {
		return false
	}
	if m.req.LocationRequired && m.coord == nil {
		return false
	}
	return true
}

// BeginSubmit transitions to Submitting, acting as the mutual exclusion
// against duplicate submissions.
func (m *Machine) BeginSubmit() error {
	if !m.CanSubmit() {
		return ErrNotReady
	}
	m.state = StateSubmitting
	m.lastErr = ""
	return nil
}

// FinishSubmit resolves the in-flight submission. A nil error is
// terminal; any error re-enters the form so the user can correct
// credentials and try again.
func (m *Machine) FinishSubmit(err error) {
	if m.state != StateSubmitting {
		return
	}
	if err != nil {
		m.lastErr = err.Error()
		m.state = StateError
		return
	}
	m.state = StateDone
}

// ClearCoordinate drops the held position so a fresh one is acquired on
// the next attempt, e.g. after a rejection that may be location-based.
func (m *Machine) ClearCoordinate() {
	if m.state == StateSubmitting || m.state == StateDone {
		return
	}
	m.coord = nil
	m.recompute()
}

// recompute promotes the machine to ReadyToSubmit whenever the
// invariant holds. Error and AwaitingLocation survive only while a
// required credential is still missing.
func (m *Machine) recompute() {
	if m.state == StateSubmitting || m.state == StateDone {
		return
	}
	if m.CanSubmit() {
		m.state = StateReadyToSubmit
		return
	}
	if m.state == StateReadyToSubmit {
		m.state = StateIdle
	}
}
