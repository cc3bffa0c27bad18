package recording

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Observer is called on every transition while the machine lock is held.
// Observers must not block or call back into the machine.
type Observer func(from, to State)

// Option configures a Machine
type Option func(*Machine)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithObserver registers a transition observer
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observers = append(m.observers, o) }
}

// WithLogger sets the transition logger
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// Machine owns the recording lifecycle. Writers are serialized by a mutex;
// readers load an atomically published immutable State.
type Machine struct {
	mu           sync.Mutex
	state        atomic.Pointer[State]
	session      *Session
	segmentStart time.Time
	now          func() time.Time
	observers    []Observer
	logger       zerolog.Logger
}

// NewMachine returns a machine in Idle
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state.Store(&State{Kind: Idle})
	return m
}

// Current returns the published state
func (m *Machine) Current() State {
	return *m.state.Load()
}

// Session returns a copy of the active session, if any
func (m *Machine) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return Session{}, false
	}
	s := *m.session
	s.Duration = m.elapsedLocked()
	return s, true
}

// Elapsed returns accumulated recording time, excluding pauses
func (m *Machine) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsedLocked()
}

func (m *Machine) elapsedLocked() time.Duration {
	if m.session == nil {
		return 0
	}
	d := m.session.Duration
	if m.Current().Kind == Recording {
		d += m.now().Sub(m.segmentStart)
	}
	return d
}

// transition publishes next and notifies observers; caller holds mu
func (m *Machine) transition(next State) {
	prev := *m.state.Load()
	m.state.Store(&next)

	event := m.logger.Info()
	if m.session != nil {
		event = event.Str("session_id", m.session.ID)
	}
	event.Stringer("from", prev.Kind).Stringer("to", next.Kind).Msg("recording state changed")

	for _, o := range m.observers {
		o(prev, next)
	}
}

// Start opens a session. It returns false without error when a session is
// already active.
func (m *Machine) Start(id, outputPath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Current()
	switch cur.Kind {
	case Recording, Paused:
		return false, nil
	case Idle, Completed:
	default:
		return false, conflict("start", cur.Kind, ErrInvalidTransition)
	}

	now := m.now()
	m.session = &Session{ID: id, OutputPath: outputPath, StartTime: now}
	m.segmentStart = now
	m.transition(State{Kind: Recording, StartedAt: now})
	return true, nil
}

// Pause suspends Recording. When supported is false the state is unchanged.
func (m *Machine) Pause(supported bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Current()
	if cur.Kind != Recording {
		return conflict("pause", cur.Kind, ErrInvalidTransition)
	}
	if !supported {
		return conflict("pause", cur.Kind, ErrPauseUnsupported)
	}

	now := m.now()
	m.session.Duration += now.Sub(m.segmentStart)
	m.transition(State{Kind: Paused, PausedAt: now})
	return nil
}

// Resume returns from Paused to Recording
func (m *Machine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Current()
	if cur.Kind != Paused {
		return conflict("resume", cur.Kind, ErrInvalidTransition)
	}

	m.segmentStart = m.now()
	m.transition(State{Kind: Recording, StartedAt: m.session.StartTime})
	return nil
}

// Stop moves an active session to Processing and returns it
func (m *Machine) Stop() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Current()
	if !cur.Active() {
		return Session{}, conflict("stop", cur.Kind, ErrNothingToStop)
	}

	if cur.Kind == Recording {
		m.session.Duration += m.now().Sub(m.segmentStart)
	}
	m.transition(State{Kind: Processing})
	return *m.session, nil
}

// Complete finishes Processing with the final output path
func (m *Machine) Complete(outputPath string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Current()
	if cur.Kind != Processing {
		return Session{}, conflict("complete", cur.Kind, ErrInvalidTransition)
	}

	s := *m.session
	s.OutputPath = outputPath
	m.transition(State{Kind: Completed, OutputPath: outputPath})
	m.session = nil
	return s, nil
}

// Cancel abandons any session and returns to Idle. Active or processing
// sessions pass through Cancelled. The returned bool reports whether a
// session was abandoned.
func (m *Machine) Cancel() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Current()
	var abandoned Session
	hadSession := m.session != nil
	if hadSession {
		abandoned = *m.session
		if cur.Kind == Recording {
			abandoned.Duration += m.now().Sub(m.segmentStart)
		}
	}

	switch cur.Kind {
	case Idle:
		return Session{}, false
	case Recording, Paused, Processing:
		m.transition(State{Kind: Cancelled})
	}

	m.session = nil
	m.transition(State{Kind: Idle})
	return abandoned, hadSession
}

// Fail records a fatal error from any state and drops the session
func (m *Machine) Fail(reason string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var dropped Session
	hadSession := m.session != nil
	if hadSession {
		dropped = *m.session
	}

	m.transition(State{Kind: Error, Reason: reason})
	m.session = nil
	return dropped, hadSession
}

// Cleanup returns Error or Completed to Idle
func (m *Machine) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Current()
	switch cur.Kind {
	case Idle:
		return nil
	case Error, Completed:
		m.session = nil
		m.transition(State{Kind: Idle})
		return nil
	default:
		return conflict("cleanup", cur.Kind, ErrInvalidTransition)
	}
}
