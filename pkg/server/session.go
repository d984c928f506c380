package server

import (
	"sync"

	"github.com/taskwire/remindersd/pkg/provider"
)

// Phase is the session lifecycle stage
type Phase int

const (
	// PhaseUninitialized is the state before any initialize request
	PhaseUninitialized Phase = iota
	// PhaseInitializing is entered when initialize arrives and held while
	// provider authorization is outstanding
	PhaseInitializing
	// PhaseReady is entered once authorization resolves, granted or denied
	PhaseReady
)

// String returns the lowercase name of the phase
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// SessionSnapshot is a point-in-time copy of the session state, safe to
// read without holding any lock.
type SessionSnapshot struct {
	Phase         Phase
	Authorization provider.Decision
	ClientName    string
	ClientVersion string
}

// session tracks the connection lifecycle. Phase only moves forward;
// authorization may move from Denied back through a re-query because
// initialize is re-entrant.
type session struct {
	mu            sync.Mutex
	phase         Phase
	authorization provider.Decision
	clientName    string
	clientVersion string
}

func newSession() *session {
	return &session{
		phase:         PhaseUninitialized,
		authorization: provider.DecisionUnknown,
	}
}

// beginInitialize moves the session into Initializing and records client
// identity. Safe to call again after a completed initialize: re-initialize
// re-queries authorization without regressing a Ready phase.
func (s *session) beginInitialize(clientName, clientVersion string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseUninitialized {
		s.phase = PhaseInitializing
	}
	if clientName != "" {
		s.clientName = clientName
		s.clientVersion = clientVersion
	}
}

// resolveAuthorization records the provider decision and moves the session
// to Ready. Ready is reached whether the decision was granted or denied;
// denial gates tool calls, not the session itself.
func (s *session) resolveAuthorization(decision provider.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authorization = decision
	s.phase = PhaseReady
}

// gate reports whether tool dispatch may proceed. The two failure modes
// map to distinct wire errors, so both are surfaced separately.
func (s *session) gate() (ready bool, granted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.phase == PhaseReady, s.authorization == provider.DecisionGranted
}

// snapshot returns a consistent copy of the state
func (s *session) snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SessionSnapshot{
		Phase:         s.phase,
		Authorization: s.authorization,
		ClientName:    s.clientName,
		ClientVersion: s.clientVersion,
	}
}
