package peer

import (
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"
)

// State of a peer session. A peer without a session is absent.
type State int

const (
	StateNew State = iota
	StateOffering
	StateAnswering
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateOffering:
		return "offering"
	case StateAnswering:
		return "answering"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is the negotiation state for one remote participant.
type Session struct {
	RemoteID  string
	CreatedAt time.Time
	Conn      Conn

	mu        sync.Mutex
	state     State
	name      string
	link      pion.PeerConnectionState
	pending   []pion.ICECandidateInit
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SetState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// Link is the last native connection state reported.
func (s *Session) Link() pion.PeerConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link
}

func (s *Session) SetLink(state pion.PeerConnectionState) {
	s.mu.Lock()
	s.link = state
	s.mu.Unlock()
}

// Defer holds a remote candidate until a remote description is set.
func (s *Session) Defer(c pion.ICECandidateInit) {
	s.mu.Lock()
	s.pending = append(s.pending, c)
	s.mu.Unlock()
}

// TakePending returns deferred candidates in arrival order and empties the
// buffer, so each candidate is handed out once.
func (s *Session) TakePending() []pion.ICECandidateInit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

func (s *Session) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Snapshot is a copy of a session's display fields.
type Snapshot struct {
	RemoteID  string
	Name      string
	State     State
	Link      pion.PeerConnectionState
	CreatedAt time.Time
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		RemoteID:  s.RemoteID,
		Name:      s.name,
		State:     s.state,
		Link:      s.link,
		CreatedAt: s.CreatedAt,
	}
}
