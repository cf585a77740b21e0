package peer

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"
)

var ErrSessionExists = errors.New("peer session already exists")

// Registry owns the live sessions, at most one per remote participant.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	tracks   []pion.TrackLocal
	emit     func(Event)
	now      func() time.Time
}

// NewRegistry returns a registry that attaches tracks to every connection it
// creates and routes native callbacks to emit.
func NewRegistry(factory Factory, tracks []pion.TrackLocal, emit func(Event)) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
		tracks:   tracks,
		emit:     emit,
		now:      time.Now,
	}
}

// Create opens a native connection for id. It fails with ErrSessionExists if
// a session is already registered.
func (r *Registry) Create(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	return r.create(id)
}

// GetOrCreate returns the session for id, creating it if needed.
func (r *Registry) GetOrCreate(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	return r.create(id)
}

func (r *Registry) create(id string) (*Session, error) {
	conn, err := r.factory.NewConn(id, r.emit)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	for _, track := range r.tracks {
		if err := conn.AddTrack(track); err != nil {
			conn.Close()
			return nil, fmt.Errorf("add track %s: %w", track.ID(), err)
		}
	}

	s := &Session{
		RemoteID:  id,
		CreatedAt: r.now(),
		Conn:      conn,
	}
	r.sessions[id] = s
	slog.Debug("peer session created", "peer", id)
	return s, nil
}

func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Destroy closes and forgets the session for id. It reports whether one existed.
func (r *Registry) Destroy(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.SetState(StateClosed)
	if err := s.Conn.Close(); err != nil {
		slog.Debug("closing peer connection", "peer", id, "error", err)
	}
	slog.Debug("peer session destroyed", "peer", id)
	return true
}

// DestroyAll tears every session down and returns their ids.
func (r *Registry) DestroyAll() []string {
	ids := r.IDs()
	for _, id := range ids {
		r.Destroy(id)
	}
	return ids
}

// IDs returns registered participant ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshots copies the display fields of every session, sorted by id.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	out := make([]Snapshot, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RemoteID < out[j].RemoteID })
	return out
}
