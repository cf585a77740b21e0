// Package room tracks who is in the current meeting room.
package room

import (
	"errors"
	"slices"
	"sync"
)

// DefaultCapacity counts the local participant.
const DefaultCapacity = 4

var ErrRoomFull = errors.New("room full")

// Admission describes how a join was handled.
type Admission int

const (
	// Ignored means the join came from the local participant.
	Ignored Admission = iota
	// Admitted means a new participant was added.
	Admitted
	// Rejoined means the participant was already a member.
	Rejoined
)

// Tracker is the set of remote participants in the room. The local
// participant is implicit and always counts toward capacity.
type Tracker struct {
	mu       sync.RWMutex
	self     string
	capacity int
	members  []string
}

// NewTracker returns an empty room for self. A capacity below 2 means DefaultCapacity.
func NewTracker(self string, capacity int) *Tracker {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Tracker{self: self, capacity: capacity}
}

// Join handles a join announcement. A participant that would push the room
// over capacity is rejected with ErrRoomFull and not recorded.
func (t *Tracker) Join(id string) (Admission, error) {
	if id == "" || id == t.self {
		return Ignored, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if slices.Contains(t.members, id) {
		return Rejoined, nil
	}
	if len(t.members)+1 >= t.capacity {
		return Ignored, ErrRoomFull
	}
	t.members = append(t.members, id)
	return Admitted, nil
}

// Reconcile merges a list of already present participants and returns the
// ones that were newly added, in list order. Entries past capacity are
// skipped; full reports whether that happened.
func (t *Tracker) Reconcile(ids []string) (added []string, full bool) {
	for _, id := range ids {
		adm, err := t.Join(id)
		if err != nil {
			full = true
			continue
		}
		if adm == Admitted {
			added = append(added, id)
		}
	}
	return added, full
}

// Leave removes id and reports whether it was a member.
func (t *Tracker) Leave(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := slices.Index(t.members, id)
	if i < 0 {
		return false
	}
	t.members = slices.Delete(t.members, i, i+1)
	return true
}

func (t *Tracker) Contains(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Contains(t.members, id)
}

// Members returns the remote participants in join order.
func (t *Tracker) Members() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.members)
}

// Len counts remote participants only.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members)
}

func (t *Tracker) Capacity() int { return t.capacity }

func (t *Tracker) Self() string { return t.self }

// Reset forgets every remote participant.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.members = nil
	t.mu.Unlock()
}
