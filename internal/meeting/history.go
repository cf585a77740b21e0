package meeting

import (
	"sync"
	"time"
)

// PeerRecord summarizes one remote participant over the meeting.
type PeerRecord struct {
	ID        string
	Name      string
	FirstSeen time.Time
	Connected time.Time
	Left      time.Time
	Sessions  int
	Failures  int
}

// History collects PeerRecords for the exit summary.
type History struct {
	mu    sync.Mutex
	order []string
	peers map[string]*PeerRecord
	now   func() time.Time
}

func newHistory() *History {
	return &History{peers: make(map[string]*PeerRecord), now: time.Now}
}

func (h *History) record(id string) *PeerRecord {
	r, ok := h.peers[id]
	if !ok {
		r = &PeerRecord{ID: id, FirstSeen: h.now()}
		h.peers[id] = r
		h.order = append(h.order, id)
	}
	return r
}

func (h *History) sessionStarted(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.record(id)
	r.Sessions++
	r.Left = time.Time{}
}

func (h *History) connected(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.record(id)
	if r.Connected.IsZero() {
		r.Connected = h.now()
	}
}

func (h *History) named(id, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(id).Name = name
}

func (h *History) failed(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record(id).Failures++
}

func (h *History) ended(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.peers[id]; ok && r.Left.IsZero() {
		r.Left = h.now()
	}
}

// Records returns every peer seen, in first-seen order.
func (h *History) Records() []PeerRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]PeerRecord, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, *h.peers[id])
	}
	return out
}
