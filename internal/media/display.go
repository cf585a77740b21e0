package media

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BioHazard786/warpmeet/internal/peer"
	"github.com/BioHazard786/warpmeet/internal/slots"
)

const readBufSize = 1500

// Display renders remote media into slots. Rendering here means draining
// each track and keeping per-slot counters.
type Display struct {
	mu      sync.Mutex
	outputs map[slots.ID]*output
	totals  map[string]int64
}

type output struct {
	peer    string
	kinds   map[string]bool
	started time.Time
	bytes   atomic.Int64
	stopped atomic.Bool
}

// SlotStats describes what a slot is showing.
type SlotStats struct {
	Slot    slots.ID
	Peer    string
	Kinds   []string
	Bytes   int64
	Elapsed time.Duration
}

func NewDisplay() *Display {
	return &Display{
		outputs: make(map[slots.ID]*output),
		totals:  make(map[string]int64),
	}
}

// Show starts rendering track from peerID into slot.
func (d *Display) Show(slot slots.ID, peerID string, track peer.RemoteTrack) {
	d.mu.Lock()
	out := d.outputs[slot]
	if out == nil || out.peer != peerID {
		if out != nil {
			d.retire(out)
		}
		out = &output{peer: peerID, kinds: map[string]bool{}, started: time.Now()}
		d.outputs[slot] = out
	}
	out.kinds[track.Kind().String()] = true
	d.mu.Unlock()

	go d.drain(out, track)
}

func (d *Display) drain(out *output, track peer.RemoteTrack) {
	buf := make([]byte, readBufSize)
	for !out.stopped.Load() {
		n, _, err := track.Read(buf)
		if err != nil {
			slog.Debug("remote track ended", "peer", out.peer, "track", track.ID(), "error", err)
			return
		}
		out.bytes.Add(int64(n))
	}
}

// Clear stops the slot's output and resets it. It implements slots.Display.
func (d *Display) Clear(slot slots.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if out := d.outputs[slot]; out != nil {
		d.retire(out)
		delete(d.outputs, slot)
	}
}

func (d *Display) retire(out *output) {
	out.stopped.Store(true)
	d.totals[out.peer] += out.bytes.Load()
}

// Stats reports every active slot, sorted by slot id.
func (d *Display) Stats() []SlotStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]SlotStats, 0, len(d.outputs))
	for id, o := range d.outputs {
		kinds := make([]string, 0, len(o.kinds))
		for k := range o.kinds {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		out = append(out, SlotStats{
			Slot:    id,
			Peer:    o.peer,
			Kinds:   kinds,
			Bytes:   o.bytes.Load(),
			Elapsed: time.Since(o.started),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// Received returns all bytes rendered for peerID, including cleared outputs.
func (d *Display) Received(peerID string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := d.totals[peerID]
	for _, o := range d.outputs {
		if o.peer == peerID {
			total += o.bytes.Load()
		}
	}
	return total
}
