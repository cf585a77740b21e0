// Package slots binds remote participants to a fixed set of display slots.
package slots

import (
	"fmt"
	"slices"
	"sync"
)

// ID names a display slot.
type ID string

// Display is the rendering side of a slot. Clear resets its output.
type Display interface {
	Clear(slot ID)
}

// Binding pairs a slot with the participant shown in it.
type Binding struct {
	Slot ID
	Peer string
}

// Allocator hands out slots first-free and returns released slots to the
// tail of the pool, so a freed slot is reused last.
type Allocator struct {
	mu      sync.Mutex
	ids     []ID
	free    []ID
	byPeer  map[string]ID
	display Display
}

// DefaultIDs returns the identifiers of n slots.
func DefaultIDs(n int) []ID {
	ids := make([]ID, n)
	for i := range ids {
		ids[i] = ID(fmt.Sprintf("remote-%d", i+1))
	}
	return ids
}

// New returns an allocator over ids. display may be nil.
func New(ids []ID, display Display) *Allocator {
	return &Allocator{
		ids:     slices.Clone(ids),
		free:    slices.Clone(ids),
		byPeer:  make(map[string]ID),
		display: display,
	}
}

// Assign returns the slot bound to peer, binding the first free slot if it
// has none. ok is false when every slot is taken.
func (a *Allocator) Assign(peer string) (ID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.byPeer[peer]; ok {
		return id, true
	}
	if len(a.free) == 0 {
		return "", false
	}
	id := a.free[0]
	a.free = a.free[1:]
	a.byPeer[peer] = id
	return id, true
}

// Release unbinds peer, clears its slot and returns the slot to the pool.
// Releasing a peer with no slot does nothing.
func (a *Allocator) Release(peer string) {
	a.mu.Lock()
	id, ok := a.byPeer[peer]
	if ok {
		delete(a.byPeer, peer)
		a.free = append(a.free, id)
	}
	a.mu.Unlock()

	if ok && a.display != nil {
		a.display.Clear(id)
	}
}

// Lookup returns the slot bound to peer.
func (a *Allocator) Lookup(peer string) (ID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.byPeer[peer]
	return id, ok
}

// Bound lists current bindings in slot order.
func (a *Allocator) Bound() []Binding {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Binding, 0, len(a.byPeer))
	for _, id := range a.ids {
		for peer, bound := range a.byPeer {
			if bound == id {
				out = append(out, Binding{Slot: id, Peer: peer})
			}
		}
	}
	return out
}

// Free lists unbound slots in the order they will be handed out.
func (a *Allocator) Free() []ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.free)
}

// IDs lists every slot in display order.
func (a *Allocator) IDs() []ID {
	return slices.Clone(a.ids)
}

// ReleaseAll unbinds every peer.
func (a *Allocator) ReleaseAll() {
	for _, b := range a.Bound() {
		a.Release(b.Peer)
	}
}
