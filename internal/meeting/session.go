// Package meeting runs one participant's side of a mesh meeting: it turns
// relay messages and peer connection callbacks into session negotiation,
// display slot binding and teardown.
package meeting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/BioHazard786/warpmeet/internal/peer"
	"github.com/BioHazard786/warpmeet/internal/room"
	"github.com/BioHazard786/warpmeet/internal/signaling"
	"github.com/BioHazard786/warpmeet/internal/slots"
	"github.com/gorilla/websocket"
	pion "github.com/pion/webrtc/v4"
)

const peerEventBuffer = 256

// Channel is the relay connection.
type Channel interface {
	Send(msg *signaling.Message) error
	Events() <-chan signaling.Event
	Close() error
}

// Display renders remote tracks into slots.
type Display interface {
	slots.Display
	Show(slot slots.ID, peerID string, track peer.RemoteTrack)
}

// ChannelState is the relay connection as shown to the user.
type ChannelState string

const (
	ChannelConnecting   ChannelState = "connecting"
	ChannelConnected    ChannelState = "connected"
	ChannelReconnecting ChannelState = "reconnecting"
	ChannelClosed       ChannelState = "closed"
)

// Options configures a Session.
type Options struct {
	LocalID  string
	RoomID   string
	Channel  Channel
	Factory  peer.Factory
	Tracks   []pion.TrackLocal
	Display  Display
	Slots    int
	Capacity int
}

// Session owns the stores of one meeting. All mutation happens on the Run goroutine.
type Session struct {
	localID string
	roomID  string

	channel  Channel
	registry *peer.Registry
	room     *room.Tracker
	slots    *slots.Allocator
	display  Display
	orphans  *orphanBuffer

	peerEvents chan peer.Event
	done       chan struct{}
	doneOnce   sync.Once

	channelState atomic.Value
	history      *History
}

// New assembles a session. The channel must already be dialed.
func New(opts Options) *Session {
	if opts.Slots <= 0 {
		opts.Slots = 3
	}

	s := &Session{
		localID:    opts.LocalID,
		roomID:     opts.RoomID,
		channel:    opts.Channel,
		room:       room.NewTracker(opts.LocalID, opts.Capacity),
		slots:      slots.New(slots.DefaultIDs(opts.Slots), opts.Display),
		display:    opts.Display,
		orphans:    newOrphanBuffer(),
		peerEvents: make(chan peer.Event, peerEventBuffer),
		done:       make(chan struct{}),
		history:    newHistory(),
	}
	s.registry = peer.NewRegistry(opts.Factory, opts.Tracks, s.post)
	s.channelState.Store(ChannelConnecting)
	return s
}

// post queues a native callback for the event loop. It never blocks the
// calling pion goroutine.
func (s *Session) post(ev peer.Event) {
	select {
	case s.peerEvents <- ev:
		return
	case <-s.done:
		return
	default:
	}

	go func() {
		select {
		case s.peerEvents <- ev:
		case <-s.done:
		}
	}()
}

// Run processes relay and peer events until ctx ends or the relay is gone
// for good. Cancelling ctx is the local exit: a leave is broadcast and every
// session is torn down.
func (s *Session) Run(ctx context.Context) error {
	events := s.channel.Events()

	for {
		select {
		case <-ctx.Done():
			s.exit()
			return nil

		case ev, ok := <-events:
			if !ok {
				s.teardownAll()
				s.finish()
				return NewError("signaling", ErrChannelLost)
			}
			if stop, err := s.handleChannelEvent(ev); stop {
				s.finish()
				return err
			}

		case ev := <-s.peerEvents:
			s.handlePeerEvent(ev)
		}
	}
}

func (s *Session) handleChannelEvent(ev signaling.Event) (stop bool, err error) {
	switch ev.Kind {
	case signaling.EventOpen:
		s.channelState.Store(ChannelConnected)
		slog.Info("joined room", "room", s.roomID, "self", s.localID)

	case signaling.EventMessage:
		s.dispatch(ev.Message)

	case signaling.EventClosed:
		// Sessions negotiated over the old connection are abandoned; the
		// rejoin rediscovers everyone.
		s.teardownAll()

		if ev.Reconnecting {
			s.channelState.Store(ChannelReconnecting)
			return false, nil
		}

		s.channelState.Store(ChannelClosed)
		if ev.Code == websocket.CloseNormalClosure {
			slog.Info("relay closed the room", "room", s.roomID)
			return true, nil
		}
		return true, WrapError("signaling", ErrChannelLost, fmt.Sprintf("close code %d", ev.Code))
	}
	return false, nil
}

func (s *Session) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// exit is the local leave: announce, tear down, close the relay normally.
func (s *Session) exit() {
	if err := s.channel.Send(&signaling.Message{Type: signaling.MessageTypeLeave}); err != nil {
		slog.Debug("sending leave", "error", err)
	}
	s.teardownAll()
	s.channelState.Store(ChannelClosed)
	if err := s.channel.Close(); err != nil {
		slog.Debug("closing signaling channel", "error", err)
	}
	s.finish()
}

// LocalID is this participant's id.
func (s *Session) LocalID() string { return s.localID }

// RoomID is the room this session joined.
func (s *Session) RoomID() string { return s.roomID }

// History returns the record of every peer seen.
func (s *Session) History() *History { return s.history }

// Status is a point-in-time view of the meeting for display.
type Status struct {
	RoomID   string
	LocalID  string
	Channel  ChannelState
	Members  []string
	Capacity int
	Peers    []peer.Snapshot
	Slots    []SlotStatus
}

// SlotStatus is one display slot and who, if anyone, it shows.
type SlotStatus struct {
	ID    slots.ID
	Peer  string
	Name  string
	State peer.State
}

// Status snapshots the stores. It is safe to call from any goroutine.
func (s *Session) Status() Status {
	st := Status{
		RoomID:   s.roomID,
		LocalID:  s.localID,
		Channel:  s.channelState.Load().(ChannelState),
		Members:  s.room.Members(),
		Capacity: s.room.Capacity(),
		Peers:    s.registry.Snapshots(),
	}

	bound := make(map[slots.ID]string)
	for _, b := range s.slots.Bound() {
		bound[b.Slot] = b.Peer
	}
	for _, id := range s.slots.IDs() {
		slot := SlotStatus{ID: id, Peer: bound[id]}
		if slot.Peer != "" {
			if sess := s.registry.Get(slot.Peer); sess != nil {
				slot.Name = sess.Name()
				slot.State = sess.State()
			}
		}
		st.Slots = append(st.Slots, slot)
	}
	return st
}
