// Package relay is the room relay: it hands out room ids and forwards
// signaling frames between the participants of a room. It never sees media.
package relay

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/BioHazard786/warpmeet/internal/signaling"
)

type inbound struct {
	client *Client
	data   []byte
}

// room is the live connection set of one room id, in connection order.
type room struct {
	id      string
	clients []*Client
}

func (r *room) find(id string) *Client {
	for _, c := range r.clients {
		if c.id == id {
			return c
		}
	}
	return nil
}

// joined lists participant ids of clients that have sent a join, except skip.
func (r *room) joined(skip *Client) []string {
	ids := []string{}
	for _, c := range r.clients {
		if c != skip && c.id != "" {
			ids = append(ids, c.id)
		}
	}
	return ids
}

// Hub owns every live room. All room state is touched only by Run.
type Hub struct {
	rooms map[string]*room

	registerCh   chan *Client
	unregisterCh chan *Client
	inboundCh    chan inbound
	done         chan struct{}

	liveRooms atomic.Int64
	liveConns atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		rooms:        make(map[string]*room),
		registerCh:   make(chan *Client),
		unregisterCh: make(chan *Client),
		inboundCh:    make(chan inbound),
		done:         make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx ends, after closing every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.registerCh:
			r, ok := h.rooms[c.roomID]
			if !ok {
				r = &room{id: c.roomID}
				h.rooms[c.roomID] = r
				h.liveRooms.Add(1)
			}
			r.clients = append(r.clients, c)
			h.liveConns.Add(1)
			slog.Debug("relay client connected", "room", c.roomID, "addr", c.conn.RemoteAddr())

		case c := <-h.unregisterCh:
			h.remove(c, true)

		case in := <-h.inboundCh:
			h.route(in)

		case <-ctx.Done():
			for _, r := range h.rooms {
				for _, c := range slices.Clone(r.clients) {
					h.remove(c, false)
				}
			}
			return
		}
	}
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.registerCh <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.unregisterCh <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(in inbound) bool {
	select {
	case h.inboundCh <- in:
		return true
	case <-h.done:
		return false
	}
}

// Rooms counts rooms with at least one connection.
func (h *Hub) Rooms() int64 { return h.liveRooms.Load() }

// Conns counts open client connections.
func (h *Hub) Conns() int64 { return h.liveConns.Load() }

func (h *Hub) route(in inbound) {
	c := in.client
	r, ok := h.rooms[c.roomID]
	if !ok || !slices.Contains(r.clients, c) {
		return
	}

	msg, err := signaling.Decode(in.data)
	if err != nil {
		slog.Debug("dropping malformed frame", "room", r.id, "peer", c.id, "error", err)
		return
	}

	if msg.Type == signaling.MessageTypeJoin {
		h.join(r, c, msg.From, in.data)
		return
	}
	if c.id == "" {
		slog.Debug("dropping frame before join", "room", r.id, "type", msg.Type)
		return
	}

	if msg.To != "" {
		target := r.find(msg.To)
		if target == nil || target == c {
			slog.Debug("no recipient for frame", "room", r.id, "type", msg.Type, "to", msg.To)
			return
		}
		h.send(target, in.data)
		return
	}
	h.broadcast(r, c, in.data)
}

// join records the participant id, tells the newcomer who is already present
// and announces it to everyone else.
func (h *Hub) join(r *room, c *Client, id string, frame []byte) {
	if id == "" {
		slog.Debug("dropping join without participant id", "room", r.id)
		return
	}

	// The same participant on a new connection replaces the old one.
	if stale := r.find(id); stale != nil && stale != c {
		slog.Info("replacing stale connection", "room", r.id, "peer", id)
		h.remove(stale, false)
	}

	c.id = id
	slog.Info("participant joined", "room", r.id, "peer", id, "members", len(r.joined(nil)))

	list, err := signaling.Encode(&signaling.Message{
		Type:         signaling.MessageTypeParticipantsList,
		Participants: r.joined(c),
		Timestamp:    time.Now().UnixMilli(),
	})
	if err != nil {
		slog.Error("encoding participants list", "error", err)
		return
	}
	h.send(c, list)
	h.broadcast(r, c, frame)
}

func (h *Hub) broadcast(r *room, from *Client, data []byte) {
	for _, c := range slices.Clone(r.clients) {
		if c != from && c.id != "" {
			h.send(c, data)
		}
	}
}

// send queues data for c. A client that cannot keep up is dropped.
func (h *Hub) send(c *Client, data []byte) {
	if c.gone {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("relay client too slow, dropping", "room", c.roomID, "peer", c.id)
		h.remove(c, true)
	}
}

// remove detaches c from its room and closes its send queue. With announce,
// the rest of the room is told the participant left. An empty room is
// forgotten by the hub; its id stays joinable until the store expires it.
func (h *Hub) remove(c *Client, announce bool) {
	r, ok := h.rooms[c.roomID]
	if !ok {
		return
	}
	i := slices.Index(r.clients, c)
	if i < 0 {
		return
	}
	r.clients = slices.Delete(r.clients, i, i+1)
	c.gone = true
	close(c.send)
	h.liveConns.Add(-1)

	if announce && c.id != "" {
		slog.Info("participant left", "room", r.id, "peer", c.id)
		leave, err := signaling.Encode(&signaling.Message{
			Type:      signaling.MessageTypeLeave,
			From:      c.id,
			Timestamp: time.Now().UnixMilli(),
		})
		if err == nil {
			h.broadcast(r, c, leave)
		}
	}

	if len(r.clients) == 0 {
		delete(h.rooms, r.id)
		h.liveRooms.Add(-1)
		slog.Debug("room idle", "room", r.id)
	}
}
