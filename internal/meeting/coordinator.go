package meeting

import (
	"errors"
	"log/slog"

	"github.com/BioHazard786/warpmeet/internal/peer"
	"github.com/BioHazard786/warpmeet/internal/room"
	"github.com/BioHazard786/warpmeet/internal/signaling"
	pion "github.com/pion/webrtc/v4"
)

// dispatch routes one relay message. It runs on the event loop only.
func (s *Session) dispatch(msg *signaling.Message) {
	if msg.Type != signaling.MessageTypeParticipantsList {
		if msg.From == "" || msg.From == s.localID {
			return
		}
	}

	switch msg.Type {
	case signaling.MessageTypeJoin:
		s.handleJoin(msg.From)
	case signaling.MessageTypeParticipantsList:
		s.handleParticipants(msg.Participants)
	case signaling.MessageTypeOffer:
		s.handleOffer(msg.From, *msg.SDP)
	case signaling.MessageTypeAnswer:
		s.handleAnswer(msg.From, *msg.SDP)
	case signaling.MessageTypeICECandidate:
		s.handleCandidate(msg.From, *msg.Candidate)
	case signaling.MessageTypeLeave:
		s.removeParticipant(msg.From)
	}
}

func (s *Session) handleJoin(id string) {
	adm, err := s.room.Join(id)
	if errors.Is(err, room.ErrRoomFull) {
		slog.Info("room full, ignoring participant", "peer", id, "capacity", s.room.Capacity())
		return
	}

	switch adm {
	case room.Admitted:
		slog.Info("participant joined", "peer", id)
		s.discover(id)
	case room.Rejoined:
		// A repeated join means the peer restarted; whatever we had is stale.
		slog.Info("participant rejoined", "peer", id)
		s.teardownPeer(id)
		s.discover(id)
	}
}

func (s *Session) handleParticipants(ids []string) {
	added, full := s.room.Reconcile(ids)
	if full {
		slog.Info("room full, some participants ignored", "capacity", s.room.Capacity())
	}
	for _, id := range added {
		s.discover(id)
	}
}

// discover starts negotiation with a newly known participant if this side
// is the initiator for the pair. Otherwise the peer's offer is awaited.
func (s *Session) discover(id string) {
	if !Initiator(s.localID, id) {
		slog.Debug("awaiting offer", "peer", id)
		return
	}
	s.offer(id)
}

func (s *Session) offer(id string) {
	sess, err := s.registry.Create(id)
	if err != nil {
		slog.Warn("cannot start session", "peer", id, "error", err)
		return
	}
	s.history.sessionStarted(id)
	s.adoptOrphans(sess)

	desc, err := sess.Conn.CreateOffer()
	if err != nil {
		s.failPeer(NewPeerError("create offer", id, err))
		return
	}
	if err := sess.Conn.SetLocalDescription(desc); err != nil {
		s.failPeer(NewPeerError("set local description", id, err))
		return
	}
	sess.SetState(peer.StateOffering)

	s.send(&signaling.Message{Type: signaling.MessageTypeOffer, To: id, SDP: &desc})
	slog.Debug("offer sent", "peer", id)
}

func (s *Session) handleOffer(id string, desc pion.SessionDescription) {
	if _, err := s.room.Join(id); errors.Is(err, room.ErrRoomFull) {
		slog.Info("room full, ignoring offer", "peer", id)
		return
	}

	if existing := s.registry.Get(id); existing != nil {
		if existing.State() == peer.StateOffering && Initiator(s.localID, id) {
			slog.Debug("glare, keeping local offer", "peer", id)
			return
		}
		slog.Debug("replacing session on new offer", "peer", id, "state", existing.State())
		s.teardownPeer(id)
	}

	sess, err := s.registry.Create(id)
	if err != nil {
		slog.Warn("cannot start session", "peer", id, "error", err)
		return
	}
	s.history.sessionStarted(id)
	s.adoptOrphans(sess)
	sess.SetState(peer.StateAnswering)

	if err := sess.Conn.SetRemoteDescription(desc); err != nil {
		s.failPeer(NewPeerError("set remote description", id, err))
		return
	}
	if !s.flushPending(sess) {
		return
	}

	answer, err := sess.Conn.CreateAnswer()
	if err != nil {
		s.failPeer(NewPeerError("create answer", id, err))
		return
	}
	if err := sess.Conn.SetLocalDescription(answer); err != nil {
		s.failPeer(NewPeerError("set local description", id, err))
		return
	}

	s.send(&signaling.Message{Type: signaling.MessageTypeAnswer, To: id, SDP: &answer})
	sess.SetState(peer.StateConnected)
	s.history.connected(id)
	slog.Debug("answer sent", "peer", id)
}

func (s *Session) handleAnswer(id string, desc pion.SessionDescription) {
	sess := s.registry.Get(id)
	if sess == nil || sess.State() != peer.StateOffering {
		state := "absent"
		if sess != nil {
			state = sess.State().String()
		}
		slog.Debug("discarding answer", "peer", id, "state", state, "error", ErrUnexpectedAnswer)
		return
	}

	if err := sess.Conn.SetRemoteDescription(desc); err != nil {
		s.failPeer(NewPeerError("set remote description", id, err))
		return
	}
	if !s.flushPending(sess) {
		return
	}
	sess.SetState(peer.StateConnected)
	s.history.connected(id)
	slog.Debug("answer applied", "peer", id)
}

func (s *Session) handleCandidate(id string, c pion.ICECandidateInit) {
	sess := s.registry.Get(id)
	if sess == nil {
		if !s.room.Contains(id) {
			slog.Debug("dropping candidate from unknown participant", "peer", id)
			return
		}
		if !s.orphans.add(id, c) {
			slog.Warn("candidate buffer full, dropping candidate", "peer", id)
		}
		return
	}

	if !sess.Conn.HasRemoteDescription() {
		sess.Defer(c)
		return
	}
	if err := sess.Conn.AddICECandidate(c); err != nil {
		s.failPeer(NewPeerError("add ice candidate", id, err))
	}
}

// adoptOrphans moves candidates that arrived before the session into its
// deferred buffer, ahead of anything received later.
func (s *Session) adoptOrphans(sess *peer.Session) {
	for _, c := range s.orphans.take(sess.RemoteID) {
		sess.Defer(c)
	}
}

// flushPending applies deferred candidates once the remote description is
// set. It reports false if the session was torn down.
func (s *Session) flushPending(sess *peer.Session) bool {
	for _, c := range sess.TakePending() {
		if err := sess.Conn.AddICECandidate(c); err != nil {
			s.failPeer(NewPeerError("add ice candidate", sess.RemoteID, err))
			return false
		}
	}
	return true
}

func (s *Session) send(msg *signaling.Message) {
	if err := s.channel.Send(msg); err != nil {
		slog.Warn("signaling send failed", "type", msg.Type, "to", msg.To, "error", err)
	}
}

// handlePeerEvent applies one native callback. Events raised by a connection
// that has since been replaced or closed are ignored.
func (s *Session) handlePeerEvent(ev peer.Event) {
	sess := s.registry.Get(ev.Peer)
	if sess == nil || sess.Conn != ev.Conn {
		slog.Debug("dropping stale peer event", "peer", ev.Peer, "kind", ev.Kind)
		return
	}

	switch ev.Kind {
	case peer.EventCandidate:
		s.send(&signaling.Message{Type: signaling.MessageTypeICECandidate, To: ev.Peer, Candidate: ev.Candidate})

	case peer.EventTrack:
		slot, ok := s.slots.Assign(ev.Peer)
		if !ok {
			slog.Warn("no display slot for remote media", "peer", ev.Peer, "error", ErrNoSlot)
			return
		}
		if s.display != nil {
			s.display.Show(slot, ev.Peer, ev.Track)
		}
		slog.Info("showing remote media", "peer", ev.Peer, "slot", slot, "kind", ev.Track.Kind())

	case peer.EventState:
		sess.SetLink(ev.State)
		slog.Debug("peer connection state", "peer", ev.Peer, "state", ev.State)
		switch ev.State {
		case pion.PeerConnectionStateConnected:
			s.history.connected(ev.Peer)
		case pion.PeerConnectionStateFailed:
			s.failPeer(NewPeerError("connect", ev.Peer, ErrConnectionFailed))
		}

	case peer.EventNegotiationNeeded:
		// Offers are driven by discovery; tracks are attached before the first one.
		slog.Debug("negotiation needed", "peer", ev.Peer)

	case peer.EventInfo:
		sess.SetName(ev.Info.Name)
		s.history.named(ev.Peer, ev.Info.Name)
		slog.Info("peer introduced", "peer", ev.Peer, "name", ev.Info.Name, "version", ev.Info.Version)
	}
}
