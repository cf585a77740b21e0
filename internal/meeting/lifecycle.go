package meeting

import "log/slog"

// teardownPeer closes the session for id and frees its slot. Membership is
// left alone. Safe in any state and for unknown ids.
func (s *Session) teardownPeer(id string) {
	destroyed := s.registry.Destroy(id)
	s.slots.Release(id)
	s.orphans.drop(id)
	if destroyed {
		s.history.ended(id)
	}
}

// failPeer isolates a per-peer error to that peer's session.
func (s *Session) failPeer(err *Error) {
	slog.Warn("peer session failed", "peer", err.Peer, "error", err)
	s.history.failed(err.Peer)
	s.teardownPeer(err.Peer)
}

// removeParticipant handles a leave.
func (s *Session) removeParticipant(id string) {
	if s.room.Leave(id) {
		slog.Info("participant left", "peer", id)
	}
	s.teardownPeer(id)
}

// teardownAll drops every session, slot and member.
func (s *Session) teardownAll() {
	for _, id := range s.registry.DestroyAll() {
		s.history.ended(id)
	}
	s.slots.ReleaseAll()
	s.orphans.reset()
	s.room.Reset()
}
