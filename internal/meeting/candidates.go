package meeting

import pion "github.com/pion/webrtc/v4"

const maxOrphansPerPeer = 64

// orphanBuffer parks candidates that arrive before any session exists for
// their sender. Only the event loop touches it.
type orphanBuffer struct {
	byPeer map[string][]pion.ICECandidateInit
}

func newOrphanBuffer() *orphanBuffer {
	return &orphanBuffer{byPeer: make(map[string][]pion.ICECandidateInit)}
}

// add reports false when the peer's buffer is full and c was dropped.
func (b *orphanBuffer) add(peer string, c pion.ICECandidateInit) bool {
	if len(b.byPeer[peer]) >= maxOrphansPerPeer {
		return false
	}
	b.byPeer[peer] = append(b.byPeer[peer], c)
	return true
}

func (b *orphanBuffer) take(peer string) []pion.ICECandidateInit {
	out := b.byPeer[peer]
	delete(b.byPeer, peer)
	return out
}

func (b *orphanBuffer) drop(peer string) {
	delete(b.byPeer, peer)
}

func (b *orphanBuffer) len(peer string) int {
	return len(b.byPeer[peer])
}

func (b *orphanBuffer) reset() {
	clear(b.byPeer)
}
