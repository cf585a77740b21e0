package peer

import (
	"github.com/pion/interceptor"
	pion "github.com/pion/webrtc/v4"
)

// Conn is the native peer connection as seen by the negotiation logic.
type Conn interface {
	AddTrack(track pion.TrackLocal) error
	CreateOffer() (pion.SessionDescription, error)
	CreateAnswer() (pion.SessionDescription, error)
	SetLocalDescription(desc pion.SessionDescription) error
	SetRemoteDescription(desc pion.SessionDescription) error
	HasRemoteDescription() bool
	AddICECandidate(c pion.ICECandidateInit) error
	Close() error
}

// Factory creates native connections. Callbacks for the new connection are
// reported through emit with Event.Peer set to remoteID.
type Factory interface {
	NewConn(remoteID string, emit func(Event)) (Conn, error)
}

// RemoteTrack is an inbound media track.
type RemoteTrack interface {
	ID() string
	Kind() pion.RTPCodecType
	Read(b []byte) (int, interceptor.Attributes, error)
}

// Info is what a peer tells about itself once the control channel opens.
type Info struct {
	Name    string
	Version string
}

// EventKind classifies native connection callbacks.
type EventKind int

const (
	EventCandidate EventKind = iota
	EventTrack
	EventState
	EventNegotiationNeeded
	EventInfo
)

func (k EventKind) String() string {
	switch k {
	case EventCandidate:
		return "candidate"
	case EventTrack:
		return "track"
	case EventState:
		return "state"
	case EventNegotiationNeeded:
		return "negotiation-needed"
	case EventInfo:
		return "info"
	}
	return "unknown"
}

// Event is a native callback translated for the coordinator. Conn identifies
// the connection that raised it so events from a replaced connection can be
// told apart.
type Event struct {
	Peer string
	Conn Conn
	Kind EventKind

	Candidate *pion.ICECandidateInit
	Track     RemoteTrack
	State     pion.PeerConnectionState
	Info      Info
}
