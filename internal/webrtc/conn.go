package webrtc

import (
	"errors"
	"log/slog"

	"github.com/BioHazard786/warpmeet/internal/peer"
	pion "github.com/pion/webrtc/v4"
)

const (
	controlLabel = "control"
	controlID    = uint16(0)
	rtcpBufSize  = 1500
)

// Factory creates mesh peer connections. It implements peer.Factory.
type Factory struct {
	api    *pion.API
	config pion.Configuration
	local  peer.Info
}

// NewFactory returns a factory using api and iceServers. local is announced
// to every peer over the control channel.
func NewFactory(api *pion.API, iceServers []pion.ICEServer, local peer.Info) *Factory {
	return &Factory{
		api:    api,
		config: pion.Configuration{ICEServers: iceServers},
		local:  local,
	}
}

// NewConn opens a peer connection for remoteID and wires its callbacks to emit.
func (f *Factory) NewConn(remoteID string, emit func(peer.Event)) (peer.Conn, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, err
	}

	c := &Conn{pc: pc, remoteID: remoteID}
	c.bind(emit)

	if err := c.openControl(f.local, emit); err != nil {
		pc.Close()
		return nil, err
	}
	return c, nil
}

// Conn wraps a pion PeerConnection. It implements peer.Conn.
type Conn struct {
	pc       *pion.PeerConnection
	remoteID string
	control  *pion.DataChannel
}

func (c *Conn) bind(emit func(peer.Event)) {
	c.pc.OnICECandidate(func(cand *pion.ICECandidate) {
		if cand == nil {
			return
		}
		init := cand.ToJSON()
		emit(peer.Event{Peer: c.remoteID, Conn: c, Kind: peer.EventCandidate, Candidate: &init})
	})

	c.pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		emit(peer.Event{Peer: c.remoteID, Conn: c, Kind: peer.EventTrack, Track: track})
	})

	c.pc.OnNegotiationNeeded(func() {
		emit(peer.Event{Peer: c.remoteID, Conn: c, Kind: peer.EventNegotiationNeeded})
	})

	c.pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		emit(peer.Event{Peer: c.remoteID, Conn: c, Kind: peer.EventState, State: state})
	})
}

// openControl creates the pre-negotiated control channel. Both sides create
// it with the same id so neither has to wait for an announcement.
func (c *Conn) openControl(local peer.Info, emit func(peer.Event)) error {
	negotiated := true
	ordered := true
	id := controlID

	dc, err := c.pc.CreateDataChannel(controlLabel, &pion.DataChannelInit{
		Negotiated: &negotiated,
		Ordered:    &ordered,
		ID:         &id,
	})
	if err != nil {
		return err
	}
	c.control = dc

	dc.OnOpen(func() {
		msg, err := NewMessage(MessageTypePeerInfo, PeerInfoPayload{Name: local.Name, Version: local.Version})
		if err != nil {
			return
		}
		data, err := msg.Marshal()
		if err != nil {
			return
		}
		if err := dc.Send(data); err != nil {
			slog.Debug("sending peer info", "peer", c.remoteID, "error", err)
		}
	})

	dc.OnMessage(func(m pion.DataChannelMessage) {
		msg, err := UnmarshalMessage(m.Data)
		if err != nil {
			slog.Debug("dropping control message", "peer", c.remoteID, "error", err)
			return
		}
		switch msg.Type {
		case MessageTypePeerInfo:
			var info PeerInfoPayload
			if err := msg.DecodePayload(&info); err != nil {
				return
			}
			emit(peer.Event{
				Peer: c.remoteID,
				Conn: c,
				Kind: peer.EventInfo,
				Info: peer.Info{Name: info.Name, Version: info.Version},
			})
		default:
			slog.Debug("unknown control message", "peer", c.remoteID, "type", msg.Type)
		}
	})
	return nil
}

// AddTrack attaches a local track and drains its RTCP so interceptors keep working.
func (c *Conn) AddTrack(track pion.TrackLocal) error {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return err
	}
	go func() {
		buf := make([]byte, rtcpBufSize)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

func (c *Conn) CreateOffer() (pion.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *Conn) CreateAnswer() (pion.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *Conn) SetLocalDescription(desc pion.SessionDescription) error {
	return c.pc.SetLocalDescription(desc)
}

func (c *Conn) SetRemoteDescription(desc pion.SessionDescription) error {
	return c.pc.SetRemoteDescription(desc)
}

func (c *Conn) HasRemoteDescription() bool {
	return c.pc.RemoteDescription() != nil
}

func (c *Conn) AddICECandidate(cand pion.ICECandidateInit) error {
	return c.pc.AddICECandidate(cand)
}

func (c *Conn) Close() error {
	err := c.pc.Close()
	if errors.Is(err, pion.ErrConnectionClosed) {
		return nil
	}
	return err
}
