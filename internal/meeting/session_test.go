package meeting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BioHazard786/warpmeet/internal/peer"
	"github.com/BioHazard786/warpmeet/internal/signaling"
	"github.com/BioHazard786/warpmeet/internal/slots"
	"github.com/gorilla/websocket"
	"github.com/pion/interceptor"
	pion "github.com/pion/webrtc/v4"
)

type fakeChannel struct {
	mu     sync.Mutex
	sent   []*signaling.Message
	events chan signaling.Event
	closed bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan signaling.Event, 16)}
}

func (c *fakeChannel) Send(msg *signaling.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *msg
	c.sent = append(c.sent, &cp)
	return nil
}

func (c *fakeChannel) Events() <-chan signaling.Event { return c.events }

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// sentOf returns sent messages of the given type, in order.
func (c *fakeChannel) sentOf(typ string) []*signaling.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*signaling.Message
	for _, m := range c.sent {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type fakeConn struct {
	remoteID string

	mu        sync.Mutex
	tracks    int
	remote    *pion.SessionDescription
	local     *pion.SessionDescription
	applied   []pion.ICECandidateInit
	closed    bool
	failSetRD error
	failAdd   error
}

func (c *fakeConn) AddTrack(pion.TrackLocal) error {
	c.tracks++
	return nil
}

func (c *fakeConn) CreateOffer() (pion.SessionDescription, error) {
	return pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: "offer-for-" + c.remoteID}, nil
}

func (c *fakeConn) CreateAnswer() (pion.SessionDescription, error) {
	return pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: "answer-for-" + c.remoteID}, nil
}

func (c *fakeConn) SetLocalDescription(desc pion.SessionDescription) error {
	c.local = &desc
	return nil
}

func (c *fakeConn) SetRemoteDescription(desc pion.SessionDescription) error {
	if c.failSetRD != nil {
		return c.failSetRD
	}
	c.remote = &desc
	return nil
}

func (c *fakeConn) HasRemoteDescription() bool { return c.remote != nil }

func (c *fakeConn) AddICECandidate(cand pion.ICECandidateInit) error {
	if c.failAdd != nil {
		return c.failAdd
	}
	c.applied = append(c.applied, cand)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeFactory struct {
	conns   map[string][]*fakeConn
	failNew map[string]error
	setup   func(*fakeConn)
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{conns: make(map[string][]*fakeConn), failNew: make(map[string]error)}
}

func (f *fakeFactory) NewConn(remoteID string, emit func(peer.Event)) (peer.Conn, error) {
	if err := f.failNew[remoteID]; err != nil {
		return nil, err
	}
	c := &fakeConn{remoteID: remoteID}
	if f.setup != nil {
		f.setup(c)
	}
	f.conns[remoteID] = append(f.conns[remoteID], c)
	return c, nil
}

func (f *fakeFactory) last(id string) *fakeConn {
	cs := f.conns[id]
	if len(cs) == 0 {
		return nil
	}
	return cs[len(cs)-1]
}

type fakeDisplay struct {
	shown   map[slots.ID]string
	cleared []slots.ID
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{shown: make(map[slots.ID]string)}
}

func (d *fakeDisplay) Show(slot slots.ID, peerID string, _ peer.RemoteTrack) {
	d.shown[slot] = peerID
}

func (d *fakeDisplay) Clear(slot slots.ID) {
	delete(d.shown, slot)
	d.cleared = append(d.cleared, slot)
}

type fakeTrack struct{}

func (fakeTrack) ID() string              { return "video" }
func (fakeTrack) Kind() pion.RTPCodecType { return pion.RTPCodecTypeVideo }
func (fakeTrack) Read([]byte) (int, interceptor.Attributes, error) {
	return 0, nil, errors.New("not readable")
}

type harness struct {
	s       *Session
	ch      *fakeChannel
	factory *fakeFactory
	display *fakeDisplay
}

func newHarness(t *testing.T, local string) *harness {
	t.Helper()
	h := &harness{ch: newFakeChannel(), factory: newFakeFactory(), display: newFakeDisplay()}
	track, err := pion.NewTrackLocalStaticSample(pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8}, "video", "test")
	if err != nil {
		t.Fatalf("NewTrackLocalStaticSample: %v", err)
	}
	h.s = New(Options{
		LocalID: local,
		RoomID:  "ROOM1234",
		Channel: h.ch,
		Factory: h.factory,
		Tracks:  []pion.TrackLocal{track},
		Display: h.display,
	})
	return h
}

func join(id string) *signaling.Message {
	return &signaling.Message{Type: signaling.MessageTypeJoin, From: id}
}

func leave(id string) *signaling.Message {
	return &signaling.Message{Type: signaling.MessageTypeLeave, From: id}
}

func offerFrom(id string) *signaling.Message {
	return &signaling.Message{Type: signaling.MessageTypeOffer, From: id,
		SDP: &pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: "remote-offer-" + id}}
}

func answerFrom(id string) *signaling.Message {
	return &signaling.Message{Type: signaling.MessageTypeAnswer, From: id,
		SDP: &pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: "remote-answer-" + id}}
}

func candidateFrom(id, cand string) *signaling.Message {
	return &signaling.Message{Type: signaling.MessageTypeICECandidate, From: id,
		Candidate: &pion.ICECandidateInit{Candidate: cand}}
}

func candidates(cs []pion.ICECandidateInit) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Candidate
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInitiatorOffersOnJoin(t *testing.T) {
	h := newHarness(t, "user_a")

	h.s.dispatch(join("user_b"))

	sess := h.s.registry.Get("user_b")
	if sess == nil {
		t.Fatal("no session for user_b")
	}
	if sess.State() != peer.StateOffering {
		t.Fatalf("state = %v, want offering", sess.State())
	}
	conn := h.factory.last("user_b")
	if conn.tracks != 1 {
		t.Fatalf("tracks attached = %d, want 1", conn.tracks)
	}
	offers := h.ch.sentOf(signaling.MessageTypeOffer)
	if len(offers) != 1 || offers[0].To != "user_b" || offers[0].SDP.SDP != "offer-for-user_b" {
		t.Fatalf("offers = %+v", offers)
	}
}

func TestResponderWaitsForOffer(t *testing.T) {
	h := newHarness(t, "user_c")

	h.s.dispatch(join("user_b"))
	if h.s.registry.Len() != 0 || len(h.ch.sentOf(signaling.MessageTypeOffer)) != 0 {
		t.Fatal("responder started negotiation")
	}
	if !h.s.room.Contains("user_b") {
		t.Fatal("user_b not a member")
	}

	h.s.dispatch(offerFrom("user_b"))

	sess := h.s.registry.Get("user_b")
	if sess == nil || sess.State() != peer.StateConnected {
		t.Fatalf("session = %+v", sess)
	}
	conn := h.factory.last("user_b")
	if conn.remote == nil || conn.remote.SDP != "remote-offer-user_b" {
		t.Fatalf("remote description = %+v", conn.remote)
	}
	answers := h.ch.sentOf(signaling.MessageTypeAnswer)
	if len(answers) != 1 || answers[0].To != "user_b" || answers[0].SDP.Type != pion.SDPTypeAnswer {
		t.Fatalf("answers = %+v", answers)
	}
}

func TestSelfAndAnonymousMessagesIgnored(t *testing.T) {
	h := newHarness(t, "user_a")

	h.s.dispatch(join("user_a"))
	h.s.dispatch(join(""))
	h.s.dispatch(offerFrom("user_a"))

	if h.s.room.Len() != 0 || h.s.registry.Len() != 0 || len(h.ch.sentOf(signaling.MessageTypeOffer)) != 0 {
		t.Fatal("self or anonymous message had an effect")
	}
}

func TestCandidatesDeferredUntilAnswer(t *testing.T) {
	h := newHarness(t, "user_a")
	h.s.dispatch(join("user_b"))

	h.s.dispatch(candidateFrom("user_b", "c1"))
	h.s.dispatch(candidateFrom("user_b", "c2"))

	conn := h.factory.last("user_b")
	sess := h.s.registry.Get("user_b")
	if len(conn.applied) != 0 || sess.PendingLen() != 2 {
		t.Fatalf("applied = %d pending = %d", len(conn.applied), sess.PendingLen())
	}

	h.s.dispatch(answerFrom("user_b"))
	if got := candidates(conn.applied); !equalStrings(got, []string{"c1", "c2"}) {
		t.Fatalf("applied = %v", got)
	}
	if sess.State() != peer.StateConnected || sess.PendingLen() != 0 {
		t.Fatalf("state = %v pending = %d", sess.State(), sess.PendingLen())
	}

	// A late candidate goes straight in; a duplicate answer changes nothing.
	h.s.dispatch(candidateFrom("user_b", "c3"))
	h.s.dispatch(answerFrom("user_b"))
	if got := candidates(conn.applied); !equalStrings(got, []string{"c1", "c2", "c3"}) {
		t.Fatalf("applied = %v", got)
	}
}

func TestCandidatesBeforeOfferAreKept(t *testing.T) {
	h := newHarness(t, "user_c")
	h.s.dispatch(join("user_b"))

	h.s.dispatch(candidateFrom("user_b", "early-1"))
	h.s.dispatch(candidateFrom("user_b", "early-2"))
	h.s.dispatch(candidateFrom("user_z", "stranger"))
	if h.s.orphans.len("user_b") != 2 || h.s.orphans.len("user_z") != 0 {
		t.Fatalf("orphans b=%d z=%d", h.s.orphans.len("user_b"), h.s.orphans.len("user_z"))
	}

	h.s.dispatch(offerFrom("user_b"))

	conn := h.factory.last("user_b")
	if got := candidates(conn.applied); !equalStrings(got, []string{"early-1", "early-2"}) {
		t.Fatalf("applied = %v", got)
	}
	if h.s.orphans.len("user_b") != 0 {
		t.Fatal("orphans not consumed")
	}
}

func TestAnswerWithoutOfferDiscarded(t *testing.T) {
	h := newHarness(t, "user_c")
	h.s.dispatch(join("user_b"))
	h.s.dispatch(answerFrom("user_b"))
	if h.s.registry.Len() != 0 {
		t.Fatal("answer created a session")
	}
}

func TestRoomCapacity(t *testing.T) {
	h := newHarness(t, "user_a")

	for _, id := range []string{"user_b", "user_c", "user_d", "user_e"} {
		h.s.dispatch(join(id))
	}

	if h.s.room.Len() != 3 || h.s.registry.Len() != 3 {
		t.Fatalf("members = %d sessions = %d", h.s.room.Len(), h.s.registry.Len())
	}
	if h.s.room.Contains("user_e") || h.s.registry.Get("user_e") != nil {
		t.Fatal("fifth participant admitted")
	}

	h.s.dispatch(offerFrom("user_e"))
	if h.s.registry.Get("user_e") != nil {
		t.Fatal("offer from excluded participant accepted")
	}

	// A departure frees room for the next one.
	h.s.dispatch(leave("user_c"))
	h.s.dispatch(join("user_e"))
	if h.s.registry.Get("user_e") == nil {
		t.Fatal("user_e not admitted after a leave")
	}
}

func TestParticipantsListDiscovery(t *testing.T) {
	h := newHarness(t, "user_m")

	h.s.dispatch(&signaling.Message{
		Type:         signaling.MessageTypeParticipantsList,
		Participants: []string{"user_a", "user_m", "user_z"},
	})

	if !equalStrings(h.s.room.Members(), []string{"user_a", "user_z"}) {
		t.Fatalf("members = %v", h.s.room.Members())
	}
	offers := h.ch.sentOf(signaling.MessageTypeOffer)
	if len(offers) != 1 || offers[0].To != "user_z" {
		t.Fatalf("offers = %+v", offers)
	}
}

func TestGlareKeepsInitiatorOffer(t *testing.T) {
	h := newHarness(t, "user_a")
	h.s.dispatch(join("user_b"))
	first := h.factory.last("user_b")

	h.s.dispatch(offerFrom("user_b"))

	if h.factory.last("user_b") != first || first.isClosed() {
		t.Fatal("initiator replaced its offering session")
	}
	if h.s.registry.Get("user_b").State() != peer.StateOffering {
		t.Fatal("initiator left offering state")
	}
	if len(h.ch.sentOf(signaling.MessageTypeAnswer)) != 0 {
		t.Fatal("initiator answered a glare offer")
	}
}

func TestRenegotiationReplacesSession(t *testing.T) {
	h := newHarness(t, "user_c")
	h.s.dispatch(offerFrom("user_b"))
	first := h.factory.last("user_b")

	h.s.dispatch(offerFrom("user_b"))

	second := h.factory.last("user_b")
	if second == first || !first.isClosed() {
		t.Fatal("old session not replaced")
	}
	if h.s.registry.Len() != 1 || len(h.ch.sentOf(signaling.MessageTypeAnswer)) != 2 {
		t.Fatalf("sessions = %d", h.s.registry.Len())
	}
}

func TestPeerFailureIsIsolated(t *testing.T) {
	h := newHarness(t, "user_a")
	h.s.dispatch(join("user_b"))
	h.s.dispatch(join("user_c"))

	bad := h.factory.last("user_b")
	bad.failSetRD = errors.New("malformed sdp")
	h.s.dispatch(answerFrom("user_b"))
	h.s.dispatch(answerFrom("user_c"))

	if h.s.registry.Get("user_b") != nil || !bad.isClosed() {
		t.Fatal("failed session not torn down")
	}
	if sess := h.s.registry.Get("user_c"); sess == nil || sess.State() != peer.StateConnected {
		t.Fatal("healthy session affected")
	}
	if !h.s.room.Contains("user_b") {
		t.Fatal("failure removed membership")
	}

	rec := h.s.History().Records()
	if rec[0].ID != "user_b" || rec[0].Failures != 1 {
		t.Fatalf("history = %+v", rec)
	}
}

func TestFactoryFailureLeavesNoSession(t *testing.T) {
	h := newHarness(t, "user_a")
	h.factory.failNew["user_b"] = errors.New("no ice agent")

	h.s.dispatch(join("user_b"))
	h.s.dispatch(join("user_c"))

	if h.s.registry.Get("user_b") != nil || h.s.registry.Get("user_c") == nil {
		t.Fatal("factory failure not contained")
	}
}

func TestCandidateApplyFailure(t *testing.T) {
	h := newHarness(t, "user_a")
	h.factory.setup = func(c *fakeConn) { c.failAdd = errors.New("bad candidate") }
	h.s.dispatch(join("user_b"))
	h.s.dispatch(answerFrom("user_b"))

	h.s.dispatch(candidateFrom("user_b", "garbage"))
	if h.s.registry.Get("user_b") != nil {
		t.Fatal("session survived candidate failure")
	}
}

func TestTrackBindsSlot(t *testing.T) {
	h := newHarness(t, "user_a")
	for _, id := range []string{"user_b", "user_c", "user_d"} {
		h.s.dispatch(join(id))
		h.s.dispatch(answerFrom(id))
		h.s.handlePeerEvent(peer.Event{Peer: id, Conn: h.factory.last(id), Kind: peer.EventTrack, Track: fakeTrack{}})
	}

	if len(h.display.shown) != 3 || h.display.shown["remote-1"] != "user_b" || h.display.shown["remote-3"] != "user_d" {
		t.Fatalf("shown = %v", h.display.shown)
	}

	// Audio and video of one peer share a slot.
	h.s.handlePeerEvent(peer.Event{Peer: "user_b", Conn: h.factory.last("user_b"), Kind: peer.EventTrack, Track: fakeTrack{}})
	if len(h.s.slots.Bound()) != 3 {
		t.Fatal("second track took another slot")
	}

	h.s.dispatch(leave("user_b"))
	if _, ok := h.s.slots.Lookup("user_b"); ok {
		t.Fatal("slot still bound after leave")
	}
	if len(h.display.cleared) != 1 || h.display.cleared[0] != "remote-1" {
		t.Fatalf("cleared = %v", h.display.cleared)
	}
	if h.s.room.Contains("user_b") || h.s.registry.Get("user_b") != nil {
		t.Fatal("leave did not remove participant")
	}

	h.s.dispatch(join("user_e"))
	h.s.handlePeerEvent(peer.Event{Peer: "user_e", Conn: h.factory.last("user_e"), Kind: peer.EventTrack, Track: fakeTrack{}})
	if h.display.shown["remote-1"] != "user_e" {
		t.Fatalf("shown = %v", h.display.shown)
	}
}

func TestStaleEventsIgnored(t *testing.T) {
	h := newHarness(t, "user_a")
	h.s.dispatch(join("user_b"))
	old := h.factory.last("user_b")

	// A repeated join restarts the session.
	h.s.dispatch(join("user_b"))
	fresh := h.factory.last("user_b")
	if fresh == old || !old.isClosed() {
		t.Fatal("rejoin did not replace the session")
	}
	if len(h.ch.sentOf(signaling.MessageTypeOffer)) != 2 {
		t.Fatal("rejoin did not renegotiate")
	}

	h.s.handlePeerEvent(peer.Event{Peer: "user_b", Conn: old, Kind: peer.EventTrack, Track: fakeTrack{}})
	h.s.handlePeerEvent(peer.Event{Peer: "user_b", Conn: old, Kind: peer.EventState, State: pion.PeerConnectionStateFailed})
	if len(h.display.shown) != 0 || h.s.registry.Get("user_b") == nil {
		t.Fatal("stale event acted on the new session")
	}

	h.s.dispatch(leave("user_b"))
	h.s.handlePeerEvent(peer.Event{Peer: "user_b", Conn: fresh, Kind: peer.EventTrack, Track: fakeTrack{}})
	if len(h.display.shown) != 0 {
		t.Fatal("event after leave bound a slot")
	}
}

func TestConnectionStateEvents(t *testing.T) {
	h := newHarness(t, "user_a")
	h.s.dispatch(join("user_b"))
	h.s.dispatch(answerFrom("user_b"))
	conn := h.factory.last("user_b")

	h.s.handlePeerEvent(peer.Event{Peer: "user_b", Conn: conn, Kind: peer.EventState, State: pion.PeerConnectionStateConnected})
	if h.s.registry.Get("user_b").Link() != pion.PeerConnectionStateConnected {
		t.Fatal("link state not recorded")
	}

	h.s.handlePeerEvent(peer.Event{Peer: "user_b", Conn: conn, Kind: peer.EventState, State: pion.PeerConnectionStateFailed})
	if h.s.registry.Get("user_b") != nil || !conn.isClosed() {
		t.Fatal("failed connection not torn down")
	}
}

func TestLocalCandidateAndInfo(t *testing.T) {
	h := newHarness(t, "user_a")
	h.s.dispatch(join("user_b"))
	conn := h.factory.last("user_b")

	h.s.handlePeerEvent(peer.Event{Peer: "user_b", Conn: conn, Kind: peer.EventCandidate,
		Candidate: &pion.ICECandidateInit{Candidate: "local-1"}})
	sent := h.ch.sentOf(signaling.MessageTypeICECandidate)
	if len(sent) != 1 || sent[0].To != "user_b" || sent[0].Candidate.Candidate != "local-1" {
		t.Fatalf("candidates sent = %+v", sent)
	}

	h.s.handlePeerEvent(peer.Event{Peer: "user_b", Conn: conn, Kind: peer.EventInfo, Info: peer.Info{Name: "bob"}})
	if h.s.registry.Get("user_b").Name() != "bob" {
		t.Fatal("name not recorded")
	}
	h.s.handlePeerEvent(peer.Event{Peer: "user_b", Conn: conn, Kind: peer.EventNegotiationNeeded})

	if rec := h.s.History().Records(); len(rec) != 1 || rec[0].Name != "bob" || rec[0].Sessions != 1 {
		t.Fatalf("history = %+v", rec)
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t, "user_a")
	h.s.dispatch(join("user_b"))
	conn := h.factory.last("user_b")
	h.s.handlePeerEvent(peer.Event{Peer: "user_b", Conn: conn, Kind: peer.EventInfo, Info: peer.Info{Name: "bob"}})
	h.s.handlePeerEvent(peer.Event{Peer: "user_b", Conn: conn, Kind: peer.EventTrack, Track: fakeTrack{}})

	st := h.s.Status()
	if st.RoomID != "ROOM1234" || st.Channel != ChannelConnecting || st.Capacity != 4 {
		t.Fatalf("status = %+v", st)
	}
	if len(st.Slots) != 3 || st.Slots[0].Peer != "user_b" || st.Slots[0].Name != "bob" || st.Slots[1].Peer != "" {
		t.Fatalf("slots = %+v", st.Slots)
	}
	if len(st.Peers) != 1 || st.Peers[0].State != peer.StateOffering {
		t.Fatalf("peers = %+v", st.Peers)
	}
}

func runSession(h *harness, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- h.s.Run(ctx) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestRunLocalExit(t *testing.T) {
	h := newHarness(t, "user_a")
	ctx, cancel := context.WithCancel(context.Background())
	done := runSession(h, ctx)

	h.ch.events <- signaling.Event{Kind: signaling.EventOpen}
	h.ch.events <- signaling.Event{Kind: signaling.EventMessage, Message: join("user_b")}
	deadline := time.Now().Add(2 * time.Second)
	for h.s.registry.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := waitRun(t, done); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.ch.sentOf(signaling.MessageTypeLeave)) != 1 || !h.ch.closed {
		t.Fatal("leave not sent or channel not closed")
	}
	if !h.factory.last("user_b").isClosed() || h.s.registry.Len() != 0 || h.s.room.Len() != 0 {
		t.Fatal("sessions survived exit")
	}
	if h.s.Status().Channel != ChannelClosed {
		t.Fatal("channel state not closed")
	}
}

func TestRunReconnectRediscovers(t *testing.T) {
	h := newHarness(t, "user_a")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runSession(h, ctx)

	h.ch.events <- signaling.Event{Kind: signaling.EventOpen}
	h.ch.events <- signaling.Event{Kind: signaling.EventMessage, Message: join("user_b")}
	h.ch.events <- signaling.Event{Kind: signaling.EventClosed, Code: websocket.CloseAbnormalClosure, Reconnecting: true}
	h.ch.events <- signaling.Event{Kind: signaling.EventOpen}
	h.ch.events <- signaling.Event{Kind: signaling.EventMessage, Message: &signaling.Message{
		Type: signaling.MessageTypeParticipantsList, Participants: []string{"user_b"},
	}}
	h.ch.events <- signaling.Event{Kind: signaling.EventClosed, Code: websocket.CloseNormalClosure}

	if err := waitRun(t, done); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(h.factory.conns["user_b"]); n != 2 {
		t.Fatalf("connections to user_b = %d, want 2", n)
	}
	if !h.factory.conns["user_b"][0].isClosed() {
		t.Fatal("pre-disconnect session not closed")
	}
}

func TestRunChannelLost(t *testing.T) {
	h := newHarness(t, "user_a")
	done := runSession(h, context.Background())

	h.ch.events <- signaling.Event{Kind: signaling.EventClosed, Code: websocket.CloseAbnormalClosure}
	if err := waitRun(t, done); !errors.Is(err, ErrChannelLost) {
		t.Fatalf("Run = %v, want ErrChannelLost", err)
	}

	h = newHarness(t, "user_a")
	done = runSession(h, context.Background())
	close(h.ch.events)
	if err := waitRun(t, done); !errors.Is(err, ErrChannelLost) {
		t.Fatalf("Run = %v, want ErrChannelLost", err)
	}
}

func TestRunPeerEventsFromCallbacks(t *testing.T) {
	h := newHarness(t, "user_a")
	ctx, cancel := context.WithCancel(context.Background())
	done := runSession(h, ctx)

	h.ch.events <- signaling.Event{Kind: signaling.EventMessage, Message: join("user_b")}
	deadline := time.Now().Add(2 * time.Second)
	for h.s.registry.Get("user_b") == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	conn := h.s.registry.Get("user_b").Conn

	go h.s.post(peer.Event{Peer: "user_b", Conn: conn, Kind: peer.EventCandidate,
		Candidate: &pion.ICECandidateInit{Candidate: "from-pion"}})
	for len(h.ch.sentOf(signaling.MessageTypeICECandidate)) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	waitRun(t, done)

	if len(h.ch.sentOf(signaling.MessageTypeICECandidate)) != 1 {
		t.Fatal("posted candidate not relayed")
	}

	// Posting after the loop ended must not block.
	h.s.post(peer.Event{Peer: "user_b", Kind: peer.EventNegotiationNeeded})
}

func TestNewParticipantID(t *testing.T) {
	a, b := NewParticipantID(), NewParticipantID()
	if a == b || len(a) != len("user_")+12 || a[:5] != "user_" {
		t.Fatalf("ids = %q %q", a, b)
	}
	if Initiator("user_a", "user_b") == Initiator("user_b", "user_a") {
		t.Fatal("initiator rule not antisymmetric")
	}
}
