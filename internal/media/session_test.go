package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/piyushdolas8/skillswap/shared/wire"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	current  webrtc.TrackLocal
	replaced int
}

func (f *fakeSender) ReplaceTrack(track webrtc.TrackLocal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = track
	f.replaced++
	return nil
}

func (f *fakeSender) Current() webrtc.TrackLocal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

type fakePeer struct {
	mu         sync.Mutex
	id         int
	remote     *webrtc.SessionDescription
	local      *webrtc.SessionDescription
	candidates []string
	senders    []*fakeSender
	closed     bool
	onICE      func(*webrtc.ICECandidate)
	onState    func(webrtc.PeerConnectionState)
}

func (p *fakePeer) CreateOffer(*webrtc.OfferOptions) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: fmt.Sprintf("offer-%d", p.id)}, nil
}

func (p *fakePeer) CreateAnswer(*webrtc.AnswerOptions) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: fmt.Sprintf("answer-%d", p.id)}, nil
}

func (p *fakePeer) SetLocalDescription(desc webrtc.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.local = &desc
	return nil
}

func (p *fakePeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remote = &desc
	return nil
}

func (p *fakePeer) RemoteDescription() *webrtc.SessionDescription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote
}

func (p *fakePeer) AddICECandidate(c webrtc.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remote == nil {
		return errors.New("no remote description")
	}
	p.candidates = append(p.candidates, c.Candidate)
	return nil
}

func (p *fakePeer) AddTrack(track webrtc.TrackLocal) (TrackSender, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := &fakeSender{current: track}
	p.senders = append(p.senders, s)
	return s, nil
}

func (p *fakePeer) OnICECandidate(fn func(*webrtc.ICECandidate)) { p.onICE = fn }

func (p *fakePeer) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) { p.onState = fn }

func (p *fakePeer) OnTrack(func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) Candidates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.candidates...)
}

func (p *fakePeer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type sent struct {
	event   wire.Event
	payload any
}

type fakeSignal struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeSignal) Send(_ context.Context, event wire.Event, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{event: event, payload: payload})
	return nil
}

func (f *fakeSignal) Events() []wire.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []wire.Event
	for _, s := range f.sent {
		out = append(out, s.event)
	}
	return out
}

type harness struct {
	session *Session
	signal  *fakeSignal
	peers   []*fakePeer
	notices chan Notice
}

func newHarness(t *testing.T, self string, devices Devices) *harness {
	t.Helper()
	h := &harness{signal: &fakeSignal{}, notices: make(chan Notice, 16)}
	h.session = NewSession(Config{
		Factory: func() (PeerConnection, error) {
			p := &fakePeer{id: len(h.peers) + 1}
			h.peers = append(h.peers, p)
			return p, nil
		},
		Devices: devices,
		Signal:  h.signal,
		Notify:  func(n Notice) { h.notices <- n },
	})
	h.session.SetSelf(self)
	t.Cleanup(func() { _ = h.session.Close() })
	return h
}

func TestPeerJoinedSendsOffer(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", nil)
	ctx := context.Background()

	require.NoError(t, h.session.HandlePeerJoined(ctx))
	require.Equal(t, StateOfferSent, h.session.State())
	require.Equal(t, []wire.Event{wire.EventWebRTCOffer}, h.signal.Events())

	// A second peer-joined while an offer is outstanding is ignored.
	require.NoError(t, h.session.HandlePeerJoined(ctx))
	require.Len(t, h.signal.Events(), 1)
	require.Len(t, h.peers, 1)
}

func TestEarlyCandidatesAreBuffered(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "b", nil)
	ctx := context.Background()

	require.NoError(t, h.session.HandleCandidate(webrtc.ICECandidateInit{Candidate: "c1"}))
	require.NoError(t, h.session.HandleCandidate(webrtc.ICECandidateInit{Candidate: "c2"}))
	require.Equal(t, 2, h.session.PendingCandidates())

	require.NoError(t, h.session.HandleOffer(ctx, "a", "remote-offer"))
	require.Equal(t, StateOfferReceived, h.session.State())
	require.Zero(t, h.session.PendingCandidates())
	require.Equal(t, []string{"c1", "c2"}, h.peers[0].Candidates())
	require.Equal(t, []wire.Event{wire.EventWebRTCAnswer}, h.signal.Events())

	require.NoError(t, h.session.HandleCandidate(webrtc.ICECandidateInit{Candidate: "c3"}))
	require.Equal(t, []string{"c1", "c2", "c3"}, h.peers[0].Candidates())
}

func TestCandidatesBeforeAnswerAreBuffered(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", nil)
	ctx := context.Background()

	require.NoError(t, h.session.HandlePeerJoined(ctx))
	require.NoError(t, h.session.HandleCandidate(webrtc.ICECandidateInit{Candidate: "early"}))
	require.Equal(t, 1, h.session.PendingCandidates())

	require.NoError(t, h.session.HandleAnswer("remote-answer"))
	require.Equal(t, []string{"early"}, h.peers[0].Candidates())
}

func TestStaleAnswerIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", nil)
	require.NoError(t, h.session.HandleAnswer("nobody asked"))
	require.Equal(t, StateUnconnected, h.session.State())
	require.Empty(t, h.peers)
}

func TestGlarePoliteSideYields(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "b", nil)
	ctx := context.Background()

	require.NoError(t, h.session.HandlePeerJoined(ctx))
	require.NoError(t, h.session.HandleOffer(ctx, "a", "their-offer"))

	require.True(t, h.peers[0].Closed())
	require.Len(t, h.peers, 2)
	require.Equal(t, StateOfferReceived, h.session.State())
	require.Equal(t, []wire.Event{wire.EventWebRTCOffer, wire.EventWebRTCAnswer}, h.signal.Events())
}

func TestGlareKeepsEarlyRemoteCandidates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "b", nil)
	ctx := context.Background()

	require.NoError(t, h.session.HandlePeerJoined(ctx))
	require.NoError(t, h.session.HandleCandidate(webrtc.ICECandidateInit{Candidate: "a-host"}))
	require.Equal(t, 1, h.session.PendingCandidates())

	require.NoError(t, h.session.HandleOffer(ctx, "a", "their-offer"))
	require.Len(t, h.peers, 2)
	require.Zero(t, h.session.PendingCandidates())
	require.Equal(t, []string{"a-host"}, h.peers[1].Candidates())
}

func TestResetDropsBufferedCandidates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", nil)
	ctx := context.Background()

	require.NoError(t, h.session.HandlePeerJoined(ctx))
	require.NoError(t, h.session.HandleCandidate(webrtc.ICECandidateInit{Candidate: "stale"}))
	h.session.Reset()
	require.Zero(t, h.session.PendingCandidates())
}

func TestGlareImpoliteSideIgnores(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", nil)
	ctx := context.Background()

	require.NoError(t, h.session.HandlePeerJoined(ctx))
	require.NoError(t, h.session.HandleOffer(ctx, "b", "their-offer"))

	require.Len(t, h.peers, 1)
	require.False(t, h.peers[0].Closed())
	require.Equal(t, StateOfferSent, h.session.State())
	require.Equal(t, []wire.Event{wire.EventWebRTCOffer}, h.signal.Events())
}

func TestConnectedAndLocalCandidates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", nil)
	ctx := context.Background()
	require.NoError(t, h.session.HandlePeerJoined(ctx))
	require.NoError(t, h.session.HandleAnswer("answer"))

	h.peers[0].onState(webrtc.PeerConnectionStateConnected)
	select {
	case n := <-h.notices:
		require.Equal(t, NoticeConnectionState, n.Kind)
		require.Equal(t, webrtc.PeerConnectionStateConnected, n.State)
	case <-time.After(2 * time.Second):
		t.Fatal("no connection notice")
	}
	require.Equal(t, StateConnected, h.session.State())

	h.peers[0].onICE(nil)
	require.Equal(t, []wire.Event{wire.EventWebRTCOffer}, h.signal.Events())
}

func TestHandleDispatchesEnvelopes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "b", nil)
	ctx := context.Background()

	ice, err := wire.NewEnvelope(wire.EventWebRTCICE, wire.ICECandidate{Candidate: "c1"})
	require.NoError(t, err)
	require.NoError(t, h.session.Handle(ctx, ice))

	offer, err := wire.NewEnvelope(wire.EventWebRTCOffer, wire.SessionDescription{SDP: "o"})
	require.NoError(t, err)
	offer.From = "a"
	require.NoError(t, h.session.Handle(ctx, offer))
	require.Equal(t, []string{"c1"}, h.peers[0].Candidates())

	bad, err := wire.NewEnvelope(wire.EventWebRTCAnswer, wire.SessionDescription{})
	require.NoError(t, err)
	require.ErrorIs(t, h.session.Handle(ctx, bad), wire.ErrMalformed)
}

func TestTogglesGateTracks(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", SyntheticDevices{})
	require.NoError(t, h.session.AcquireLocal(context.Background()))

	h.session.SetMuted(true)
	h.session.SetVideoOff(true)
	h.session.mu.Lock()
	require.False(t, h.session.mic.Enabled())
	require.False(t, h.session.camera.Enabled())
	h.session.mu.Unlock()

	h.session.SetMuted(false)
	h.session.mu.Lock()
	require.True(t, h.session.mic.Enabled())
	h.session.mu.Unlock()
}

func TestAcquireLocalFailureIsReported(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", SyntheticDevices{Fail: errors.New("permission denied")})
	err := h.session.AcquireLocal(context.Background())
	require.ErrorContains(t, err, "permission denied")

	// Negotiation still works without local media.
	require.NoError(t, h.session.HandlePeerJoined(context.Background()))
	require.Empty(t, h.peers[0].senders)
}

func TestScreenShareReplacesAndRestoresCamera(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", SyntheticDevices{})
	ctx := context.Background()
	require.NoError(t, h.session.AcquireLocal(ctx))
	require.NoError(t, h.session.HandlePeerJoined(ctx))

	peer := h.peers[0]
	require.Len(t, peer.senders, 2)
	video := peer.senders[1]
	camera := video.Current()

	require.NoError(t, h.session.StartScreenShare(ctx))
	require.True(t, h.session.ScreenSharing())
	require.NotEqual(t, camera, video.Current())

	require.NoError(t, h.session.StopScreenShare())
	require.False(t, h.session.ScreenSharing())
	require.Equal(t, camera, video.Current())
	require.Len(t, h.peers, 1)
}

func TestScreenShareEndedNotice(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", SyntheticDevices{ScreenDuration: 50 * time.Millisecond})
	require.NoError(t, h.session.StartScreenShare(context.Background()))

	select {
	case n := <-h.notices:
		require.Equal(t, NoticeScreenShareEnded, n.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("no screen share ended notice")
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", SyntheticDevices{})
	ctx := context.Background()
	require.NoError(t, h.session.AcquireLocal(ctx))
	require.NoError(t, h.session.HandlePeerJoined(ctx))
	require.NoError(t, h.session.StartScreenShare(ctx))

	require.NoError(t, h.session.Close())
	require.NoError(t, h.session.Close())
	require.True(t, h.peers[0].Closed())
	require.Equal(t, StateClosed, h.session.State())
	require.False(t, h.session.ScreenSharing())

	require.ErrorIs(t, h.session.HandlePeerJoined(ctx), ErrClosed)
	require.ErrorIs(t, h.session.HandleCandidate(webrtc.ICECandidateInit{Candidate: "x"}), ErrClosed)
	require.ErrorIs(t, h.session.StartScreenShare(ctx), ErrClosed)
}

func TestResetAllowsRenegotiation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "a", nil)
	ctx := context.Background()
	require.NoError(t, h.session.HandlePeerJoined(ctx))
	require.NoError(t, h.session.HandleAnswer("answer"))

	h.session.Reset()
	require.True(t, h.peers[0].Closed())
	require.Equal(t, StateUnconnected, h.session.State())

	require.NoError(t, h.session.HandlePeerJoined(ctx))
	require.Len(t, h.peers, 2)
}
