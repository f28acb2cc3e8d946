// Package media negotiates the peer audio/video connection between the two
// participants and owns every local capture resource.
//
// Signaling rides on the session channel (peer-joined, webrtc-offer,
// webrtc-answer, webrtc-ice). Session is the single owner of the peer
// connection and the local tracks; Close releases all of them.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/piyushdolas8/skillswap/shared/logger"
	"github.com/piyushdolas8/skillswap/shared/wire"
)

// ErrClosed is returned by operations on a closed Session.
var ErrClosed = errors.New("media session closed")

// State is the negotiation state.
type State string

const (
	StateUnconnected   State = "Unconnected"
	StateOfferSent     State = "OfferSent"
	StateOfferReceived State = "OfferReceived"
	StateConnected     State = "Connected"
	StateClosed        State = "Closed"
)

// Signaler sends signaling messages to the other participant.
type Signaler interface {
	Send(ctx context.Context, event wire.Event, payload any) error
}

// NoticeKind classifies asynchronous media notices.
type NoticeKind string

const (
	NoticeConnectionState  NoticeKind = "connection-state"
	NoticeRemoteTrack      NoticeKind = "remote-track"
	NoticeScreenShareEnded NoticeKind = "screen-share-ended"
	NoticeError            NoticeKind = "error"
)

// Notice reports something that happened outside a direct call.
type Notice struct {
	Kind  NoticeKind
	State webrtc.PeerConnectionState
	Track string
	Err   error
}

// Config wires a Session to its collaborators.
type Config struct {
	Factory PeerFactory
	Devices Devices
	Signal  Signaler
	// Notify receives notices from pion and capture goroutines. It must not
	// block.
	Notify func(Notice)
}

// Session is one participant's media state.
type Session struct {
	cfg Config

	mu      sync.Mutex
	self    string
	pc      PeerConnection
	state   State
	pending []webrtc.ICECandidateInit

	mic    *LocalTrack
	camera *LocalTrack
	screen *LocalTrack

	audioSender TrackSender
	videoSender TrackSender

	muted    bool
	videoOff bool
}

// NewSession returns an unconnected session. No devices are touched until
// AcquireLocal.
func NewSession(cfg Config) *Session {
	if cfg.Notify == nil {
		cfg.Notify = func(Notice) {}
	}
	return &Session{cfg: cfg, state: StateUnconnected}
}

// SetSelf records this participant's id, used to break offer glare.
func (s *Session) SetSelf(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.self = id
}

// State returns the negotiation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PendingCandidates returns how many remote candidates wait for a remote
// description.
func (s *Session) PendingCandidates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// AcquireLocal opens the microphone and camera. Either may fail on its own;
// the returned error joins every failure and the session stays usable.
func (s *Session) AcquireLocal(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	var errs []error
	mic, err := s.open(ctx, KindMicrophone)
	if err != nil {
		errs = append(errs, err)
	}
	camera, err := s.open(ctx, KindCamera)
	if err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		stopTracks(mic, camera)
		return ErrClosed
	}
	if mic != nil {
		stopTracks(s.mic)
		s.mic = mic
		mic.SetEnabled(!s.muted)
	}
	if camera != nil {
		stopTracks(s.camera)
		s.camera = camera
		camera.SetEnabled(!s.videoOff)
	}
	return errors.Join(errs...)
}

func (s *Session) open(ctx context.Context, kind TrackKind) (*LocalTrack, error) {
	if s.cfg.Devices == nil {
		return nil, fmt.Errorf("%s: no capture devices", kind)
	}
	var (
		capture Capture
		err     error
		onEnded func()
	)
	switch kind {
	case KindMicrophone:
		capture, err = s.cfg.Devices.OpenMicrophone(ctx)
	case KindCamera:
		capture, err = s.cfg.Devices.OpenCamera(ctx)
	case KindScreen:
		capture, err = s.cfg.Devices.OpenScreen(ctx)
		onEnded = func() { s.cfg.Notify(Notice{Kind: NoticeScreenShareEnded}) }
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return NewLocalTrack(kind, capture, onEnded)
}

// Handle dispatches one signaling envelope.
func (s *Session) Handle(ctx context.Context, env wire.Envelope) error {
	switch env.Event {
	case wire.EventPeerJoined:
		return s.HandlePeerJoined(ctx)
	case wire.EventWebRTCOffer:
		desc, err := wire.Decode[wire.SessionDescription](env)
		if err != nil {
			return err
		}
		return s.HandleOffer(ctx, env.From, desc.SDP)
	case wire.EventWebRTCAnswer:
		desc, err := wire.Decode[wire.SessionDescription](env)
		if err != nil {
			return err
		}
		return s.HandleAnswer(desc.SDP)
	case wire.EventWebRTCICE:
		c, err := wire.Decode[wire.ICECandidate](env)
		if err != nil {
			return err
		}
		return s.HandleCandidate(webrtc.ICECandidateInit{
			Candidate:     c.Candidate,
			SDPMid:        c.SDPMid,
			SDPMLineIndex: c.SDPMLineIndex,
		})
	}
	return nil
}

// HandlePeerJoined starts negotiation as the offering side.
func (s *Session) HandlePeerJoined(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	case StateOfferSent:
		s.mu.Unlock()
		return nil
	case StateOfferReceived, StateConnected:
		// The peer came back with a fresh session.
		s.resetLocked()
	}

	pc, err := s.ensurePeerLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	offer, err := pc.CreateOffer(nil)
	if err == nil {
		err = pc.SetLocalDescription(offer)
	}
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("create offer: %w", err)
	}
	s.state = StateOfferSent
	s.mu.Unlock()

	logger.Debugf("media: sending offer")
	return s.cfg.Signal.Send(ctx, wire.EventWebRTCOffer, wire.SessionDescription{SDP: offer.SDP})
}

// polite reports whether this side yields on offer glare. Ids are compared
// so both sides agree without coordination.
func (s *Session) politeLocked(remote string) bool {
	return s.self > remote
}

// HandleOffer answers a remote offer.
func (s *Session) HandleOffer(ctx context.Context, from, sdp string) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	case StateOfferSent:
		if !s.politeLocked(from) {
			s.mu.Unlock()
			logger.Debugf("media: ignoring glare offer from %s", from)
			return nil
		}
		logger.Debugf("media: yielding to glare offer from %s", from)
		s.dropPeerLocked()
	case StateOfferReceived, StateConnected:
		s.dropPeerLocked()
	}

	pc, err := s.ensurePeerLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	err = pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("set remote offer: %w", err)
	}
	s.flushPendingLocked()

	answer, err := pc.CreateAnswer(nil)
	if err == nil {
		err = pc.SetLocalDescription(answer)
	}
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("create answer: %w", err)
	}
	s.state = StateOfferReceived
	s.mu.Unlock()

	logger.Debugf("media: sending answer")
	return s.cfg.Signal.Send(ctx, wire.EventWebRTCAnswer, wire.SessionDescription{SDP: answer.SDP})
}

// HandleAnswer completes an offer this side sent. Answers in any other state
// are stale and ignored.
func (s *Session) HandleAnswer(sdp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrClosed
	}
	if s.state != StateOfferSent || s.pc == nil {
		logger.Debugf("media: ignoring answer in state %s", s.state)
		return nil
	}
	err := s.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp})
	if err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	s.flushPendingLocked()
	return nil
}

// HandleCandidate adds a remote candidate, or buffers it until a remote
// description is set.
func (s *Session) HandleCandidate(c webrtc.ICECandidateInit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrClosed
	}
	if s.pc == nil || s.pc.RemoteDescription() == nil {
		s.pending = append(s.pending, c)
		return nil
	}
	if err := s.pc.AddICECandidate(c); err != nil {
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

func (s *Session) flushPendingLocked() {
	pending := s.pending
	s.pending = nil
	for _, c := range pending {
		if err := s.pc.AddICECandidate(c); err != nil {
			logger.Warnf("media: add buffered candidate: %v", err)
		}
	}
}

func (s *Session) ensurePeerLocked() (PeerConnection, error) {
	if s.pc != nil {
		return s.pc, nil
	}
	if s.cfg.Factory == nil {
		return nil, errors.New("no peer connection factory")
	}
	pc, err := s.cfg.Factory()
	if err != nil {
		return nil, err
	}

	if s.mic != nil {
		if s.audioSender, err = pc.AddTrack(s.mic.Track()); err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("add audio track: %w", err)
		}
	}
	video := s.camera
	if s.screen != nil {
		video = s.screen
	}
	if video != nil {
		if s.videoSender, err = pc.AddTrack(video.Track()); err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("add video track: %w", err)
		}
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		s.sendCandidate(pc, c.ToJSON())
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		go s.onConnectionState(pc, state)
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		s.cfg.Notify(Notice{Kind: NoticeRemoteTrack, Track: track.Kind().String()})
	})

	s.pc = pc
	return pc, nil
}

func (s *Session) sendCandidate(pc PeerConnection, c webrtc.ICECandidateInit) {
	s.mu.Lock()
	current := s.pc == pc
	s.mu.Unlock()
	if !current {
		return
	}
	err := s.cfg.Signal.Send(context.Background(), wire.EventWebRTCICE, wire.ICECandidate{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	})
	if err != nil {
		logger.Debugf("media: send candidate: %v", err)
	}
}

func (s *Session) onConnectionState(pc PeerConnection, state webrtc.PeerConnectionState) {
	s.mu.Lock()
	if s.pc != pc {
		s.mu.Unlock()
		return
	}
	if state == webrtc.PeerConnectionStateConnected &&
		(s.state == StateOfferSent || s.state == StateOfferReceived) {
		s.state = StateConnected
	}
	s.mu.Unlock()
	s.cfg.Notify(Notice{Kind: NoticeConnectionState, State: state})
}

// SetMuted gates the microphone track.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
	if s.mic != nil {
		s.mic.SetEnabled(!muted)
	}
}

// SetVideoOff gates the camera track.
func (s *Session) SetVideoOff(off bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoOff = off
	if s.camera != nil {
		s.camera.SetEnabled(!off)
	}
}

// StartScreenShare captures the screen and swaps it into the outgoing video
// sender in place.
func (s *Session) StartScreenShare(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.screen != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	screen, err := s.open(ctx, KindScreen)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		stopTracks(screen)
		return ErrClosed
	}
	if s.videoSender != nil {
		if err := s.videoSender.ReplaceTrack(screen.Track()); err != nil {
			stopTracks(screen)
			return fmt.Errorf("replace video track: %w", err)
		}
	}
	s.screen = screen
	return nil
}

// StopScreenShare restores the camera on the outgoing video sender.
func (s *Session) StopScreenShare() error {
	s.mu.Lock()
	screen := s.screen
	if screen == nil {
		s.mu.Unlock()
		return nil
	}
	s.screen = nil

	var err error
	if s.videoSender != nil {
		var camera webrtc.TrackLocal
		if s.camera != nil {
			camera = s.camera.Track()
		}
		if rerr := s.videoSender.ReplaceTrack(camera); rerr != nil {
			err = fmt.Errorf("restore camera track: %w", rerr)
		}
	}
	s.mu.Unlock()

	screen.Stop()
	return err
}

// ScreenSharing reports whether a screen capture is live.
func (s *Session) ScreenSharing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen != nil
}

// Reset drops the peer connection but keeps local tracks, ready for the peer
// to rejoin.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.dropPeerLocked()
	s.pending = nil
}

// dropPeerLocked closes the peer connection but keeps buffered remote
// candidates. Candidates that arrive while our own offer is outstanding
// belong to the remote offer we may be about to answer.
func (s *Session) dropPeerLocked() {
	if s.pc != nil {
		if err := s.pc.Close(); err != nil {
			logger.Debugf("media: close peer connection: %v", err)
		}
	}
	s.pc = nil
	s.audioSender = nil
	s.videoSender = nil
	s.state = StateUnconnected
}

// Close stops every local track and closes the peer connection. It is safe
// to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.resetLocked()
	s.state = StateClosed
	tracks := []*LocalTrack{s.mic, s.camera, s.screen}
	s.mic, s.camera, s.screen = nil, nil, nil
	s.mu.Unlock()

	stopTracks(tracks...)
	return nil
}

func stopTracks(tracks ...*LocalTrack) {
	for _, t := range tracks {
		if t != nil {
			t.Stop()
		}
	}
}
