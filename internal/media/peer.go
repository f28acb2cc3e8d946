package media

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

// DefaultSTUN is used when no ICE servers are configured.
var DefaultSTUN = []string{"stun:stun.l.google.com:19302"}

// TrackSender is the outgoing half of a transceiver.
type TrackSender interface {
	ReplaceTrack(track webrtc.TrackLocal) error
}

// PeerConnection is the part of a pion PeerConnection the negotiator drives.
type PeerConnection interface {
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	RemoteDescription() *webrtc.SessionDescription
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	AddTrack(track webrtc.TrackLocal) (TrackSender, error)
	OnICECandidate(fn func(*webrtc.ICECandidate))
	OnConnectionStateChange(fn func(webrtc.PeerConnectionState))
	OnTrack(fn func(*webrtc.TrackRemote, *webrtc.RTPReceiver))
	Close() error
}

// PeerFactory creates a fresh peer connection.
type PeerFactory func() (PeerConnection, error)

type pionPeer struct {
	*webrtc.PeerConnection
}

// AddTrack adapts the concrete *webrtc.RTPSender to TrackSender.
func (p pionPeer) AddTrack(track webrtc.TrackLocal) (TrackSender, error) {
	sender, err := p.PeerConnection.AddTrack(track)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

// NewPionFactory returns a PeerFactory backed by pion with the default
// codecs registered and pion's logs routed into the shared logger.
func NewPionFactory(iceServers []string) (PeerFactory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	s := webrtc.SettingEngine{LoggerFactory: loggerFactory{}}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithSettingEngine(s))

	if len(iceServers) == 0 {
		iceServers = DefaultSTUN
	}
	cfg := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: iceServers}},
	}
	return func() (PeerConnection, error) {
		pc, err := api.NewPeerConnection(cfg)
		if err != nil {
			return nil, fmt.Errorf("new peer connection: %w", err)
		}
		return pionPeer{pc}, nil
	}, nil
}
