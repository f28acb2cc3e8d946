package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/piyushdolas8/skillswap/shared/logger"
)

// ErrCaptureEnded is returned by Capture.ReadSample once the source is gone.
var ErrCaptureEnded = errors.New("capture ended")

// TrackKind distinguishes the local sources.
type TrackKind string

const (
	KindMicrophone TrackKind = "microphone"
	KindCamera     TrackKind = "camera"
	KindScreen     TrackKind = "screen"
)

// Capture is a running media source. ReadSample blocks until the next sample
// and returns ErrCaptureEnded when the source stops on its own (for example
// the user closing a screen share from the OS).
type Capture interface {
	ReadSample(ctx context.Context) (pionmedia.Sample, error)
	Stop()
}

// Devices acquires local capture sources.
type Devices interface {
	OpenMicrophone(ctx context.Context) (Capture, error)
	OpenCamera(ctx context.Context) (Capture, error)
	OpenScreen(ctx context.Context) (Capture, error)
}

// LocalTrack pumps a Capture into a pion sample track. While disabled the
// samples are read and discarded, so the track stays attached and no
// renegotiation is needed to toggle it.
type LocalTrack struct {
	kind    TrackKind
	track   *webrtc.TrackLocalStaticSample
	capture Capture
	enabled atomic.Bool

	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	onEnded func()
}

// NewLocalTrack starts pumping capture into a new track. onEnded runs once if
// the capture ends on its own.
func NewLocalTrack(kind TrackKind, capture Capture, onEnded func()) (*LocalTrack, error) {
	codec := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}
	if kind == KindMicrophone {
		codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}
	}
	track, err := webrtc.NewTrackLocalStaticSample(codec, string(kind), "liveroom")
	if err != nil {
		capture.Stop()
		return nil, fmt.Errorf("new %s track: %w", kind, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &LocalTrack{
		kind:    kind,
		track:   track,
		capture: capture,
		cancel:  cancel,
		done:    make(chan struct{}),
		onEnded: onEnded,
	}
	t.enabled.Store(true)
	go t.pump(ctx)
	return t, nil
}

// Kind returns the source kind.
func (t *LocalTrack) Kind() TrackKind { return t.kind }

// Track returns the pion track to attach to a sender.
func (t *LocalTrack) Track() webrtc.TrackLocal { return t.track }

// SetEnabled gates the samples written to the track.
func (t *LocalTrack) SetEnabled(enabled bool) { t.enabled.Store(enabled) }

// Enabled reports the gate state.
func (t *LocalTrack) Enabled() bool { return t.enabled.Load() }

// Stop releases the capture. It is safe to call repeatedly.
func (t *LocalTrack) Stop() {
	t.once.Do(func() {
		t.cancel()
		t.capture.Stop()
	})
	<-t.done
}

func (t *LocalTrack) pump(ctx context.Context) {
	defer close(t.done)
	for {
		sample, err := t.capture.ReadSample(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, ErrCaptureEnded):
			logger.Infof("media: %s capture ended", t.kind)
			if t.onEnded != nil {
				go t.onEnded()
			}
			return
		case err != nil:
			logger.Warnf("media: %s capture read: %v", t.kind, err)
			return
		}
		if !t.enabled.Load() {
			continue
		}
		if err := t.track.WriteSample(sample); err != nil {
			logger.Debugf("media: %s write sample: %v", t.kind, err)
		}
	}
}

// SyntheticDevices produces silent audio and blank video frames at a fixed
// cadence. The terminal client uses it where no real capture stack exists.
type SyntheticDevices struct {
	// ScreenDuration ends screen captures after the given time when non-zero.
	ScreenDuration time.Duration
	// Fail makes every Open call return this error.
	Fail error
}

var _ Devices = SyntheticDevices{}

// OpenMicrophone implements Devices.
func (d SyntheticDevices) OpenMicrophone(context.Context) (Capture, error) {
	if d.Fail != nil {
		return nil, d.Fail
	}
	return newSyntheticCapture(20*time.Millisecond, make([]byte, 3), 0), nil
}

// OpenCamera implements Devices.
func (d SyntheticDevices) OpenCamera(context.Context) (Capture, error) {
	if d.Fail != nil {
		return nil, d.Fail
	}
	return newSyntheticCapture(33*time.Millisecond, make([]byte, 10), 0), nil
}

// OpenScreen implements Devices.
func (d SyntheticDevices) OpenScreen(context.Context) (Capture, error) {
	if d.Fail != nil {
		return nil, d.Fail
	}
	return newSyntheticCapture(66*time.Millisecond, make([]byte, 10), d.ScreenDuration), nil
}

type syntheticCapture struct {
	interval time.Duration
	payload  []byte
	deadline time.Time
	stopped  chan struct{}
	once     sync.Once
}

func newSyntheticCapture(interval time.Duration, payload []byte, lifetime time.Duration) *syntheticCapture {
	c := &syntheticCapture{
		interval: interval,
		payload:  payload,
		stopped:  make(chan struct{}),
	}
	if lifetime > 0 {
		c.deadline = time.Now().Add(lifetime)
	}
	return c
}

func (c *syntheticCapture) ReadSample(ctx context.Context) (pionmedia.Sample, error) {
	if !c.deadline.IsZero() && time.Now().After(c.deadline) {
		return pionmedia.Sample{}, ErrCaptureEnded
	}
	timer := time.NewTimer(c.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return pionmedia.Sample{}, ctx.Err()
	case <-c.stopped:
		return pionmedia.Sample{}, ErrCaptureEnded
	case <-timer.C:
		return pionmedia.Sample{Data: c.payload, Duration: c.interval}, nil
	}
}

func (c *syntheticCapture) Stop() {
	c.once.Do(func() { close(c.stopped) })
}
