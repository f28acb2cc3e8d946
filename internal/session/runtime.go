package session

import (
	"context"
	"errors"
	"sync"

	"github.com/piyushdolas8/skillswap/internal/actor"
	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/piyushdolas8/skillswap/internal/media"
	"github.com/piyushdolas8/skillswap/internal/storage"
	"github.com/piyushdolas8/skillswap/shared/logger"
	"github.com/piyushdolas8/skillswap/shared/wire"
)

const mediaQueueSize = 64

var (
	// ErrUploadsDisabled is reported when a file is shared without storage.
	ErrUploadsDisabled = errors.New("file sharing is not configured")
	// ErrMediaDisabled is reported for media requests without a media session.
	ErrMediaDisabled = errors.New("media is not configured")
)

// Runtime interprets controller effects.
//
// It never touches State. Results come back through emit. Media calls run on
// one worker goroutine in the order they were requested so that negotiation
// messages are applied in arrival order.
type Runtime struct {
	ch       channel.Channel
	media    *media.Session
	uploader storage.Uploader
	clock    actor.Clock

	onRender func()
	onNotify func(Notification)

	jobs       chan func()
	quit       chan struct{}
	workerDone chan struct{}

	teardownOnce sync.Once
	tornDown     chan struct{}
}

var _ actor.Runtime = (*Runtime)(nil)

// NewRuntime starts the media worker. sess and uploader may be nil.
func NewRuntime(ch channel.Channel, sess *media.Session, uploader storage.Uploader, clock actor.Clock) *Runtime {
	if clock == nil {
		clock = actor.RealClock{}
	}
	r := &Runtime{
		ch:         ch,
		media:      sess,
		uploader:   uploader,
		clock:      clock,
		jobs:       make(chan func(), mediaQueueSize),
		quit:       make(chan struct{}),
		workerDone: make(chan struct{}),
		tornDown:   make(chan struct{}),
	}
	go r.worker()
	return r
}

// HandleEffects implements actor.Runtime.
func (r *Runtime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	for _, eff := range effects {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch e := eff.(type) {
		case effSubscribe:
			r.subscribe(ctx, emit)
		case effBroadcast:
			r.broadcast(ctx, e)
		case effRender:
			if r.onRender != nil {
				r.onRender()
			}
		case effNotify:
			logger.Infof("session: [%s] %s", e.Notification.Level, e.Notification.Message)
			if r.onNotify != nil {
				r.onNotify(e.Notification)
			}
		case effUpload:
			r.upload(ctx, e, emit)
		case effMedia:
			r.runMedia(ctx, e, emit)
		case effTeardown:
			go func(reply chan error) {
				r.teardown()
				if reply != nil {
					reply <- nil
				}
			}(e.Reply)
		default:
			// Unknown effect: ignore.
		}
	}
}

func (r *Runtime) subscribe(ctx context.Context, emit func(actor.Input)) {
	handler := channel.Handler{
		OnMessage: func(env wire.Envelope) {
			emit(evInbound{Env: env, At: r.clock.Now()})
		},
		OnStatus: func(status channel.Status, err error) {
			emit(evStatus{Status: status, Err: err, Self: r.ch.Self()})
		},
	}
	r.enqueue(func() {
		if err := r.ch.Subscribe(ctx, handler); err != nil {
			logger.Warnf("session: subscribe: %v", err)
			emit(evStatus{Status: channel.StatusFailed, Err: err})
		}
	})
}

func (r *Runtime) broadcast(ctx context.Context, e effBroadcast) {
	err := r.ch.Send(ctx, e.Event, e.Payload)
	switch {
	case err == nil:
	case errors.Is(err, channel.ErrNotSubscribed), errors.Is(err, channel.ErrClosed):
		logger.Debugf("session: %s kept local: %v", e.Event, err)
	default:
		logger.Warnf("session: broadcast %s: %v", e.Event, err)
	}
}

func (r *Runtime) upload(ctx context.Context, e effUpload, emit func(actor.Input)) {
	if r.uploader == nil {
		emit(evUploadFailed{Name: e.File.Name, Err: ErrUploadsDisabled})
		return
	}
	go func() {
		url, err := r.uploader.Upload(ctx, e.Key, e.Data, e.ContentType)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			emit(evUploadFailed{Name: e.File.Name, Err: err})
			return
		}
		file := e.File
		file.URL = url
		emit(evUploadDone{File: file})
	}()
}

func (r *Runtime) runMedia(ctx context.Context, e effMedia, emit func(actor.Input)) {
	m := r.media
	if m == nil {
		if e.Op == mediaStartShare {
			emit(evScreenShareFailed{Err: ErrMediaDisabled})
		}
		return
	}
	r.enqueue(func() {
		switch e.Op {
		case mediaAcquire:
			if err := m.AcquireLocal(ctx); err != nil && ctx.Err() == nil {
				emit(evLocalMediaFailed{Err: err})
			}
		case mediaSetSelf:
			m.SetSelf(e.Self)
		case mediaSignal:
			if err := m.Handle(ctx, e.Env); err != nil {
				if errors.Is(err, wire.ErrMalformed) {
					logger.Debugf("session: dropping %s: %v", e.Env.Event, err)
					return
				}
				logger.Warnf("session: media %s: %v", e.Env.Event, err)
			}
		case mediaSetMuted:
			m.SetMuted(e.Flag)
		case mediaSetVideoOff:
			m.SetVideoOff(e.Flag)
		case mediaStartShare:
			if err := m.StartScreenShare(ctx); err != nil {
				emit(evScreenShareFailed{Err: err})
				return
			}
			emit(evScreenShareStarted{})
		case mediaStopShare:
			if err := m.StopScreenShare(); err != nil {
				logger.Warnf("session: stop screen share: %v", err)
			}
		case mediaReset:
			m.Reset()
		}
	})
}

func (r *Runtime) enqueue(job func()) {
	select {
	case <-r.quit:
		return
	default:
	}
	select {
	case r.jobs <- job:
	default:
		logger.Warnf("session: media queue full, dropping request")
	}
}

func (r *Runtime) worker() {
	defer close(r.workerDone)
	for {
		select {
		case <-r.quit:
			return
		case job := <-r.jobs:
			job()
		}
	}
}

// teardown releases the media session and the channel exactly once.
func (r *Runtime) teardown() {
	r.teardownOnce.Do(func() {
		close(r.quit)
		<-r.workerDone
		if r.media != nil {
			if err := r.media.Close(); err != nil {
				logger.Warnf("session: close media: %v", err)
			}
		}
		if err := r.ch.Close(); err != nil {
			logger.Warnf("session: close channel: %v", err)
		}
		close(r.tornDown)
	})
}

// Stop implements actor.Runtime. It blocks until teardown has finished.
func (r *Runtime) Stop() {
	r.teardown()
	<-r.tornDown
}
