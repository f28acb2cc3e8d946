package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/piyushdolas8/skillswap/internal/actor"
	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/interaction"
	"github.com/piyushdolas8/skillswap/internal/media"
	"github.com/piyushdolas8/skillswap/internal/storage"
	"github.com/piyushdolas8/skillswap/shared/logger"
)

const (
	// closeTimeout bounds how long Close waits for the loop to exit.
	closeTimeout = 5 * time.Second

	// maxConsecutivePanics ends a session whose reducer keeps failing.
	maxConsecutivePanics = 3
)

// Config wires a Controller.
type Config struct {
	Topic   string
	Self    Participant
	Channel channel.Channel

	// PeerFactory enables audio/video. Without it the session is
	// whiteboard, code and chat only.
	PeerFactory media.PeerFactory
	Devices     media.Devices

	Uploader storage.Uploader
	Clock    actor.Clock
	NewID    func() string

	// OnRender runs on the loop goroutine after every visible change.
	OnRender func(Snapshot)
	// OnNotify runs on the loop goroutine for each new notification.
	OnNotify func(Notification)
}

// Controller is one participant's running session.
type Controller struct {
	cfg     Config
	actor   *actor.Actor[State]
	runtime *Runtime
	media   *media.Session

	started   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New builds a controller. Call Start to join the topic.
func New(cfg Config) (*Controller, error) {
	if cfg.Channel == nil {
		return nil, errors.New("session: channel is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("session: topic is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = actor.RealClock{}
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Self.Name == "" {
		cfg.Self.Name = "Guest"
	}

	c := &Controller{cfg: cfg}
	if cfg.PeerFactory != nil {
		c.media = media.NewSession(media.Config{
			Factory: cfg.PeerFactory,
			Devices: cfg.Devices,
			Signal:  cfg.Channel,
			Notify: func(n media.Notice) {
				c.actor.Enqueue(evMediaNotice{Notice: n})
			},
		})
	}

	c.runtime = NewRuntime(cfg.Channel, c.media, cfg.Uploader, cfg.Clock)
	if cfg.OnRender != nil {
		c.runtime.onRender = func() { cfg.OnRender(c.actor.State().Snapshot()) }
	}
	c.runtime.onNotify = cfg.OnNotify

	c.actor = actor.New(NewState(cfg.Self, cfg.Topic), Reduce, c.runtime,
		actor.WithHooks(actor.Hooks[State]{
			OnPanic: func(in actor.Input, r any) {
				logger.Errorf("session: %T panicked: %v", in, r)
			},
			OnDrop: func(in actor.Input) {
				logger.Warnf("session: mailbox full, dropped %T", in)
			},
		}),
		actor.WithPanicLimit[State](maxConsecutivePanics),
	)
	return c, nil
}

// Start runs the loop, subscribes to the topic and acquires local media.
func (c *Controller) Start(ctx context.Context) error {
	c.started.Store(true)
	c.actor.Start()
	return c.actor.Send(ctx, Start())
}

// Submit delivers an input built with this package's constructors.
func (c *Controller) Submit(ctx context.Context, input actor.Input) error {
	if err := c.actor.Send(ctx, input); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

func (c *Controller) submit(input actor.Input) error {
	return c.Submit(context.Background(), input)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	return c.actor.State().Snapshot()
}

// PointerDown starts a gesture at p.
func (c *Controller) PointerDown(p geometry.Point) error {
	return c.submit(PointerDown(p, c.cfg.NewID()))
}

// PointerMove continues the gesture.
func (c *Controller) PointerMove(p geometry.Point) error { return c.submit(PointerMove(p)) }

// PointerUp ends the gesture.
func (c *Controller) PointerUp(p geometry.Point) error { return c.submit(PointerUp(p)) }

// TextInput replaces the pending text.
func (c *Controller) TextInput(text string) error { return c.submit(TextInput(text)) }

// KeyEnter commits the pending text unless shift is held.
func (c *Controller) KeyEnter(shift bool) error { return c.submit(KeyEnter(shift)) }

// KeyEscape discards the pending text.
func (c *Controller) KeyEscape() error { return c.submit(KeyEscape()) }

// Blur closes the text overlay.
func (c *Controller) Blur() error { return c.submit(Blur()) }

// SelectTool switches tools.
func (c *Controller) SelectTool(tool interaction.Tool) error { return c.submit(SelectTool(tool)) }

// SetColor sets the drawing color.
func (c *Controller) SetColor(color string) error { return c.submit(SetColor(color)) }

// SetStrokeWidth sets the drawing width.
func (c *Controller) SetStrokeWidth(width float64) error { return c.submit(SetStrokeWidth(width)) }

// DeleteSelected removes the selected element.
func (c *Controller) DeleteSelected() error { return c.submit(DeleteSelected()) }

// ClearCanvas empties the whiteboard.
func (c *Controller) ClearCanvas() error { return c.submit(ClearCanvas()) }

// SetCode replaces the code buffer.
func (c *Controller) SetCode(code, language string) error {
	return c.submit(SetCode(code, language))
}

// SendChat sends a chat message.
func (c *Controller) SendChat(text string) error {
	return c.submit(SendChat(c.cfg.NewID(), text, c.cfg.Clock.Now()))
}

// ShareFile uploads and announces a file.
func (c *Controller) ShareFile(name string, data []byte, contentType string) error {
	return c.submit(ShareFile(c.cfg.NewID(), name, data, contentType, c.cfg.Clock.Now()))
}

// SetMuted sets the microphone state.
func (c *Controller) SetMuted(muted bool) error { return c.submit(SetMuted(muted)) }

// ToggleMute flips the microphone state.
func (c *Controller) ToggleMute() error { return c.submit(ToggleMute()) }

// SetVideoOff sets the camera state.
func (c *Controller) SetVideoOff(off bool) error { return c.submit(SetVideoOff(off)) }

// ToggleVideo flips the camera state.
func (c *Controller) ToggleVideo() error { return c.submit(ToggleVideo()) }

// ToggleScreenShare starts or stops screen sharing.
func (c *Controller) ToggleScreenShare() error { return c.submit(ToggleScreenShare()) }

// Dismiss removes a notification.
func (c *Controller) Dismiss(id int) error { return c.submit(Dismiss(id)) }

// Close leaves the session and releases media and the channel. It is safe to
// call more than once and from any exit path.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.close()
	})
	return c.closeErr
}

func (c *Controller) close() error {
	if !c.started.Load() {
		c.actor.Stop()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	reply := make(chan error, 1)
	if err := c.actor.Send(ctx, Leave(reply)); err == nil {
		select {
		case <-reply:
		case <-ctx.Done():
			logger.Warnf("session: leave timed out")
		}
	} else if !errors.Is(err, actor.ErrStopped) {
		logger.Debugf("session: leave: %v", err)
	}

	c.actor.Stop()
	select {
	case <-c.actor.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session: close: %w", ctx.Err())
	}
}
