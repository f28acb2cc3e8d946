package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/piyushdolas8/skillswap/internal/actor/actortest"
	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/piyushdolas8/skillswap/internal/geometry"
	"github.com/piyushdolas8/skillswap/internal/interaction"
	"github.com/piyushdolas8/skillswap/internal/media"
	"github.com/piyushdolas8/skillswap/shared/wire"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

// recordingChannel records every Send before forwarding it.
type recordingChannel struct {
	channel.Channel

	mu   sync.Mutex
	sent []wire.Envelope
}

func (r *recordingChannel) Send(ctx context.Context, event wire.Event, payload any) error {
	env, err := wire.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sent = append(r.sent, env)
	r.mu.Unlock()
	return r.Channel.Send(ctx, event, payload)
}

func (r *recordingChannel) sentOf(event wire.Event) []wire.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []wire.Envelope
	for _, env := range r.sent {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

type fakeUploader struct {
	err error
}

func (f fakeUploader) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://files.test/" + key, nil
}

func sequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s-%d", prefix, n.Add(1)) }
}

func startController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	if cfg.Topic == "" {
		cfg.Topic = "match-1"
	}
	if cfg.NewID == nil {
		cfg.NewID = sequentialIDs(cfg.Self.ID)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	require.Eventually(t, func() bool { return c.Snapshot().Conn == ConnLive }, waitFor, tick)
	return c
}

func pair(t *testing.T) (*Controller, *Controller) {
	t.Helper()
	hub := channel.NewHub()
	a := startController(t, Config{
		Self:     Participant{ID: "alice", Name: "Alice"},
		Channel:  hub.Channel("match-1", "alice"),
		Uploader: fakeUploader{},
	})
	b := startController(t, Config{
		Self:    Participant{ID: "bob", Name: "Bob"},
		Channel: hub.Channel("match-1", "bob"),
	})
	// Bob's peer-joined reaches Alice once both are subscribed.
	require.Eventually(t, func() bool { return a.Snapshot().PeerPresent }, waitFor, tick)
	return a, b
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Topic: "x"})
	require.Error(t, err)
	_, err = New(Config{Channel: channel.NewHub().Channel("t", "a")})
	require.Error(t, err)
}

func TestStrokeReachesPeer(t *testing.T) {
	t.Parallel()

	a, b := pair(t)
	points := []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 5}, {X: 30, Y: 10}, {X: 40, Y: 10}}
	require.NoError(t, a.SetColor("#ff0000"))
	require.NoError(t, a.SetStrokeWidth(4))
	require.NoError(t, a.PointerDown(points[0]))
	for _, p := range points[1:4] {
		require.NoError(t, a.PointerMove(p))
	}
	require.NoError(t, a.PointerUp(points[4]))

	require.Eventually(t, func() bool { return len(b.Snapshot().Elements) == 1 }, waitFor, tick)
	got := b.Snapshot().Elements[0]
	require.Equal(t, points, got.Points)
	require.Equal(t, "#ff0000", got.Color)
	require.Equal(t, 4.0, got.StrokeWidth)
	require.Equal(t, a.Snapshot().Elements, b.Snapshot().Elements)
}

func TestChatHasNoEcho(t *testing.T) {
	t.Parallel()

	a, b := pair(t)
	require.NoError(t, a.SendChat("hello"))

	require.Eventually(t, func() bool { return len(b.Snapshot().Chat) == 1 }, waitFor, tick)
	msg := b.Snapshot().Chat[0]
	require.Equal(t, RoleRemote, msg.Role)
	require.Equal(t, "hello", msg.Text)
	require.Equal(t, "Alice", msg.DisplayName)

	// Round-trip anything through the loop so late echoes would have landed.
	require.NoError(t, a.SetCode("x", "go"))
	require.Eventually(t, func() bool { return b.Snapshot().Code == "x" }, waitFor, tick)
	chat := a.Snapshot().Chat
	require.Len(t, chat, 1)
	require.Equal(t, RoleLocal, chat[0].Role)
}

func TestTimestampsComeFromClock(t *testing.T) {
	t.Parallel()

	start := time.UnixMilli(1_700_000_000_000)
	clock := actortest.NewFakeClock(start)
	hub := channel.NewHub()
	a := startController(t, Config{
		Self:     Participant{ID: "alice", Name: "Alice"},
		Channel:  hub.Channel("match-1", "alice"),
		Uploader: fakeUploader{},
		Clock:    clock,
	})
	b := startController(t, Config{
		Self:    Participant{ID: "bob", Name: "Bob"},
		Channel: hub.Channel("match-1", "bob"),
	})
	require.Eventually(t, func() bool { return a.Snapshot().PeerPresent }, waitFor, tick)

	require.NoError(t, a.SendChat("hi"))
	require.Eventually(t, func() bool { return len(b.Snapshot().Chat) == 1 }, waitFor, tick)
	require.True(t, start.Equal(a.Snapshot().Chat[0].Timestamp))
	require.True(t, start.Equal(b.Snapshot().Chat[0].Timestamp))

	clock.Advance(90 * time.Second)
	require.NoError(t, a.ShareFile("notes.txt", []byte("abc"), "text/plain"))
	require.Eventually(t, func() bool { return len(b.Snapshot().Files) == 1 }, waitFor, tick)
	require.Equal(t, start.Add(90*time.Second).UnixMilli(), b.Snapshot().Files[0].CreatedAt)
}

func TestRemoteClearDropsSelection(t *testing.T) {
	t.Parallel()

	a, b := pair(t)
	require.NoError(t, a.SelectTool(interaction.ToolRectangle))
	for i := 0; i < 3; i++ {
		off := float64(i * 50)
		require.NoError(t, a.PointerDown(geometry.Point{X: off, Y: off}))
		require.NoError(t, a.PointerUp(geometry.Point{X: off + 20, Y: off + 20}))
	}
	require.Eventually(t, func() bool { return len(b.Snapshot().Elements) == 3 }, waitFor, tick)

	require.NoError(t, b.SelectTool(interaction.ToolSelect))
	require.NoError(t, b.PointerDown(geometry.Point{X: 60, Y: 60}))
	require.NoError(t, b.PointerUp(geometry.Point{X: 60, Y: 60}))
	require.Eventually(t, func() bool { return b.Snapshot().Selected != "" }, waitFor, tick)

	require.NoError(t, a.ClearCanvas())
	require.Eventually(t, func() bool {
		snap := b.Snapshot()
		return len(snap.Elements) == 0 && snap.Selected == ""
	}, waitFor, tick)
}

func TestMuteBroadcastsOncePerChange(t *testing.T) {
	t.Parallel()

	rec := &recordingChannel{Channel: channel.NewHub().Channel("solo", "alice")}
	c := startController(t, Config{
		Topic:   "solo",
		Self:    Participant{ID: "alice", Name: "Alice"},
		Channel: rec,
	})
	require.Eventually(t, func() bool { return len(rec.sentOf(wire.EventMediaUpdate)) == 1 }, waitFor, tick)

	require.NoError(t, c.ToggleMute())
	require.NoError(t, c.SetMuted(true))
	require.NoError(t, c.ToggleVideo())

	require.Eventually(t, func() bool { return len(rec.sentOf(wire.EventMediaUpdate)) >= 3 }, waitFor, tick)
	updates := rec.sentOf(wire.EventMediaUpdate)
	require.Len(t, updates, 3)

	last, err := wire.Decode[wire.MediaStatus](updates[2])
	require.NoError(t, err)
	require.Equal(t, wire.MediaStatus{IsMuted: true, IsVideoOff: true}, last)
}

func TestRemoteMediaStatusArrives(t *testing.T) {
	t.Parallel()

	a, b := pair(t)
	require.NoError(t, a.ToggleMute())
	require.Eventually(t, func() bool {
		m := b.Snapshot().RemoteMedia
		return m != nil && m.IsMuted
	}, waitFor, tick)
}

func TestShareFile(t *testing.T) {
	t.Parallel()

	a, b := pair(t)
	require.NoError(t, a.ShareFile("notes.txt", []byte("abc"), "text/plain"))

	require.Eventually(t, func() bool { return len(b.Snapshot().Files) == 1 }, waitFor, tick)
	file := b.Snapshot().Files[0]
	require.Equal(t, "notes.txt", file.Name)
	require.Equal(t, "Alice", file.UploaderName)
	require.Equal(t, "https://files.test/sessions/match-1/alice-1/notes.txt", file.URL)
	require.Len(t, a.Snapshot().Files, 1)

	// Without storage the share fails locally and nothing is announced.
	require.NoError(t, b.ShareFile("x.txt", []byte("x"), ""))
	require.Eventually(t, func() bool { return len(b.Snapshot().Notifications) == 1 }, waitFor, tick)
	require.Len(t, b.Snapshot().Files, 1)
	require.Len(t, a.Snapshot().Files, 1)
}

func TestUploadFailureNotifies(t *testing.T) {
	t.Parallel()

	var notified []Notification
	var mu sync.Mutex
	c := startController(t, Config{
		Topic:    "solo",
		Self:     Participant{ID: "alice"},
		Channel:  channel.NewHub().Channel("solo", "alice"),
		Uploader: fakeUploader{err: errors.New("bucket unavailable")},
		OnNotify: func(n Notification) {
			mu.Lock()
			notified = append(notified, n)
			mu.Unlock()
		},
	})
	require.NoError(t, c.ShareFile("a.txt", []byte("a"), ""))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notified) == 1
	}, waitFor, tick)
	require.Empty(t, c.Snapshot().Files)
	require.Zero(t, c.Snapshot().Uploading)
}

func TestThirdParticipantRejected(t *testing.T) {
	t.Parallel()

	hub := channel.NewHub()
	startController(t, Config{Self: Participant{ID: "a"}, Channel: hub.Channel("m", "a"), Topic: "m"})
	startController(t, Config{Self: Participant{ID: "b"}, Channel: hub.Channel("m", "b"), Topic: "m"})

	c, err := New(Config{Self: Participant{ID: "c"}, Channel: hub.Channel("m", "c"), Topic: "m"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return c.Snapshot().Conn == ConnOffline }, waitFor, tick)
	require.Equal(t, 2, hub.Occupancy("m"))
}

func TestPeerLeaveIsObserved(t *testing.T) {
	t.Parallel()

	a, b := pair(t)
	require.NoError(t, b.Close())
	require.Eventually(t, func() bool { return !a.Snapshot().PeerPresent }, waitFor, tick)
	require.True(t, b.Snapshot().Closed)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	hub := channel.NewHub()
	c := startController(t, Config{
		Topic:       "m",
		Self:        Participant{ID: "a"},
		Channel:     hub.Channel("m", "a"),
		PeerFactory: func() (media.PeerConnection, error) { return nil, errors.New("no webrtc in tests") },
		Devices:     media.SyntheticDevices{},
	})
	require.Equal(t, 1, hub.Occupancy("m"))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.Zero(t, hub.Occupancy("m"))
	require.Error(t, c.SendChat("late"))
}

func TestCloseBeforeStart(t *testing.T) {
	t.Parallel()

	c, err := New(Config{Topic: "m", Channel: channel.NewHub().Channel("m", "a")})
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestRenderCallback(t *testing.T) {
	t.Parallel()

	var renders atomic.Int64
	c := startController(t, Config{
		Topic:    "solo",
		Self:     Participant{ID: "a"},
		Channel:  channel.NewHub().Channel("solo", "a"),
		OnRender: func(Snapshot) { renders.Add(1) },
	})
	before := renders.Load()
	require.NoError(t, c.SetCode("x", ""))
	require.Eventually(t, func() bool { return renders.Load() > before }, waitFor, tick)
	require.Equal(t, "javascript", c.Snapshot().Language)
}
