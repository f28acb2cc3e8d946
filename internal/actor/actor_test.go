package actor_test

import (
	"context"
	"testing"
	"time"

	"github.com/piyushdolas8/skillswap/internal/actor"
	"github.com/piyushdolas8/skillswap/internal/actor/actortest"
	"github.com/stretchr/testify/require"
)

type addInput struct {
	actor.InputBase
	n int
}

type boomInput struct {
	actor.InputBase
}

type addedEffect struct {
	actor.EffectBase
	n int
}

type echoedInput struct {
	actor.InputBase
}

func reducer(state int, input actor.Input) (int, []actor.Effect) {
	switch in := input.(type) {
	case addInput:
		return state + in.n, []actor.Effect{addedEffect{n: in.n}}
	case echoedInput:
		return state * 10, nil
	case boomInput:
		panic("boom")
	}
	return state, nil
}

func TestActorProcessesInputsInOrder(t *testing.T) {
	t.Parallel()

	rt := &actortest.FakeRuntime{}
	a := actor.New(0, reducer, rt)
	a.Start()
	defer a.Stop()

	for i := 1; i <= 5; i++ {
		require.True(t, a.Enqueue(addInput{n: i}))
	}

	require.Eventually(t, func() bool { return a.State() == 15 }, 2*time.Second, 5*time.Millisecond)
	effects := actortest.EffectsOf[addedEffect](rt.Effects())
	require.Len(t, effects, 5)
	for i, eff := range effects {
		require.Equal(t, i+1, eff.n)
	}
}

func TestRuntimeEmitsFollowUps(t *testing.T) {
	t.Parallel()

	rt := &actortest.FakeRuntime{
		EmitFn: func(_ context.Context, eff actor.Effect, emit func(actor.Input)) {
			if _, ok := eff.(addedEffect); ok {
				emit(echoedInput{})
			}
		},
	}
	a := actor.New(0, reducer, rt)
	a.Start()
	defer a.Stop()

	require.NoError(t, a.Send(context.Background(), addInput{n: 2}))
	require.Eventually(t, func() bool { return a.State() == 20 }, 2*time.Second, 5*time.Millisecond)
}

func TestPanicHookKeepsLoopAlive(t *testing.T) {
	t.Parallel()

	type recovered struct {
		in actor.Input
		r  any
	}
	panics := make(chan recovered, 1)
	a := actor.New(0, reducer, nil, actor.WithHooks(actor.Hooks[int]{
		OnPanic: func(in actor.Input, r any) { panics <- recovered{in, r} },
	}))
	a.Start()
	defer a.Stop()

	require.True(t, a.Enqueue(boomInput{}))
	require.True(t, a.Enqueue(addInput{n: 3}))

	select {
	case got := <-panics:
		require.IsType(t, boomInput{}, got.in)
		require.Equal(t, "boom", got.r)
	case <-time.After(2 * time.Second):
		t.Fatal("panic hook not called")
	}
	require.Eventually(t, func() bool { return a.State() == 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestPanicLimitStopsActor(t *testing.T) {
	t.Parallel()

	rt := &actortest.FakeRuntime{}
	a := actor.New(0, reducer, rt,
		actor.WithHooks(actor.Hooks[int]{OnPanic: func(actor.Input, any) {}}),
		actor.WithPanicLimit[int](2),
	)
	a.Start()
	defer a.Stop()

	require.True(t, a.Enqueue(boomInput{}))
	require.True(t, a.Enqueue(addInput{n: 1}))
	require.True(t, a.Enqueue(boomInput{}))
	require.True(t, a.Enqueue(boomInput{}))

	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("actor kept running after repeated panics")
	}
	require.Equal(t, 1, a.State())
	require.Equal(t, 1, rt.Stopped())
	require.ErrorIs(t, a.Send(context.Background(), addInput{n: 1}), actor.ErrStopped)
}

func TestDroppedFollowUpsReachHook(t *testing.T) {
	t.Parallel()

	dropped := make(chan actor.Input, 4)
	rt := &actortest.FakeRuntime{
		EmitFn: func(_ context.Context, eff actor.Effect, emit func(actor.Input)) {
			if _, ok := eff.(addedEffect); ok {
				emit(echoedInput{})
				emit(echoedInput{})
			}
		},
	}
	a := actor.New(0, reducer, rt,
		actor.WithMailboxSize[int](1),
		actor.WithHooks(actor.Hooks[int]{OnDrop: func(in actor.Input) { dropped <- in }}),
	)
	a.Start()
	defer a.Stop()

	require.NoError(t, a.Send(context.Background(), addInput{n: 1}))
	select {
	case in := <-dropped:
		require.IsType(t, echoedInput{}, in)
	case <-time.After(2 * time.Second):
		t.Fatal("drop hook not called")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	rt := &actortest.FakeRuntime{}
	a := actor.New(0, reducer, rt)
	a.Start()
	a.Stop()
	a.Stop()

	<-a.Done()
	require.Equal(t, 1, rt.Stopped())
	require.False(t, a.Enqueue(addInput{n: 1}))
	require.ErrorIs(t, a.Send(context.Background(), addInput{n: 1}), actor.ErrStopped)
}

func TestMailboxFullDrops(t *testing.T) {
	t.Parallel()

	a := actor.New(0, reducer, nil, actor.WithMailboxSize[int](1))
	require.True(t, a.Enqueue(addInput{n: 1}))
	require.False(t, a.Enqueue(addInput{n: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, a.Send(ctx, addInput{n: 1}), context.DeadlineExceeded)
}

func TestReplay(t *testing.T) {
	t.Parallel()

	state, effects := actor.Replay(1, reducer, addInput{n: 2}, echoedInput{}, addInput{n: 4})
	require.Equal(t, 34, state)
	require.Len(t, effects, 2)
	require.Equal(t, "<nil>", actortest.Pretty(nil))
}
