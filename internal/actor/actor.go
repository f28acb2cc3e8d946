// Package actor runs a reducer over a mailbox on a single goroutine.
//
// State of type S is owned by the loop. Callers feed it Inputs; a pure reducer
// produces the next state plus Effects; a Runtime carries the effects out and
// reports results back as more Inputs. Nothing outside the loop mutates S.
package actor

import (
	"context"
	"errors"
	"sync"
)

// DefaultMailboxSize is the mailbox capacity used unless WithMailboxSize is
// given.
const DefaultMailboxSize = 256

// ErrStopped is returned when input is sent to a stopped actor.
var ErrStopped = errors.New("actor stopped")

// Input is anything the loop accepts: commands from callers or events from
// the runtime.
type Input interface {
	isActorInput()
}

// Effect is a side effect requested by the reducer. The Runtime executes it.
type Effect interface {
	isActorEffect()
}

// ReducerFunc computes the next state for an input. It must not perform I/O,
// start goroutines, read the clock or generate ids; anything like that comes
// in through the input.
type ReducerFunc[S any] func(state S, input Input) (next S, effects []Effect)

// Runtime executes effects and feeds follow-up inputs back through emit.
type Runtime interface {
	// HandleEffects runs on the loop goroutine and must return quickly;
	// blocking work belongs in a goroutine that checks ctx before emitting.
	HandleEffects(ctx context.Context, effects []Effect, emit func(Input))

	// Stop releases background work. It may be called more than once.
	Stop()
}

// Hooks observe the loop. All hooks run on the loop goroutine.
type Hooks[S any] struct {
	OnInput      func(input Input)
	OnTransition func(prev S, next S, input Input)
	OnEffects    func(effects []Effect)
	// OnPanic receives the input whose reduction panicked and the recovered
	// value. The state stays at its pre-input value. Without OnPanic the
	// panic propagates.
	OnPanic func(input Input, recovered any)
	// OnDrop receives a runtime follow-up that did not fit in the mailbox.
	OnDrop func(input Input)
}

// Actor is a running (or not yet started) reducer loop.
type Actor[S any] struct {
	reduce     ReducerFunc[S]
	runtime    Runtime
	hooks      Hooks[S]
	panicLimit int

	mu    sync.Mutex
	state S

	inbox  chan Input
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// Option configures an Actor.
type Option[S any] func(*Actor[S])

// WithHooks attaches observation hooks.
func WithHooks[S any](hooks Hooks[S]) Option[S] {
	return func(a *Actor[S]) { a.hooks = hooks }
}

// WithMailboxSize overrides the mailbox capacity. Non-positive values are
// ignored.
func WithMailboxSize[S any](n int) Option[S] {
	return func(a *Actor[S]) {
		if n > 0 {
			a.inbox = make(chan Input, n)
		}
	}
}

// WithPanicLimit stops the actor after n inputs in a row panicked. Zero keeps
// it running regardless. It only applies when Hooks.OnPanic is set.
func WithPanicLimit[S any](n int) Option[S] {
	return func(a *Actor[S]) {
		if n >= 0 {
			a.panicLimit = n
		}
	}
}

// New builds an actor. Call Start to run it.
func New[S any](initial S, reducer ReducerFunc[S], runtime Runtime, opts ...Option[S]) *Actor[S] {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Actor[S]{
		reduce:  reducer,
		runtime: runtime,
		state:   initial,
		inbox:   make(chan Input, DefaultMailboxSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start runs the loop on its own goroutine. Extra calls do nothing.
func (a *Actor[S]) Start() {
	a.startOnce.Do(func() { go a.loop() })
}

// Stop cancels the loop and stops the runtime. Safe to call repeatedly.
func (a *Actor[S]) Stop() {
	a.stopOnce.Do(func() {
		a.cancel()
		if a.runtime != nil {
			a.runtime.Stop()
		}
	})
}

// Done is closed once the loop has exited.
func (a *Actor[S]) Done() <-chan struct{} { return a.done }

// Context is canceled when the actor stops.
func (a *Actor[S]) Context() context.Context { return a.ctx }

// Enqueue offers input without blocking. It returns false when the actor is
// stopped or the mailbox is full.
func (a *Actor[S]) Enqueue(input Input) bool {
	if input == nil || a.ctx.Err() != nil {
		return false
	}
	select {
	case a.inbox <- input:
		return true
	default:
		return false
	}
}

// Send delivers input, waiting for mailbox space. It fails when ctx is done
// or the actor stops first.
func (a *Actor[S]) Send(ctx context.Context, input Input) error {
	if input == nil {
		return nil
	}
	if a.ctx.Err() != nil {
		return ErrStopped
	}
	select {
	case a.inbox <- input:
		return nil
	case <-a.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the latest committed state. It is meant for observation;
// decisions belong in the reducer.
func (a *Actor[S]) State() S {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Actor[S]) loop() {
	defer close(a.done)

	emit := func(in Input) {
		if !a.Enqueue(in) && a.ctx.Err() == nil && a.hooks.OnDrop != nil {
			a.hooks.OnDrop(in)
		}
	}

	panics := 0
	for {
		var in Input
		select {
		case <-a.ctx.Done():
			return
		case in = <-a.inbox:
		}
		if in == nil {
			continue
		}

		effects, ok := a.step(in)
		if !ok {
			panics++
			if a.panicLimit > 0 && panics >= a.panicLimit {
				a.Stop()
				return
			}
			continue
		}
		panics = 0

		if len(effects) > 0 && a.runtime != nil {
			a.runtime.HandleEffects(a.ctx, effects, emit)
		}
	}
}

// step reduces one input and commits the result. It reports false when the
// reducer panicked and OnPanic recovered it.
func (a *Actor[S]) step(in Input) (effects []Effect, ok bool) {
	if a.hooks.OnPanic != nil {
		defer func() {
			if r := recover(); r != nil {
				a.hooks.OnPanic(in, r)
				effects, ok = nil, false
			}
		}()
	}
	if a.hooks.OnInput != nil {
		a.hooks.OnInput(in)
	}

	prev := a.State()
	next, effects := a.reduce(prev, in)

	a.mu.Lock()
	a.state = next
	a.mu.Unlock()

	if a.hooks.OnTransition != nil {
		a.hooks.OnTransition(prev, next, in)
	}
	if len(effects) > 0 && a.hooks.OnEffects != nil {
		a.hooks.OnEffects(effects)
	}
	return effects, true
}
