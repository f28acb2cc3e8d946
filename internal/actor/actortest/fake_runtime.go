// Package actortest has fakes and helpers for testing actors and reducers.
package actortest

import (
	"context"
	"sync"

	"github.com/piyushdolas8/skillswap/internal/actor"
)

// FakeRuntime records every effect it is handed. EmitFn, when set, runs for
// each effect so tests can script follow-up inputs.
type FakeRuntime struct {
	mu      sync.Mutex
	effects []actor.Effect
	stopped int

	EmitFn func(ctx context.Context, eff actor.Effect, emit func(actor.Input))
}

var _ actor.Runtime = (*FakeRuntime)(nil)

// HandleEffects implements actor.Runtime.
func (r *FakeRuntime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	r.mu.Lock()
	r.effects = append(r.effects, effects...)
	emitFn := r.EmitFn
	r.mu.Unlock()

	if emitFn == nil {
		return
	}
	for _, eff := range effects {
		emitFn(ctx, eff, emit)
	}
}

// Stop implements actor.Runtime.
func (r *FakeRuntime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
}

// Stopped returns how many times Stop was called.
func (r *FakeRuntime) Stopped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// Effects returns a copy of the recorded effects.
func (r *FakeRuntime) Effects() []actor.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]actor.Effect(nil), r.effects...)
}

// Reset forgets recorded effects.
func (r *FakeRuntime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = nil
}

// EffectsOf filters effects down to type T.
func EffectsOf[T actor.Effect](effects []actor.Effect) []T {
	var out []T
	for _, eff := range effects {
		if v, ok := eff.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
