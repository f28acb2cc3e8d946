package actor

// InputBase is embedded by input types to satisfy Input.
type InputBase struct{}

func (InputBase) isActorInput() {}

// EffectBase is embedded by effect types to satisfy Effect.
type EffectBase struct{}

func (EffectBase) isActorEffect() {}
