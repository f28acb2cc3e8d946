package actor

// Step runs the reducer once without a loop or runtime. Reducer tests use it
// to assert on state and effects directly.
func Step[S any](state S, input Input, reducer ReducerFunc[S]) (S, []Effect) {
	return reducer(state, input)
}

// Replay folds a sequence of inputs through the reducer and returns the final
// state plus every effect produced along the way.
func Replay[S any](state S, reducer ReducerFunc[S], inputs ...Input) (S, []Effect) {
	var all []Effect
	for _, in := range inputs {
		var effects []Effect
		state, effects = reducer(state, in)
		all = append(all, effects...)
	}
	return state, all
}
