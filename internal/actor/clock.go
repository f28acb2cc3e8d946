package actor

import "time"

// Clock is the time source used by runtimes and command constructors. Reducers
// receive timestamps in their inputs instead of reading a Clock.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

// Now implements Clock.
func (RealClock) Now() time.Time { return time.Now() }
