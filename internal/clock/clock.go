// Package clock wraps the monotonic time source used by the control loop.
package clock

import "time"

// Clock exposes a monotonic timestamp and a conversion to milliseconds.
// The stdlib time.Time already carries a monotonic reading alongside the
// wall clock, and Sub() subtracts using that reading.
type Clock interface {
	Now() time.Time
	ToMillis(delta time.Duration) uint64
}

type systemClock struct{}

// New returns the real monotonic clock.
func New() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) ToMillis(delta time.Duration) uint64 {
	if delta < 0 {
		return 0
	}
	return uint64(delta.Milliseconds())
}
