package clock

import "time"

// Clock supplies the current time. Services take a Clock so time-windowed
// behaviour can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// New returns a Clock backed by the wall clock, in UTC.
func New() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
