package protocol

import "time"

//go:generate mockgen -source=clock.go -destination=mocks/clock.go -package=mocks

// Clock is the wall-clock source of the engine.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the process wall clock.
func SystemClock() Clock {
	return systemClock{}
}
