package util

import "time"

// Clock paces the block loop; swappable so tests can drive ticks directly.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
