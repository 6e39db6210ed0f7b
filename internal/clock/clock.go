package clock

import "time"

// Timer is the handle returned by AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall-clock reads and scheduled callbacks so that expiry can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// System returns the process wall clock.
func System() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
