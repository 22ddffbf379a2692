package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock anchors relative query windows such as "the last two days".
var clock clockwork.Clock = clockwork.NewRealClock()

// SetClock replaces the time source used for default criteria; nil restores
// wall-clock time. Tests pair it with clockwork.NewFakeClockAt.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

// Now returns the current time in UTC from the package clock.
func Now() time.Time {
	return clock.Now().UTC()
}
