package domain

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var (
	clockMu sync.RWMutex
	clock   = clockwork.NewRealClock()
)

// SetClock swaps the time source used to resolve report times. Pass nil to
// reset to real time. It is meant for tests and batch tools: call it before
// parsing starts, since parses already running may see either clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clockMu.Lock()
	clock = c
	clockMu.Unlock()
}

func currentTime() time.Time {
	clockMu.RLock()
	defer clockMu.RUnlock()
	return clock.Now()
}

// resolveReportTime places a ddhhmm group in the current UTC month. A day
// later than today belongs to the previous month.
func resolveReportTime(day, hour, minute int) time.Time {
	now := currentTime().UTC()
	year, month := now.Year(), now.Month()
	if day > now.Day() {
		month--
		if month < time.January {
			month = time.December
			year--
		}
	}
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}
