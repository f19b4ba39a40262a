// Package schedule runs periodic work that pauses while the process is inactive.
package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var ErrInvalidPeriod = errors.New("schedule: period must be positive")

// Activity reports whether periodic work should run right now.
type Activity interface {
	Active() bool
}

// Signal is an Activity toggled by the caller. The zero value is active.
type Signal struct {
	inactive atomic.Bool
}

var _ Activity = (*Signal)(nil)

// NewSignal returns a Signal that starts active.
func NewSignal() *Signal {
	return &Signal{}
}

func (s *Signal) Active() bool {
	return !s.inactive.Load()
}

func (s *Signal) Set(active bool) {
	s.inactive.Store(!active)
}

// Always is an Activity that is always active.
type Always struct{}

func (Always) Active() bool { return true }

// Every calls task once per period while activity is active. Ticks that land
// while inactive are skipped, not queued. task runs on the calling goroutine,
// so a slow task drops ticks rather than overlapping itself. Every returns
// ctx.Err() once ctx is done, or ErrInvalidPeriod when period is not positive.
func Every(ctx context.Context, period time.Duration, activity Activity, task func(context.Context)) error {
	if period <= 0 {
		return ErrInvalidPeriod
	}
	if activity == nil {
		activity = Always{}
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !activity.Active() {
				continue
			}
			task(ctx)
		}
	}
}
