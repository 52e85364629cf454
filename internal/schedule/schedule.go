// Package schedule computes daily run times and renders launchd
// StartCalendarInterval entries for the run command.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/etfbot/internal/core"
	"go.uber.org/zap"
)

// DefaultTime is the local wall-clock time of the daily run.
const DefaultTime = "22:25"

// ParseClock parses an "HH:MM" wall-clock time.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("schedule time %q: want HH:MM", s))
	}
	return t.Hour(), t.Minute(), nil
}

// NextRun returns the first instant strictly after now at the given clock
// time in now's location.
func NextRun(now time.Time, clock string) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next, nil
}

// Daily invokes fn once per day at clock until ctx is cancelled. Runs never
// overlap; an error from fn is logged and the loop continues.
func Daily(ctx context.Context, clock string, logger *zap.Logger, fn func(context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		next, err := NextRun(time.Now(), clock)
		if err != nil {
			return err
		}
		logger.Info("next run scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := fn(ctx); err != nil {
			logger.Error("scheduled run failed", zap.Error(err))
		}
	}
}
