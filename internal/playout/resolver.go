// Package playout translates a channel number and an instant into a concrete
// on-air decision.
package playout

import (
	"fmt"
	"time"

	"github.com/airwavetv/airwave/internal/channel"
	"github.com/airwavetv/airwave/internal/timing"
)

// ScheduleProvider supplies a channel's programs restricted to a bounded
// window around the given instant, roughly [now-4h, now+8h], ordered by
// start time ascending. The resolver never loads an entire schedule.
type ScheduleProvider interface {
	ScheduleWindow(channelNumber int, now time.Time) ([]channel.Program, error)
}

// Decision is the on-air outcome for one channel at one instant.
type Decision struct {
	Program channel.Program
	Timing  timing.Result
}

// Resolver selects the active program for a channel using the timing engine.
// It is stateless and safe for concurrent use.
type Resolver struct {
	provider ScheduleProvider
}

// NewResolver creates a resolver backed by the given schedule provider.
func NewResolver(provider ScheduleProvider) *Resolver {
	return &Resolver{provider: provider}
}

// Resolve returns the on-air decision for a channel at the given instant.
// A false second return value means the channel is off-air, which is a
// normal state, not an error. The result is a pure function of the schedule
// snapshot and the instant.
func (r *Resolver) Resolve(channelNumber int, now time.Time) (Decision, bool, error) {
	programs, err := r.provider.ScheduleWindow(channelNumber, now)
	if err != nil {
		return Decision{}, false, fmt.Errorf("schedule window for channel %d: %w", channelNumber, err)
	}

	program, ok := timing.FindActive(programs, now)
	if !ok {
		return Decision{}, false, nil
	}

	return Decision{
		Program: program,
		Timing:  timing.Resolve(program.Start, program.Duration, now),
	}, true, nil
}

// NextUp returns the first program in list order that starts after the given
// instant, if any. Used to bound off-air filler and to annotate guides.
func NextUp(programs []channel.Program, now time.Time) (channel.Program, bool) {
	for _, p := range programs {
		if p.Start.After(now) {
			return p, true
		}
	}
	return channel.Program{}, false
}
