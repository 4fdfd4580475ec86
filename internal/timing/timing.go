// Package timing provides pure functions mapping a program's start time and
// duration to playback facts at a given wall-clock instant. All functions are
// deterministic, total and safe for concurrent use; they touch no shared
// state.
package timing

import (
	"time"

	"github.com/airwavetv/airwave/internal/channel"
)

// Result is the derived timing state of one program at one instant. It is
// computed fresh on every query and never persisted.
type Result struct {
	// SeekOffset is the elapsed time into the program's underlying media
	// that playback must start at to match wall-clock reality.
	SeekOffset time.Duration
	// Active reports whether the instant falls within the program,
	// inclusive on both boundaries.
	Active bool
	// Remaining is the time left until the program ends.
	Remaining time.Duration
}

// Resolve computes the timing state of a program at the given instant.
// The active window is [start, start+duration] inclusive on both ends.
func Resolve(start time.Time, duration time.Duration, now time.Time) Result {
	end := start.Add(duration)

	if now.Before(start) {
		return Result{SeekOffset: 0, Active: false, Remaining: duration}
	}
	if now.After(end) {
		return Result{SeekOffset: 0, Active: false, Remaining: 0}
	}

	return Result{
		SeekOffset: clamp(now.Sub(start), duration),
		Active:     true,
		Remaining:  clamp(end.Sub(now), duration),
	}
}

// EffectiveDuration returns the program length a playlist entry should
// advertise at the given instant, floored to whole seconds: the remaining
// time for an in-progress program, the full duration otherwise.
func EffectiveDuration(start time.Time, duration time.Duration, now time.Time) time.Duration {
	r := Resolve(start, duration, now)
	if r.Active && r.SeekOffset > 0 {
		return r.Remaining.Truncate(time.Second)
	}
	return duration.Truncate(time.Second)
}

// OverlapsWindow reports whether any part of the program falls inside the
// half-open window [winStart, winEnd). Used to filter a schedule down to a
// relevant slice before further processing.
func OverlapsWindow(start time.Time, duration time.Duration, winStart, winEnd time.Time) bool {
	return start.Add(duration).After(winStart) && start.Before(winEnd)
}

// FindActive scans programs in list order and returns the first one active
// at the given instant. Ordering matters only when programs overlap, which
// is a schedule defect; the first match wins.
func FindActive(programs []channel.Program, now time.Time) (channel.Program, bool) {
	for _, p := range programs {
		if Resolve(p.Start, p.Duration, now).Active {
			return p, true
		}
	}
	return channel.Program{}, false
}

func clamp(d, max time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}
