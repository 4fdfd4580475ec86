package timing

import (
	"testing"
	"time"

	"github.com/airwavetv/airwave/internal/channel"
)

var base = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func TestResolveBeforeStart(t *testing.T) {
	r := Resolve(base, 30*time.Minute, base.Add(-10*time.Second))

	if r.Active {
		t.Error("Expected program to be inactive before start")
	}
	if r.SeekOffset != 0 {
		t.Errorf("Expected zero seek offset, got %v", r.SeekOffset)
	}
	if r.Remaining != 30*time.Minute {
		t.Errorf("Expected full duration remaining, got %v", r.Remaining)
	}
}

func TestResolveActive(t *testing.T) {
	r := Resolve(base, time.Hour, base.Add(600*time.Second))

	if !r.Active {
		t.Error("Expected program to be active")
	}
	if r.SeekOffset != 600*time.Second {
		t.Errorf("Expected seek offset 600s, got %v", r.SeekOffset)
	}
	if r.Remaining != 3000*time.Second {
		t.Errorf("Expected 3000s remaining, got %v", r.Remaining)
	}
	if r.SeekOffset+r.Remaining != time.Hour {
		t.Errorf("Expected offset+remaining to equal duration, got %v", r.SeekOffset+r.Remaining)
	}
}

func TestResolveBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		active     bool
		seekOffset time.Duration
		remaining  time.Duration
	}{
		{"exact start", base, true, 0, 30 * time.Minute},
		{"exact end", base.Add(30 * time.Minute), true, 30 * time.Minute, 0},
		{"just after end", base.Add(30*time.Minute + time.Second), false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(base, 30*time.Minute, tt.now)
			if r.Active != tt.active {
				t.Errorf("Expected active=%v, got %v", tt.active, r.Active)
			}
			if r.SeekOffset != tt.seekOffset {
				t.Errorf("Expected seek offset %v, got %v", tt.seekOffset, r.SeekOffset)
			}
			if r.Remaining != tt.remaining {
				t.Errorf("Expected remaining %v, got %v", tt.remaining, r.Remaining)
			}
		})
	}
}

func TestEffectiveDurationInProgress(t *testing.T) {
	// 10 minutes in, effective duration is the time left.
	got := EffectiveDuration(base, time.Hour, base.Add(10*time.Minute))
	if got != 50*time.Minute {
		t.Errorf("Expected 50m effective duration, got %v", got)
	}

	// Not yet started, effective duration is the full length.
	got = EffectiveDuration(base, time.Hour, base.Add(-time.Minute))
	if got != time.Hour {
		t.Errorf("Expected full duration, got %v", got)
	}
}

func TestEffectiveDurationFloorsToSeconds(t *testing.T) {
	got := EffectiveDuration(base, time.Hour, base.Add(10*time.Minute+300*time.Millisecond))
	if got != 49*time.Minute+59*time.Second {
		t.Errorf("Expected floored whole seconds, got %v", got)
	}
}

func TestEffectiveDurationMonotonic(t *testing.T) {
	prev := EffectiveDuration(base, time.Hour, base.Add(time.Second))
	for s := 2; s <= 3600; s += 7 {
		now := base.Add(time.Duration(s) * time.Second)
		got := EffectiveDuration(base, time.Hour, now)
		if got > prev {
			t.Fatalf("Effective duration increased from %v to %v at +%ds", prev, got, s)
		}
		if got < 0 {
			t.Fatalf("Effective duration went negative at +%ds", s)
		}
		prev = got
	}
}

func TestOverlapsWindow(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		duration time.Duration
		winStart time.Time
		winEnd   time.Time
		want     bool
	}{
		{"fully inside", base, time.Hour, base.Add(-time.Hour), base.Add(2 * time.Hour), true},
		{"straddles window start", base.Add(-30 * time.Minute), time.Hour, base, base.Add(time.Hour), true},
		{"straddles window end", base.Add(30 * time.Minute), time.Hour, base, base.Add(time.Hour), true},
		{"ends at window start", base.Add(-time.Hour), time.Hour, base, base.Add(time.Hour), false},
		{"starts at window end", base.Add(time.Hour), time.Hour, base, base.Add(time.Hour), false},
		{"entirely before", base.Add(-3 * time.Hour), time.Hour, base, base.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OverlapsWindow(tt.start, tt.duration, tt.winStart, tt.winEnd)
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFindActive(t *testing.T) {
	programs := []channel.Program{
		{Title: "morning", Start: base.Add(-2 * time.Hour), Duration: time.Hour},
		{Title: "noon", Start: base, Duration: time.Hour},
		{Title: "evening", Start: base.Add(2 * time.Hour), Duration: time.Hour},
	}

	p, ok := FindActive(programs, base.Add(30*time.Minute))
	if !ok {
		t.Fatal("Expected an active program")
	}
	if p.Title != "noon" {
		t.Errorf("Expected 'noon' active, got %q", p.Title)
	}

	// A gap between programs is a normal off-air state.
	if _, ok := FindActive(programs, base.Add(90*time.Minute)); ok {
		t.Error("Expected no active program in a scheduling gap")
	}

	if _, ok := FindActive(nil, base); ok {
		t.Error("Expected no active program for an empty schedule")
	}
}

func TestFindActiveOverlapFirstWins(t *testing.T) {
	// Overlaps are a data defect; the first program in list order wins.
	programs := []channel.Program{
		{Title: "first", Start: base, Duration: time.Hour},
		{Title: "second", Start: base.Add(30 * time.Minute), Duration: time.Hour},
	}

	p, ok := FindActive(programs, base.Add(45*time.Minute))
	if !ok {
		t.Fatal("Expected an active program")
	}
	if p.Title != "first" {
		t.Errorf("Expected first listed program to win, got %q", p.Title)
	}
}
