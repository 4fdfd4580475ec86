package playout

import (
	"errors"
	"testing"
	"time"

	"github.com/airwavetv/airwave/internal/channel"
)

var base = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

type stubProvider struct {
	programs []channel.Program
	err      error
}

func (s *stubProvider) ScheduleWindow(_ int, _ time.Time) ([]channel.Program, error) {
	return s.programs, s.err
}

func TestResolveOnAir(t *testing.T) {
	provider := &stubProvider{
		programs: []channel.Program{
			{Title: "earlier", Start: base.Add(-2 * time.Hour), Duration: time.Hour},
			{Title: "current", Start: base, Duration: time.Hour},
		},
	}
	resolver := NewResolver(provider)

	decision, onAir, err := resolver.Resolve(7, base.Add(600*time.Second))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !onAir {
		t.Fatal("Expected channel to be on air")
	}
	if decision.Program.Title != "current" {
		t.Errorf("Expected 'current' program, got %q", decision.Program.Title)
	}
	if decision.Timing.SeekOffset != 600*time.Second {
		t.Errorf("Expected seek offset 600s, got %v", decision.Timing.SeekOffset)
	}
	if decision.Timing.Remaining != 3000*time.Second {
		t.Errorf("Expected 3000s remaining, got %v", decision.Timing.Remaining)
	}
}

func TestResolveEmptyWindowIsOffAir(t *testing.T) {
	resolver := NewResolver(&stubProvider{})

	_, onAir, err := resolver.Resolve(7, base)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if onAir {
		t.Error("Expected empty schedule window to resolve as off-air")
	}
}

func TestResolveGapIsOffAir(t *testing.T) {
	resolver := NewResolver(&stubProvider{
		programs: []channel.Program{
			{Title: "past", Start: base.Add(-2 * time.Hour), Duration: time.Hour},
			{Title: "future", Start: base.Add(time.Hour), Duration: time.Hour},
		},
	})

	_, onAir, err := resolver.Resolve(7, base)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if onAir {
		t.Error("Expected scheduling gap to resolve as off-air")
	}
}

func TestResolveProviderError(t *testing.T) {
	wantErr := errors.New("database locked")
	resolver := NewResolver(&stubProvider{err: wantErr})

	_, _, err := resolver.Resolve(7, base)
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected wrapped provider error, got %v", err)
	}
}

func TestResolveIdempotent(t *testing.T) {
	resolver := NewResolver(&stubProvider{
		programs: []channel.Program{{Title: "show", Start: base, Duration: time.Hour}},
	})

	now := base.Add(5 * time.Minute)
	first, onAir1, _ := resolver.Resolve(7, now)
	second, onAir2, _ := resolver.Resolve(7, now)

	if onAir1 != onAir2 || first != second {
		t.Error("Expected identical decisions for the same instant and snapshot")
	}
}

func TestNextUp(t *testing.T) {
	programs := []channel.Program{
		{Title: "past", Start: base.Add(-time.Hour), Duration: time.Hour},
		{Title: "soon", Start: base.Add(30 * time.Minute), Duration: time.Hour},
		{Title: "later", Start: base.Add(2 * time.Hour), Duration: time.Hour},
	}

	next, ok := NextUp(programs, base)
	if !ok {
		t.Fatal("Expected an upcoming program")
	}
	if next.Title != "soon" {
		t.Errorf("Expected 'soon', got %q", next.Title)
	}

	if _, ok := NextUp(programs, base.Add(3*time.Hour)); ok {
		t.Error("Expected no upcoming program past the end of the window")
	}
}
