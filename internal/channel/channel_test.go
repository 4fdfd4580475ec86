package channel

import (
	"testing"
	"time"
)

var base = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func TestLintCleanSchedule(t *testing.T) {
	programs := []Program{
		{ChannelNumber: 1, Title: "a", Start: base, Duration: time.Hour},
		{ChannelNumber: 1, Title: "b", Start: base.Add(time.Hour), Duration: 30 * time.Minute},
		{ChannelNumber: 1, Title: "c", Start: base.Add(2 * time.Hour), Duration: time.Hour},
	}

	if issues := Lint(programs); len(issues) != 0 {
		t.Errorf("Expected no issues for a clean schedule, got %d", len(issues))
	}
}

func TestLintOverlap(t *testing.T) {
	programs := []Program{
		{ChannelNumber: 1, Title: "a", Start: base, Duration: time.Hour},
		{ChannelNumber: 1, Title: "b", Start: base.Add(30 * time.Minute), Duration: time.Hour},
	}

	issues := Lint(programs)
	if len(issues) != 1 {
		t.Fatalf("Expected 1 issue, got %d", len(issues))
	}
	if issues[0].Kind != IssueOverlap {
		t.Errorf("Expected overlap issue, got %s", issues[0].Kind)
	}
	if issues[0].Title != "b" {
		t.Errorf("Expected the later program to be reported, got %q", issues[0].Title)
	}
}

func TestLintLongProgramOverlapsMultipleSuccessors(t *testing.T) {
	// "a" runs 3h and covers both "b" and "c"; each covered program is
	// reported, not just the immediate neighbour.
	programs := []Program{
		{ChannelNumber: 1, Title: "a", Start: base, Duration: 3 * time.Hour},
		{ChannelNumber: 1, Title: "b", Start: base.Add(30 * time.Minute), Duration: 10 * time.Minute},
		{ChannelNumber: 1, Title: "c", Start: base.Add(time.Hour), Duration: time.Hour},
	}

	issues := Lint(programs)
	if len(issues) != 2 {
		t.Fatalf("Expected 2 issues, got %d: %+v", len(issues), issues)
	}

	reported := map[string]bool{}
	for _, issue := range issues {
		if issue.Kind != IssueOverlap {
			t.Errorf("Expected overlap issue, got %s", issue.Kind)
		}
		reported[issue.Title] = true
	}
	if !reported["b"] || !reported["c"] {
		t.Errorf("Expected both covered programs reported, got %v", reported)
	}
}

func TestLintBadDuration(t *testing.T) {
	programs := []Program{
		{ChannelNumber: 1, Title: "zero", Start: base, Duration: 0},
		{ChannelNumber: 1, Title: "negative", Start: base.Add(time.Hour), Duration: -time.Minute},
	}

	issues := Lint(programs)
	if len(issues) != 2 {
		t.Fatalf("Expected 2 issues, got %d", len(issues))
	}
	for _, issue := range issues {
		if issue.Kind != IssueBadDuration {
			t.Errorf("Expected bad_duration issue, got %s", issue.Kind)
		}
	}
}
