// Package channel defines the channel and program data model shared by the
// playout, guide and streaming subsystems.
package channel

import "time"

// ContentKind identifies which catalog variant a program's content points to.
type ContentKind string

const (
	// ContentEpisode is an episode of a series in the catalog.
	ContentEpisode ContentKind = "episode"
	// ContentMovie is a standalone movie in the catalog.
	ContentMovie ContentKind = "movie"
)

// ContentRef identifies a playable media item and the origin system that can
// serve it. It is immutable for the lifetime of a Program.
type ContentRef struct {
	Kind      ContentKind
	ServerURL string
	AuthToken string
	RatingKey string
}

// Channel is a virtual linear broadcast stream with a numbered identity and
// an ordered program schedule.
type Channel struct {
	Number     int
	Name       string
	Stealth    bool
	Icon       string
	GroupTitle string
}

// Program is a scheduled occurrence of one content item on one channel.
type Program struct {
	ChannelNumber int
	Start         time.Time
	Duration      time.Duration
	Title         string
	Icon          string
	Content       ContentRef
}

// End returns the absolute instant at which the program ends.
func (p Program) End() time.Time {
	return p.Start.Add(p.Duration)
}

// IssueKind classifies a schedule defect.
type IssueKind string

const (
	// IssueOverlap marks two programs on the same channel that overlap in time.
	IssueOverlap IssueKind = "overlap"
	// IssueBadDuration marks a program with a zero or negative duration.
	IssueBadDuration IssueKind = "bad_duration"
)

// Issue describes a single schedule defect found by Lint. Defects are
// reported, never repaired.
type Issue struct {
	Kind          IssueKind `json:"kind"`
	ChannelNumber int       `json:"channel"`
	Title         string    `json:"title"`
	Start         time.Time `json:"start"`
	Detail        string    `json:"detail"`
}

// Lint inspects a channel's programs, ordered by start time, and reports
// overlapping and zero/negative-duration entries.
func Lint(programs []Program) []Issue {
	var issues []Issue

	// Overlaps are checked against the furthest end seen so far, not just
	// the immediate predecessor, so a long program is reported against
	// every later program it covers.
	var maxEnd time.Time
	for i, p := range programs {
		if p.Duration <= 0 {
			issues = append(issues, Issue{
				Kind:          IssueBadDuration,
				ChannelNumber: p.ChannelNumber,
				Title:         p.Title,
				Start:         p.Start,
				Detail:        "duration must be positive",
			})
		}

		if i > 0 && maxEnd.After(p.Start) {
			issues = append(issues, Issue{
				Kind:          IssueOverlap,
				ChannelNumber: p.ChannelNumber,
				Title:         p.Title,
				Start:         p.Start,
				Detail:        "starts before an earlier program ends",
			})
		}

		if end := p.End(); end.After(maxEnd) {
			maxEnd = end
		}
	}

	return issues
}
