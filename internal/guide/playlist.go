package guide

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/airwavetv/airwave/internal/channel"
	"github.com/airwavetv/airwave/internal/timing"
)

// Live playlist window: a short slice of schedule around the current
// instant, enough for players to show what is on now and next.
const (
	liveLookback  = time.Hour
	liveLookahead = 4 * time.Hour
)

// Lineup renders the all-channel playlist: static per-channel metadata plus
// a stream URL, independent of timing.
func Lineup(channels []channel.Channel, baseURL string) []byte {
	base := strings.TrimRight(baseURL, "/")

	sorted := make([]channel.Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.Stealth {
			continue
		}
		sorted = append(sorted, ch)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")

	for _, ch := range sorted {
		buf.WriteString(fmt.Sprintf("#EXTINF:-1 tvg-id=%q tvg-chno=%q", fmt.Sprintf("%d", ch.Number), fmt.Sprintf("%d", ch.Number)))
		if ch.Icon != "" {
			buf.WriteString(fmt.Sprintf(" tvg-logo=%q", ch.Icon))
		}
		if ch.GroupTitle != "" {
			buf.WriteString(fmt.Sprintf(" group-title=%q", ch.GroupTitle))
		}
		buf.WriteString("," + ch.Name + "\n")
		buf.WriteString(fmt.Sprintf("%s/channels/%d/video\n", base, ch.Number))
	}

	return buf.Bytes()
}

// LivePlaylist renders the continuously regenerated per-channel playlist:
// only programs overlapping a small window around now, each advertising its
// effective (remaining) duration rather than its full length.
func LivePlaylist(ch channel.Channel, programs []channel.Program, now time.Time, baseURL string) []byte {
	base := strings.TrimRight(baseURL, "/")
	winStart := now.Add(-liveLookback)
	winEnd := now.Add(liveLookahead)

	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")

	for _, p := range programs {
		if !timing.OverlapsWindow(p.Start, p.Duration, winStart, winEnd) {
			continue
		}

		effective := timing.EffectiveDuration(p.Start, p.Duration, now)
		buf.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", int(effective/time.Second), p.Title))
		buf.WriteString(fmt.Sprintf("%s/channels/%d/video\n", base, ch.Number))
	}

	return buf.Bytes()
}

// OnDemandPlaylist renders the fixed, non-updating single-program playlist
// for the currently on-air program. The entry's length is the total media
// duration; the play position travels as a seek parameter on the stream
// URL.
func OnDemandPlaylist(ch channel.Channel, program channel.Program, mediaDuration, seek time.Duration, baseURL string) []byte {
	base := strings.TrimRight(baseURL, "/")

	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")
	buf.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", int(mediaDuration/time.Second), program.Title))
	buf.WriteString(fmt.Sprintf("%s/channels/%d/video?seek=%d\n", base, ch.Number, int(seek/time.Second)))

	return buf.Bytes()
}
