// Package pipeline realizes an on-air decision as bytes: it builds the
// transcoder invocation for a resolved media part and owns the spawned
// process for the lifetime of one stream request.
package pipeline

import (
	"strconv"
	"time"

	"github.com/airwavetv/airwave/internal/origin"
	"github.com/airwavetv/airwave/internal/types"
)

const (
	defaultContainer = "mpegts"
	defaultLogLevel  = "error"
)

// BuildArgs constructs the transcoder argument list for a media part and a
// seek offset. The list is deterministic for a given (part, seek, profile)
// triple. The seek is applied before the input so it happens at the fastest
// possible point, and the output container is always written to stdout.
func BuildArgs(part origin.Part, seek time.Duration, p types.TranscodeProfile) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", stringOr(p.LogLevel, defaultLogLevel),
	}

	if !p.Transcode {
		// Passthrough: remux only, no re-encode.
		args = appendSeek(args, seek)
		args = append(args, "-i", part.URL, "-c", "copy")
		args = append(args, "-f", stringOr(p.Container, defaultContainer), "pipe:1")
		return args
	}

	args = append(args, "-nostats")
	args = append(args, p.InputFlags...)
	args = appendSeek(args, seek)
	args = append(args, "-i", part.URL)

	args = appendOpt(args, "-c:v", p.VideoEncoder)
	args = appendOpt(args, "-b:v", p.VideoBitrate)
	args = appendOpt(args, "-maxrate", p.VideoBitrate)
	args = appendOpt(args, "-bufsize", p.VideoBufSize)
	args = appendOpt(args, "-preset", p.Preset)
	args = appendIntOpt(args, "-crf", p.CRF)
	if p.Scale != "" {
		args = append(args, "-vf", "scale="+p.Scale)
	}

	args = appendOpt(args, "-c:a", p.AudioEncoder)
	args = appendOpt(args, "-b:a", p.AudioBitrate)
	args = appendIntOpt(args, "-ac", p.AudioChannels)
	args = appendIntOpt(args, "-ar", p.AudioSampleRate)

	args = appendIntOpt(args, "-threads", p.Threads)
	args = appendIntOpt(args, "-max_muxing_queue_size", p.MuxingQueueSize)

	args = append(args, "-f", stringOr(p.Container, defaultContainer), "pipe:1")
	return args
}

// BuildOffAirArgs constructs an invocation that generates a test-pattern
// slate for an off-air channel. The slate is bounded by the given duration
// when the next program is known, unbounded otherwise.
func BuildOffAirArgs(until time.Duration, p types.TranscodeProfile) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", stringOr(p.LogLevel, defaultLogLevel),
		"-re",
		"-f", "lavfi",
		"-i", "smptehdbars=size=1280x720:rate=30",
		"-f", "lavfi",
		"-i", "sine=frequency=440:sample_rate=48000",
	}

	if until > 0 {
		args = append(args, "-t", formatSeconds(until))
	}

	// The slate is generated, not decoded, so hardware input flags do not
	// apply; encode with the software path.
	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ac", "2",
	)

	args = append(args, "-f", stringOr(p.Container, defaultContainer), "pipe:1")
	return args
}

// appendSeek adds a pre-input seek, omitted entirely at offset zero.
func appendSeek(args []string, seek time.Duration) []string {
	if seek <= 0 {
		return args
	}
	return append(args, "-ss", formatSeconds(seek))
}

// appendOpt adds a string option, omitting it when the value is empty so
// the transcoder's own default applies.
func appendOpt(args []string, flag, value string) []string {
	if value == "" {
		return args
	}
	return append(args, flag, value)
}

// appendIntOpt adds a numeric option, omitting it when the value is zero.
func appendIntOpt(args []string, flag string, value int) []string {
	if value <= 0 {
		return args
	}
	return append(args, flag, strconv.Itoa(value))
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10)
}

func stringOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
