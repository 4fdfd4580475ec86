package hardware

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/airwavetv/airwave/internal/types"
)

// testEncodeTimeout bounds the synthetic probe encode.
const testEncodeTimeout = 20 * time.Second

// TestProfile runs a short synthetic encode through the candidate profile
// and reports the elapsed time. Failures are returned, never thrown; the
// caller decides whether an unusable profile is fatal.
func (d *Detector) TestProfile(profile types.TranscodeProfile) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), testEncodeTimeout)
	defer cancel()

	args := []string{"-hide_banner", "-loglevel", "error"}

	if profile.DevicePath != "" && profile.VideoEncoder == "h264_vaapi" {
		args = append(args, "-vaapi_device", profile.DevicePath)
	}

	args = append(args,
		"-f", "lavfi",
		"-i", "testsrc2=duration=2:size=640x360:rate=30",
	)

	if profile.VideoEncoder == "h264_vaapi" {
		args = append(args, "-vf", "format=nv12,hwupload")
	}

	encoder := profile.VideoEncoder
	if encoder == "" {
		encoder = "libx264"
	}
	args = append(args, "-c:v", encoder, "-an", "-f", "null", "-")

	cmd := exec.CommandContext(ctx, profile.FFmpegPath, args...) // #nosec G204 - binary path comes from detection, args are internally constructed
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("test encode timed out after %s", testEncodeTimeout)
		}
		return 0, fmt.Errorf("test encode failed: %w: %s", err, stderr.String())
	}

	return time.Since(start), nil
}
