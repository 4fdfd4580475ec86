// Package hardware probes the host for transcoder binaries and GPU
// acceleration capability. It knows nothing about channels or programs.
package hardware

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/airwavetv/airwave/internal/types"
)

// EnvBinaryOverride names the environment variable that forces a specific
// transcoder binary path, checked before any other candidate.
const EnvBinaryOverride = "AIRWAVE_FFMPEG_PATH"

// ErrNoBinary is returned when no usable transcoder binary is found.
var ErrNoBinary = errors.New("no usable ffmpeg binary found")

// Detector inspects the host environment for transcoding capability.
type Detector struct {
	logger *logrus.Logger
}

// NewDetector creates a new hardware detector instance.
func NewDetector(logger *logrus.Logger) *Detector {
	return &Detector{logger: logger}
}

// DetectBinaries probes a fixed priority list of candidate executable
// locations and returns every binary that answers a version check, most
// preferred first.
func (d *Detector) DetectBinaries() []types.BinaryInfo {
	var found []types.BinaryInfo
	seen := make(map[string]bool)

	for _, candidate := range d.binaryCandidates() {
		if candidate == "" || seen[candidate] {
			continue
		}
		seen[candidate] = true

		info, err := d.probeBinary(candidate)
		if err != nil {
			d.logger.WithError(err).WithField("path", candidate).Debug("Candidate binary rejected")
			continue
		}

		d.logger.WithFields(logrus.Fields{
			"path":     info.Path,
			"version":  info.Version,
			"encoders": len(info.Encoders),
		}).Debug("Detected ffmpeg binary")
		found = append(found, info)
	}

	return found
}

// binaryCandidates returns candidate paths in priority order: explicit env
// override, PATH entry, then common platform install directories.
func (d *Detector) binaryCandidates() []string {
	candidates := []string{os.Getenv(EnvBinaryOverride)}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		candidates = append(candidates, path)
	}

	switch runtime.GOOS {
	case "darwin":
		candidates = append(candidates,
			"/opt/homebrew/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
		)
	case "windows":
		candidates = append(candidates,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
			`C:\ffmpeg\bin\ffmpeg.exe`,
		)
	default:
		candidates = append(candidates,
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/usr/lib/jellyfin-ffmpeg/ffmpeg",
		)
	}

	return candidates
}

// probeBinary runs a version check against the candidate and captures its
// compiled-in encoder list.
func (d *Detector) probeBinary(path string) (types.BinaryInfo, error) {
	out, err := exec.Command(path, "-version").Output() // #nosec G204 - path comes from a fixed candidate list
	if err != nil {
		return types.BinaryInfo{}, fmt.Errorf("version check failed: %w", err)
	}

	version := parseVersion(string(out))
	if version == "" {
		return types.BinaryInfo{}, fmt.Errorf("unrecognized version output")
	}

	encoders, err := d.listEncoders(path)
	if err != nil {
		return types.BinaryInfo{}, fmt.Errorf("encoder listing failed: %w", err)
	}

	return types.BinaryInfo{Path: path, Version: version, Encoders: encoders}, nil
}

func (d *Detector) listEncoders(path string) ([]string, error) {
	out, err := exec.Command(path, "-hide_banner", "-encoders").Output() // #nosec G204 - path already passed the version check
	if err != nil {
		return nil, err
	}
	return parseEncoders(string(out)), nil
}

// parseVersion extracts the version token from `ffmpeg -version` output.
func parseVersion(out string) string {
	fields := strings.Fields(out)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

// parseEncoders extracts encoder names from `ffmpeg -encoders` output. The
// listing has a header terminated by a dashed separator line; each entry
// after it is " <flags> <name> <description>".
func parseEncoders(out string) []string {
	var encoders []string
	inList := false

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inList {
			if strings.HasPrefix(trimmed, "---") {
				inList = true
			}
			continue
		}

		fields := strings.Fields(trimmed)
		if len(fields) >= 2 {
			encoders = append(encoders, fields[1])
		}
	}

	return encoders
}

// DetectAccel inspects the binary's encoder list and the host devices and
// returns one profile per detected vendor family. The software fallback is
// always present and always first. A failing vendor probe is recorded as
// unsupported and never aborts detection of the others.
func (d *Detector) DetectAccel(bin types.BinaryInfo) []types.HardwareInfo {
	accel := []types.HardwareInfo{softwareFallback(bin)}

	probes := []struct {
		name  string
		probe func(types.BinaryInfo) (*types.HardwareInfo, error)
	}{
		{"nvidia", d.checkNVIDIA},
		{"intel", d.checkIntel},
		{"amd", d.checkAMD},
		{"videotoolbox", d.checkVideoToolbox},
	}

	for _, p := range probes {
		hw, err := p.probe(bin)
		if err != nil {
			d.logger.WithError(err).WithField("vendor", p.name).Debug("Hardware acceleration unsupported")
			continue
		}
		d.logger.WithFields(logrus.Fields{
			"vendor":  hw.Type,
			"device":  hw.DevicePath,
			"encoder": hw.VideoEncoder,
		}).Info("Detected hardware acceleration")
		accel = append(accel, *hw)
	}

	return accel
}

func softwareFallback(bin types.BinaryInfo) types.HardwareInfo {
	encoder := "libx264"
	if !bin.HasEncoder(encoder) && bin.HasEncoder("h264") {
		encoder = "h264"
	}
	return types.HardwareInfo{
		Type:         types.HardwareNone,
		DeviceName:   "software",
		VideoEncoder: encoder,
		Available:    true,
	}
}

// checkNVIDIA detects NVENC availability via the encoder list and nvidia-smi.
func (d *Detector) checkNVIDIA(bin types.BinaryInfo) (*types.HardwareInfo, error) {
	if !bin.HasEncoder("h264_nvenc") {
		return nil, fmt.Errorf("h264_nvenc not compiled in")
	}

	out, err := exec.Command("nvidia-smi", "--query-gpu=name,uuid", "--format=csv,noheader").Output()
	if err != nil {
		return nil, fmt.Errorf("nvidia-smi not available: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, fmt.Errorf("no NVIDIA GPUs reported")
	}
	parts := strings.SplitN(lines[0], ", ", 2)
	if len(parts) < 2 {
		return nil, fmt.Errorf("unexpected nvidia-smi output")
	}

	return &types.HardwareInfo{
		Type:         types.HardwareNVIDIA,
		DevicePath:   parts[1],
		DeviceName:   parts[0],
		VideoEncoder: "h264_nvenc",
		InputFlags:   []string{"-hwaccel", "cuda"},
		Available:    true,
	}, nil
}

// checkIntel detects Intel Quick Sync through VA-API render nodes.
func (d *Detector) checkIntel(bin types.BinaryInfo) (*types.HardwareInfo, error) {
	return d.checkVAAPI(bin, types.HardwareIntel, []string{"Intel", "i965", "iHD"})
}

// checkAMD detects AMD VCE/VCN through VA-API, falling back to AMF on
// Windows hosts.
func (d *Detector) checkAMD(bin types.BinaryInfo) (*types.HardwareInfo, error) {
	hw, err := d.checkVAAPI(bin, types.HardwareAMD, []string{"AMD", "radeonsi"})
	if err == nil {
		return hw, nil
	}

	if runtime.GOOS == "windows" && bin.HasEncoder("h264_amf") {
		return &types.HardwareInfo{
			Type:         types.HardwareAMD,
			DeviceName:   "amf",
			VideoEncoder: "h264_amf",
			Available:    true,
		}, nil
	}

	return nil, err
}

func (d *Detector) checkVAAPI(bin types.BinaryInfo, hwType types.HardwareType, markers []string) (*types.HardwareInfo, error) {
	if !bin.HasEncoder("h264_vaapi") {
		return nil, fmt.Errorf("h264_vaapi not compiled in")
	}

	nodes, err := filepath.Glob("/dev/dri/renderD*")
	if err != nil || len(nodes) == 0 {
		return nil, fmt.Errorf("no render nodes found")
	}

	for _, node := range nodes {
		out, err := exec.Command("vainfo", "--display", "drm", "--device", node).CombinedOutput() // #nosec G204 - node comes from a /dev/dri glob
		if err != nil {
			continue
		}

		text := string(out)
		matched := false
		for _, marker := range markers {
			if strings.Contains(text, marker) {
				matched = true
				break
			}
		}
		if !matched || (!strings.Contains(text, "H264") && !strings.Contains(text, "AVC")) {
			continue
		}

		return &types.HardwareInfo{
			Type:         hwType,
			DevicePath:   node,
			VideoEncoder: "h264_vaapi",
			InputFlags: []string{
				"-hwaccel", "vaapi",
				"-hwaccel_device", node,
				"-hwaccel_output_format", "vaapi",
			},
			Available: true,
		}, nil
	}

	return nil, fmt.Errorf("no %s GPU with video acceleration found", hwType)
}

// checkVideoToolbox detects the Apple VideoToolbox encoder on darwin hosts.
func (d *Detector) checkVideoToolbox(bin types.BinaryInfo) (*types.HardwareInfo, error) {
	if runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("videotoolbox requires darwin")
	}
	if !bin.HasEncoder("h264_videotoolbox") {
		return nil, fmt.Errorf("h264_videotoolbox not compiled in")
	}

	return &types.HardwareInfo{
		Type:         types.HardwareVideoToolbox,
		DeviceName:   "videotoolbox",
		VideoEncoder: "h264_videotoolbox",
		InputFlags:   []string{"-hwaccel", "videotoolbox"},
		Available:    true,
	}, nil
}
