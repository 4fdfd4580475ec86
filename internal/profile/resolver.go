// Package profile resolves a reusable transcode configuration from detected
// host capability, caching the expensive environment probes behind a TTL.
package profile

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/airwavetv/airwave/internal/hardware"
	"github.com/airwavetv/airwave/internal/types"
)

// DefaultTTL is how long detection results are reused before the host is
// probed again.
const DefaultTTL = 5 * time.Minute

const (
	systemKey  = "system"
	profileKey = "profile"
)

// Detector is the subset of the hardware prober the resolver needs.
type Detector interface {
	DetectBinaries() []types.BinaryInfo
	DetectAccel(types.BinaryInfo) []types.HardwareInfo
	TestProfile(types.TranscodeProfile) (time.Duration, error)
}

// SystemInfo is the cached outcome of one full environment inspection.
type SystemInfo struct {
	Binary types.BinaryInfo
	Accel  []types.HardwareInfo
}

// Config carries the operator's transcode preferences applied on top of
// whatever the host supports.
type Config struct {
	TTL             time.Duration
	Preferred       types.HardwareType
	Transcode       bool
	VideoBitrate    string
	VideoBufSize    string
	Preset          string
	CRF             int
	Scale           string
	AudioBitrate    string
	AudioChannels   int
	AudioSampleRate int
	Threads         int
	MuxingQueueSize int
	Container       string
	LogLevel        string
}

// Resolver builds and caches transcode profiles. The caches are explicitly
// owned here and injected nowhere else; tests construct a fresh resolver per
// case.
type Resolver struct {
	detector Detector
	cfg      Config
	logger   *logrus.Logger

	systems  *expirable.LRU[string, SystemInfo]
	profiles *expirable.LRU[string, types.TranscodeProfile]
}

// NewResolver creates a resolver with its own TTL caches.
func NewResolver(detector Detector, cfg Config, logger *logrus.Logger) *Resolver {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Resolver{
		detector: detector,
		cfg:      cfg,
		logger:   logger,
		systems:  expirable.NewLRU[string, SystemInfo](1, nil, ttl),
		profiles: expirable.NewLRU[string, types.TranscodeProfile](1, nil, ttl),
	}
}

// SystemInfo returns the cached environment inspection, probing the host if
// the cache is empty or expired.
func (r *Resolver) SystemInfo() (SystemInfo, error) {
	if info, ok := r.systems.Get(systemKey); ok {
		return info, nil
	}

	binaries := r.detector.DetectBinaries()
	if len(binaries) == 0 {
		return SystemInfo{}, hardware.ErrNoBinary
	}

	info := SystemInfo{
		Binary: binaries[0],
		Accel:  r.detector.DetectAccel(binaries[0]),
	}
	r.systems.Add(systemKey, info)

	return info, nil
}

// Profile returns the resolved transcode profile, rebuilding it from a fresh
// system inspection when the cached one has expired.
func (r *Resolver) Profile() (types.TranscodeProfile, error) {
	if p, ok := r.profiles.Get(profileKey); ok {
		return p, nil
	}

	info, err := r.SystemInfo()
	if err != nil {
		return types.TranscodeProfile{}, err
	}

	hw, err := selectHardware(info.Accel, r.cfg.Preferred)
	if err != nil {
		return types.TranscodeProfile{}, err
	}

	p := types.TranscodeProfile{
		FFmpegPath: info.Binary.Path,
		Transcode:  r.cfg.Transcode,
		Hardware:   hw.Type,
		DevicePath: hw.DevicePath,
		InputFlags: hw.InputFlags,

		VideoEncoder: hw.VideoEncoder,
		VideoBitrate: r.cfg.VideoBitrate,
		VideoBufSize: r.cfg.VideoBufSize,
		Preset:       r.cfg.Preset,
		CRF:          r.cfg.CRF,
		Scale:        r.cfg.Scale,

		AudioEncoder:    "aac",
		AudioBitrate:    r.cfg.AudioBitrate,
		AudioChannels:   r.cfg.AudioChannels,
		AudioSampleRate: r.cfg.AudioSampleRate,

		Threads:         r.cfg.Threads,
		MuxingQueueSize: r.cfg.MuxingQueueSize,
		Container:       r.cfg.Container,
		LogLevel:        r.cfg.LogLevel,
	}

	r.logger.WithFields(logrus.Fields{
		"binary":   p.FFmpegPath,
		"hardware": p.Hardware,
		"encoder":  p.VideoEncoder,
	}).Info("Resolved transcode profile")

	r.profiles.Add(profileKey, p)
	return p, nil
}

// Test runs a short synthetic encode through a candidate profile and reports
// its latency.
func (r *Resolver) Test(p types.TranscodeProfile) (time.Duration, error) {
	return r.detector.TestProfile(p)
}

// Invalidate clears both detection caches so the next query probes the host
// again, e.g. after a GPU is passed through at runtime.
func (r *Resolver) Invalidate() {
	r.systems.Purge()
	r.profiles.Purge()
}

// selectHardware picks the acceleration family to use: the operator's
// preference when it is available, otherwise the best detected family.
func selectHardware(accel []types.HardwareInfo, preferred types.HardwareType) (types.HardwareInfo, error) {
	if len(accel) == 0 {
		return types.HardwareInfo{}, fmt.Errorf("no encoders detected")
	}

	if preferred != "" && preferred != types.HardwareAuto {
		for _, hw := range accel {
			if hw.Type == preferred && hw.Available {
				return hw, nil
			}
		}
	}

	priority := []types.HardwareType{
		types.HardwareNVIDIA,
		types.HardwareIntel,
		types.HardwareVideoToolbox,
		types.HardwareAMD,
		types.HardwareNone,
	}
	for _, hwType := range priority {
		for _, hw := range accel {
			if hw.Type == hwType && hw.Available {
				return hw, nil
			}
		}
	}

	return types.HardwareInfo{}, fmt.Errorf("no usable hardware profile")
}
