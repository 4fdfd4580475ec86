// Package types contains shared type definitions for the transcoding
// subsystem.
package types

// HardwareType represents a hardware acceleration vendor family.
type HardwareType string

const (
	// HardwareAuto automatically selects the best available hardware.
	HardwareAuto HardwareType = "auto"
	// HardwareNone uses software encoding on the CPU.
	HardwareNone HardwareType = "none"
	// HardwareNVIDIA uses NVIDIA GPU acceleration (NVENC/CUDA).
	HardwareNVIDIA HardwareType = "nvidia"
	// HardwareIntel uses Intel Quick Sync via VA-API.
	HardwareIntel HardwareType = "intel"
	// HardwareAMD uses AMD VCE/VCN via VA-API or AMF.
	HardwareAMD HardwareType = "amd"
	// HardwareVideoToolbox uses the Apple VideoToolbox framework.
	HardwareVideoToolbox HardwareType = "videotoolbox"
)

// BinaryInfo describes a probed transcoder binary.
type BinaryInfo struct {
	Path     string
	Version  string
	Encoders []string
}

// HasEncoder reports whether the binary was compiled with the named encoder.
func (b BinaryInfo) HasEncoder(name string) bool {
	for _, e := range b.Encoders {
		if e == name {
			return true
		}
	}
	return false
}

// HardwareInfo describes one detected acceleration family on the host.
type HardwareInfo struct {
	Type         HardwareType
	DevicePath   string
	DeviceName   string
	VideoEncoder string
	InputFlags   []string
	Available    bool
}

// TranscodeProfile is a resolved set of encoder and hardware parameters used
// to invoke the external transcoder. Built once per process or on a TTL,
// never per stream.
type TranscodeProfile struct {
	FFmpegPath string
	Transcode  bool
	Hardware   HardwareType
	DevicePath string
	InputFlags []string

	VideoEncoder string
	VideoBitrate string
	VideoBufSize string
	Preset       string
	CRF          int
	Scale        string

	AudioEncoder    string
	AudioBitrate    string
	AudioChannels   int
	AudioSampleRate int

	Threads         int
	MuxingQueueSize int
	Container       string
	LogLevel        string
}
