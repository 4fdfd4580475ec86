// Package config provides configuration management for the broadcast
// emulator. Values come from an optional YAML file, the environment
// (including a .env file when present), and command-line flags, with flags
// taking precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	// ErrBaseURLRequired is returned when base URL is not provided.
	ErrBaseURLRequired = errors.New("base URL is required")
	// ErrOriginRequired is returned when no origin server URL is provided.
	ErrOriginRequired = errors.New("origin server URL is required")
	// ErrInvalidPort is returned when port number is invalid.
	ErrInvalidPort = errors.New("invalid port number")
	// ErrInvalidLogLevel is returned when log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidHardware is returned when the hardware preference is unknown.
	ErrInvalidHardware = errors.New("invalid hardware preference")
	// ErrGracePositive is returned when the stop grace period is not positive.
	ErrGracePositive = errors.New("stop grace period must be positive")
	// ErrGuideDaysPositive is returned when the guide span is not positive.
	ErrGuideDaysPositive = errors.New("guide days must be positive")
)

// Config holds the application configuration.
type Config struct {
	Port     int
	BaseURL  string
	DBPath   string
	LogLevel string

	// Origin media servers the playout content references resolve against.
	EpisodeServerURL string
	MovieServerURL   string
	OriginTimeout    time.Duration

	// Transcode settings.
	Transcode   bool
	Hardware    string
	DetectTTL   time.Duration
	GracePeriod time.Duration

	// Guide settings.
	GuideDays  int
	TunerCount int
	Location   string
}

// New creates a configuration instance from flags, the environment and an
// optional YAML file.
func New() (*Config, error) {
	return NewFromArgs(os.Args[1:])
}

// NewFromArgs parses the given command-line arguments. Environment
// variables (AIRWAVE_*) supply flag defaults; a .env file in the working
// directory is loaded first when present.
func NewFromArgs(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	fs := flag.NewFlagSet("airwave", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", envOr("AIRWAVE_CONFIG", ""), "Path to YAML config file")
	fs.IntVar(&cfg.Port, "port", envIntOr("AIRWAVE_PORT", 8000), "Port to listen on")
	fs.StringVar(&cfg.BaseURL, "base", envOr("AIRWAVE_BASE_URL", ""), "Base URL clients reach this server at (e.g., http://localhost:8000) (required)")
	fs.StringVar(&cfg.DBPath, "db", envOr("AIRWAVE_DB_PATH", "airwave.db"), "Path to the schedule database")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("AIRWAVE_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.EpisodeServerURL, "episode-server", envOr("AIRWAVE_EPISODE_SERVER", ""), "Origin server URL for episode content (required unless movie server set)")
	fs.StringVar(&cfg.MovieServerURL, "movie-server", envOr("AIRWAVE_MOVIE_SERVER", ""), "Origin server URL for movie content (defaults to episode server)")
	fs.DurationVar(&cfg.OriginTimeout, "origin-timeout", envDurationOr("AIRWAVE_ORIGIN_TIMEOUT", 10*time.Second), "Timeout for origin metadata requests")
	fs.BoolVar(&cfg.Transcode, "transcode", envBoolOr("AIRWAVE_TRANSCODE", true), "Transcode streams (false = remux only)")
	fs.StringVar(&cfg.Hardware, "hardware", envOr("AIRWAVE_HARDWARE", "auto"), "Hardware acceleration preference (auto, none, nvidia, intel, amd, videotoolbox)")
	fs.DurationVar(&cfg.DetectTTL, "detect-ttl", envDurationOr("AIRWAVE_DETECT_TTL", 5*time.Minute), "How long hardware detection results are cached")
	fs.DurationVar(&cfg.GracePeriod, "grace", envDurationOr("AIRWAVE_GRACE", 5*time.Second), "Grace period before a stopping transcode is killed")
	fs.IntVar(&cfg.GuideDays, "guide-days", envIntOr("AIRWAVE_GUIDE_DAYS", 2), "Days of programming in the XMLTV guide")
	fs.IntVar(&cfg.TunerCount, "tuners", envIntOr("AIRWAVE_TUNERS", 2), "Tuner count advertised to HDHomeRun clients")
	fs.StringVar(&cfg.Location, "location", envOr("AIRWAVE_LOCATION", ""), "IANA timezone for guide times (defaults to system local time)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath != "" {
		// Flags given explicitly win over the file, so snapshot them
		// before the file overwrites the bound fields.
		explicit := map[string]string{}
		fs.Visit(func(f *flag.Flag) {
			explicit[f.Name] = f.Value.String()
		})

		if err := cfg.loadFile(configPath); err != nil {
			return nil, err
		}

		for name, value := range explicit {
			if err := fs.Set(name, value); err != nil {
				return nil, fmt.Errorf("applying flag -%s: %w", name, err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// fileDuration accepts both "10s"-style strings and integer nanoseconds.
type fileDuration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *fileDuration) UnmarshalYAML(value *yaml.Node) error {
	if n, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = fileDuration(n)
		return nil
	}

	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = fileDuration(parsed)
	return nil
}

// fileConfig mirrors Config for the YAML file. Pointer fields distinguish an
// absent key from an explicit zero so the file only overrides what it names.
type fileConfig struct {
	Port     *int    `yaml:"port"`
	BaseURL  *string `yaml:"base_url"`
	DBPath   *string `yaml:"db_path"`
	LogLevel *string `yaml:"log_level"`

	EpisodeServerURL *string       `yaml:"episode_server_url"`
	MovieServerURL   *string       `yaml:"movie_server_url"`
	OriginTimeout    *fileDuration `yaml:"origin_timeout"`

	Transcode   *bool         `yaml:"transcode"`
	Hardware    *string       `yaml:"hardware"`
	DetectTTL   *fileDuration `yaml:"detect_ttl"`
	GracePeriod *fileDuration `yaml:"grace_period"`

	GuideDays  *int    `yaml:"guide_days"`
	TunerCount *int    `yaml:"tuner_count"`
	Location   *string `yaml:"location"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	override(&c.Port, file.Port)
	override(&c.BaseURL, file.BaseURL)
	override(&c.DBPath, file.DBPath)
	override(&c.LogLevel, file.LogLevel)
	override(&c.EpisodeServerURL, file.EpisodeServerURL)
	override(&c.MovieServerURL, file.MovieServerURL)
	override(&c.Transcode, file.Transcode)
	override(&c.Hardware, file.Hardware)
	override(&c.GuideDays, file.GuideDays)
	override(&c.TunerCount, file.TunerCount)
	override(&c.Location, file.Location)

	if file.OriginTimeout != nil {
		c.OriginTimeout = time.Duration(*file.OriginTimeout)
	}
	if file.DetectTTL != nil {
		c.DetectTTL = time.Duration(*file.DetectTTL)
	}
	if file.GracePeriod != nil {
		c.GracePeriod = time.Duration(*file.GracePeriod)
	}

	return nil
}

func override[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrBaseURLRequired
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if c.EpisodeServerURL == "" && c.MovieServerURL == "" {
		return ErrOriginRequired
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	if c.GracePeriod <= 0 {
		return ErrGracePositive
	}

	if c.GuideDays <= 0 {
		return ErrGuideDaysPositive
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %s (must be debug, info, warn, or error)", ErrInvalidLogLevel, c.LogLevel)
	}

	validHardware := map[string]bool{
		"auto":         true,
		"none":         true,
		"nvidia":       true,
		"intel":        true,
		"amd":          true,
		"videotoolbox": true,
	}
	if !validHardware[c.Hardware] {
		return fmt.Errorf("%w: %s", ErrInvalidHardware, c.Hardware)
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
