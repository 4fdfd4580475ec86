package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Port:             8000,
		BaseURL:          "http://localhost:8000",
		DBPath:           "airwave.db",
		LogLevel:         "info",
		EpisodeServerURL: "http://plex.local:32400",
		OriginTimeout:    10 * time.Second,
		Transcode:        true,
		Hardware:         "auto",
		DetectTTL:        5 * time.Minute,
		GracePeriod:      5 * time.Second,
		GuideDays:        2,
		TunerCount:       2,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "missing base URL",
			modify:  func(c *Config) { c.BaseURL = "" },
			wantErr: ErrBaseURLRequired,
		},
		{
			name: "missing origin servers",
			modify: func(c *Config) {
				c.EpisodeServerURL = ""
				c.MovieServerURL = ""
			},
			wantErr: ErrOriginRequired,
		},
		{
			name:   "movie server alone is enough",
			modify: func(c *Config) { c.EpisodeServerURL = ""; c.MovieServerURL = "http://plex.local:32400" },
		},
		{
			name:    "port too low",
			modify:  func(c *Config) { c.Port = 0 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "port too high",
			modify:  func(c *Config) { c.Port = 70000 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "zero grace period",
			modify:  func(c *Config) { c.GracePeriod = 0 },
			wantErr: ErrGracePositive,
		},
		{
			name:    "zero guide days",
			modify:  func(c *Config) { c.GuideDays = 0 },
			wantErr: ErrGuideDaysPositive,
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "bad hardware preference",
			modify:  func(c *Config) { c.Hardware = "cuda" },
			wantErr: ErrInvalidHardware,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewFromArgs(t *testing.T) {
	cfg, err := NewFromArgs([]string{
		"-base", "http://tv.local:9000",
		"-episode-server", "http://plex.local:32400",
		"-port", "9000",
		"-hardware", "nvidia",
	})
	if err != nil {
		t.Fatalf("NewFromArgs() error = %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.Hardware != "nvidia" {
		t.Errorf("Hardware = %q, want %q", cfg.Hardware, "nvidia")
	}
	if cfg.GracePeriod != 5*time.Second {
		t.Errorf("GracePeriod = %v, want default 5s", cfg.GracePeriod)
	}
}

func TestNewFromArgsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airwave.yaml")
	data := []byte("base_url: http://tv.local:9000\nepisode_server_url: http://plex.local:32400\nport: 9100\nguide_days: 3\norigin_timeout: 15s\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	// An explicit flag outranks the file value.
	cfg, err := NewFromArgs([]string{"-config", path, "-port", "9200"})
	if err != nil {
		t.Fatalf("NewFromArgs() error = %v", err)
	}

	if cfg.Port != 9200 {
		t.Errorf("Port = %d, want flag value 9200", cfg.Port)
	}
	if cfg.GuideDays != 3 {
		t.Errorf("GuideDays = %d, want file value 3", cfg.GuideDays)
	}
	if cfg.BaseURL != "http://tv.local:9000" {
		t.Errorf("BaseURL = %q, want file value", cfg.BaseURL)
	}
	// Durations in the file are human-readable strings.
	if cfg.OriginTimeout != 15*time.Second {
		t.Errorf("OriginTimeout = %v, want file value 15s", cfg.OriginTimeout)
	}
	// Keys absent from the file keep their defaults.
	if cfg.GracePeriod != 5*time.Second {
		t.Errorf("GracePeriod = %v, want default 5s", cfg.GracePeriod)
	}
}
