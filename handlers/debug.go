package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/airwavetv/airwave/internal/channel"
	"github.com/airwavetv/airwave/internal/profile"
	"github.com/airwavetv/airwave/internal/types"
)

// SystemSource exposes the cached hardware inspection and the profile smoke
// test for debugging.
type SystemSource interface {
	SystemInfo() (profile.SystemInfo, error)
	Profile() (types.TranscodeProfile, error)
	Test(types.TranscodeProfile) (time.Duration, error)
	Invalidate()
}

// scheduleReport is the /debug/schedule.json payload.
type scheduleReport struct {
	Issues []channel.Issue `json:"issues"`
	Count  int             `json:"count"`
}

// ScheduleDebugHandler reports schedule defects at /debug/schedule.json.
// Defects are surfaced for the operator, never repaired.
func ScheduleDebugHandler(store Store, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		issues, err := store.Lint()
		if err != nil {
			logger.WithError(err).Error("Failed to lint schedule")
			http.Error(w, "Failed to lint schedule", http.StatusInternalServerError)
			return
		}

		report := scheduleReport{Issues: issues, Count: len(issues)}
		if report.Issues == nil {
			report.Issues = []channel.Issue{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			logger.WithError(err).Error("Failed to encode schedule report")
		}
	}
}

// encodeTest is the outcome of one synthetic encode through the resolved
// profile. A failing encode is part of the report, not an HTTP error.
type encodeTest struct {
	ElapsedMs int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

// hardwareReport is the /debug/hardware.json payload.
type hardwareReport struct {
	profile.SystemInfo
	EncodeTest *encodeTest `json:"encode_test,omitempty"`
}

// HardwareDebugHandler reports the detected transcode environment at
// /debug/hardware.json. Passing ?refresh=1 drops the cached detection and
// inspects the host again; ?test=1 additionally runs a short synthetic
// encode through the resolved profile and reports its latency.
func HardwareDebugHandler(system SystemSource, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("refresh") == "1" {
			system.Invalidate()
		}

		info, err := system.SystemInfo()
		if err != nil {
			logger.WithError(err).Error("Failed to inspect transcode environment")
			http.Error(w, "Failed to inspect transcode environment", http.StatusServiceUnavailable)
			return
		}

		report := hardwareReport{SystemInfo: info}

		if r.URL.Query().Get("test") == "1" {
			report.EncodeTest = runEncodeTest(system, logger)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report); err != nil {
			logger.WithError(err).Error("Failed to encode hardware report")
		}
	}
}

func runEncodeTest(system SystemSource, logger *logrus.Logger) *encodeTest {
	p, err := system.Profile()
	if err != nil {
		return &encodeTest{Error: err.Error()}
	}

	elapsed, err := system.Test(p)
	if err != nil {
		logger.WithError(err).Warn("Profile smoke test failed")
		return &encodeTest{Error: err.Error()}
	}

	logger.WithField("elapsed", elapsed.String()).Info("Profile smoke test passed")
	return &encodeTest{ElapsedMs: elapsed.Milliseconds()}
}
