// Package main implements the airwave broadcast channel emulator.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/airwavetv/airwave/config"
	"github.com/airwavetv/airwave/handlers"
	"github.com/airwavetv/airwave/internal/hardware"
	"github.com/airwavetv/airwave/internal/metrics"
	"github.com/airwavetv/airwave/internal/origin"
	"github.com/airwavetv/airwave/internal/playout"
	"github.com/airwavetv/airwave/internal/profile"
	"github.com/airwavetv/airwave/internal/schedule"
	"github.com/airwavetv/airwave/internal/types"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg, err := config.New()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to parse log level")
	}
	logrus.SetLevel(level)

	logger := logrus.StandardLogger()

	location := time.Local
	if cfg.Location != "" {
		location, err = time.LoadLocation(cfg.Location)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load guide timezone")
		}
	}

	store, err := schedule.Open(cfg.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open schedule database")
	}
	defer func() { _ = store.Close() }()

	channels, err := store.Channels()
	if err != nil {
		logger.WithError(err).Fatal("Failed to read schedule database")
	}
	logger.WithField("channels", len(channels)).Info("Schedule database loaded")

	if issues, err := store.Lint(); err != nil {
		logger.WithError(err).Warn("Schedule lint failed")
	} else if len(issues) > 0 {
		logger.WithField("issues", len(issues)).Warn("Schedule has defects, see /debug/schedule.json")
	}

	detector := hardware.NewDetector(logger)
	profiles := profile.NewResolver(detector, profile.Config{
		TTL:       cfg.DetectTTL,
		Preferred: types.HardwareType(cfg.Hardware),
		Transcode: cfg.Transcode,
	}, logger)

	// Warm the detection cache so the first tune does not pay for it.
	if info, err := profiles.SystemInfo(); err != nil {
		logger.WithError(err).Warn("Transcoder detection failed, streams will be unavailable until it succeeds")
	} else {
		logger.WithFields(logrus.Fields{
			"binary":  info.Binary.Path,
			"version": info.Binary.Version,
		}).Info("Transcoder detected")
	}

	movieServer := cfg.MovieServerURL
	if movieServer == "" {
		movieServer = cfg.EpisodeServerURL
	}
	parts := origin.NewClient(origin.Config{
		EpisodeServerURL: cfg.EpisodeServerURL,
		MovieServerURL:   movieServer,
		Timeout:          cfg.OriginTimeout,
	}, logger)

	router := handlers.NewRouter(handlers.Deps{
		Config:   cfg,
		Store:    store,
		Resolver: playout.NewResolver(store),
		Parts:    parts,
		Profiles: profiles,
		System:   profiles,
		Metrics:  metrics.New(),
		Location: location,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		// No write timeout: streams stay open as long as the client tunes.
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to gracefully shutdown")
		}
	}()

	logger.WithField("port", cfg.Port).Info("Starting airwave server")
	logger.WithField("endpoint", fmt.Sprintf("%s/guide.xml", cfg.BaseURL)).Info("Guide endpoint")
	logger.WithField("endpoint", fmt.Sprintf("%s/playlist.m3u", cfg.BaseURL)).Info("Playlist endpoint")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("Failed to start server")
	}

	<-ctx.Done()
	logger.Info("Server stopped")
}
