package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/airwavetv/airwave/internal/buffer"
	"github.com/airwavetv/airwave/internal/metrics"
	"github.com/airwavetv/airwave/internal/origin"
	"github.com/airwavetv/airwave/internal/pipeline"
	"github.com/airwavetv/airwave/internal/playout"
	"github.com/airwavetv/airwave/internal/types"
)

// ringSize bounds how far the transcoder may run ahead of a slow client.
const ringSize = 4 * 1024 * 1024

// ProfileSource supplies the resolved transcode profile.
type ProfileSource interface {
	Profile() (types.TranscodeProfile, error)
}

// StreamHandler serves the live transport stream for a channel at
// /channels/{number}/video. Each request snapshots the wall clock once, so
// every decision along the way agrees on what "now" means.
type StreamHandler struct {
	store    Store
	resolver *playout.Resolver
	parts    PartResolver
	profiles ProfileSource
	metrics  *metrics.Metrics
	grace    time.Duration
	logger   *logrus.Logger
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(store Store, resolver *playout.Resolver, parts PartResolver, profiles ProfileSource, m *metrics.Metrics, grace time.Duration, logger *logrus.Logger) *StreamHandler {
	return &StreamHandler{
		store:    store,
		resolver: resolver,
		parts:    parts,
		profiles: profiles,
		metrics:  m,
		grace:    grace,
		logger:   logger,
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ch, ok := lookupChannel(w, r, h.store, h.logger)
	if !ok {
		return
	}

	now := time.Now()
	log := h.logger.WithField("channel", ch.Number)

	prof, err := h.profiles.Profile()
	if err != nil {
		log.WithError(err).Error("Failed to resolve transcode profile")
		http.Error(w, "Transcoder unavailable", http.StatusServiceUnavailable)
		return
	}

	args, err := h.buildArgs(ch.Number, now, r.URL.Query().Get("seek"), prof, log)
	if err != nil {
		// buildArgs has already classified the failure.
		var httpErr *streamError
		if errors.As(err, &httpErr) {
			http.Error(w, httpErr.message, httpErr.status)
		} else {
			http.Error(w, "Failed to start stream", http.StatusInternalServerError)
		}
		return
	}

	session, err := pipeline.Start(r.Context(), prof.FFmpegPath, args, h.grace, h.logger)
	if err != nil {
		log.WithError(err).Error("Failed to start transcoder")
		http.Error(w, "Failed to start transcoder", http.StatusInternalServerError)
		return
	}
	defer func() { _ = session.Close() }()

	h.metrics.ActiveSessions.Inc()
	defer h.metrics.ActiveSessions.Dec()
	h.metrics.TunedChannels.WithLabelValues(strconv.Itoa(ch.Number)).Inc()

	w.Header().Set("Content-Type", "video/mp2t")
	w.WriteHeader(http.StatusOK)

	ring := buffer.NewRing(ringSize)
	// Closing the ring on the way out unblocks a pump stuck writing to a
	// full buffer after the client has gone.
	defer ring.Close()
	go buffer.Pump(r.Context(), ring, session, h.logger)

	written := h.copyToClient(w, ring)
	h.metrics.StreamBytes.Add(float64(written))

	log.WithField("bytes", written).Debug("Stream finished")
	if err := session.Err(); err != nil && r.Context().Err() == nil {
		log.WithError(err).WithField("stderr", session.Diagnostics()).Warn("Transcoder exited with error")
	}
}

// buildArgs resolves the playout decision into a transcoder invocation. An
// on-air channel streams the active program from its live seek position; an
// off-air channel streams a filler slate bounded by the next program start.
func (h *StreamHandler) buildArgs(channelNumber int, now time.Time, seekParam string, prof types.TranscodeProfile, log *logrus.Entry) ([]string, error) {
	decision, onAir, err := h.resolver.Resolve(channelNumber, now)
	if err != nil {
		log.WithError(err).Error("Failed to resolve playout")
		return nil, &streamError{status: http.StatusInternalServerError, message: "Failed to resolve playout"}
	}

	if !onAir {
		programs, err := h.store.ScheduleWindow(channelNumber, now)
		if err != nil {
			log.WithError(err).Error("Failed to load schedule for filler")
			return nil, &streamError{status: http.StatusInternalServerError, message: "Failed to load schedule"}
		}

		var until time.Duration
		if next, ok := playout.NextUp(programs, now); ok {
			until = next.Start.Sub(now)
		}

		log.WithField("until", until).Info("Channel off air, streaming filler")
		return pipeline.BuildOffAirArgs(until, prof), nil
	}

	part, err := h.parts.ResolvePart(decision.Program.Content)
	if err != nil {
		log.WithError(err).WithField("program", decision.Program.Title).Error("Failed to resolve media part")
		if errors.Is(err, origin.ErrPartNotFound) {
			return nil, &streamError{status: http.StatusNotFound, message: "Media not found on origin"}
		}
		return nil, &streamError{status: http.StatusBadGateway, message: "Failed to resolve media"}
	}

	seek := decision.Timing.SeekOffset
	if seekParam != "" {
		secs, err := strconv.Atoi(seekParam)
		if err != nil || secs < 0 {
			return nil, &streamError{status: http.StatusBadRequest, message: "Invalid seek parameter"}
		}
		seek = time.Duration(secs) * time.Second
	}

	log.WithFields(logrus.Fields{
		"program": decision.Program.Title,
		"seek":    seek.String(),
	}).Info("Starting stream")

	return pipeline.BuildArgs(part, seek, prof), nil
}

// copyToClient drains the ring to the response, flushing after each chunk so
// the transport stream is delivered with low latency.
func (h *StreamHandler) copyToClient(w http.ResponseWriter, ring *buffer.Ring) int64 {
	flusher, _ := w.(http.Flusher)

	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, err := ring.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return written
			}
			written += int64(n)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.WithError(err).Debug("Ring read failed")
			}
			return written
		}
	}
}

// streamError carries an HTTP classification for a stream setup failure.
type streamError struct {
	status  int
	message string
}

func (e *streamError) Error() string {
	return e.message
}
