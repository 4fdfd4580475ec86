package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/airwavetv/airwave/internal/channel"
	"github.com/airwavetv/airwave/internal/guide"
	"github.com/airwavetv/airwave/internal/origin"
	"github.com/airwavetv/airwave/internal/playout"
)

// PartResolver resolves a content reference into a fetchable media part.
type PartResolver interface {
	ResolvePart(ref channel.ContentRef) (origin.Part, error)
}

// PlaylistHandler serves the full channel lineup at /playlist.m3u.
type PlaylistHandler struct {
	store   Store
	baseURL string
	logger  *logrus.Logger
}

// NewPlaylistHandler creates a lineup playlist handler.
func NewPlaylistHandler(store Store, baseURL string, logger *logrus.Logger) *PlaylistHandler {
	return &PlaylistHandler{store: store, baseURL: baseURL, logger: logger}
}

func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	channels, err := h.store.Channels()
	if err != nil {
		h.logger.WithError(err).Error("Failed to load channels for playlist")
		http.Error(w, "Failed to load channels", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/x-mpegurl")
	_, _ = w.Write(guide.Lineup(channels, h.baseURL))
}

// ChannelPlaylistHandler serves one channel's near-term live playlist at
// /channels/{number}/playlist.m3u, with durations reflecting what actually
// remains of the active program.
type ChannelPlaylistHandler struct {
	store   Store
	baseURL string
	logger  *logrus.Logger
}

// NewChannelPlaylistHandler creates a per-channel live playlist handler.
func NewChannelPlaylistHandler(store Store, baseURL string, logger *logrus.Logger) *ChannelPlaylistHandler {
	return &ChannelPlaylistHandler{store: store, baseURL: baseURL, logger: logger}
}

func (h *ChannelPlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ch, ok := lookupChannel(w, r, h.store, h.logger)
	if !ok {
		return
	}

	now := time.Now()
	programs, err := h.store.ScheduleWindow(ch.Number, now)
	if err != nil {
		h.logger.WithError(err).WithField("channel", ch.Number).Error("Failed to load schedule")
		http.Error(w, "Failed to load schedule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/x-mpegurl")
	_, _ = w.Write(guide.LivePlaylist(ch, programs, now, h.baseURL))
}

// OnDemandHandler serves a single-entry playlist for the channel's active
// program at /channels/{number}/ondemand.m3u. The entry carries the full
// media duration and a seek parameter so a client can start playback at the
// live position but still scrub the whole file.
type OnDemandHandler struct {
	store    Store
	resolver *playout.Resolver
	parts    PartResolver
	baseURL  string
	logger   *logrus.Logger
}

// NewOnDemandHandler creates an on-demand playlist handler.
func NewOnDemandHandler(store Store, resolver *playout.Resolver, parts PartResolver, baseURL string, logger *logrus.Logger) *OnDemandHandler {
	return &OnDemandHandler{
		store:    store,
		resolver: resolver,
		parts:    parts,
		baseURL:  baseURL,
		logger:   logger,
	}
}

func (h *OnDemandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ch, ok := lookupChannel(w, r, h.store, h.logger)
	if !ok {
		return
	}

	now := time.Now()
	decision, onAir, err := h.resolver.Resolve(ch.Number, now)
	if err != nil {
		h.logger.WithError(err).WithField("channel", ch.Number).Error("Failed to resolve playout")
		http.Error(w, "Failed to resolve playout", http.StatusInternalServerError)
		return
	}
	if !onAir {
		http.Error(w, "Channel is off air", http.StatusNotFound)
		return
	}

	part, err := h.parts.ResolvePart(decision.Program.Content)
	if err != nil {
		h.logger.WithError(err).WithField("channel", ch.Number).Error("Failed to resolve media part")
		http.Error(w, "Failed to resolve media", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "audio/x-mpegurl")
	_, _ = w.Write(guide.OnDemandPlaylist(ch, decision.Program, part.Duration, decision.Timing.SeekOffset, h.baseURL))
}

// lookupChannel parses the {number} route parameter and loads the channel,
// writing the error response itself when either step fails.
func lookupChannel(w http.ResponseWriter, r *http.Request, store Store, logger *logrus.Logger) (channel.Channel, bool) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		http.Error(w, "Invalid channel number", http.StatusBadRequest)
		return channel.Channel{}, false
	}

	ch, found, err := store.Channel(number)
	if err != nil {
		logger.WithError(err).WithField("channel", number).Error("Failed to load channel")
		http.Error(w, "Failed to load channel", http.StatusInternalServerError)
		return channel.Channel{}, false
	}
	if !found {
		http.Error(w, "Unknown channel", http.StatusNotFound)
		return channel.Channel{}, false
	}

	return ch, true
}
