package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/airwavetv/airwave/config"
	"github.com/airwavetv/airwave/internal/metrics"
	"github.com/airwavetv/airwave/internal/playout"
)

// Deps collects everything the HTTP surface is built from.
type Deps struct {
	Config   *config.Config
	Store    Store
	Resolver *playout.Resolver
	Parts    PartResolver
	Profiles ProfileSource
	System   SystemSource
	Metrics  *metrics.Metrics
	Location *time.Location
	Logger   *logrus.Logger
}

// NewRouter assembles the full route table.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware(d.Logger))
	r.Use(MetricsMiddleware(d.Metrics))

	// HDHomeRun tuner emulation.
	r.Get("/", RootXMLHandler(d.Config))
	r.Get("/device.xml", RootXMLHandler(d.Config))
	r.Get("/discover.json", DiscoveryHandler(d.Config))
	r.Get("/lineup.json", LineupHandler(d.Config, d.Store, d.Logger))
	r.Get("/lineup_status.json", LineupStatusHandler())

	// Guide and playlists.
	r.Method(http.MethodGet, "/guide.xml", NewGuideHandler(d.Store, d.Config.GuideDays, d.Location, d.Logger))
	r.Method(http.MethodGet, "/playlist.m3u", NewPlaylistHandler(d.Store, d.Config.BaseURL, d.Logger))

	r.Route("/channels/{number}", func(r chi.Router) {
		r.Method(http.MethodGet, "/playlist.m3u", NewChannelPlaylistHandler(d.Store, d.Config.BaseURL, d.Logger))
		r.Method(http.MethodGet, "/ondemand.m3u", NewOnDemandHandler(d.Store, d.Resolver, d.Parts, d.Config.BaseURL, d.Logger))
		r.Method(http.MethodGet, "/video", NewStreamHandler(d.Store, d.Resolver, d.Parts, d.Profiles, d.Metrics, d.Config.GracePeriod, d.Logger))
	})

	// Operator surface.
	r.Get("/debug/schedule.json", ScheduleDebugHandler(d.Store, d.Logger))
	r.Get("/debug/hardware.json", HardwareDebugHandler(d.System, d.Logger))
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
