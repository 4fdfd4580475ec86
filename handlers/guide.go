// Package handlers provides the HTTP surface of the broadcast emulator:
// guide and playlist formatters, the stream endpoint, HDHomeRun tuner
// emulation and debug reports.
package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/airwavetv/airwave/internal/channel"
	"github.com/airwavetv/airwave/internal/guide"
)

// Store is the schedule access the handlers need.
type Store interface {
	Channels() ([]channel.Channel, error)
	Channel(number int) (channel.Channel, bool, error)
	ScheduleWindow(channelNumber int, now time.Time) ([]channel.Program, error)
	ProgramsBetween(from, to time.Time) (map[int][]channel.Program, error)
	Lint() ([]channel.Issue, error)
}

// How far back the guide reaches so the active program is always included.
const guideLookback = 4 * time.Hour

// GuideHandler serves the XMLTV guide at /guide.xml.
type GuideHandler struct {
	store    Store
	days     int
	location *time.Location
	logger   *logrus.Logger
}

// NewGuideHandler creates a guide handler covering the given number of days.
func NewGuideHandler(store Store, days int, location *time.Location, logger *logrus.Logger) *GuideHandler {
	if location == nil {
		location = time.Local
	}
	return &GuideHandler{
		store:    store,
		days:     days,
		location: location,
		logger:   logger,
	}
}

func (h *GuideHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()

	channels, err := h.store.Channels()
	if err != nil {
		h.logger.WithError(err).Error("Failed to load channels for guide")
		http.Error(w, "Failed to load channels", http.StatusInternalServerError)
		return
	}

	programs, err := h.store.ProgramsBetween(now.Add(-guideLookback), now.AddDate(0, 0, h.days))
	if err != nil {
		h.logger.WithError(err).Error("Failed to load programs for guide")
		http.Error(w, "Failed to load programs", http.StatusInternalServerError)
		return
	}

	doc, err := guide.RenderXMLTV(channels, programs, now, guide.XMLTVOptions{Location: h.location})
	if err != nil {
		h.logger.WithError(err).Error("Failed to render guide")
		http.Error(w, "Failed to render guide", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(doc)
}
