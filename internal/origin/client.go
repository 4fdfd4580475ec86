// Package origin resolves a program's content reference into a directly
// fetchable media part on the origin media server.
package origin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/airwavetv/airwave/internal/channel"
)

var (
	// ErrOriginUnreachable is returned when the origin server cannot be
	// reached at the network level.
	ErrOriginUnreachable = errors.New("origin server unreachable")
	// ErrPartNotFound is returned when the origin server does not know the
	// requested media item.
	ErrPartNotFound = errors.New("media part not found")
	// ErrNoServer is returned when a content reference carries no server
	// and no default is configured for its kind.
	ErrNoServer = errors.New("no origin server for content reference")
)

// Part is a concrete, directly fetchable media part.
type Part struct {
	URL      string
	Duration time.Duration
}

// Config holds the default origin servers per content kind, used when a
// reference does not carry its own server. This is the only variant-specific
// lookup in the system.
type Config struct {
	EpisodeServerURL string
	MovieServerURL   string
	Timeout          time.Duration
}

// Client talks to Plex-convention origin servers.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *logrus.Logger
}

// NewClient creates an origin client with a bounded request timeout.
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// metadataResponse is the subset of the origin metadata document we read.
type metadataResponse struct {
	MediaContainer struct {
		Metadata []struct {
			Media []struct {
				Duration int64 `json:"duration"`
				Part     []struct {
					Key      string `json:"key"`
					Duration int64  `json:"duration"`
				} `json:"Part"`
			} `json:"Media"`
		} `json:"Metadata"`
	} `json:"MediaContainer"`
}

// ResolvePart asks the origin system for the concrete media part and its
// total duration. Unreachable servers and unknown items are distinguishable
// through errors.Is.
func (c *Client) ResolvePart(ref channel.ContentRef) (Part, error) {
	server, err := c.serverFor(ref)
	if err != nil {
		return Part{}, err
	}

	metadataURL := fmt.Sprintf("%s/library/metadata/%s", server, url.PathEscape(ref.RatingKey))

	req, err := http.NewRequest(http.MethodGet, metadataURL, nil)
	if err != nil {
		return Part{}, fmt.Errorf("building metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ref.AuthToken != "" {
		req.Header.Set("X-Plex-Token", ref.AuthToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Part{}, fmt.Errorf("%w: %v", ErrOriginUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Part{}, fmt.Errorf("%w: rating key %s", ErrPartNotFound, ref.RatingKey)
	case resp.StatusCode != http.StatusOK:
		return Part{}, fmt.Errorf("origin returned status %d for rating key %s", resp.StatusCode, ref.RatingKey)
	}

	var meta metadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return Part{}, fmt.Errorf("decoding origin metadata: %w", err)
	}

	if len(meta.MediaContainer.Metadata) == 0 || len(meta.MediaContainer.Metadata[0].Media) == 0 {
		return Part{}, fmt.Errorf("%w: no media for rating key %s", ErrPartNotFound, ref.RatingKey)
	}
	media := meta.MediaContainer.Metadata[0].Media[0]
	if len(media.Part) == 0 || media.Part[0].Key == "" {
		return Part{}, fmt.Errorf("%w: no part for rating key %s", ErrPartNotFound, ref.RatingKey)
	}

	part := media.Part[0]
	durationMs := part.Duration
	if durationMs == 0 {
		durationMs = media.Duration
	}

	partURL := server + part.Key
	if ref.AuthToken != "" {
		partURL += "?X-Plex-Token=" + url.QueryEscape(ref.AuthToken)
	}

	c.logger.WithFields(logrus.Fields{
		"ratingKey": ref.RatingKey,
		"duration":  durationMs,
	}).Debug("Resolved media part")

	return Part{
		URL:      partURL,
		Duration: time.Duration(durationMs) * time.Millisecond,
	}, nil
}

// serverFor picks the origin server: the reference's own server when set,
// the configured per-kind default otherwise.
func (c *Client) serverFor(ref channel.ContentRef) (string, error) {
	server := ref.ServerURL
	if server == "" {
		switch ref.Kind {
		case channel.ContentEpisode:
			server = c.cfg.EpisodeServerURL
		case channel.ContentMovie:
			server = c.cfg.MovieServerURL
		}
	}

	if server == "" {
		return "", fmt.Errorf("%w: kind %s", ErrNoServer, ref.Kind)
	}

	return strings.TrimRight(server, "/"), nil
}
