package handlers

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/airwavetv/airwave/config"
)

// DeviceXML represents the UPnP device description.
type DeviceXML struct {
	XMLName     xml.Name `xml:"root"`
	Xmlns       string   `xml:"xmlns,attr"`
	URLBase     string   `xml:"URLBase"`
	SpecVersion SpecVersion
	Device      Device
}

// SpecVersion represents the UPnP spec version.
type SpecVersion struct {
	Major int `xml:"major"`
	Minor int `xml:"minor"`
}

// Device represents the UPnP device information.
type Device struct {
	DeviceType   string `xml:"deviceType"`
	FriendlyName string `xml:"friendlyName"`
	Manufacturer string `xml:"manufacturer"`
	ModelName    string `xml:"modelName"`
	ModelNumber  string `xml:"modelNumber"`
	SerialNumber string `xml:"serialNumber"`
	UDN          string `xml:"UDN"`
}

// DiscoveryJSON represents the device discovery response.
type DiscoveryJSON struct {
	FriendlyName    string `json:"FriendlyName"`
	Manufacturer    string `json:"Manufacturer"`
	ManufacturerURL string `json:"ManufacturerURL"`
	ModelNumber     string `json:"ModelNumber"`
	FirmwareName    string `json:"FirmwareName"`
	TunerCount      int    `json:"TunerCount"`
	FirmwareVersion string `json:"FirmwareVersion"`
	DeviceID        string `json:"DeviceID"`
	DeviceAuth      string `json:"DeviceAuth"`
	BaseURL         string `json:"BaseURL"`
	LineupURL       string `json:"LineupURL"`
}

// LineupItem represents a channel in the lineup.
type LineupItem struct {
	GuideNumber string `json:"GuideNumber"`
	GuideName   string `json:"GuideName"`
	URL         string `json:"URL"`
}

// LineupStatus represents the lineup scanning status.
type LineupStatus struct {
	ScanInProgress int      `json:"ScanInProgress"`
	ScanPossible   int      `json:"ScanPossible"`
	Source         string   `json:"Source"`
	SourceList     []string `json:"SourceList"`
}

// RootXMLHandler serves the UPnP device description at /device.xml so DVR
// software discovers the emulator as an HDHomeRun tuner.
func RootXMLHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		device := DeviceXML{
			Xmlns:   "urn:schemas-upnp-org:device-1-0",
			URLBase: cfg.BaseURL,
			SpecVersion: SpecVersion{
				Major: 1,
				Minor: 0,
			},
			Device: Device{
				DeviceType:   "urn:schemas-upnp-org:device:MediaServer:1",
				FriendlyName: "Airwave",
				Manufacturer: "Silicondust",
				ModelName:    "HDTC-2US",
				ModelNumber:  "HDTC-2US",
				SerialNumber: "",
				UDN:          "uuid:2026-01-AIRWAVE01",
			},
		}

		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write([]byte(xml.Header)); err != nil {
			return
		}

		encoder := xml.NewEncoder(w)
		encoder.Indent("", "  ")
		_ = encoder.Encode(device)
	}
}

// DiscoveryHandler serves device discovery JSON at /discover.json.
func DiscoveryHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		discovery := DiscoveryJSON{
			FriendlyName:    "Airwave",
			Manufacturer:    "Silicondust",
			ManufacturerURL: "https://github.com/airwavetv/airwave",
			ModelNumber:     "HDTC-2US",
			FirmwareName:    "hdhomeruntc_atsc",
			TunerCount:      cfg.TunerCount,
			FirmwareVersion: "20200101",
			DeviceID:        "2026-01-AIRWAVE01",
			DeviceAuth:      "airwave",
			BaseURL:         cfg.BaseURL,
			LineupURL:       fmt.Sprintf("%s/lineup.json", cfg.BaseURL),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(discovery); err != nil {
			http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
			return
		}
	}
}

// LineupHandler serves the channel lineup at /lineup.json. Stealth channels
// stream but are hidden from the lineup.
func LineupHandler(cfg *config.Config, store Store, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		channels, err := store.Channels()
		if err != nil {
			logger.WithError(err).Error("Failed to load channels for lineup")
			http.Error(w, "Failed to load channels", http.StatusInternalServerError)
			return
		}

		lineup := make([]LineupItem, 0, len(channels))
		for _, ch := range channels {
			if ch.Stealth {
				continue
			}
			lineup = append(lineup, LineupItem{
				GuideNumber: fmt.Sprintf("%d", ch.Number),
				GuideName:   ch.Name,
				URL:         fmt.Sprintf("%s/channels/%d/video", cfg.BaseURL, ch.Number),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(lineup); err != nil {
			http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
			return
		}
	}
}

// LineupStatusHandler serves the lineup scanning status at /lineup_status.json.
func LineupStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := LineupStatus{
			ScanInProgress: 0,
			ScanPossible:   0,
			Source:         "Cable",
			SourceList:     []string{"Cable"},
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(status); err != nil {
			http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
			return
		}
	}
}
