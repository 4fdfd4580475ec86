// Package guide renders schedule state as the externally consumed playlist
// and guide documents. Every format derives from the same timing source so
// they never disagree about what is currently on air.
package guide

import (
	"encoding/xml"
	"fmt"
	"sort"
	"time"

	"github.com/airwavetv/airwave/internal/channel"
	"github.com/airwavetv/airwave/internal/timing"
)

// xmltvTimeFormat emits local wall time paired with its UTC offset so a
// consumer in another zone can convert unambiguously.
const xmltvTimeFormat = "20060102150405 -0700"

// TV is the root element of an XMLTV document.
type TV struct {
	XMLName       xml.Name       `xml:"tv"`
	GeneratorName string         `xml:"generator-info-name,attr"`
	GeneratorURL  string         `xml:"generator-info-url,attr,omitempty"`
	SourceName    string         `xml:"source-info-name,attr,omitempty"`
	Channels      []XMLChannel   `xml:"channel"`
	Programmes    []XMLProgramme `xml:"programme"`
}

// XMLChannel is one channel entry in an XMLTV document.
type XMLChannel struct {
	ID          string   `xml:"id,attr"`
	DisplayName string   `xml:"display-name"`
	Icon        *XMLIcon `xml:"icon"`
}

// XMLIcon is a channel or programme icon.
type XMLIcon struct {
	Src string `xml:"src,attr"`
}

// XMLProgramme is one scheduled program in an XMLTV document. The live and
// previously-shown markers are derived from the timing engine at render
// time.
type XMLProgramme struct {
	Channel         string    `xml:"channel,attr"`
	Start           string    `xml:"start,attr"`
	Stop            string    `xml:"stop,attr"`
	Title           string    `xml:"title"`
	Icon            *XMLIcon  `xml:"icon"`
	Live            *struct{} `xml:"live"`
	PreviouslyShown *struct{} `xml:"previously-shown"`
}

// XMLTVOptions configures guide document rendering.
type XMLTVOptions struct {
	// Location is the zone programme times are expressed in. Defaults to
	// the host local zone.
	Location *time.Location
	// GeneratorURL is emitted as provenance metadata.
	GeneratorURL string
}

// RenderXMLTV produces an XMLTV guide for all non-stealth channels over the
// given program sets. The output is a pure function of the schedule snapshot
// and the instant: regenerating with an unchanged schedule only ever moves
// the on-air marker forward.
func RenderXMLTV(channels []channel.Channel, programs map[int][]channel.Program, now time.Time, opts XMLTVOptions) ([]byte, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	doc := TV{
		GeneratorName: "airwave",
		GeneratorURL:  opts.GeneratorURL,
		SourceName:    "airwave",
	}

	sorted := make([]channel.Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.Stealth {
			continue
		}
		sorted = append(sorted, ch)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	marker := struct{}{}
	for _, ch := range sorted {
		id := fmt.Sprintf("%d", ch.Number)

		xmlCh := XMLChannel{ID: id, DisplayName: ch.Name}
		if ch.Icon != "" {
			xmlCh.Icon = &XMLIcon{Src: ch.Icon}
		}
		doc.Channels = append(doc.Channels, xmlCh)

		for _, p := range programs[ch.Number] {
			prog := XMLProgramme{
				Channel: id,
				Start:   p.Start.In(loc).Format(xmltvTimeFormat),
				Stop:    p.End().In(loc).Format(xmltvTimeFormat),
				Title:   p.Title,
			}
			if p.Icon != "" {
				prog.Icon = &XMLIcon{Src: p.Icon}
			}

			r := timing.Resolve(p.Start, p.Duration, now)
			switch {
			case r.Active:
				prog.Live = &marker
			case now.After(p.End()):
				prog.PreviouslyShown = &marker
			}

			doc.Programmes = append(doc.Programmes, prog)
		}
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding guide: %w", err)
	}

	return append([]byte(xml.Header), body...), nil
}
