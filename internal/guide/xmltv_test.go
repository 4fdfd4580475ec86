package guide

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/airwavetv/airwave/internal/channel"
)

var base = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func guideFixture() ([]channel.Channel, map[int][]channel.Program) {
	channels := []channel.Channel{
		{Number: 2, Name: "Retro Movies", Icon: "http://example/2.png"},
		{Number: 1, Name: "Sitcom Gold"},
		{Number: 9, Name: "Hidden", Stealth: true},
	}
	programs := map[int][]channel.Program{
		1: {
			{ChannelNumber: 1, Title: "Past Show", Start: base.Add(-2 * time.Hour), Duration: time.Hour},
			{ChannelNumber: 1, Title: "Current Show", Start: base.Add(-10 * time.Minute), Duration: time.Hour},
			{ChannelNumber: 1, Title: "Next Show", Start: base.Add(time.Hour), Duration: time.Hour},
		},
		2: {
			{ChannelNumber: 2, Title: "Feature Film", Start: base, Duration: 2 * time.Hour},
		},
	}
	return channels, programs
}

func TestRenderXMLTVMarkers(t *testing.T) {
	channels, programs := guideFixture()

	out, err := RenderXMLTV(channels, programs, base, XMLTVOptions{Location: time.UTC})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	doc := string(out)

	// The on-air programme carries a live marker; the finished one is
	// previously shown; the upcoming one carries neither.
	currentIdx := strings.Index(doc, "Current Show")
	if currentIdx == -1 {
		t.Fatal("Missing current programme")
	}
	currentBlock := doc[strings.LastIndex(doc[:currentIdx], "<programme"):]
	currentBlock = currentBlock[:strings.Index(currentBlock, "</programme>")]
	if !strings.Contains(currentBlock, "<live>") {
		t.Error("Expected live marker on the on-air programme")
	}

	pastIdx := strings.Index(doc, "Past Show")
	pastBlock := doc[strings.LastIndex(doc[:pastIdx], "<programme"):]
	pastBlock = pastBlock[:strings.Index(pastBlock, "</programme>")]
	if !strings.Contains(pastBlock, "<previously-shown>") {
		t.Error("Expected previously-shown marker on the ended programme")
	}

	nextIdx := strings.Index(doc, "Next Show")
	nextBlock := doc[strings.LastIndex(doc[:nextIdx], "<programme"):]
	nextBlock = nextBlock[:strings.Index(nextBlock, "</programme>")]
	if strings.Contains(nextBlock, "<live>") || strings.Contains(nextBlock, "<previously-shown>") {
		t.Error("Expected no marker on an upcoming programme")
	}
}

func TestRenderXMLTVTimesCarryOffset(t *testing.T) {
	channels, programs := guideFixture()
	loc := time.FixedZone("AEST", 10*3600)

	out, err := RenderXMLTV(channels, programs, base, XMLTVOptions{Location: loc})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// 20:00 UTC is 06:00 +1000 the next day.
	if !strings.Contains(string(out), `start="20260315060000 +1000"`) {
		t.Errorf("Expected local wall time with UTC offset, got:\n%s", out)
	}
}

func TestRenderXMLTVSkipsStealthChannels(t *testing.T) {
	channels, programs := guideFixture()

	out, err := RenderXMLTV(channels, programs, base, XMLTVOptions{Location: time.UTC})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if strings.Contains(string(out), "Hidden") {
		t.Error("Expected stealth channel to be excluded from the guide")
	}
}

func TestRenderXMLTVDeterministic(t *testing.T) {
	channels, programs := guideFixture()

	first, err := RenderXMLTV(channels, programs, base, XMLTVOptions{Location: time.UTC})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	second, err := RenderXMLTV(channels, programs, base, XMLTVOptions{Location: time.UTC})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("Expected identical bytes for identical snapshot and instant")
	}
}

func TestRenderXMLTVChannelOrder(t *testing.T) {
	channels, programs := guideFixture()

	out, err := RenderXMLTV(channels, programs, base, XMLTVOptions{Location: time.UTC})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	doc := string(out)
	if strings.Index(doc, "Sitcom Gold") > strings.Index(doc, "Retro Movies") {
		t.Error("Expected channels ordered by number")
	}
}
