package buffer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRingRoundTrip(t *testing.T) {
	ring := NewRing(16)

	if _, err := ring.Write([]byte("hello world")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	buf := make([]byte, 32)
	n, err := ring.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(buf[:n]) != "hello world" {
		t.Errorf("Expected 'hello world', got %q", buf[:n])
	}
}

func TestRingWrapAround(t *testing.T) {
	ring := NewRing(8)
	payload := "abcdefghijklmnopqrstuvwxyz"

	var got bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, 3)
		for {
			n, err := ring.Read(buf)
			if n > 0 {
				got.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	if _, err := ring.Write([]byte(payload)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	ring.Close()
	wg.Wait()

	if got.String() != payload {
		t.Errorf("Expected %q after wrap-around, got %q", payload, got.String())
	}
}

func TestRingCloseUnblocksReader(t *testing.T) {
	ring := NewRing(8)

	done := make(chan error, 1)
	go func() {
		_, err := ring.Read(make([]byte, 4))
		done <- err
	}()

	ring.Close()

	select {
	case err := <-done:
		if !errors.Is(err, io.EOF) {
			t.Errorf("Expected EOF from closed empty ring, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Reader was not unblocked by Close")
	}
}

func TestRingWriteAfterClose(t *testing.T) {
	ring := NewRing(8)
	ring.Close()

	if _, err := ring.Write([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestPumpForwardsUntilEOF(t *testing.T) {
	ring := NewRing(8)
	src := strings.NewReader("stream data flows here")

	go Pump(context.Background(), ring, src, quietLogger())

	out, err := io.ReadAll(ring)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(out) != "stream data flows here" {
		t.Errorf("Expected full payload, got %q", out)
	}
}

// endlessReader always has more data; only cancellation stops a pump fed
// by it.
type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestPumpStopsOnCancel(t *testing.T) {
	ring := NewRing(64)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Pump(ctx, ring, endlessReader{}, quietLogger())
		close(done)
	}()

	// Drain so a blocked ring write cannot delay pump exit.
	go func() { _, _ = io.Copy(io.Discard, ring) }()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pump did not stop after cancellation")
	}
}
