// Package buffer decouples a transcoder's output pipe from the client
// connection so a slow reader does not stall the producing process.
package buffer

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrClosed is returned when writing to a closed ring.
var ErrClosed = errors.New("ring buffer closed")

// Ring is a bounded, blocking byte ring. One writer (the pump) and one
// reader (the client copy loop); both block when the ring is full or empty
// and are woken by the other side or by Close.
type Ring struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   []byte
	start  int
	length int
	closed bool
}

// NewRing creates a ring holding up to size bytes.
func NewRing(size int) *Ring {
	r := &Ring{data: make([]byte, size)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Write stores p, blocking while the ring is full. Returns ErrClosed once
// the ring has been closed.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	written := 0
	for written < len(p) {
		for r.length == len(r.data) && !r.closed {
			r.cond.Wait()
		}
		if r.closed {
			return written, ErrClosed
		}

		end := (r.start + r.length) % len(r.data)
		chunk := len(r.data) - r.length
		if contiguous := len(r.data) - end; contiguous < chunk {
			chunk = contiguous
		}
		if remaining := len(p) - written; remaining < chunk {
			chunk = remaining
		}

		copy(r.data[end:end+chunk], p[written:written+chunk])
		r.length += chunk
		written += chunk
		r.cond.Broadcast()
	}

	return written, nil
}

// Read fills p with buffered bytes, blocking while the ring is empty.
// Returns io.EOF once the ring is closed and drained.
func (r *Ring) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.length == 0 && !r.closed {
		r.cond.Wait()
	}
	if r.length == 0 {
		return 0, io.EOF
	}

	chunk := r.length
	if contiguous := len(r.data) - r.start; contiguous < chunk {
		chunk = contiguous
	}
	if len(p) < chunk {
		chunk = len(p)
	}

	copy(p[:chunk], r.data[r.start:r.start+chunk])
	r.start = (r.start + chunk) % len(r.data)
	r.length -= chunk
	r.cond.Broadcast()

	return chunk, nil
}

// Buffered returns the number of bytes waiting to be read.
func (r *Ring) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.length
}

// Close wakes any blocked reader and writer. A closed ring rejects writes
// and drains to EOF.
func (r *Ring) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cond.Broadcast()
}

// Pump copies src into the ring until EOF, a read error, or cancellation,
// then closes the ring. It returns the number of bytes forwarded.
func Pump(ctx context.Context, ring *Ring, src io.Reader, logger *logrus.Logger) int64 {
	defer ring.Close()

	var total int64
	buf := make([]byte, 32*1024)

	for {
		if ctx.Err() != nil {
			return total
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := ring.Write(buf[:n]); werr != nil {
				return total
			}
			total += int64(n)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.WithError(err).Debug("Stream source read ended")
			}
			return total
		}
	}
}
