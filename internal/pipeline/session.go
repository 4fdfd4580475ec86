package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultGracePeriod is how long a session waits after a termination signal
// before escalating to a forced kill.
const DefaultGracePeriod = 5 * time.Second

// stderrLimit bounds the diagnostic capture per session.
const stderrLimit = 16 * 1024

// ErrSessionClosed is returned when reading from a closed session.
var ErrSessionClosed = errors.New("stream session closed")

// Session owns exactly one spawned transcoder process and its output pipe.
// It is exclusive to the stream request that created it and guarantees the
// process is terminated on every exit path: normal exit, error, or caller
// cancellation.
type Session struct {
	ID uuid.UUID

	cmd    *exec.Cmd
	out    *os.File
	stderr *tailBuffer
	grace  time.Duration
	logger *logrus.Logger

	done    chan struct{}
	waitErr error

	mu       sync.Mutex
	stopOnce sync.Once
	closed   bool
}

// Start spawns the transcoder with stdin closed, stdout connected to the
// session's pipe and stderr captured for diagnostics. The context carries
// the caller's cancellation: when it fires, the process is signalled and,
// after the grace period, killed.
func Start(ctx context.Context, binary string, args []string, grace time.Duration, logger *logrus.Logger) (*Session, error) {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	s := &Session{
		ID:     uuid.New(),
		stderr: &tailBuffer{limit: stderrLimit},
		grace:  grace,
		logger: logger,
		done:   make(chan struct{}),
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating output pipe: %w", err)
	}

	cmd := exec.Command(binary, args...) // #nosec G204 - binary comes from detection, args are internally constructed
	cmd.Stdout = pw
	cmd.Stderr = s.stderr
	// Stdin is left nil so the child sees a closed/null input.

	// The stderr capture makes exec run a pipe copier that Wait blocks on.
	// A helper process spawned by the transcoder inherits that pipe and can
	// hold it open past the direct child's death, so Wait must abandon the
	// copier after the grace period, and signals must reach the whole
	// process group.
	setProcessGroup(cmd)
	cmd.WaitDelay = grace

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("starting transcoder: %w", err)
	}

	// The parent's write end must be closed so the read end sees EOF when
	// the process exits, whatever the reason.
	_ = pw.Close()

	s.cmd = cmd
	s.out = pr

	logger.WithFields(logrus.Fields{
		"session": s.ID,
		"pid":     cmd.Process.Pid,
	}).Debug("Transcoder process started")

	go s.wait()
	go s.watchCancel(ctx)

	return s, nil
}

// Read reads transcoded output. It returns io.EOF once the process has
// exited and the pipe is drained.
func (s *Session) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrSessionClosed
	}
	out := s.out
	s.mu.Unlock()

	n, err := out.Read(p)
	if errors.Is(err, os.ErrClosed) {
		return n, io.EOF
	}
	return n, err
}

// Done is closed when the process has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the process exit error, valid after Done is closed.
func (s *Session) Err() error {
	<-s.done
	return s.waitErr
}

// Diagnostics returns the captured tail of the process's stderr.
func (s *Session) Diagnostics() string {
	return s.stderr.String()
}

// Stop terminates the process: a termination signal first, escalating to a
// forced kill after the grace period. It returns once the process has
// exited and never blocks longer than the grace period plus kill latency.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		select {
		case <-s.done:
			return
		default:
		}

		if err := signalGroup(s.cmd, syscall.SIGTERM); err != nil {
			_ = signalGroup(s.cmd, syscall.SIGKILL)
		}

		select {
		case <-s.done:
		case <-time.After(s.grace):
			s.logger.WithField("session", s.ID).Warn("Transcoder ignored termination signal, killing")
			_ = signalGroup(s.cmd, syscall.SIGKILL)
			<-s.done
		}
	})
}

// Close stops the process and releases the output pipe. Safe to call from
// any exit path; subsequent calls are no-ops.
func (s *Session) Close() error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.out.Close()
}

func (s *Session) wait() {
	s.waitErr = s.cmd.Wait()
	close(s.done)

	if s.waitErr != nil {
		s.logger.WithFields(logrus.Fields{
			"session": s.ID,
			"error":   s.waitErr,
		}).Debug("Transcoder process exited")
	}
}

func (s *Session) watchCancel(ctx context.Context) {
	select {
	case <-ctx.Done():
		s.Stop()
	case <-s.done:
	}
}

// tailBuffer keeps the most recent portion of everything written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	data  []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, p...)
	if len(b.data) > b.limit {
		b.data = b.data[len(b.data)-b.limit:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}
