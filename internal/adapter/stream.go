package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"
	"time"

	"iosctl/internal/domain"
	"iosctl/internal/transmit"

	"github.com/rs/zerolog"
)

// ErrNotConnected is returned by Send after the shell went away
var ErrNotConnected = errors.New("session not connected")

// stream buffers device output and matches prompts against it
type stream struct {
	w      io.WriteCloser
	logger zerolog.Logger

	mu      sync.Mutex
	buf     []byte
	readErr error
	closed  bool
	notify  chan struct{}
}

func newStream(r io.Reader, w io.WriteCloser, logger zerolog.Logger) *stream {
	s := &stream{
		w:      w,
		logger: logger,
		notify: make(chan struct{}, 1),
	}
	go s.read(r)
	return s
}

func (s *stream) read(r io.Reader) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		s.mu.Lock()
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
		}
		if err != nil {
			s.readErr = err
		}
		s.mu.Unlock()

		select {
		case s.notify <- struct{}{}:
		default:
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug().Err(err).Msg("read loop ended")
			}
			return
		}
	}
}

// Send writes data to the shell
func (s *stream) Send(_ context.Context, data string) error {
	s.mu.Lock()
	closed := s.closed || s.readErr != nil
	s.mu.Unlock()
	if closed {
		return ErrNotConnected
	}
	if _, err := io.WriteString(s.w, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Expect waits until one of patterns matches buffered output and consumes
// through the end of the match
func (s *stream) Expect(ctx context.Context, patterns []*regexp.Regexp, timeout time.Duration) (transmit.Match, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		m, end, ok := transmit.Scan(string(s.buf), patterns)
		if ok {
			s.buf = s.buf[end:]
			s.mu.Unlock()
			return m, nil
		}
		buffered, readErr := string(s.buf), s.readErr
		s.mu.Unlock()

		if readErr != nil {
			return transmit.Match{}, fmt.Errorf("%w: %v (received %q)", ErrNotConnected, readErr, buffered)
		}

		select {
		case <-s.notify:
		case <-deadline.C:
			return transmit.Match{}, &domain.ProtocolTimeoutError{Buffered: buffered}
		case <-ctx.Done():
			return transmit.Match{}, ctx.Err()
		}
	}
}

// Close stops writing to the shell
func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.w.Close()
}
