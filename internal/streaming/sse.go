package streaming

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write exceeded the configured timeout,
	// typically because the client reads too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the stream was closed programmatically
	// or ran past its maximum duration.
	ErrStreamCanceled = errors.New("stream canceled")

	// ErrFlushUnsupported is returned when the response writer cannot flush.
	ErrFlushUnsupported = errors.New("response writer does not support flushing")
)

// Config configures an EventWriter
type Config struct {
	// WriteTimeout is the maximum time to wait for a single frame
	WriteTimeout time.Duration
	// KeepaliveInterval is how often callers should send a comment frame
	KeepaliveInterval time.Duration
	// MaxDuration is the absolute maximum stream duration (0 = unlimited)
	MaxDuration time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WriteTimeout:      10 * time.Second,
		KeepaliveInterval: 30 * time.Second,
	}
}

// EventWriter writes Server-Sent Events frames with write timeout
// protection. A client that stops reading is dropped rather than blocking
// the event source.
type EventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	ctx     context.Context
	cancel  context.CancelFunc
	config  Config

	// deadlines is false when the writer cannot set write deadlines and
	// timeouts fall back to a watchdog goroutine.
	deadlines bool

	mu           sync.Mutex
	startTime    time.Time
	bytesWritten int64
	events       int64
	closed       bool
}

// NewEventWriter sets the event-stream headers, writes the status line and
// returns a writer bound to ctx.
func NewEventWriter(ctx context.Context, w http.ResponseWriter, config Config) (*EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrFlushUnsupported
	}

	streamCtx, cancel := context.WithCancel(ctx)
	ew := &EventWriter{
		w:         w,
		flusher:   flusher,
		rc:        http.NewResponseController(w),
		ctx:       streamCtx,
		cancel:    cancel,
		config:    config,
		startTime: time.Now(),
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ew.deadlines = ew.rc.SetWriteDeadline(time.Time{}) == nil
	return ew, nil
}

// Done is closed when the stream ends for any reason.
func (ew *EventWriter) Done() <-chan struct{} {
	return ew.ctx.Done()
}

// KeepaliveInterval returns the configured keepalive period.
func (ew *EventWriter) KeepaliveInterval() time.Duration {
	if ew.config.KeepaliveInterval <= 0 {
		return DefaultConfig().KeepaliveInterval
	}
	return ew.config.KeepaliveInterval
}

// WriteEvent sends one named event. Multi-line data is split into
// several data fields as the event-stream format requires.
func (ew *EventWriter) WriteEvent(name string, data []byte) error {
	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "event: %s\n", name)
	}
	for _, line := range strings.Split(string(data), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteByte('\n')

	if err := ew.write([]byte(b.String())); err != nil {
		return err
	}
	ew.mu.Lock()
	ew.events++
	ew.mu.Unlock()
	return nil
}

// Comment sends a comment frame, used as a keepalive.
func (ew *EventWriter) Comment(text string) error {
	return ew.write([]byte(": " + text + "\n\n"))
}

func (ew *EventWriter) write(p []byte) error {
	ew.mu.Lock()
	if ew.closed {
		ew.mu.Unlock()
		return ErrStreamCanceled
	}
	ew.mu.Unlock()

	select {
	case <-ew.ctx.Done():
		return ew.contextError()
	default:
	}

	if ew.config.MaxDuration > 0 && time.Since(ew.startTime) > ew.config.MaxDuration {
		ew.cancel()
		return ErrStreamCanceled
	}

	return ew.writeWithTimeout(p)
}

// writeWithTimeout performs a single write and flush with timeout
func (ew *EventWriter) writeWithTimeout(p []byte) error {
	if ew.config.WriteTimeout <= 0 {
		return ew.writeAndFlush(p)
	}

	if ew.deadlines {
		if err := ew.rc.SetWriteDeadline(time.Now().Add(ew.config.WriteTimeout)); err == nil {
			err = ew.writeAndFlush(p)
			if errors.Is(err, os.ErrDeadlineExceeded) {
				ew.cancel()
				return ErrWriteTimeout
			}
			return err
		}
	}

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- ew.writeAndFlush(p)
	}()

	timer := time.NewTimer(ew.config.WriteTimeout)
	defer timer.Stop()

	select {
	case err := <-resultCh:
		return err
	case <-timer.C:
		ew.cancel()
		return ErrWriteTimeout
	case <-ew.ctx.Done():
		return ew.contextError()
	}
}

func (ew *EventWriter) writeAndFlush(p []byte) error {
	n, err := ew.w.Write(p)
	ew.mu.Lock()
	ew.bytesWritten += int64(n)
	ew.mu.Unlock()
	if err != nil {
		return err
	}
	if ew.deadlines {
		return ew.rc.Flush()
	}
	ew.flusher.Flush()
	return nil
}

// contextError returns an appropriate error based on context state
func (ew *EventWriter) contextError() error {
	ew.mu.Lock()
	closed := ew.closed
	ew.mu.Unlock()
	if !closed && errors.Is(ew.ctx.Err(), context.Canceled) {
		return ErrClientGone
	}
	return ErrStreamCanceled
}

// Close ends the stream. It is safe to call more than once.
func (ew *EventWriter) Close() error {
	ew.mu.Lock()
	defer ew.mu.Unlock()

	if ew.closed {
		return nil
	}
	ew.closed = true
	ew.cancel()
	if ew.deadlines {
		// Leave the connection reusable for the next request
		_ = ew.rc.SetWriteDeadline(time.Time{})
	}
	return nil
}

// Stats returns streaming statistics
func (ew *EventWriter) Stats() (events, bytesWritten int64, duration time.Duration) {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	return ew.events, ew.bytesWritten, time.Since(ew.startTime)
}
