package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// nonFlusher hides httptest.ResponseRecorder's Flush method.
type nonFlusher struct {
	http.ResponseWriter
}

// blockingWriter never finishes a write until released.
type blockingWriter struct {
	*httptest.ResponseRecorder
	release chan struct{}
}

func (b *blockingWriter) Write(p []byte) (int, error) {
	<-b.release
	return b.ResponseRecorder.Write(p)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.WriteTimeout <= 0 {
		t.Errorf("WriteTimeout = %v, want positive", config.WriteTimeout)
	}
	if config.KeepaliveInterval != 30*time.Second {
		t.Errorf("KeepaliveInterval = %v, want 30s", config.KeepaliveInterval)
	}
	if config.MaxDuration != 0 {
		t.Errorf("MaxDuration = %v, want unlimited", config.MaxDuration)
	}
}

func TestNewEventWriterHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	ew, err := NewEventWriter(context.Background(), rec, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEventWriter() error = %v", err)
	}
	defer ew.Close()

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !rec.Flushed {
		t.Error("headers were not flushed")
	}
}

func TestNewEventWriterRequiresFlusher(t *testing.T) {
	_, err := NewEventWriter(context.Background(), nonFlusher{httptest.NewRecorder()}, DefaultConfig())
	if !errors.Is(err, ErrFlushUnsupported) {
		t.Errorf("error = %v, want ErrFlushUnsupported", err)
	}
}

func TestWriteEventFraming(t *testing.T) {
	tests := []struct {
		name  string
		event string
		data  string
		want  string
	}{
		{"named", "loaded", `{"a":1}`, "event: loaded\ndata: {\"a\":1}\n\n"},
		{"unnamed", "", "x", "data: x\n\n"},
		{"multi-line", "failed", "one\ntwo", "event: failed\ndata: one\ndata: two\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ew, err := NewEventWriter(context.Background(), rec, DefaultConfig())
			if err != nil {
				t.Fatal(err)
			}
			defer ew.Close()

			if err := ew.WriteEvent(tt.event, []byte(tt.data)); err != nil {
				t.Fatalf("WriteEvent() error = %v", err)
			}
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommentAndStats(t *testing.T) {
	rec := httptest.NewRecorder()
	ew, _ := NewEventWriter(context.Background(), rec, DefaultConfig())
	defer ew.Close()

	if err := ew.Comment("keepalive"); err != nil {
		t.Fatal(err)
	}
	if err := ew.WriteEvent("loaded", []byte("{}")); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(rec.Body.String(), ": keepalive\n\n") {
		t.Errorf("body = %q", rec.Body.String())
	}
	events, bytes, _ := ew.Stats()
	if events != 1 {
		t.Errorf("events = %d, want 1", events)
	}
	if bytes != int64(rec.Body.Len()) {
		t.Errorf("bytes = %d, want %d", bytes, rec.Body.Len())
	}
}

func TestWriteAfterClose(t *testing.T) {
	ew, _ := NewEventWriter(context.Background(), httptest.NewRecorder(), DefaultConfig())
	ew.Close()
	ew.Close()

	if err := ew.WriteEvent("x", nil); !errors.Is(err, ErrStreamCanceled) {
		t.Errorf("error = %v, want ErrStreamCanceled", err)
	}
	select {
	case <-ew.Done():
	default:
		t.Error("Done() not closed after Close()")
	}
}

func TestClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ew, _ := NewEventWriter(ctx, httptest.NewRecorder(), DefaultConfig())
	cancel()

	if err := ew.WriteEvent("x", nil); !errors.Is(err, ErrClientGone) {
		t.Errorf("error = %v, want ErrClientGone", err)
	}
}

func TestWriteTimeout(t *testing.T) {
	bw := &blockingWriter{ResponseRecorder: httptest.NewRecorder(), release: make(chan struct{})}
	defer close(bw.release)

	ew, _ := NewEventWriter(context.Background(), bw, Config{WriteTimeout: 20 * time.Millisecond})
	if err := ew.WriteEvent("x", []byte("y")); !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("error = %v, want ErrWriteTimeout", err)
	}
	select {
	case <-ew.Done():
	default:
		t.Error("stream still open after a write timeout")
	}
}

func TestMaxDuration(t *testing.T) {
	ew, _ := NewEventWriter(context.Background(), httptest.NewRecorder(), Config{MaxDuration: time.Nanosecond})
	time.Sleep(time.Millisecond)
	if err := ew.WriteEvent("x", nil); !errors.Is(err, ErrStreamCanceled) {
		t.Errorf("error = %v, want ErrStreamCanceled", err)
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	errs := []error{ErrWriteTimeout, ErrClientGone, ErrStreamCanceled, ErrFlushUnsupported}
	for i := range errs {
		for j := range errs {
			if i != j && errors.Is(errs[i], errs[j]) {
				t.Errorf("%v matches %v", errs[i], errs[j])
			}
		}
	}
}

func TestEventWriterOverRealConnection(t *testing.T) {
	ready := make(chan bool, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ew, err := NewEventWriter(r.Context(), w, DefaultConfig())
		if err != nil {
			t.Errorf("NewEventWriter() error = %v", err)
			return
		}
		defer ew.Close()
		ready <- ew.deadlines
		if err := ew.WriteEvent("loaded", []byte(`{"k":1}`)); err != nil {
			t.Errorf("WriteEvent() error = %v", err)
		}
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if !<-ready {
		t.Error("write deadlines unsupported on a real connection")
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(body); got != "event: loaded\ndata: {\"k\":1}\n\n" {
		t.Errorf("body = %q", got)
	}
}
