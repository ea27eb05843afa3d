package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"thumbcache/internal/logging"
	"thumbcache/internal/middleware"
	"thumbcache/internal/streaming"
	"thumbcache/internal/thumbnail"
)

const eventBuffer = 256

// eventPayload is the JSON form of a completion event
type eventPayload struct {
	Kind         string `json:"kind"`
	Path         string `json:"path"`
	Variant      string `json:"variant"`
	Key          string `json:"key"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	CornerRadius int    `json:"radius"`
	Expired      bool   `json:"expired,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (h *Handlers) payload(ev thumbnail.Event) eventPayload {
	p := eventPayload{
		Kind:         ev.Kind.String(),
		Path:         ev.SourcePath,
		Variant:      ev.Variant.String(),
		Key:          ev.Key.Digest(),
		Width:        ev.Size.X,
		Height:       ev.Size.Y,
		CornerRadius: ev.CornerRadius,
		Expired:      ev.Expired,
	}
	if rel, err := filepath.Rel(h.mediaDir, ev.SourcePath); err == nil {
		p.Path = filepath.ToSlash(rel)
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	return p
}

// StreamEvents sends Loaded and Failed events as Server-Sent Events until
// the client disconnects, stops reading, or the service shuts down.
func (h *Handlers) StreamEvents(w http.ResponseWriter, r *http.Request) {
	stream, err := streaming.NewEventWriter(r.Context(), w, streaming.DefaultConfig())
	if err != nil {
		writeJSONError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	events, unsubscribe := h.svc.Subscribe(eventBuffer)
	defer unsubscribe()

	streamID := middleware.RequestIDFrom(r.Context())
	logging.Debug("event stream %s opened", streamID)

	keepalive := time.NewTicker(stream.KeepaliveInterval())
	defer keepalive.Stop()

	for {
		select {
		case <-stream.Done():
			return
		case <-keepalive.C:
			if err := stream.Comment("keepalive"); err != nil {
				h.logStreamEnd(streamID, stream, err)
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(h.payload(ev))
			if err != nil {
				logging.Error("failed to encode event: %v", err)
				continue
			}
			if err := stream.WriteEvent(ev.Kind.String(), data); err != nil {
				h.logStreamEnd(streamID, stream, err)
				return
			}
		}
	}
}

func (h *Handlers) logStreamEnd(id string, stream *streaming.EventWriter, err error) {
	events, written, elapsed := stream.Stats()
	if errors.Is(err, streaming.ErrWriteTimeout) {
		logging.Warn("event stream %s dropped slow client after %d events (%d bytes, %v)", id, events, written, elapsed.Round(time.Second))
		return
	}
	logging.Debug("event stream %s ended after %d events (%d bytes, %v): %v", id, events, written, elapsed.Round(time.Second), err)
}
