package handlers

import (
	"sync/atomic"
	"time"

	"thumbcache/internal/thumbnail"
)

// Handlers serves the thumbnail API for files under mediaDir.
type Handlers struct {
	svc       *thumbnail.Service
	mediaDir  string
	startTime time.Time
	draining  atomic.Bool
}

// New creates the handlers. mediaDir must be absolute.
func New(svc *thumbnail.Service, mediaDir string) *Handlers {
	return &Handlers{
		svc:       svc,
		mediaDir:  mediaDir,
		startTime: time.Now(),
	}
}

// SetDraining makes readiness fail so load balancers stop sending traffic
// before shutdown.
func (h *Handlers) SetDraining() {
	h.draining.Store(true)
}
