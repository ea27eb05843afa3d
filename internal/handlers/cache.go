package handlers

import (
	"net/http"
	"time"

	"thumbcache/internal/logging"
)

// GetCacheStats returns the current cache and pipeline stats
func (h *Handlers) GetCacheStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, h.svc.Stats())
}

// ClearCache drops every cached thumbnail
func (h *Handlers) ClearCache(w http.ResponseWriter, _ *http.Request) {
	h.svc.ClearCache()
	writeJSONStatus(w, "cleared")
}

type budgetRequest struct {
	Bytes int64 `json:"bytes" validate:"gt=0"`
}

// SetCacheBudget changes the cache byte budget
func (h *Handlers) SetCacheBudget(w http.ResponseWriter, r *http.Request) {
	var body budgetRequest
	if err := decodeJSON(r, &body); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.SetCacheBudget(body.Bytes); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.svc.Stats())
}

type cleanupRequest struct {
	MaxAgeMs *int64 `json:"maxAgeMs" validate:"required,gte=0"`
}

// CleanupOldResources evicts entries idle for longer than maxAgeMs
func (h *Handlers) CleanupOldResources(w http.ResponseWriter, r *http.Request) {
	var body cleanupRequest
	if err := decodeJSON(r, &body); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	maxAge := time.Duration(*body.MaxAgeMs) * time.Millisecond
	evicted := h.svc.CleanupOldResources(maxAge)
	logging.Info("Cache cleanup removed %d entries idle longer than %v", evicted, maxAge)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]int{"evicted": evicted})
}
