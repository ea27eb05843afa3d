package handlers

import (
	"errors"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"strconv"

	"thumbcache/internal/logging"
	"thumbcache/internal/mediatypes"
	"thumbcache/internal/middleware"
	"thumbcache/internal/thumbnail"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gorilla/mux"
)

// maxRequestDimension bounds w and h query parameters.
const maxRequestDimension = 4096

var errInvalidPath = errors.New("path outside media directory")

// parseRequest builds a thumbnail request from the {path} route variable
// and the w, h, variant, radius and icon query parameters.
func (h *Handlers) parseRequest(r *http.Request) (thumbnail.Request, error) {
	source, err := h.resolve(mux.Vars(r)["path"])
	if err != nil {
		return thumbnail.Request{}, err
	}

	q := r.URL.Query()
	req := thumbnail.Request{SourcePath: source}

	if req.Size.X, err = queryInt(q.Get("w"), 0, maxRequestDimension); err != nil {
		return req, fmt.Errorf("w: %w", err)
	}
	if req.Size.Y, err = queryInt(q.Get("h"), 0, maxRequestDimension); err != nil {
		return req, fmt.Errorf("h: %w", err)
	}
	if req.CornerRadius, err = queryInt(q.Get("radius"), 0, maxRequestDimension/2); err != nil {
		return req, fmt.Errorf("radius: %w", err)
	}

	if v := q.Get("variant"); v != "" {
		if req.Variant, err = mediatypes.ParseVariant(v); err != nil {
			return req, err
		}
	} else {
		req.Variant = mediatypes.VariantForPath(source)
	}

	if icon := q.Get("icon"); icon != "" {
		if req.OverlayIconPath, err = h.resolve(icon); err != nil {
			return req, fmt.Errorf("icon: %w", err)
		}
	}
	return req, nil
}

// resolve maps a request path onto the media directory. An empty path stays
// empty so that the service can answer with its empty-request placeholder.
func (h *Handlers) resolve(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(filepath.Join(h.mediaDir, p))
	if err != nil || !isSubPath(h.mediaDir, abs) {
		return "", errInvalidPath
	}
	return abs, nil
}

func isSubPath(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !startsWithDotDot(rel))
}

func startsWithDotDot(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}

func queryInt(s string, lo, hi int) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}

// GetThumbnail renders the cached bitmap or a placeholder as PNG, or as
// WebP with format=webp. It never
// waits for generation; clients repaint on the matching event.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r)
	if err != nil {
		logging.Debug("Thumbnail: bad request %s: %v", r.URL.Path, err)
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Variant == mediatypes.ImageThumbnail && req.OverlayIconPath == "" &&
		req.SourcePath != "" && !mediatypes.IsDecodableImage(req.SourcePath) {
		writeJSONError(w, "Unsupported file type", http.StatusUnsupportedMediaType)
		return
	}

	format, err := parseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := h.svc.KeyFor(req)
	img, state := h.svc.Thumbnail(req)
	w.Header().Set(middleware.StateHeader, state.String())

	if state == thumbnail.StateEmpty {
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if state == thumbnail.StateHit {
		etag := `"` + key.Digest() + format.etagSuffix() + `"`
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "private, max-age=300")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}

	writeImage(w, img, format)
}

// outputFormat is the encoding of a thumbnail response.
type outputFormat int

const (
	formatPNG outputFormat = iota
	formatWebP
)

func parseFormat(s string) (outputFormat, error) {
	switch s {
	case "", "png":
		return formatPNG, nil
	case "webp":
		return formatWebP, nil
	default:
		return formatPNG, fmt.Errorf("unsupported format: %q", s)
	}
}

// etagSuffix keeps ETags distinct per encoding of the same bitmap.
func (f outputFormat) etagSuffix() string {
	if f == formatWebP {
		return ".webp"
	}
	return ""
}

func writeImage(w http.ResponseWriter, img image.Image, format outputFormat) {
	switch format {
	case formatWebP:
		w.Header().Set("Content-Type", "image/webp")
		if err := webp.Encode(w, img, &webp.Options{Quality: 80}); err != nil {
			logging.Warn("Thumbnail: failed to encode WebP: %v", err)
		}
	default:
		w.Header().Set("Content-Type", "image/png")
		if err := imaging.Encode(w, img, imaging.PNG); err != nil {
			logging.Warn("Thumbnail: failed to encode PNG: %v", err)
		}
	}
}

// PreloadThumbnail queues generation without returning an image.
func (h *Handlers) PreloadThumbnail(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.svc.PreloadThumbnail(req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]interface{}{
		"key":     h.svc.KeyFor(req).Digest(),
		"loading": h.svc.IsLoading(h.svc.KeyFor(req)),
	})
}

// CancelLoading forgets an in-flight generation. The task itself still
// runs to completion.
func (h *Handlers) CancelLoading(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.svc.CancelLoading(h.svc.KeyFor(req)) {
		logging.Debug("Thumbnail: cancelled loading of %s", req.SourcePath)
	}
	w.WriteHeader(http.StatusNoContent)
}
