package thumbnail

import (
	"errors"
	"fmt"
	"image"
	"runtime/debug"
	"time"

	"thumbcache/internal/filesystem"
	"thumbcache/internal/logging"
	"thumbcache/internal/mediatypes"
	"thumbcache/internal/placeholder"
	"thumbcache/internal/raster"
)

// ErrNoPoster is returned for a video thumbnail request without an overlay
// icon: video frames are never decoded directly.
var ErrNoPoster = errors.New("video thumbnail needs an overlay icon")

// ErrPanic wraps a panic recovered inside a generation task.
var ErrPanic = errors.New("generation panicked")

// Result is the outcome of one generation task.
type Result struct {
	Bitmap   image.Image
	Success  bool
	Expired  bool
	Err      error
	Duration time.Duration
}

// Generator renders bitmaps for requests. It is safe for concurrent use as
// long as its backend is.
type Generator struct {
	backend      raster.Backend
	placeholders *placeholder.Factory
	exists       func(string) bool
}

// NewGenerator wires a generator. A nil exists func means filesystem.Exists.
func NewGenerator(backend raster.Backend, placeholders *placeholder.Factory, exists func(string) bool) *Generator {
	if exists == nil {
		exists = filesystem.Exists
	}
	return &Generator{backend: backend, placeholders: placeholders, exists: exists}
}

// Generate renders req. It never panics.
func (g *Generator) Generate(req Request) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Panic generating %s thumbnail for %s: %v\n%s", req.Variant, req.SourcePath, r, debug.Stack())
			res = Result{Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
		res.Duration = time.Since(start)
	}()

	var (
		img image.Image
		err error
	)
	switch req.Variant {
	case mediatypes.Avatar:
		img, err = g.avatar(req)
	case mediatypes.ImageThumbnail, mediatypes.VideoThumbnail:
		if !g.exists(req.SourcePath) {
			return Result{Bitmap: g.expired(req), Success: true, Expired: true}
		}
		img, err = g.thumbnail(req)
	case mediatypes.OriginalImage:
		img, err = g.backend.Decode(req.SourcePath)
	default:
		err = fmt.Errorf("unknown variant %s", req.Variant)
	}
	if err != nil {
		return Result{Err: err}
	}
	return Result{Bitmap: img, Success: true}
}

func (g *Generator) decode(path string) (image.Image, error) {
	return g.backend.DecodeConstrained(path, raster.MaxImageDimension, raster.MaxImagePixels)
}

func (g *Generator) avatar(req Request) (image.Image, error) {
	src, err := g.decode(req.SourcePath)
	if err != nil {
		return nil, err
	}
	w, h := targetSize(req.Size, src)
	return g.backend.RoundCorners(g.backend.Fill(src, w, h), req.CornerRadius), nil
}

func (g *Generator) thumbnail(req Request) (image.Image, error) {
	path := req.OverlayIconPath
	if path == "" {
		if req.Variant == mediatypes.VideoThumbnail {
			return nil, fmt.Errorf("%w: %s", ErrNoPoster, req.SourcePath)
		}
		path = req.SourcePath
	}
	src, err := g.decode(path)
	if err != nil {
		return nil, err
	}

	w, h := targetSize(req.Size, src)
	canvas := raster.Letterbox(g.backend, src, w, h)
	if req.Variant == mediatypes.VideoThumbnail {
		placeholder.OverlayPlay(canvas)
	}
	return canvas, nil
}

// expired builds the tile for media whose source is gone, using the overlay
// icon as the last known rendering when it still decodes.
func (g *Generator) expired(req Request) image.Image {
	var base image.Image
	if req.OverlayIconPath != "" && g.exists(req.OverlayIconPath) {
		img, err := g.decode(req.OverlayIconPath)
		if err != nil {
			logging.Debug("Expired base %s unusable: %v", req.OverlayIconPath, err)
		} else {
			base = img
		}
	}
	return g.placeholders.Expired(base, req.Variant, req.Size)
}

// targetSize resolves a zero request size to the source dimensions.
func targetSize(size image.Point, src image.Image) (int, int) {
	if size.X > 0 && size.Y > 0 {
		return size.X, size.Y
	}
	b := src.Bounds()
	return b.Dx(), b.Dy()
}
