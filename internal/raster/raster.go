package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // WebP format support

	"thumbcache/internal/filesystem"
	"thumbcache/internal/logging"
	"thumbcache/internal/metrics"
)

const (
	// MaxImageDimension is the maximum width or height decoded for thumbnails.
	// Larger sources are downscaled right after decode.
	MaxImageDimension = 4096

	// MaxImagePixels is the maximum total pixels decoded for thumbnails.
	// 20MP uses ~80MB in RGBA.
	MaxImagePixels = 20_000_000
)

// ErrDecode wraps every failure to turn a source file into pixels.
var ErrDecode = errors.New("image decode failed")

// Backend is the raster capability the generation pipeline depends on.
// Implementations must be safe for concurrent use; returned images are
// treated as immutable by callers.
type Backend interface {
	// Decode reads path at full resolution.
	Decode(path string) (image.Image, error)
	// DecodeConstrained reads path, downscaling sources that exceed the limits.
	DecodeConstrained(path string, maxDimension, maxPixels int) (image.Image, error)
	// Fill scales and crops img so it covers exactly w x h.
	Fill(img image.Image, w, h int) image.Image
	// Fit scales img down to fit within w x h, preserving aspect ratio. It never upscales.
	Fit(img image.Image, w, h int) image.Image
	// Composite draws src over dst with its top-left corner at at.
	Composite(dst draw.Image, src image.Image, at image.Point)
	// RoundCorners returns a copy of img with corners clipped to radius.
	RoundCorners(img image.Image, radius int) image.Image
	// ByteSize is the approximate decoded memory cost of img; never below 1.
	ByteSize(img image.Image) int64
}

// Imaging implements Backend with disintegration/imaging, falling back to
// libvips for sources the Go decoders reject when vips is initialized.
type Imaging struct {
	Retry filesystem.RetryConfig
}

// NewImaging returns the default backend.
func NewImaging() *Imaging {
	return &Imaging{Retry: filesystem.DefaultRetryConfig()}
}

var _ Backend = (*Imaging)(nil)

func (b *Imaging) open(path string) (io.ReadSeekCloser, error) {
	f, err := filesystem.OpenWithRetry(path, b.Retry)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Decode implements Backend.
func (b *Imaging) Decode(path string) (image.Image, error) {
	f, err := b.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	format := sniffFormat(f)
	metrics.ImageDecodeByFormat.WithLabelValues(format).Inc()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	logging.Debug("imaging.Decode failed for %s (%s): %v", path, format, err)

	if IsVipsAvailable() {
		vimg, verr := loadWithVips(path, 0, 0)
		if verr == nil {
			return vimg, nil
		}
		logging.Debug("vips fallback failed for %s: %v", path, verr)
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
}

// DecodeConstrained implements Backend.
func (b *Imaging) DecodeConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	dims, err := b.dimensions(path)
	if err != nil {
		logging.Debug("Could not get image dimensions for %s: %v, decoding unconstrained", path, err)
		return b.Decode(path)
	}

	tw, th, constrained := constrain(dims.X, dims.Y, maxDimension, maxPixels)
	if !constrained {
		return b.Decode(path)
	}

	logging.Info("Constraining large image %s from %dx%d to %dx%d", path, dims.X, dims.Y, tw, th)

	// libvips shrinks during decode, which avoids holding the full bitmap
	if IsVipsAvailable() {
		if img, err := loadWithVips(path, tw, th); err == nil {
			return img, nil
		}
	}

	img, err := b.Decode(path)
	if err != nil {
		return nil, err
	}
	return imaging.Resize(img, tw, th, imaging.Lanczos), nil
}

func (b *Imaging) dimensions(path string) (image.Point, error) {
	f, err := b.open(path)
	if err != nil {
		return image.Point{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

// constrain computes the target size for a w x h source under the limits.
func constrain(w, h, maxDimension, maxPixels int) (int, int, bool) {
	if w <= 0 || h <= 0 {
		return w, h, false
	}
	if w <= maxDimension && h <= maxDimension && w*h <= maxPixels {
		return w, h, false
	}

	tw, th := w, h
	if tw > maxDimension || th > maxDimension {
		if tw > th {
			th = th * maxDimension / tw
			tw = maxDimension
		} else {
			tw = tw * maxDimension / th
			th = maxDimension
		}
	}

	if tw*th > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(tw*th))
		tw = int(float64(tw) * scale)
		th = int(float64(th) * scale)
	}

	return max(tw, 1), max(th, 1), true
}

// Fill implements Backend.
func (b *Imaging) Fill(img image.Image, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
}

// Fit implements Backend.
func (b *Imaging) Fit(img image.Image, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	return imaging.Fit(img, w, h, imaging.Lanczos)
}

// Composite implements Backend.
func (b *Imaging) Composite(dst draw.Image, src image.Image, at image.Point) {
	sb := src.Bounds()
	draw.Draw(dst, sb.Sub(sb.Min).Add(at), src, sb.Min, draw.Over)
}

// RoundCorners implements Backend. Edge pixels get fractional alpha so the
// curve is anti-aliased.
func (b *Imaging) RoundCorners(img image.Image, radius int) image.Image {
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	if radius <= 0 || w == 0 || h == 0 {
		return out
	}
	r := float64(min(radius, w/2, h/2))
	if r <= 0 {
		return out
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cov := cornerCoverage(float64(x)+0.5, float64(y)+0.5, float64(w), float64(h), r)
			if cov >= 1 {
				continue
			}
			i := out.PixOffset(x, y)
			out.Pix[i+3] = uint8(float64(out.Pix[i+3]) * cov)
		}
	}
	return out
}

// cornerCoverage returns the fraction of the pixel centred at (px, py) that
// lies inside a w x h rounded rectangle with corner radius r.
func cornerCoverage(px, py, w, h, r float64) float64 {
	var cx, cy float64
	switch {
	case px < r && py < r:
		cx, cy = r, r
	case px > w-r && py < r:
		cx, cy = w-r, r
	case px < r && py > h-r:
		cx, cy = r, h-r
	case px > w-r && py > h-r:
		cx, cy = w-r, h-r
	default:
		return 1
	}
	d := math.Hypot(px-cx, py-cy)
	return math.Max(0, math.Min(1, r-d+0.5))
}

// ByteSize implements Backend.
func (b *Imaging) ByteSize(img image.Image) int64 {
	return ByteSize(img)
}

// ByteSize is the RGBA buffer size of img, with a floor of 1 so that empty
// images still carry a cost.
func ByteSize(img image.Image) int64 {
	if img == nil {
		return 1
	}
	r := img.Bounds()
	cost := int64(r.Dx()) * int64(r.Dy()) * 4
	if cost < 1 {
		return 1
	}
	return cost
}

// NewCanvas allocates a transparent w x h NRGBA image.
func NewCanvas(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
}

// FillColor paints the whole of dst with c.
func FillColor(dst draw.Image, c color.Color) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Letterbox fits img into w x h with b and centres it on a transparent canvas.
func Letterbox(b Backend, img image.Image, w, h int) *image.NRGBA {
	canvas := NewCanvas(w, h)
	scaled := b.Fit(img, w, h)
	sb := scaled.Bounds()
	at := image.Pt((w-sb.Dx())/2, (h-sb.Dy())/2)
	b.Composite(canvas, scaled, at)
	return canvas
}
