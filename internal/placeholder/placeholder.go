package placeholder

import (
	"container/list"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"thumbcache/internal/mediatypes"
)

// DefaultSize is used when a caller asks for a zero-sized tile.
const DefaultSize = 128

// memoBudget bounds the pixel bytes of tiles retained by a Factory. Tiles
// larger than maxMemoTile are rendered on every call.
const (
	memoBudget  = 16 << 20
	maxMemoTile = memoBudget / 4
)

var (
	loadingBackground = color.NRGBA{R: 0xE4, G: 0xE6, B: 0xEA, A: 0xFF}
	loadingInk        = color.NRGBA{R: 0x6B, G: 0x72, B: 0x80, A: 0xFF}
	darkTile          = color.NRGBA{R: 0x2D, G: 0x2F, B: 0x36, A: 0xFF}
	tileInk           = color.NRGBA{R: 0xF3, G: 0xF4, B: 0xF6, A: 0xFF}
	playInk           = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xD8}
	playDisc          = color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0x80}
	neutralTile       = color.NRGBA{R: 0x8A, G: 0x8F, B: 0x98, A: 0xFF}
	dimOverlay        = color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0x8C}
	warningInk        = color.NRGBA{R: 0xF5, G: 0xA5, B: 0x24, A: 0xFF}
	warningMark       = color.NRGBA{R: 0x1F, G: 0x1F, B: 0x1F, A: 0xFF}
)

// Captions holds the user-visible strings drawn on placeholder tiles.
type Captions struct {
	Loading string
	Expired string
	Image   string
	Video   string
}

// DefaultCaptions returns the English captions.
func DefaultCaptions() Captions {
	return Captions{
		Loading: "Loading...",
		Expired: "File removed",
		Image:   "Image",
		Video:   "Video",
	}
}

type kind int

const (
	kindLoading kind = iota
	kindDefault
	kindExpired
)

type memoKey struct {
	kind    kind
	size    image.Point
	variant mediatypes.Variant
	text    string
}

// Factory renders fallback tiles synchronously and without IO. Tiles that do
// not depend on a caller-supplied bitmap are memoized; callers must treat
// returned images as read-only.
type Factory struct {
	captions Captions

	mu        sync.Mutex
	memo      map[memoKey]*list.Element
	lru       *list.List
	memoBytes int64
}

type memoEntry struct {
	key memoKey
	img *image.NRGBA
}

// New returns a Factory using the given captions. Empty captions fall back
// to the English defaults.
func New(captions Captions) *Factory {
	def := DefaultCaptions()
	if captions.Loading == "" {
		captions.Loading = def.Loading
	}
	if captions.Expired == "" {
		captions.Expired = def.Expired
	}
	if captions.Image == "" {
		captions.Image = def.Image
	}
	if captions.Video == "" {
		captions.Video = def.Video
	}
	return &Factory{
		captions: captions,
		memo:     make(map[memoKey]*list.Element),
		lru:      list.New(),
	}
}

// Captions returns the captions in use.
func (f *Factory) Captions() Captions {
	return f.captions
}

func normalize(size image.Point) image.Point {
	if size.X <= 0 || size.Y <= 0 {
		return image.Pt(DefaultSize, DefaultSize)
	}
	return size
}

func tileBytes(img *image.NRGBA) int64 {
	return int64(len(img.Pix))
}

func (f *Factory) memoized(key memoKey, render func() *image.NRGBA) *image.NRGBA {
	f.mu.Lock()
	if el, ok := f.memo[key]; ok {
		f.lru.MoveToFront(el)
		img := el.Value.(*memoEntry).img
		f.mu.Unlock()
		return img
	}
	f.mu.Unlock()

	img := render()
	cost := tileBytes(img)
	if cost > maxMemoTile {
		return img
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if el, ok := f.memo[key]; ok {
		f.lru.MoveToFront(el)
		return el.Value.(*memoEntry).img
	}
	for f.memoBytes+cost > memoBudget {
		back := f.lru.Back()
		if back == nil {
			break
		}
		old := f.lru.Remove(back).(*memoEntry)
		delete(f.memo, old.key)
		f.memoBytes -= tileBytes(old.img)
	}
	f.memo[key] = f.lru.PushFront(&memoEntry{key: key, img: img})
	f.memoBytes += cost
	return img
}

// Loading is the transient tile shown while a generation task is outstanding.
func (f *Factory) Loading(size image.Point) image.Image {
	size = normalize(size)
	return f.memoized(memoKey{kind: kindLoading, size: size}, func() *image.NRGBA {
		img := newTile(size, loadingBackground)
		drawCaptionCentered(img, f.captions.Loading, loadingInk, size.Y/2, captionHeight(size))
		return img
	})
}

// Default is a flat dark tile for media that cannot be rendered. Video tiles
// get a play glyph; image tiles get text, or the image caption when empty.
func (f *Factory) Default(size image.Point, variant mediatypes.Variant, text string) image.Image {
	size = normalize(size)
	key := memoKey{kind: kindDefault, size: size, variant: variant, text: text}
	return f.memoized(key, func() *image.NRGBA {
		img := newTile(size, darkTile)
		switch variant {
		case mediatypes.VideoThumbnail:
			drawPlayGlyph(img)
			if text != "" {
				drawCaptionCentered(img, text, tileInk, size.Y*5/6, captionHeight(size))
			}
		default:
			if text == "" {
				text = f.captions.Image
			}
			drawCaptionCentered(img, text, tileInk, size.Y/2, captionHeight(size))
		}
		return img
	})
}

// Expired renders the tile used once the source file is confirmed missing.
// A non-nil base is scaled to cover the tile and darkened; otherwise a
// neutral tile is synthesized. Both get a warning glyph and caption.
func (f *Factory) Expired(base image.Image, variant mediatypes.Variant, size image.Point) image.Image {
	if base != nil && (size.X <= 0 || size.Y <= 0) {
		b := base.Bounds()
		if !b.Empty() {
			size = b.Size()
		}
	}
	size = normalize(size)

	if base == nil || base.Bounds().Empty() {
		return f.memoized(memoKey{kind: kindExpired, size: size, variant: variant}, func() *image.NRGBA {
			img := newTile(size, neutralTile)
			decorateExpired(img, f.captions.Expired)
			return img
		})
	}

	img := imaging.Fill(base, size.X, size.Y, imaging.Center, imaging.Linear)
	draw.Draw(img, img.Bounds(), image.NewUniform(dimOverlay), image.Point{}, draw.Over)
	decorateExpired(img, f.captions.Expired)
	return img
}

func decorateExpired(img *image.NRGBA, caption string) {
	size := img.Bounds().Size()
	glyph := min(size.X, size.Y) * 2 / 5
	cy := size.Y * 2 / 5
	drawWarningGlyph(img, image.Pt(size.X/2, cy), glyph)
	drawCaptionCentered(img, caption, tileInk, cy+glyph/2+captionHeight(size), captionHeight(size))
}

func newTile(size image.Point, bg color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return img
}

// captionHeight scales text with the tile: roughly an eighth of the short
// side, but never below the native glyph height.
func captionHeight(size image.Point) int {
	return max(min(size.X, size.Y)/8, nativeGlyphHeight)
}
