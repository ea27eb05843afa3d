package placeholder

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const nativeGlyphHeight = 13

var captionFace = basicfont.Face7x13

// drawCaptionCentered renders text horizontally centred on dst with its
// vertical centre at cy, scaled to height pixels. Text wider than the tile
// is shrunk to fit.
func drawCaptionCentered(dst *image.NRGBA, text string, ink color.Color, cy, height int) {
	if text == "" {
		return
	}

	width := font.MeasureString(captionFace, text).Ceil()
	if width <= 0 {
		return
	}
	src := image.NewNRGBA(image.Rect(0, 0, width, nativeGlyphHeight))
	d := font.Drawer{
		Dst:  src,
		Src:  image.NewUniform(ink),
		Face: captionFace,
		Dot:  fixed.P(0, captionFace.Ascent),
	}
	d.DrawString(text)

	bounds := dst.Bounds()
	scaledW := width * height / nativeGlyphHeight
	scaledH := height
	if limit := bounds.Dx() * 9 / 10; scaledW > limit && limit > 0 {
		scaledH = max(scaledH*limit/scaledW, 1)
		scaledW = limit
	}

	var label image.Image = src
	if scaledW != width || scaledH != nativeGlyphHeight {
		label = imaging.Resize(src, scaledW, scaledH, imaging.Linear)
	}

	at := image.Pt((bounds.Dx()-scaledW)/2, cy-scaledH/2)
	lb := label.Bounds()
	draw.Draw(dst, lb.Sub(lb.Min).Add(at), label, lb.Min, draw.Over)
}

// fillPolygon alpha-blends a filled convex polygon onto dst using 4x4
// supersampling for the edges.
func fillPolygon(dst draw.Image, pts []point, ink color.Color) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY))).
		Intersect(dst.Bounds())
	if r.Empty() {
		return
	}

	mask := image.NewAlpha(r)
	const ss = 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			hits := 0
			for sy := 0; sy < ss; sy++ {
				for sx := 0; sx < ss; sx++ {
					px := float64(x) + (float64(sx)+0.5)/ss
					py := float64(y) + (float64(sy)+0.5)/ss
					if insideConvex(pts, px, py) {
						hits++
					}
				}
			}
			if hits > 0 {
				mask.SetAlpha(x, y, color.Alpha{A: uint8(hits * 255 / (ss * ss))})
			}
		}
	}
	draw.DrawMask(dst, r, image.NewUniform(ink), image.Point{}, mask, r.Min, draw.Over)
}

type point struct{ x, y float64 }

// insideConvex reports whether (x, y) lies inside the convex polygon pts,
// for either winding order.
func insideConvex(pts []point, x, y float64) bool {
	var sign float64
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		cross := (b.x-a.x)*(y-a.y) - (b.y-a.y)*(x-a.x)
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
		} else if (cross > 0) != (sign > 0) {
			return false
		}
	}
	return true
}

func fillDisc(dst draw.Image, cx, cy, radius float64, ink color.Color) {
	const segments = 48
	pts := make([]point, segments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / segments
		pts[i] = point{cx + radius*math.Cos(a), cy + radius*math.Sin(a)}
	}
	fillPolygon(dst, pts, ink)
}

// drawPlayGlyph centres a play triangle on a translucent disc.
func drawPlayGlyph(dst *image.NRGBA) {
	b := dst.Bounds()
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	r := float64(min(b.Dx(), b.Dy())) / 5
	if r < 2 {
		return
	}
	fillDisc(dst, cx, cy, r, playDisc)
	// Shift right so the triangle's visual centre sits on the disc centre.
	off := r * 0.12
	fillPolygon(dst, []point{
		{cx - r*0.45 + off, cy - r*0.6},
		{cx - r*0.45 + off, cy + r*0.6},
		{cx + r*0.6 + off, cy},
	}, playInk)
}

// drawWarningGlyph draws an amber warning triangle with an exclamation mark,
// centred at c and size pixels tall.
func drawWarningGlyph(dst *image.NRGBA, c image.Point, size int) {
	if size < 6 {
		return
	}
	s := float64(size)
	cx, cy := float64(c.X), float64(c.Y)
	top, bottom := cy-s/2, cy+s/2
	half := s / math.Sqrt(3)

	fillPolygon(dst, []point{{cx, top}, {cx + half, bottom}, {cx - half, bottom}}, warningInk)

	bar := math.Max(s/10, 1)
	fillPolygon(dst, []point{
		{cx - bar/2, top + s*0.3},
		{cx + bar/2, top + s*0.3},
		{cx + bar/2, top + s*0.7},
		{cx - bar/2, top + s*0.7},
	}, warningMark)
	fillPolygon(dst, []point{
		{cx - bar/2, top + s*0.78},
		{cx + bar/2, top + s*0.78},
		{cx + bar/2, top + s*0.78 + bar},
		{cx - bar/2, top + s*0.78 + bar},
	}, warningMark)
}

// OverlayPlay draws the video play glyph centred on dst.
func OverlayPlay(dst *image.NRGBA) {
	drawPlayGlyph(dst)
}
