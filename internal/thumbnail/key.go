package thumbnail

import (
	"encoding/hex"
	"image"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"thumbcache/internal/mediatypes"
)

// Request describes one renderable output.
type Request struct {
	SourcePath      string
	Size            image.Point
	Variant         mediatypes.Variant
	CornerRadius    int
	OverlayIconPath string
}

// Key identifies one renderable output. Keys are comparable and are used
// directly as map keys.
type Key string

// KeyFor derives the cache key for req. Every field that affects the
// rendered bitmap is encoded; paths are length-prefixed so that no choice of
// path contents can make two different requests collide.
func KeyFor(req Request) Key {
	var b strings.Builder
	b.Grow(len(req.SourcePath) + len(req.OverlayIconPath) + 48)

	b.WriteString(req.Variant.String())
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.Size.X))
	b.WriteByte('x')
	b.WriteString(strconv.Itoa(req.Size.Y))
	b.WriteString("|r")
	b.WriteString(strconv.Itoa(req.CornerRadius))
	writeField(&b, req.SourcePath)
	writeField(&b, req.OverlayIconPath)

	return Key(b.String())
}

func writeField(b *strings.Builder, s string) {
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// Digest returns a short stable hex digest of the key, suitable for ETags
// and log lines. It is not used for cache lookups.
func (k Key) Digest() string {
	sum := blake2b.Sum256([]byte(k))
	return hex.EncodeToString(sum[:16])
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}
