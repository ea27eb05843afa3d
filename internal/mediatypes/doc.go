// Package mediatypes provides shared type definitions for media handled by
// the thumbnail cache.
//
// This package exists as a dependency-free foundation that can be imported by other
// packages without creating import cycles.
//
// # Variants
//
// A Variant selects the transform pipeline used to render a source:
//
//	mediatypes.Avatar         // crop to fill, rounded corners
//	mediatypes.ImageThumbnail // letterboxed downscale
//	mediatypes.VideoThumbnail // downscaled poster with play glyph
//	mediatypes.OriginalImage  // full resolution, no resize
//
// Variants round-trip through String and ParseVariant, which is how the HTTP
// surface and metric labels name them.
//
// # Extension Detection
//
//	v := mediatypes.VariantForPath("clip.mp4") // VideoThumbnail
package mediatypes
