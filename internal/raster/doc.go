// Package raster is the bitmap capability layer used by the thumbnail
// pipeline: decode, scale, crop, composite and cost measurement.
//
// Backend abstracts these operations so the cache never depends on a
// particular 2D stack. Imaging is the production implementation built on
// disintegration/imaging and golang.org/x/image, with an optional libvips
// path (InitVips) for formats the Go decoders reject and for decode-time
// shrinking of very large sources.
//
// All decode failures wrap ErrDecode, and the underlying error is kept in the
// chain, so errors.Is(err, fs.ErrNotExist) still works for missing files.
package raster
