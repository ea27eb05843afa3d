// Package placeholder renders the fallback tiles shown in place of a real
// thumbnail: a transient "loading" tile while generation is outstanding, a
// flat default tile per media variant, and an "expired" composite once the
// source file is confirmed missing.
//
// Rendering is synchronous and never touches the filesystem, so a Factory
// may be called directly from a paint path. Captions are configurable for
// localization.
package placeholder
