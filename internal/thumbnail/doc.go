// Package thumbnail is an in-memory cache of rendered media thumbnails with
// an asynchronous generation pipeline.
//
// A render path asks Service.GetThumbnail for a bitmap. A cached bitmap is
// returned at once; otherwise a placeholder is returned and, unless a task
// for the same key is already running, a generation task is queued on the
// worker pool. When the task finishes its bitmap is cached and a Loaded or
// Failed Event is delivered to subscribers, which typically repaint.
//
// The cache is bounded by a byte budget with least-recently-used eviction,
// and a Sweeper evicts entries not accessed within a maximum age.
//
// Keys are built from every parameter that changes the output (source path,
// size, variant, corner radius and overlay icon), so different requests never
// share an entry.
//
// # Cancellation
//
// CancelLoading only forgets the in-flight marker. The running task is never
// interrupted; its result is still cached and published. A request for the
// same key made after a cancel starts a new task.
package thumbnail
