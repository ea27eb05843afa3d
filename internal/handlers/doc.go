// Package handlers provides the HTTP surface of the thumbnail cache.
//
// It includes handlers for:
//   - Rendering thumbnails as PNG, with cache state and ETag headers
//   - Preloading and cancelling thumbnail generation
//   - Cache administration (stats, clear, budget, age cleanup)
//   - A Server-Sent Events stream of completion events
//   - Health checks, version, and Prometheus metrics
package handlers
