// Package middleware provides HTTP middleware for the thumbnail server.
//
// It includes:
//   - Request logging in W3C Extended Log Format, including the cache state
//     of thumbnail responses
//   - Prometheus request metrics labelled by route template
package middleware
