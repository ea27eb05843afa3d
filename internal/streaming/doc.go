// Package streaming writes Server-Sent Events to HTTP clients.
//
// [EventWriter] frames events in the text/event-stream format, flushes each
// frame, and gives up on clients whose writes exceed a timeout so that a
// stalled connection never holds events back for anyone else.
package streaming
