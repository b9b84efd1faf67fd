// Package tools provides the typed call surface against connected
// page sessions.
//
// Ownership boundary:
// - snapshot/confirm/prompt calls and their reply decoding
//
// Rendering failures into user-facing result strings belongs to the
// transport adapters in internal/server, not here.
package tools
