// Package bridge owns session-scoped request/reply correlation between
// tool callers and live page connections.
//
// Ownership boundary:
// - session registry and connection attachments
// - per-session reply mailboxes
// - the blocking exchange cycle and its error taxonomy
//
// The bridge never decodes replies beyond checking that they are JSON
// objects. Typed decoding belongs to callers.
package bridge
