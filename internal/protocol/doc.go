// Package protocol owns the JSON wire contract between the bridge and
// connected pages.
//
// Ownership boundary:
// - outbound instruction envelopes and their validation
// - typed reply shapes posted back by pages
// - reconnect backoff policy for page-side clients
package protocol
