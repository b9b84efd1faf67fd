package bridge

import "errors"

var (
	ErrSessionNotFound = errors.New("bridge: session not found")
	ErrTransport       = errors.New("bridge: transport write failed")
	ErrReplyTimeout    = errors.New("bridge: reply timeout")
	ErrSessionClosed   = errors.New("bridge: session closed")
	ErrMalformedReply  = errors.New("bridge: malformed reply")
)
