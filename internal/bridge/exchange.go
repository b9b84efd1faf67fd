package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/webridge/internal/protocol"
)

// DefaultReplyTimeout bounds the reply wait when the exchanger is
// built with no explicit timeout.
const DefaultReplyTimeout = 60 * time.Second

// Exchanger performs the blocking request/reply cycle against attached
// sessions. Exchanges on one session are serialized so that replies
// correlate to instructions by arrival order alone.
type Exchanger struct {
	manager *SessionManager
	timeout time.Duration

	gatesMu sync.Mutex
	gates   map[string]chan struct{}
}

func NewExchanger(manager *SessionManager, timeout time.Duration) *Exchanger {
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	return &Exchanger{
		manager: manager,
		timeout: timeout,
		gates:   make(map[string]chan struct{}),
	}
}

// Timeout returns the reply wait bound applied when a call does not
// carry its own.
func (e *Exchanger) Timeout() time.Duration {
	return e.timeout
}

// Exchange sends one instruction to the session's page and blocks for
// the next reply object from that session. A timeout above zero bounds
// this call alone; otherwise the exchanger default applies. Failures
// resolve to the package sentinels. Context cancellation propagates as
// the context error, both while queued behind another exchange and
// while waiting for the reply.
func (e *Exchanger) Exchange(ctx context.Context, sessionID string, in protocol.Instruction, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = e.timeout
	}
	payload, err := in.Encode()
	if err != nil {
		return nil, err
	}

	release, err := e.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	att, ok := e.manager.lookup(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err := att.conn.WriteText(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	log.Debug().
		Str("session_id", sessionID).
		Str("type", string(in.Type)).
		Msg("instruction_sent")

	raw, err := att.replies.take(ctx, timeout)
	if err != nil {
		return nil, err
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if probe == nil {
		return nil, fmt.Errorf("%w: reply is not an object", ErrMalformedReply)
	}
	return json.RawMessage(raw), nil
}

// acquire serializes exchanges per session identifier. A second caller
// waits until the first settles or its own context ends. Gates are
// keyed by identifier, not attachment, so serialization spans
// reconnects.
func (e *Exchanger) acquire(ctx context.Context, sessionID string) (func(), error) {
	e.gatesMu.Lock()
	gate, ok := e.gates[sessionID]
	if !ok {
		gate = make(chan struct{}, 1)
		e.gates[sessionID] = gate
	}
	e.gatesMu.Unlock()

	select {
	case gate <- struct{}{}:
		return func() { <-gate }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
