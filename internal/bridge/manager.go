package bridge

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Attachment is one live binding of a session identifier to a page
// connection. It is the handle returned by Attach and demanded by
// Detach, so a handler cleaning up a superseded connection cannot
// evict its replacement.
type Attachment struct {
	SessionID  string
	ConnID     string
	AttachedAt time.Time

	conn      Conn
	replies   *mailbox
	delivered atomic.Uint64
}

// SessionInfo is a registry snapshot row for one attached session.
type SessionInfo struct {
	SessionID  string    `json:"session_id"`
	ConnID     string    `json:"conn_id"`
	AttachedAt time.Time `json:"attached_at"`
	Delivered  uint64    `json:"delivered"`
	Pending    int       `json:"pending"`
}

// SessionManager owns the session registry and every attachment's
// mailbox. Registry transitions happen under one lock so a reconnect
// cannot interleave with delivery or teardown.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Attachment
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Attachment)}
}

// Attach binds conn to sessionID and returns the new handle. An
// existing attachment for the same identifier is superseded without
// draining: its mailbox closes, waking any suspended exchange with
// ErrSessionClosed, and its connection is closed. The new attachment
// always starts with an empty mailbox.
func (sm *SessionManager) Attach(sessionID string, conn Conn) *Attachment {
	att := &Attachment{
		SessionID:  sessionID,
		ConnID:     uuid.NewString(),
		AttachedAt: time.Now(),
		conn:       conn,
		replies:    newMailbox(),
	}

	sm.mu.Lock()
	prev := sm.sessions[sessionID]
	sm.sessions[sessionID] = att
	sm.mu.Unlock()

	if prev != nil {
		prev.replies.close()
		_ = prev.conn.Close()
		log.Info().
			Str("session_id", sessionID).
			Str("conn_id", prev.ConnID).
			Str("superseded_by", att.ConnID).
			Msg("session_superseded")
	}
	log.Info().
		Str("session_id", sessionID).
		Str("conn_id", att.ConnID).
		Msg("session_attached")
	return att
}

// Detach removes att while it is still the current binding for its
// session. Detaching a superseded handle is a no-op. Reports whether
// the registry changed.
func (sm *SessionManager) Detach(att *Attachment) bool {
	if att == nil {
		return false
	}
	sm.mu.Lock()
	current, ok := sm.sessions[att.SessionID]
	if !ok || current != att {
		sm.mu.Unlock()
		return false
	}
	delete(sm.sessions, att.SessionID)
	sm.mu.Unlock()

	att.replies.close()
	_ = att.conn.Close()
	log.Info().
		Str("session_id", att.SessionID).
		Str("conn_id", att.ConnID).
		Msg("session_detached")
	return true
}

// Deliver posts one raw payload to the session's current mailbox.
// Payloads for unknown or already-closed sessions are dropped.
func (sm *SessionManager) Deliver(sessionID string, payload []byte) bool {
	sm.mu.RLock()
	att, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return false
	}
	if !att.replies.post(payload) {
		return false
	}
	att.delivered.Add(1)
	return true
}

func (sm *SessionManager) lookup(sessionID string) (*Attachment, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	att, ok := sm.sessions[sessionID]
	return att, ok
}

func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Snapshot lists attached sessions sorted by identifier.
func (sm *SessionManager) Snapshot() []SessionInfo {
	sm.mu.RLock()
	infos := make([]SessionInfo, 0, len(sm.sessions))
	for _, att := range sm.sessions {
		infos = append(infos, SessionInfo{
			SessionID:  att.SessionID,
			ConnID:     att.ConnID,
			AttachedAt: att.AttachedAt,
			Delivered:  att.delivered.Load(),
			Pending:    att.replies.pending(),
		})
	}
	sm.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].SessionID < infos[j].SessionID })
	return infos
}

// Shutdown tears down every attachment. Suspended exchanges resolve
// with ErrSessionClosed.
func (sm *SessionManager) Shutdown() {
	sm.mu.Lock()
	attachments := make([]*Attachment, 0, len(sm.sessions))
	for _, att := range sm.sessions {
		attachments = append(attachments, att)
	}
	sm.sessions = make(map[string]*Attachment)
	sm.mu.Unlock()

	for _, att := range attachments {
		att.replies.close()
		_ = att.conn.Close()
	}
	if len(attachments) > 0 {
		log.Info().Int("sessions", len(attachments)).Msg("session_registry_shutdown")
	}
}
