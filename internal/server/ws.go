package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/webridge/internal/bridge"
	"github.com/danmuck/webridge/internal/observability"
)

// makeUpgrader creates a WebSocket upgrader with origin checking.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return originSet[origin]
		},
	}
}

// wsConn wraps a gorilla connection with a write mutex. Exchange
// writes and control frames may race without it.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) WriteText(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// handleWS upgrades the request, attaches the page under its session
// identifier, and pumps inbound frames into the session mailbox until
// the peer goes away.
func (s *Service) handleWS(c *gin.Context) {
	sessionID := c.DefaultQuery("session_id", s.cfg.DefaultSession)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().
			Str("session_id", sessionID).
			Err(err).
			Msg("ws_upgrade_failed")
		observability.RecordWSConnection("rejected")
		return
	}

	att := s.manager.Attach(sessionID, &wsConn{conn: conn})
	observability.RecordWSConnection("opened")
	observability.SetSessionsActive(s.manager.Count())

	s.readPump(att, conn)

	if s.manager.Detach(att) {
		observability.RecordWSConnection("closed")
	} else {
		observability.RecordWSConnection("superseded")
	}
	observability.SetSessionsActive(s.manager.Count())
}

// readPump consumes frames until the connection dies. Payloads route
// to whichever attachment currently owns the session, so replies that
// straggle in after a reconnect still reach a live mailbox.
func (s *Service) readPump(att *bridge.Attachment, conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().
					Str("session_id", att.SessionID).
					Str("conn_id", att.ConnID).
					Err(err).
					Msg("ws_read_failed")
			}
			return
		}
		delivered := s.manager.Deliver(att.SessionID, payload)
		observability.RecordInboundPayload(delivered)
		if !delivered {
			log.Debug().
				Str("session_id", att.SessionID).
				Str("conn_id", att.ConnID).
				Int("bytes", len(payload)).
				Msg("ws_payload_dropped")
		}
	}
}
