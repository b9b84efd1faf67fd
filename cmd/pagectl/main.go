package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/webridge/internal/config"
	"github.com/danmuck/webridge/internal/observability"
	"github.com/danmuck/webridge/internal/protocol"
)

func main() {
	endpoint := flag.String("url", "ws://127.0.0.1:8000/ws", "bridge WebSocket endpoint")
	session := flag.String("session", "default", "session identifier to attach under")
	scriptPath := flag.String("script", "", "path to page script toml (built-in replies when unset)")
	once := flag.Bool("once", false, "exit after the first connection ends")
	flag.Parse()

	observability.InitLogger("pagectl")

	script := config.DefaultPageScript()
	if path := strings.TrimSpace(*scriptPath); path != "" {
		loaded, err := config.LoadPageScript(path)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load page script")
		}
		script = loaded
		log.Info().Str("path", path).Msg("loaded page script")
	}
	delay, err := script.ReplyDelayDuration()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid reply delay")
	}

	target, err := attachURL(*endpoint, *session)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid endpoint url")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &pageClient{script: script, delay: delay}
	log.Info().Str("url", target).Str("session", *session).Msg("page client started")
	if err := client.run(ctx, target, *once); err != nil {
		log.Fatal().Err(err).Msg("page client stopped")
	}
}

// attachURL validates the bridge endpoint and pins the session query
// parameter onto it.
func attachURL(endpoint string, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("endpoint scheme must be ws or wss, got %q", u.Scheme)
	}
	q := u.Query()
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// pageClient answers bridge instructions with scripted replies.
type pageClient struct {
	script config.PageScript
	delay  time.Duration
}

// run keeps one connection attached, reconnecting with backoff until
// ctx ends. The attempt counter resets once a dial succeeds so a
// stable bridge never sees inflated delays.
func (p *pageClient) run(ctx context.Context, target string, once bool) error {
	backoff := protocol.DefaultBackoff()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 1; ; attempt++ {
		connected, err := p.serveConnection(ctx, target)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Warn().Int("attempt", attempt).Err(err).Msg("page connection ended")
		}
		if once {
			return err
		}
		if connected {
			attempt = 0
		}

		delay := protocol.NextBackoffDelay(backoff, attempt+1, rng)
		log.Info().Dur("delay", delay).Msg("page reconnecting")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}

// serveConnection dials once and answers instructions until the
// connection drops. The returned bool reports whether the dial
// succeeded at all.
func (p *pageClient) serveConnection(ctx context.Context, target string) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", target, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()
	log.Info().Str("url", target).Msg("page attached")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, nil
			}
			return true, err
		}
		if err := p.handleInstruction(conn, payload); err != nil {
			log.Warn().Err(err).Msg("instruction handling failed")
		}
	}
}

func (p *pageClient) handleInstruction(conn *websocket.Conn, payload []byte) error {
	var in protocol.Instruction
	if err := json.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("decode instruction: %w", err)
	}
	reply, err := p.buildReply(in)
	if err != nil {
		return err
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	log.Info().Str("type", string(in.Type)).Msg("instruction answered")
	return conn.WriteMessage(websocket.TextMessage, reply)
}

// buildReply maps one instruction onto its scripted reply payload.
func (p *pageClient) buildReply(in protocol.Instruction) ([]byte, error) {
	switch in.Type {
	case protocol.TypeSnapshot:
		if strings.TrimSpace(p.script.SnapshotHTML) == "" {
			return json.Marshal(protocol.SnapshotResult{Success: false, Error: "no snapshot scripted"})
		}
		return json.Marshal(protocol.SnapshotResult{Success: true, HTML: p.script.SnapshotHTML})
	case protocol.TypeConfirm:
		return json.Marshal(protocol.ConfirmResult{Confirmed: p.script.Confirm})
	case protocol.TypePrompt:
		return json.Marshal(protocol.AnswerResult{Answer: p.script.Answer})
	default:
		return nil, fmt.Errorf("unhandled instruction type %q", in.Type)
	}
}
