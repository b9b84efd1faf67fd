package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/webridge/internal/bridge"
	"github.com/danmuck/webridge/internal/observability"
)

const snapshotPreviewRunes = 500

type snapshotArgs struct {
	URLOrSession string `json:"url_or_session,omitempty" jsonschema:"Session ID for the React app (default: 'default')."`
}

type confirmArgs struct {
	Message   string `json:"message" jsonschema:"The confirmation message."`
	SessionID string `json:"session_id,omitempty" jsonschema:"Session ID for the React app."`
}

type questionArgs struct {
	Question  string `json:"question" jsonschema:"The question to ask."`
	SessionID string `json:"session_id,omitempty" jsonschema:"Session ID for the React app."`
}

// buildMCPServer registers the page interaction tools. The tool
// surface degrades failures into result text instead of protocol
// errors, so callers always receive a regular tool result.
func (s *Service) buildMCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "web-interact-server",
		Version: "0.0.1",
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "take_html_snapshot",
		Description: "Take a HTML snapshot of the connected web page.",
	}, s.takeHTMLSnapshot)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "show_confirmation_alert",
		Description: "Show a confirmation alert on the user's web page and return the result.",
	}, s.showConfirmationAlert)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "show_question_popup",
		Description: "Show a question popup on the web page and return the user's answer.",
	}, s.showQuestionPopup)

	return srv
}

// buildMCPHandler mounts the streamable HTTP transport. The server is
// stateless, matching clients that POST each call without holding an
// MCP session open.
func (s *Service) buildMCPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

func (s *Service) takeHTMLSnapshot(ctx context.Context, req *mcp.CallToolRequest, args snapshotArgs) (*mcp.CallToolResult, any, error) {
	sessionID := s.sessionOrDefault(args.URLOrSession)
	start := time.Now()
	result, err := s.pages.CaptureSnapshot(ctx, sessionID)
	observability.RecordExchange("take_html_snapshot", exchangeOutcome(err), time.Since(start))
	if err != nil {
		log.Error().Str("session_id", sessionID).Err(err).Msg("snapshot_failed")
		return textResult("Error taking snapshot: " + s.renderExchangeError(err, sessionID)), nil, nil
	}
	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "Unknown error"
		}
		return textResult("Failed to capture snapshot: " + reason), nil, nil
	}
	return textResult(fmt.Sprintf(
		"HTML Snapshot captured successfully (length: %d chars). Preview: %s...",
		utf8.RuneCountInString(result.HTML),
		preview(result.HTML, snapshotPreviewRunes),
	)), nil, nil
}

func (s *Service) showConfirmationAlert(ctx context.Context, req *mcp.CallToolRequest, args confirmArgs) (*mcp.CallToolResult, any, error) {
	sessionID := s.sessionOrDefault(args.SessionID)
	start := time.Now()
	confirmed, err := s.pages.Confirm(ctx, sessionID, args.Message)
	observability.RecordExchange("show_confirmation_alert", exchangeOutcome(err), time.Since(start))
	if err != nil {
		log.Error().Str("session_id", sessionID).Err(err).Msg("confirmation_failed")
		confirmed = false
	}
	return textResult(strconv.FormatBool(confirmed)), nil, nil
}

func (s *Service) showQuestionPopup(ctx context.Context, req *mcp.CallToolRequest, args questionArgs) (*mcp.CallToolResult, any, error) {
	sessionID := s.sessionOrDefault(args.SessionID)
	start := time.Now()
	answer, err := s.pages.Ask(ctx, sessionID, args.Question)
	observability.RecordExchange("show_question_popup", exchangeOutcome(err), time.Since(start))
	if err != nil {
		log.Error().Str("session_id", sessionID).Err(err).Msg("question_failed")
		return textResult("Error getting answer: " + s.renderExchangeError(err, sessionID)), nil, nil
	}
	return textResult(answer), nil, nil
}

func (s *Service) sessionOrDefault(sessionID string) string {
	if strings.TrimSpace(sessionID) == "" {
		return s.cfg.DefaultSession
	}
	return sessionID
}

// renderExchangeError maps bridge sentinels onto the result strings
// the page tooling has always emitted. Session and timeout failures
// keep their legacy one-line forms; everything else folds into the
// WS communication family with the underlying error appended.
func (s *Service) renderExchangeError(err error, sessionID string) string {
	switch {
	case errors.Is(err, bridge.ErrSessionNotFound):
		return fmt.Sprintf("No active connection for session: %s", sessionID)
	case errors.Is(err, bridge.ErrReplyTimeout):
		return fmt.Sprintf("No response from web page within %d seconds", int(s.exchanger.Timeout().Seconds()))
	default:
		return fmt.Sprintf("WS communication error: %v", err)
	}
}

func exchangeOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, bridge.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, bridge.ErrReplyTimeout):
		return "reply_timeout"
	case errors.Is(err, bridge.ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, bridge.ErrMalformedReply):
		return "malformed_reply"
	case errors.Is(err, bridge.ErrTransport):
		return "transport_error"
	default:
		return "error"
	}
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
