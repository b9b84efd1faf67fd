package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/webridge/internal/bridge"
	"github.com/danmuck/webridge/internal/protocol"
)

// Pages is the typed call surface against connected page sessions.
// Every method performs one blocking exchange and decodes the reply
// into its protocol shape. Transport and correlation failures surface
// as bridge sentinels; page-reported failures are data, not errors.
type Pages struct {
	exchanger *bridge.Exchanger
}

func NewPages(exchanger *bridge.Exchanger) *Pages {
	return &Pages{exchanger: exchanger}
}

// CaptureSnapshot asks the page for its current DOM rendering.
func (p *Pages) CaptureSnapshot(ctx context.Context, sessionID string) (protocol.SnapshotResult, error) {
	var result protocol.SnapshotResult
	raw, err := p.exchanger.Exchange(ctx, sessionID, protocol.SnapshotInstruction(), 0)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("%w: %v", bridge.ErrMalformedReply, err)
	}
	return result, nil
}

// Confirm shows a confirmation dialog on the page and reports the
// user's choice. An absent confirmed field reads as a decline.
func (p *Pages) Confirm(ctx context.Context, sessionID, message string) (bool, error) {
	raw, err := p.exchanger.Exchange(ctx, sessionID, protocol.ConfirmInstruction(message), 0)
	if err != nil {
		return false, err
	}
	var result protocol.ConfirmResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return false, fmt.Errorf("%w: %v", bridge.ErrMalformedReply, err)
	}
	log.Info().
		Str("session_id", sessionID).
		Bool("confirmed", result.Confirmed).
		Msg("confirmation_result")
	return result.Confirmed, nil
}

// Ask shows a question popup on the page and returns the user's
// answer. An absent answer field reads as the empty string.
func (p *Pages) Ask(ctx context.Context, sessionID, question string) (string, error) {
	raw, err := p.exchanger.Exchange(ctx, sessionID, protocol.PromptInstruction(question), 0)
	if err != nil {
		return "", err
	}
	var result protocol.AnswerResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("%w: %v", bridge.ErrMalformedReply, err)
	}
	log.Info().
		Str("session_id", sessionID).
		Str("answer", result.Answer).
		Msg("question_answer")
	return result.Answer, nil
}
