package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danmuck/webridge/internal/bridge"
	"github.com/danmuck/webridge/internal/protocol"
	"github.com/danmuck/webridge/internal/testutil/testlog"
)

func newServerFixture(t *testing.T, cfg ServiceConfig) (*Service, *httptest.Server) {
	t.Helper()
	svc := NewServiceWithConfig(cfg)
	ts := httptest.NewServer(svc.Router())
	t.Cleanup(ts.Close)
	return svc, ts
}

func dialPage(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s err=%v", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSessions(t *testing.T, svc *Service, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Manager().Count() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session count want=%d got=%d", want, svc.Manager().Count())
}

func readInstruction(t *testing.T, conn *websocket.Conn) protocol.Instruction {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read instruction err=%v", err)
	}
	var in protocol.Instruction
	if err := json.Unmarshal(payload, &in); err != nil {
		t.Fatalf("decode instruction err=%v payload=%s", err, payload)
	}
	return in
}

func TestConfirmRoundTripOverWebSocket(t *testing.T) {
	testlog.Start(t)
	svc, ts := newServerFixture(t, ServiceConfig{})
	page := dialPage(t, ts, "?session_id=lobby")
	waitForSessions(t, svc, 1)

	type confirmResult struct {
		ok  bool
		err error
	}
	resCh := make(chan confirmResult, 1)
	go func() {
		ok, err := svc.Pages().Confirm(context.Background(), "lobby", "proceed?")
		resCh <- confirmResult{ok: ok, err: err}
	}()

	in := readInstruction(t, page)
	if in.Type != protocol.TypeConfirm || in.Message != "proceed?" {
		t.Fatalf("instruction got=%+v", in)
	}
	if err := page.WriteMessage(websocket.TextMessage, []byte(`{"confirmed":true}`)); err != nil {
		t.Fatalf("reply write err=%v", err)
	}

	select {
	case res := <-resCh:
		if res.err != nil {
			t.Fatalf("confirm err=%v", res.err)
		}
		if !res.ok {
			t.Fatalf("confirm got=%v want=true", res.ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("confirm result never arrived")
	}
}

func TestMissingSessionQueryAttachesDefault(t *testing.T) {
	testlog.Start(t)
	svc, ts := newServerFixture(t, ServiceConfig{})
	dialPage(t, ts, "")
	waitForSessions(t, svc, 1)

	infos := svc.Manager().Snapshot()
	if len(infos) != 1 || infos[0].SessionID != "default" {
		t.Fatalf("snapshot got=%+v", infos)
	}
}

func TestSupersedeClosesPreviousPage(t *testing.T) {
	testlog.Start(t)
	svc, ts := newServerFixture(t, ServiceConfig{})
	first := dialPage(t, ts, "?session_id=twin")
	waitForSessions(t, svc, 1)

	second := dialPage(t, ts, "?session_id=twin")

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatalf("superseded page read succeeded, want close")
	}
	waitForSessions(t, svc, 1)

	resCh := make(chan string, 1)
	go func() {
		answer, err := svc.Pages().Ask(context.Background(), "twin", "still there?")
		if err != nil {
			resCh <- "err: " + err.Error()
			return
		}
		resCh <- answer
	}()

	in := readInstruction(t, second)
	if in.Type != protocol.TypePrompt || in.Question != "still there?" {
		t.Fatalf("instruction got=%+v", in)
	}
	if err := second.WriteMessage(websocket.TextMessage, []byte(`{"answer":"yes"}`)); err != nil {
		t.Fatalf("reply write err=%v", err)
	}

	select {
	case answer := <-resCh:
		if answer != "yes" {
			t.Fatalf("answer got=%q want=%q", answer, "yes")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("answer never arrived")
	}
}

func TestPageDisconnectWakesExchange(t *testing.T) {
	testlog.Start(t)
	svc, ts := newServerFixture(t, ServiceConfig{})
	page := dialPage(t, ts, "?session_id=gone")
	waitForSessions(t, svc, 1)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Pages().Confirm(context.Background(), "gone", "stay?")
		errCh <- err
	}()

	readInstruction(t, page)
	page.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, bridge.ErrSessionClosed) {
			t.Fatalf("confirm err=%v want ErrSessionClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("exchange never woke after disconnect")
	}
	waitForSessions(t, svc, 0)
}

func TestSessionsRouteListsLivePage(t *testing.T) {
	testlog.Start(t)
	svc, ts := newServerFixture(t, ServiceConfig{})
	dialPage(t, ts, "?session_id=visible")
	waitForSessions(t, svc, 1)

	resp, err := http.Get(ts.URL + "/sessions")
	if err != nil {
		t.Fatalf("sessions request err=%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sessions status got=%d", resp.StatusCode)
	}

	var body struct {
		Count    int                  `json:"count"`
		Sessions []bridge.SessionInfo `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("sessions decode err=%v", err)
	}
	if body.Count != 1 || len(body.Sessions) != 1 {
		t.Fatalf("sessions body got=%+v", body)
	}
	if body.Sessions[0].SessionID != "visible" || body.Sessions[0].ConnID == "" {
		t.Fatalf("session row got=%+v", body.Sessions[0])
	}
}
