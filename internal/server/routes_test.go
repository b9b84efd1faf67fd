package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/danmuck/webridge/internal/testutil/testlog"
)

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s err=%v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s err=%v", url, err)
	}
	return resp.StatusCode
}

func TestHealthRoute(t *testing.T) {
	testlog.Start(t)
	_, ts := newServerFixture(t, ServiceConfig{})

	var body map[string]any
	if status := getJSON(t, ts.URL+"/health", &body); status != http.StatusOK {
		t.Fatalf("health status got=%d", status)
	}
	if body["status"] != "ok" || body["component"] != "bridge-api" {
		t.Fatalf("health body got=%+v", body)
	}
	if body["uptime"] == "" || body["version"] != "0.0.1" {
		t.Fatalf("health body got=%+v", body)
	}
}

func TestReadyRoute(t *testing.T) {
	testlog.Start(t)
	_, ts := newServerFixture(t, ServiceConfig{})

	var body map[string]any
	if status := getJSON(t, ts.URL+"/ready", &body); status != http.StatusOK {
		t.Fatalf("ready status got=%d", status)
	}
	if body["ready"] != true || body["component"] != "bridge-api" {
		t.Fatalf("ready body got=%+v", body)
	}
}

func TestSessionsRouteEmpty(t *testing.T) {
	testlog.Start(t)
	_, ts := newServerFixture(t, ServiceConfig{})

	var body struct {
		Count    int               `json:"count"`
		Sessions []json.RawMessage `json:"sessions"`
	}
	if status := getJSON(t, ts.URL+"/sessions", &body); status != http.StatusOK {
		t.Fatalf("sessions status got=%d", status)
	}
	if body.Count != 0 || body.Sessions == nil || len(body.Sessions) != 0 {
		t.Fatalf("sessions body got=%+v", body)
	}
}

func TestMetricsRouteExposed(t *testing.T) {
	testlog.Start(t)
	_, ts := newServerFixture(t, ServiceConfig{})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request err=%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status got=%d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("metrics read err=%v", err)
	}
	if !strings.Contains(string(raw), "webridge_ws_sessions_active") {
		t.Fatalf("metrics exposition missing session gauge")
	}
}

func TestCORSPreflightUsesConfiguredOrigins(t *testing.T) {
	testlog.Start(t)
	_, ts := newServerFixture(t, ServiceConfig{CorsOrigins: []string{"http://example.test"}})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/sessions", nil)
	if err != nil {
		t.Fatalf("preflight build err=%v", err)
	}
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight err=%v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://example.test" {
		t.Fatalf("allow origin got=%q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("allow credentials got=%q", got)
	}
}
