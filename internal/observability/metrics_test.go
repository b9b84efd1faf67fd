package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("bridge-api", "GET", "/health", 200, 12*time.Millisecond)
	RecordWSConnection("opened")
	RecordWSConnection("superseded")
	SetSessionsActive(1)
	RecordInboundPayload(true)
	RecordInboundPayload(false)
	RecordExchange("take_html_snapshot", "ok", 24*time.Millisecond)
	RecordExchange("show_question_popup", "reply_timeout", 60*time.Second)
}
