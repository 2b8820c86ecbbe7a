package observability

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l := Component(logger, "kafka")
	l.Info().Msg("dropped")
	l.Warn().Int16("api_key", 18).Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["app"] != "monowire" || entry["component"] != "kafka" || entry["message"] != "kept" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewLoggerRejectsUnknownSettings(t *testing.T) {
	if _, err := NewLogger(io.Discard, "loud", "text"); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := NewLogger(io.Discard, "info", "xml"); err == nil {
		t.Fatal("expected format error")
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("ApiVersions", 0, 2*time.Millisecond)
	m.RecordRequest("ApiVersions", 35, time.Millisecond)
	m.RecordRequest("ApiVersions", 0, time.Millisecond)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.FrameRejected(RejectMalformedLength)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`monowire_kafka_requests_total{api="ApiVersions",code="0"} 2`,
		`monowire_kafka_requests_total{api="ApiVersions",code="35"} 1`,
		`monowire_kafka_frames_rejected_total{reason="malformed_length"} 1`,
		`monowire_kafka_connections_active 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordRequest("Fetch", 0, time.Millisecond)
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.FrameRejected(RejectBadHeader)
}
