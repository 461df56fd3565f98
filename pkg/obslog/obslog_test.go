package obslog

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
	"testing"
)

func TestLogEmitsJSONLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithLogger(log.New(&buf, "", 0))

	l.Log("ingest_success", map[string]interface{}{
		"client_id": "source-a",
		"event_id":  "1234",
	})

	line := strings.TrimSpace(buf.String())
	var event Event
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		t.Fatalf("expected valid JSON line, got %q: %v", line, err)
	}
	if event.Outcome != "ingest_success" {
		t.Fatalf("got outcome %q", event.Outcome)
	}
	if event.Fields["client_id"] != "source-a" {
		t.Fatalf("got fields %v", event.Fields)
	}
	if event.Timestamp == "" {
		t.Fatal("expected a non-empty timestamp")
	}
}
