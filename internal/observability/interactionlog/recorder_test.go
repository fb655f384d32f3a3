package interactionlog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
)

func TestRecordWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	r := New(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := r.Record(context.Background(), domain.Interaction{
		ID:       "id-1",
		Backend:  "Ollama",
		Model:    "llama3",
		Question: "q",
		Answer:   "a",
		Failed:   true,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "interaction" || entry["backend"] != "Ollama" || entry["failed"] != true {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
