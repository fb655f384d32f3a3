package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenDelete(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := s.Save(ctx, "job_000_a.txt", strings.NewReader("payload")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	r, err := s.Open(ctx, "job_000_a.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, _ := io.ReadAll(r)
	_ = r.Close()
	if string(raw) != "payload" {
		t.Fatalf("unexpected content: %q", raw)
	}

	if err := s.Delete(ctx, "job_000_a.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "job_000_a.txt"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if _, err := s.Open(ctx, "job_000_a.txt"); err == nil {
		t.Fatalf("expected open of deleted key to fail")
	}
}

func TestRejectsPathKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"", "..", "../escape", "a/b"} {
		if err := s.Save(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}
