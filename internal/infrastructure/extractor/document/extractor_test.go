package document

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/xuri/excelize/v2"
)

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor(nil)
	text, err := e.Extract(context.Background(), domain.RawDocument{
		Filename: "civil_code.txt",
		Data:     []byte("  Article 1. Civil legislation.\n"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Article 1. Civil legislation." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractInvalidUTF8YieldsEmptyText(t *testing.T) {
	e := NewExtractor(nil)
	text, err := e.Extract(context.Background(), domain.RawDocument{
		Filename: "scan.bin",
		Data:     []byte{0xff, 0xfe, 0xfd},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestExtractBrokenPDFIsInvalidInput(t *testing.T) {
	e := NewExtractor(nil)
	_, err := e.Extract(context.Background(), domain.RawDocument{
		Filename: "ruling.pdf",
		MimeType: "application/pdf",
		Data:     []byte("not a pdf at all"),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
}

func TestExtractEmptyPDFYieldsEmptyText(t *testing.T) {
	e := NewExtractor(nil)
	text, err := e.Extract(context.Background(), domain.RawDocument{Filename: "empty.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "Case"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "Outcome"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "A2", "A40-1234/2024"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B2", "dismissed"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	e := NewExtractor(nil)
	text, err := e.Extract(context.Background(), domain.RawDocument{
		Filename: "registry.xlsx",
		Data:     buf.Bytes(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Sheet: Sheet1", "Case\tOutcome", "A40-1234/2024\tdismissed"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in %q", want, text)
		}
	}
}

func TestExtractHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExtractor(nil).Extract(ctx, domain.RawDocument{Filename: "a.txt"}); err == nil {
		t.Fatalf("expected context error")
	}
}
