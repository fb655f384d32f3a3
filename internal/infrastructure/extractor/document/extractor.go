package document

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
)

type format int

const (
	formatText format = iota
	formatPDF
	formatXLSX
)

// Extractor turns uploaded files into plain text. It never fails on a single
// unreadable page; only an unreadable container is reported as an error.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, doc domain.RawDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch detectFormat(doc) {
	case formatPDF:
		text, err := e.extractPDF(doc)
		if err != nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("%s: %w", doc.Filename, err))
		}
		return text, nil
	case formatXLSX:
		text, err := extractXLSX(doc.Data)
		if err != nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "extract xlsx", fmt.Errorf("%s: %w", doc.Filename, err))
		}
		return text, nil
	default:
		return e.extractText(doc), nil
	}
}

func detectFormat(doc domain.RawDocument) format {
	mime := strings.ToLower(doc.MimeType)
	switch {
	case strings.Contains(mime, "pdf"):
		return formatPDF
	case strings.Contains(mime, "spreadsheetml"):
		return formatXLSX
	}

	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return formatPDF
	case ".xlsx", ".xlsm":
		return formatXLSX
	}
	if strings.HasPrefix(string(doc.Data), "%PDF-") {
		return formatPDF
	}
	return formatText
}
