package document

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
)

func (e *Extractor) extractText(doc domain.RawDocument) string {
	if !utf8.Valid(doc.Data) {
		e.logger.Warn("document_not_utf8", "filename", doc.Filename, "size", len(doc.Data))
		return ""
	}
	return strings.TrimSpace(string(doc.Data))
}
