package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/ledongthuc/pdf"
)

func (e *Extractor) extractPDF(doc domain.RawDocument) (string, error) {
	if len(doc.Data) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		text, err := pageText(reader, i)
		if err != nil {
			e.logger.Warn("pdf_page_unreadable",
				"filename", doc.Filename,
				"page", i,
				"error", err,
			)
			text = ""
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

// pageText reads one page; malformed content streams make the pdf package
// panic, which is reported as a page error.
func pageText(reader *pdf.Reader, index int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page %d: %v", index, r)
		}
	}()

	page := reader.Page(index)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
