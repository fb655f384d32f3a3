package domain

import (
	"fmt"
	"regexp"
)

var (
	DefaultCategories = []string{"Laws", "Case"}

	categoryPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)
)

// ValidateCategory rejects names that cannot be used as an index directory.
func ValidateCategory(name string) error {
	if !categoryPattern.MatchString(name) {
		return WrapError(ErrInvalidInput, "validate category", fmt.Errorf("invalid category name %q", name))
	}
	return nil
}

// RawDocument is an uploaded file awaiting text extraction.
type RawDocument struct {
	Filename string
	MimeType string
	Data     []byte
}

type SearchHit struct {
	Text     string  `json:"text"`
	Distance float32 `json:"distance"`
}

type CategoryMatches struct {
	Category string      `json:"category"`
	Passages []SearchHit `json:"passages"`
}

// RetrievalResult keeps one entry per requested category in request order.
// An empty Passages slice means the category had no matches.
type RetrievalResult struct {
	Matches []CategoryMatches `json:"matches"`
}

func NewRetrievalResult(categories []string) RetrievalResult {
	matches := make([]CategoryMatches, 0, len(categories))
	for _, category := range categories {
		matches = append(matches, CategoryMatches{
			Category: category,
			Passages: []SearchHit{},
		})
	}
	return RetrievalResult{Matches: matches}
}

func (r RetrievalResult) Categories() []string {
	out := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		out = append(out, m.Category)
	}
	return out
}

func (r RetrievalResult) Passages(category string) ([]SearchHit, bool) {
	for _, m := range r.Matches {
		if m.Category == category {
			return m.Passages, true
		}
	}
	return nil, false
}

// Flatten returns passage texts category by category, each in rank order.
func (r RetrievalResult) Flatten() []string {
	var out []string
	for _, m := range r.Matches {
		for _, hit := range m.Passages {
			out = append(out, hit.Text)
		}
	}
	return out
}

func (r RetrievalResult) Total() int {
	total := 0
	for _, m := range r.Matches {
		total += len(m.Passages)
	}
	return total
}
