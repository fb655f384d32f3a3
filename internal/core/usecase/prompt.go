package usecase

import (
	"fmt"
	"strings"
)

const hostedTemplate = `Your name is 'PDF AI'.
Answer thoroughly and accurately based on the provided contexts.

Context:
%s

Question:
%s

Answer:
`

func buildHostedPrompt(question string, passages []string) string {
	q := strings.TrimSpace(question)
	if !strings.HasSuffix(q, "?") {
		q += "?"
	}
	return fmt.Sprintf(hostedTemplate, strings.Join(passages, "\n\n"), q)
}

func buildLocalPrompt(question string, passages []string) string {
	q := strings.TrimSpace(question)
	if len(passages) == 0 {
		return fmt.Sprintf("\n\nQuestion: %s\n\nAnswer:", q)
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer:", strings.Join(passages, "\n\n"), q)
}
