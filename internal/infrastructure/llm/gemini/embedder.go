package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// maxBatch is the request limit of batchEmbedContents.
const maxBatch = 100

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Available() bool { return e.client != nil && e.client.Configured() }

func (e *Embedder) Model() string { return provider + "/" + e.client.cfg.EmbedModel }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vectors, err := e.embedBatch(ctx, texts[start:end], taskDocument)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedBatch(ctx, []string{text}, taskQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string, task string) ([][]float32, error) {
	c := e.client
	if err := c.ready("gemini embed"); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}
	config := &genai.EmbedContentConfig{TaskType: task}

	var response *genai.EmbedContentResponse
	err := c.call(ctx, "embed", func(ctx context.Context) error {
		var err error
		response, err = c.sdk.Models.EmbedContent(ctx, c.cfg.EmbedModel, contents, config)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d embeddings for %d inputs", len(response.Embeddings), len(texts))
	}

	out := make([][]float32, len(response.Embeddings))
	for i, emb := range response.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini embed: empty embedding at %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}
