package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/legal-assistant/internal/infrastructure/llm/httpjson"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/resilience"
)

const provider = "ollama"

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Executor is optional; without it calls are made once.
	Executor *resilience.Executor
}

// Client talks to one Ollama runtime. It is cheap to build, so a new client
// is created whenever the resolved host may have changed.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   cfg.Executor,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// ListModels is a single lightweight check; it is never retried so that a
// stopped runtime is reported quickly.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var response struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	err := httpjson.Do(ctx, c.httpClient, httpjson.Request{
		Provider:  provider,
		Operation: "tags",
		Method:    http.MethodGet,
		URL:       c.baseURL + "/api/tags",
	}, &response)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(response.Models))
	for _, m := range response.Models {
		name := m.Model
		if name == "" {
			name = m.Name
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

func (c *Client) Complete(ctx context.Context, prompt, model string) (string, error) {
	request := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": false,
	}

	var response struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	err := c.call(ctx, "chat", func(ctx context.Context) error {
		return httpjson.Do(ctx, c.httpClient, httpjson.Request{
			Provider:  provider,
			Operation: "chat",
			URL:       c.baseURL + "/api/chat",
			Payload:   request,
		}, &response)
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Message.Content), nil
}

func (c *Client) embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	request := map[string]any{
		"model": model,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := c.call(ctx, "embed", func(ctx context.Context) error {
		return httpjson.Do(ctx, c.httpClient, httpjson.Request{
			Provider:  provider,
			Operation: "embed",
			URL:       c.baseURL + "/api/embed",
			Payload:   request,
		}, &response)
	})
	if err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	op := provider + "." + operation
	if c.executor == nil {
		return resilience.WrapTemporary(op, fn(ctx))
	}
	err := c.executor.Execute(ctx, op+"@"+hostKey(c.baseURL), fn, resilience.ClassifyHTTPError)
	return resilience.WrapTemporary(op, err)
}

// hostKey folds spellings of one runtime address onto a single breaker.
func hostKey(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(baseURL)
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
