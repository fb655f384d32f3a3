// Package httpjson is the JSON-over-HTTP plumbing of the Ollama client.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/legal-assistant/internal/infrastructure/resilience"
)

type Request struct {
	Provider  string
	Operation string
	Method    string
	URL       string
	Headers   map[string]string
	Payload   any
}

// Do sends req and decodes a 2xx body into out. Non-2xx answers become a
// *resilience.HTTPStatusError carrying a bounded slice of the body.
func Do(ctx context.Context, client *http.Client, req Request, out any) error {
	var body io.Reader
	if req.Payload != nil {
		raw, err := json.Marshal(req.Payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", req.Operation, err)
		}
		body = bytes.NewReader(raw)
	}
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", req.Operation, err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s request: %w", req.Provider, req.Operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.HTTPStatusError{
			Provider:   req.Provider,
			Operation:  req.Operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Operation, err)
	}
	return nil
}
