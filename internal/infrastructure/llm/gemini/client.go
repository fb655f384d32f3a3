package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/infrastructure/resilience"
)

const (
	provider = "gemini"

	DefaultModel       = "gemini-2.0-flash"
	DefaultEmbedModel  = "embedding-001"
	DefaultTemperature = 0.9
)

// DefaultModels is offered when no explicit model list is configured.
var DefaultModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-flash-8b",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemma-3-27b-it",
}

var errMissingKey = errors.New("GOOGLE_API_KEY is not set")

type Config struct {
	// BaseURL overrides the Gemini API endpoint; empty keeps the SDK default.
	BaseURL      string
	APIKey       string
	DefaultModel string
	Models       []string
	EmbedModel   string
	Temperature  float64
	Timeout      time.Duration
	Executor     *resilience.Executor
}

// Client is the hosted generation backend. Without an API key it stays in
// the "not configured" state and every call fails with domain.ErrNotConfigured.
type Client struct {
	cfg     Config
	sdk     *genai.Client
	initErr error
}

func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if len(cfg.Models) == 0 {
		cfg.Models = slices.Clone(DefaultModels)
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	cfg.EmbedModel = strings.TrimPrefix(cfg.EmbedModel, "models/")
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	c := &Client{cfg: cfg}
	if cfg.APIKey == "" {
		return c
	}
	sdkConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		sdkConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	c.sdk, c.initErr = genai.NewClient(context.Background(), sdkConfig)
	return c
}

func (c *Client) Configured() bool { return c.cfg.APIKey != "" && c.initErr == nil }

func (c *Client) DefaultModel() string { return c.cfg.DefaultModel }

func (c *Client) ListModels(context.Context) ([]string, error) {
	if err := c.ready("gemini list models"); err != nil {
		return nil, err
	}
	return slices.Clone(c.cfg.Models), nil
}

func (c *Client) Complete(ctx context.Context, prompt, model string) (string, error) {
	if err := c.ready("gemini complete"); err != nil {
		return "", err
	}
	if strings.TrimSpace(model) == "" {
		model = c.cfg.DefaultModel
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(c.cfg.Temperature)),
	}
	var response *genai.GenerateContentResponse
	err := c.call(ctx, "generate", func(ctx context.Context) error {
		var err error
		response, err = c.sdk.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
		return err
	})
	if err != nil {
		return "", err
	}

	if len(response.Candidates) == 0 {
		if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini generate: prompt blocked: %s", response.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini generate: empty candidates")
	}
	return strings.TrimSpace(response.Text()), nil
}

func (c *Client) ready(operation string) error {
	if c.cfg.APIKey == "" {
		return domain.WrapError(domain.ErrNotConfigured, operation, errMissingKey)
	}
	if c.initErr != nil {
		return domain.WrapError(domain.ErrNotConfigured, operation, c.initErr)
	}
	return nil
}

// call runs fn through the executor with SDK API errors surfaced as
// status errors, so throttling and 5xx answers are retried.
func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	op := provider + "." + operation
	attempt := func(ctx context.Context) error {
		return asStatusError(operation, fn(ctx))
	}
	if c.cfg.Executor == nil {
		return resilience.WrapTemporary(op, attempt(ctx))
	}
	return resilience.WrapTemporary(op, c.cfg.Executor.Execute(ctx, op, attempt, resilience.ClassifyHTTPError))
}

func asStatusError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) || apiErrPtr == nil {
			return err
		}
		apiErr = *apiErrPtr
	}
	return &resilience.HTTPStatusError{
		Provider:   provider,
		Operation:  operation,
		StatusCode: apiErr.Code,
		Status:     fmt.Sprintf("%d %s", apiErr.Code, apiErr.Status),
		Body:       apiErr.Message,
	}
}
