package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/legal-assistant/internal/config"
	"github.com/kirillkom/legal-assistant/internal/core/domain"
)

type assistantFake struct {
	ingestOK     bool
	ingested     []domain.RawDocument
	category     string
	answer       domain.GenerationResult
	answerErr    error
	lastQuestion domain.AnswerRequest
	purged       []string
	purgeCalled  bool
	purgedAll    bool
	catalog      domain.ModelCatalog
	override     string
}

func (f *assistantFake) Ingest(_ context.Context, category string, docs []domain.RawDocument) bool {
	f.category = category
	f.ingested = docs
	return f.ingestOK
}

func (f *assistantFake) Answer(_ context.Context, req domain.AnswerRequest) (domain.GenerationResult, error) {
	f.lastQuestion = req
	return f.answer, f.answerErr
}

func (f *assistantFake) Purge(_ context.Context, categories []string) bool {
	f.purgeCalled = true
	f.purged = categories
	return true
}

func (f *assistantFake) PurgeAll(context.Context) bool {
	f.purgedAll = true
	return true
}

func (f *assistantFake) ListModels(_ context.Context, hostOverride string) domain.ModelCatalog {
	f.override = hostOverride
	return f.catalog
}

type schedulerFake struct {
	err error
}

func (f schedulerFake) Schedule(_ context.Context, category string, docs []domain.RawDocument) (*domain.IngestJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	keys := make([]string, len(docs))
	for i := range docs {
		keys[i] = "job-1_file"
	}
	return &domain.IngestJob{ID: "job-1", Category: category, Keys: keys}, nil
}

func newTestHandler(cfg config.Config, assistant *assistantFake, scheduler *schedulerFake) http.Handler {
	if scheduler == nil {
		return NewRouter(cfg, assistant, nil).Handler()
	}
	return NewRouter(cfg, assistant, scheduler).Handler()
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthzIncludesBreakerStates(t *testing.T) {
	handler := NewRouter(config.Config{}, &assistantFake{}, nil).
		WithBreakerStates(func() map[string]string { return map[string]string{"gemini.generate": "closed"} }).
		Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	breakers, ok := body["breakers"].(map[string]any)
	if !ok || breakers["gemini.generate"] != "closed" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestUploadDocumentsSynchronous(t *testing.T) {
	assistant := &assistantFake{ingestOK: true}
	handler := newTestHandler(config.Config{}, assistant, nil)

	body, contentType := multipartBody(t, "files", map[string]string{"a.txt": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/v1/categories/Laws/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if assistant.category != "Laws" || len(assistant.ingested) != 1 || string(assistant.ingested[0].Data) != "hello" {
		t.Fatalf("unexpected ingest call: %q %+v", assistant.category, assistant.ingested)
	}
	if got := decodeBody(t, res)["Laws"]; got != "Success" {
		t.Fatalf("unexpected status %v", got)
	}
}

func TestUploadDocumentsReportsFailure(t *testing.T) {
	handler := newTestHandler(config.Config{}, &assistantFake{ingestOK: false}, nil)

	body, contentType := multipartBody(t, "files", map[string]string{"a.txt": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/v1/categories/Case/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
}

func TestUploadDocumentsAsyncReturnsJob(t *testing.T) {
	assistant := &assistantFake{}
	handler := newTestHandler(config.Config{}, assistant, &schedulerFake{})

	body, contentType := multipartBody(t, "files", map[string]string{"a.txt": "hello", "b.txt": "world"})
	req := httptest.NewRequest(http.MethodPost, "/v1/categories/Laws/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	out := decodeBody(t, res)
	if out["job_id"] != "job-1" || out["files"] != float64(2) {
		t.Fatalf("unexpected body: %v", out)
	}
	if assistant.ingested != nil {
		t.Fatalf("async upload must not ingest inline")
	}
}

func TestUploadRejectsBadCategoryAndMissingFiles(t *testing.T) {
	handler := newTestHandler(config.Config{}, &assistantFake{ingestOK: true}, nil)

	body, contentType := multipartBody(t, "files", map[string]string{"a.txt": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/v1/categories/..bad/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad category, got %d", res.Code)
	}

	body, contentType = multipartBody(t, "other", map[string]string{"a.txt": "hello"})
	req = httptest.NewRequest(http.MethodPost, "/v1/categories/Laws/documents", body)
	req.Header.Set("Content-Type", contentType)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing files, got %d", res.Code)
	}
}

func TestLegacyUploadUsesFixedCategory(t *testing.T) {
	assistant := &assistantFake{ingestOK: true}
	handler := newTestHandler(config.Config{}, assistant, nil)

	body, contentType := multipartBody(t, "case_files", map[string]string{"c.txt": "ruling"})
	req := httptest.NewRequest(http.MethodPost, "/upload_case/", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK || assistant.category != "Case" {
		t.Fatalf("unexpected result: code=%d category=%q", res.Code, assistant.category)
	}
}

func TestQueryPassesRequestThrough(t *testing.T) {
	assistant := &assistantFake{answer: domain.GenerationResult{Answer: "ok", Grounded: true, Model: "llama3"}}
	handler := newTestHandler(config.Config{}, assistant, nil)

	payload := `{"question":"What is a tort?","categories":["Laws"],"model_type":"Ollama","model_name":"llama3","ollama_host":"http://10.0.0.5:11434"}`
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(payload)))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := assistant.lastQuestion; got.Backend != "Ollama" || got.HostOverride != "http://10.0.0.5:11434" || len(got.Categories) != 1 {
		t.Fatalf("unexpected request: %+v", got)
	}
	out := decodeBody(t, res)
	if out["response"] != "ok" || out["grounded"] != true {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestQueryMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{name: "invalid backend", err: &domain.DispatchError{Kind: domain.DispatchInvalidBackend, Backend: "Claude"}, code: http.StatusBadRequest},
		{name: "model not found", err: &domain.DispatchError{Kind: domain.DispatchModelNotFound, Model: "x"}, code: http.StatusNotFound},
		{name: "unavailable", err: &domain.DispatchError{Kind: domain.DispatchBackendUnavailable}, code: http.StatusServiceUnavailable},
		{name: "invalid input", err: domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is required")), code: http.StatusBadRequest},
		{name: "unknown", err: errors.New("boom"), code: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(config.Config{}, &assistantFake{answerErr: tc.err}, nil)
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"question":"q"}`)))
			if res.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, res.Code)
			}
			if out := decodeBody(t, res); out["response"] != tc.err.Error() {
				t.Fatalf("expected message in response, got %v", out)
			}
		})
	}
}

func TestPurgeAcceptsBothFieldNames(t *testing.T) {
	assistant := &assistantFake{}
	handler := newTestHandler(config.Config{}, assistant, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/categories", strings.NewReader(`{"categories":["Laws"]}`)))
	if res.Code != http.StatusOK || len(assistant.purged) != 1 || assistant.purged[0] != "Laws" {
		t.Fatalf("unexpected purge: code=%d purged=%v", res.Code, assistant.purged)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/cleanup/", strings.NewReader(`{"database":["Case"]}`)))
	if res.Code != http.StatusOK || assistant.purged[0] != "Case" {
		t.Fatalf("unexpected legacy purge: code=%d purged=%v", res.Code, assistant.purged)
	}
}

func TestPurgeRequiresCategoriesOrAll(t *testing.T) {
	bodies := map[string]string{
		"no body":          "",
		"empty object":     `{}`,
		"empty list":       `{"categories":[]}`,
		"misspelled field": `{"databases":["Laws"]}`,
		"all with a list":  `{"all":true,"categories":["Laws"]}`,
		"all set to false": `{"all":false}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			assistant := &assistantFake{}
			handler := newTestHandler(config.Config{}, assistant, nil)

			res := httptest.NewRecorder()
			handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/cleanup/", strings.NewReader(body)))
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", res.Code)
			}
			if assistant.purgeCalled || assistant.purgedAll {
				t.Fatalf("expected nothing purged")
			}
		})
	}
}

func TestPurgeAllNeedsExplicitFlag(t *testing.T) {
	assistant := &assistantFake{}
	handler := newTestHandler(config.Config{}, assistant, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/categories", strings.NewReader(`{"all":true}`)))
	if res.Code != http.StatusOK || !assistant.purgedAll || assistant.purgeCalled {
		t.Fatalf("unexpected purge: code=%d all=%v named=%v", res.Code, assistant.purgedAll, assistant.purgeCalled)
	}
	if out := decodeBody(t, res); out["message"] != "Database [all] cleaned successfully" {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestListModelsForwardsHostOverride(t *testing.T) {
	assistant := &assistantFake{catalog: domain.ModelCatalog{
		Local: domain.ConnectionState{
			Host:          "http://10.0.0.5:11434",
			Mode:          domain.ConnectionExternal,
			Containerized: true,
			Reachable:     true,
			Models:        []string{"llama3"},
		},
		HostedConfigured: true,
		HostedModels:     []string{"gemini-2.0-flash"},
	}}
	handler := newTestHandler(config.Config{}, assistant, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/models?ollama_host=http://10.0.0.5:11434", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if assistant.override != "http://10.0.0.5:11434" {
		t.Fatalf("override not forwarded: %q", assistant.override)
	}
	out := decodeBody(t, res)
	if out["docker"] != true || out["connection"] != true || out["connection_type"] != "external" {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestLegacyListModelsKeepsFirstReleaseKeys(t *testing.T) {
	assistant := &assistantFake{catalog: domain.ModelCatalog{
		Local: domain.ConnectionState{
			Host:      "http://localhost:11434",
			Mode:      domain.ConnectionLocal,
			Reachable: true,
		},
		HostedModels: []string{"gemini-2.0-flash"},
	}}
	handler := newTestHandler(config.Config{}, assistant, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/list_models/?Ollama_host=http://localhost:11434", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if assistant.override != "http://localhost:11434" {
		t.Fatalf("override not forwarded: %q", assistant.override)
	}
	out := decodeBody(t, res)
	if out["Connection_type"] != "local" || out["connection"] != true || out["docker"] != false {
		t.Fatalf("unexpected body: %v", out)
	}
	if _, ok := out["connection_type"]; ok {
		t.Fatalf("legacy body must not carry the lower-case key: %v", out)
	}
	if models, ok := out["ollama_models"].([]any); !ok || len(models) != 0 {
		t.Fatalf("expected empty ollama_models list, got %v", out["ollama_models"])
	}
	if models, ok := out["gemini_models"].([]any); !ok || len(models) != 1 {
		t.Fatalf("unexpected gemini_models: %v", out["gemini_models"])
	}
}
