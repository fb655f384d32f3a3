package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/legal-assistant/internal/config"
	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
	"github.com/kirillkom/legal-assistant/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	assistant ports.Assistant
	scheduler ports.IngestScheduler

	metrics  *metrics.HTTPServerMetrics
	breakers func() map[string]string

	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
	maxUploadBytes   int64
}

// NewRouter builds the HTTP surface. A nil scheduler keeps ingestion
// synchronous.
func NewRouter(cfg config.Config, assistant ports.Assistant, scheduler ports.IngestScheduler) *Router {
	maxUpload := cfg.APIMaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 64 << 20
	}
	return &Router{
		assistant:        assistant,
		scheduler:        scheduler,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIMaxInFlight,
		backpressureWait: cfg.APIBackpressureWait,
		maxUploadBytes:   maxUpload,
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

// WithBreakerStates exposes outbound circuit breaker states on /healthz.
func (rt *Router) WithBreakerStates(states func() map[string]string) *Router {
	rt.breakers = states
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("GET /v1/models", rt.listModels)
	mux.HandleFunc("POST /v1/categories/{category}/documents", rt.uploadDocuments)
	mux.HandleFunc("POST /v1/query", rt.query)
	mux.HandleFunc("DELETE /v1/categories", rt.purge)

	// Routes kept for clients of the first release.
	mux.HandleFunc("GET /list_models/", rt.listModelsLegacy)
	mux.HandleFunc("POST /upload_law/", rt.uploadLegacy("Laws", "law_files"))
	mux.HandleFunc("POST /upload_case/", rt.uploadLegacy("Case", "case_files"))
	mux.HandleFunc("POST /query/", rt.query)
	mux.HandleFunc("DELETE /cleanup/", rt.purge)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{"status": "ok"}
	if rt.breakers != nil {
		payload["breakers"] = rt.breakers()
	}
	writeJSON(w, http.StatusOK, payload)
}

type modelsResponse struct {
	Docker         bool     `json:"docker"`
	Connected      bool     `json:"connection"`
	ConnectionType string   `json:"connection_type"`
	Host           string   `json:"host"`
	OllamaModels   []string `json:"ollama_models"`
	GeminiReady    bool     `json:"gemini_configured"`
	GeminiModels   []string `json:"gemini_models"`
}

// legacyModelsResponse keeps the key spelling of the first release.
type legacyModelsResponse struct {
	Docker         bool     `json:"docker"`
	Connected      bool     `json:"connection"`
	ConnectionType string   `json:"Connection_type"`
	OllamaModels   []string `json:"ollama_models"`
	GeminiModels   []string `json:"gemini_models"`
}

func (rt *Router) listModels(w http.ResponseWriter, r *http.Request) {
	catalog := rt.catalog(r)
	writeJSON(w, http.StatusOK, modelsResponse{
		Docker:         catalog.Local.Containerized,
		Connected:      catalog.Local.Reachable,
		ConnectionType: string(catalog.Local.Mode),
		Host:           catalog.Local.Host,
		OllamaModels:   catalog.Local.Models,
		GeminiReady:    catalog.HostedConfigured,
		GeminiModels:   catalog.HostedModels,
	})
}

func (rt *Router) listModelsLegacy(w http.ResponseWriter, r *http.Request) {
	catalog := rt.catalog(r)
	writeJSON(w, http.StatusOK, legacyModelsResponse{
		Docker:         catalog.Local.Containerized,
		Connected:      catalog.Local.Reachable,
		ConnectionType: string(catalog.Local.Mode),
		OllamaModels:   catalog.Local.Models,
		GeminiModels:   catalog.HostedModels,
	})
}

func (rt *Router) catalog(r *http.Request) domain.ModelCatalog {
	override := r.URL.Query().Get("ollama_host")
	if override == "" {
		override = r.URL.Query().Get("Ollama_host")
	}
	catalog := rt.assistant.ListModels(r.Context(), override)
	if catalog.Local.Models == nil {
		catalog.Local.Models = []string{}
	}
	if catalog.HostedModels == nil {
		catalog.HostedModels = []string{}
	}
	return catalog
}

func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	rt.ingest(w, r, r.PathValue("category"), "files")
}

func (rt *Router) uploadLegacy(category, field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt.ingest(w, r, category, field)
	}
}

func (rt *Router) ingest(w http.ResponseWriter, r *http.Request, category, field string) {
	if err := domain.ValidateCategory(category); err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	docs, err := readUploads(r.MultipartForm.File[field])
	if err != nil {
		writeError(w, err)
		return
	}
	if len(docs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  fmt.Sprintf("multipart field '%s' is required", field),
			category: "No files uploaded",
		})
		return
	}

	if rt.scheduler != nil {
		job, err := rt.scheduler.Schedule(r.Context(), category, docs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"job_id":   job.ID,
			"category": category,
			"files":    len(job.Keys),
		})
		return
	}

	if !rt.assistant.Ingest(r.Context(), category, docs) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{category: "Failure"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{category: "Success"})
}

func readUploads(headers []*multipart.FileHeader) ([]domain.RawDocument, error) {
	docs := make([]domain.RawDocument, 0, len(headers))
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
		}
		docs = append(docs, domain.RawDocument{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return docs, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

type queryRequest struct {
	Question   string   `json:"question"`
	Categories []string `json:"categories"`
	ModelType  string   `json:"model_type"`
	ModelName  string   `json:"model_name"`
	OllamaHost string   `json:"ollama_host"`
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.assistant.Answer(r.Context(), domain.AnswerRequest{
		Question:     req.Question,
		Categories:   req.Categories,
		Backend:      req.ModelType,
		Model:        req.ModelName,
		HostOverride: req.OllamaHost,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type purgeRequest struct {
	Categories []string `json:"categories"`
	// Database is the field name used by the first release.
	Database []string `json:"database"`
	// All purges every category and excludes an explicit list.
	All bool `json:"all"`
}

func (rt *Router) purge(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	categories := req.Categories
	if len(categories) == 0 {
		categories = req.Database
	}
	switch {
	case req.All && len(categories) > 0:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "set either categories or all, not both"})
		return
	case !req.All && len(categories) == 0:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "categories are required; set all to purge every category"})
		return
	}
	for _, c := range categories {
		if err := domain.ValidateCategory(c); err != nil {
			writeError(w, err)
			return
		}
	}

	var ok bool
	label := "all"
	if req.All {
		ok = rt.assistant.PurgeAll(r.Context())
	} else {
		ok = rt.assistant.Purge(r.Context(), categories)
		label = strings.Join(categories, ", ")
	}
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "purge failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Database [%s] cleaned successfully", label),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError keeps the user-facing message under "response" so older
// clients render dispatch failures the same way as answers.
func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_error", "status", status, "error", err)
	}
	msg := err.Error()
	if dispatchErr, ok := domain.AsDispatchError(err); ok {
		msg = dispatchErr.Error()
	}
	writeJSON(w, status, map[string]string{"error": msg, "response": msg})
}
