// Package mcpadapter exposes the assistant as Model Context Protocol tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
)

const Version = "0.1.0"

type Server struct {
	assistant ports.Assistant
	server    *server.MCPServer
	logger    *slog.Logger
}

func NewServer(assistant ports.Assistant, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		assistant: assistant,
		server: server.NewMCPServer(
			"legal-assistant",
			Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		logger: logger,
	}
	s.registerTools()
	return s
}

// Serve speaks MCP over in/out until ctx is cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.server).Listen(ctx, in, out)
}

func (s *Server) registerTools() {
	s.server.AddTool(mcp.NewTool("answer_question",
		mcp.WithDescription("Answer a legal question grounded in the indexed law and case documents"),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer")),
		mcp.WithString("model_type", mcp.Required(), mcp.Description("Backend family: Gemini or Ollama")),
		mcp.WithString("model_name", mcp.Description("Model name; empty selects the backend default")),
		mcp.WithArray("categories", mcp.Description("Categories to search (default Laws and Case)"), mcp.WithStringItems()),
		mcp.WithString("ollama_host", mcp.Description("Explicit Ollama host URL")),
	), s.handleAnswer)

	s.server.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List available Gemini and Ollama models and the Ollama connection state"),
		mcp.WithString("ollama_host", mcp.Description("Explicit Ollama host URL")),
	), s.handleListModels)

	s.server.AddTool(mcp.NewTool("purge_categories",
		mcp.WithDescription("Delete the indexes of the given categories, or of every category when all is set"),
		mcp.WithArray("categories", mcp.Description("Categories to delete"), mcp.WithStringItems()),
		mcp.WithBoolean("all", mcp.Description("Delete every category; must not be combined with categories")),
	), s.handlePurge)
}

func (s *Server) handleAnswer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	modelType, err := req.RequireString("model_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.assistant.Answer(ctx, domain.AnswerRequest{
		Question:     question,
		Categories:   req.GetStringSlice("categories", nil),
		Backend:      modelType,
		Model:        req.GetString("model_name", ""),
		HostOverride: req.GetString("ollama_host", ""),
	})
	if err != nil {
		s.logger.Warn("mcp_answer_failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	if result.Failed {
		return mcp.NewToolResultError(result.Answer), nil
	}
	return mcp.NewToolResultText(result.Answer), nil
}

func (s *Server) handleListModels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalog := s.assistant.ListModels(ctx, req.GetString("ollama_host", ""))
	return jsonResult(catalog)
}

func (s *Server) handlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories := req.GetStringSlice("categories", nil)
	all := req.GetBool("all", false)
	switch {
	case all && len(categories) > 0:
		return mcp.NewToolResultError("set either categories or all, not both"), nil
	case all:
		if !s.assistant.PurgeAll(ctx) {
			return mcp.NewToolResultError("purge failed"), nil
		}
		return mcp.NewToolResultText("purged all categories"), nil
	case len(categories) == 0:
		return mcp.NewToolResultError("categories are required; set all to purge every category"), nil
	}

	for _, c := range categories {
		if err := domain.ValidateCategory(c); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if !s.assistant.Purge(ctx, categories) {
		return mcp.NewToolResultError("purge failed"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("purged %s", strings.Join(categories, ", "))), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
