// Package mcp exposes document classification and the chat responder as
// Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lexora-app/lexora/internal/core/domain"
	"github.com/lexora-app/lexora/internal/core/ports"
)

const (
	ToolClassifyDocument   = "classify_document"
	ToolAskQuestion        = "ask_question"
	ToolSuggestedQuestions = "suggested_questions"
)

var Version = "dev"

type Server struct {
	analyzer ports.DocumentAnalyzer
	chat     ports.ChatService
	logger   *slog.Logger
	mcp      *server.MCPServer
}

func NewServer(analyzer ports.DocumentAnalyzer, chat ports.ChatService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		analyzer: analyzer,
		chat:     chat,
		logger:   logger,
		mcp: server.NewMCPServer(
			"lexora",
			Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
			server.WithInstructions("Classify legal documents, explain clause risks and answer common tenant questions."),
		),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool(ToolClassifyDocument,
			mcp.WithDescription("Decide whether a document is legal, classify its type and list clause risks. Pass either text or path."),
			mcp.WithString("text", mcp.Description("Document text to classify.")),
			mcp.WithString("path", mcp.Description("Path to a .txt, .pdf or .docx file readable by the server.")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.classifyDocument,
	)
	s.mcp.AddTool(
		mcp.NewTool(ToolAskQuestion,
			mcp.WithDescription("Ask a question about an analysed document."),
			mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer.")),
			mcp.WithString("document_id", mcp.Description("Optional document id to record the exchange against.")),
		),
		s.askQuestion,
	)
	s.mcp.AddTool(
		mcp.NewTool(ToolSuggestedQuestions,
			mcp.WithDescription("List example questions the responder can answer."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.suggestedQuestions,
	)
}

// ServeStdio blocks until ctx is cancelled or stdin closes.
func (s *Server) ServeStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(os.Stderr, "mcp: ", log.LstdFlags))
	s.logger.Info("mcp_server_started", "tools", []string{ToolClassifyDocument, ToolAskQuestion, ToolSuggestedQuestions})
	err := stdio.Listen(ctx, stdin, stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve mcp stdio: %w", err)
	}
	return nil
}

func (s *Server) classifyDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	path := strings.TrimSpace(req.GetString("path", ""))

	switch {
	case path != "":
		session, err := s.analyzeFile(ctx, path)
		if err != nil {
			return toolError(s.logger, ToolClassifyDocument, err), nil
		}
		return jsonResult(session)
	case text != "":
		analysis, err := s.analyzer.AnalyzeText(ctx, text)
		if err != nil {
			return toolError(s.logger, ToolClassifyDocument, err), nil
		}
		return jsonResult(analysis)
	default:
		return mcp.NewToolResultError("either text or path is required"), nil
	}
}

func (s *Server) analyzeFile(ctx context.Context, path string) (*domain.AnalysisSession, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "open document", err)
		}
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	mimeType, _ := domain.MimeTypeForExtension(filepath.Ext(path))
	return s.analyzer.Analyze(ctx, filepath.Base(path), mimeType, info.Size(), file)
}

func (s *Server) askQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	exchange, err := s.chat.Ask(ctx, req.GetString("document_id", ""), question)
	if err != nil {
		return toolError(s.logger, ToolAskQuestion, err), nil
	}
	return jsonResult(exchange)
}

func (s *Server) suggestedQuestions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"questions": s.chat.SuggestedQuestions()})
}

// toolError reports caller mistakes verbatim and hides everything else.
func toolError(logger *slog.Logger, tool string, err error) *mcp.CallToolResult {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrUnsupportedFormat),
		domain.IsKind(err, domain.ErrTooLarge),
		domain.IsKind(err, domain.ErrDocumentNotFound):
		return mcp.NewToolResultError(err.Error())
	}
	logger.Error("mcp_tool_failed", "tool", tool, "error", err)
	return mcp.NewToolResultError("internal error")
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
