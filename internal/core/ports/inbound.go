package ports

import (
	"context"
	"io"

	"github.com/lexora-app/lexora/internal/core/domain"
)

// DocumentAnalyzer is the inbound contract for synchronous upload analysis.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, filename, mimeType string, size int64, body io.Reader) (*domain.AnalysisSession, error)
	AnalyzeText(ctx context.Context, text string) (domain.DocumentAnalysis, error)
}

// DocumentIngestor is the inbound contract for asynchronous upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, size int64, body io.Reader) (*domain.AnalysisSession, error)
	Retry(ctx context.Context, documentID string) (*domain.AnalysisSession, error)
}

// DocumentReader is the inbound read model for analysis sessions.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.AnalysisSession, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// ChatService answers questions about an analysed document.
type ChatService interface {
	Ask(ctx context.Context, documentID, message string) (domain.ChatExchange, error)
	History(ctx context.Context, documentID string) ([]domain.ChatExchange, error)
	SuggestedQuestions() []string
}
