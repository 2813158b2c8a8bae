package ports

import (
	"context"
	"io"

	"github.com/lexora-app/lexora/internal/core/domain"
)

// SessionStore keeps analysis sessions for as long as they are active.
// Get and Update return domain.ErrDocumentNotFound for unknown or expired ids.
type SessionStore interface {
	Create(ctx context.Context, session *domain.AnalysisSession) error
	Get(ctx context.Context, id string) (*domain.AnalysisSession, error)
	// Update applies mutate to the current session atomically and returns the
	// stored result. A mutate error aborts the update unchanged.
	Update(ctx context.Context, id string, mutate func(*domain.AnalysisSession) error) (*domain.AnalysisSession, error)
}

// ObjectStorage holds uploaded bytes until a worker has processed them.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns uploaded bytes into text.
type TextExtractor interface {
	Extract(ctx context.Context, mimeType string, body io.Reader) (string, error)
}

// DocumentClassifier builds the analysis for extracted text.
type DocumentClassifier interface {
	Classify(text string) domain.DocumentAnalysis
}

// ChatResponder resolves a question to a canned answer.
type ChatResponder interface {
	Lookup(question string) (answer string, matched bool)
	SuggestedQuestions() []string
}
