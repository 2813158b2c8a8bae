package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/lexora-app/lexora/internal/core/domain"
	"github.com/lexora-app/lexora/internal/core/ports"
)

// AnalyzeDocumentUseCase runs the whole lifecycle of one upload inside the request.
type AnalyzeDocumentUseCase struct {
	sessions   ports.SessionStore
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	limits     domain.UploadLimits
	now        func() time.Time
}

func NewAnalyzeDocumentUseCase(
	sessions ports.SessionStore,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	limits domain.UploadLimits,
) *AnalyzeDocumentUseCase {
	return &AnalyzeDocumentUseCase{
		sessions:   sessions,
		extractor:  extractor,
		classifier: classifier,
		limits:     limits,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *AnalyzeDocumentUseCase) Analyze(
	ctx context.Context,
	filename, mimeType string,
	size int64,
	body io.Reader,
) (*domain.AnalysisSession, error) {
	mimeType = domain.NormalizeMimeType(filename, mimeType)
	if err := uc.limits.Validate(filename, mimeType, size); err != nil {
		return nil, err
	}

	raw, err := readUpload(body, uc.limits)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	session := &domain.AnalysisSession{
		ID:           uuid.NewString(),
		DocumentName: filename,
		MimeType:     mimeType,
		SizeBytes:    int64(len(raw)),
		Stage:        domain.StageIdle,
		ChatHistory:  []domain.ChatExchange{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := advance(session, now, domain.EventSelectFile, domain.EventCheck); err != nil {
		return nil, err
	}

	text, err := uc.extractor.Extract(ctx, mimeType, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	analysis := uc.classifier.Classify(text)
	if err := applyAnalysis(session, analysis, uc.now()); err != nil {
		return nil, err
	}

	if err := uc.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("store analysis session: %w", err)
	}
	return session, nil
}

// AnalyzeText classifies text that was extracted elsewhere; nothing is stored.
func (uc *AnalyzeDocumentUseCase) AnalyzeText(_ context.Context, text string) (domain.DocumentAnalysis, error) {
	return uc.classifier.Classify(text), nil
}

// applyAnalysis walks a checking_legality session to complete or rejected.
func applyAnalysis(session *domain.AnalysisSession, analysis domain.DocumentAnalysis, now time.Time) error {
	session.Analysis = &analysis
	session.Error = ""
	if !analysis.IsLegalDocument {
		return advance(session, now, domain.EventReject)
	}
	return advance(session, now, domain.EventConfirmLegal, domain.EventAnalyze, domain.EventFinish)
}

func advance(session *domain.AnalysisSession, now time.Time, events ...domain.StageEvent) error {
	for _, event := range events {
		if err := session.Advance(event, now); err != nil {
			return fmt.Errorf("session %s: %w", session.ID, err)
		}
	}
	return nil
}

// readUpload reads at most one byte past the limit so oversized bodies of
// unknown length are still rejected.
func readUpload(body io.Reader, limits domain.UploadLimits) ([]byte, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("no file provided"))
	}
	raw, err := io.ReadAll(io.LimitReader(body, limits.Max()+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > limits.Max() {
		return nil, limits.TooLarge()
	}
	return raw, nil
}
