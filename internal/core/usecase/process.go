package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/lexora-app/lexora/internal/core/domain"
	"github.com/lexora-app/lexora/internal/core/ports"
)

// failureWriteTimeout bounds the write that records a failure after the
// processing context has already ended.
const failureWriteTimeout = 5 * time.Second

type ProcessDocumentUseCase struct {
	sessions   ports.SessionStore
	storage    ports.ObjectStorage
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	now        func() time.Time
}

func NewProcessDocumentUseCase(
	sessions ports.SessionStore,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		sessions:   sessions,
		storage:    storage,
		extractor:  extractor,
		classifier: classifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	session, err := uc.markChecking(ctx, documentID)
	if err != nil {
		return fmt.Errorf("set stage=checking_legality: %w", err)
	}

	analysis, err := uc.processPipeline(ctx, session)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed stage: %v", err, failErr)
		}
		return err
	}

	if err := uc.persistAnalysis(ctx, documentID, analysis); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed stage: %v", err, failErr)
		}
		return err
	}

	// Scratch bytes are dropped once the session holds the result; a leftover
	// file is harmless and a retry would re-read it.
	_ = uc.storage.Delete(ctx, session.StorageKey)
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, session *domain.AnalysisSession) (domain.DocumentAnalysis, error) {
	text, err := uc.extractText(ctx, session)
	if err != nil {
		return domain.DocumentAnalysis{}, err
	}
	return uc.classifier.Classify(text), nil
}

func (uc *ProcessDocumentUseCase) markChecking(ctx context.Context, documentID string) (*domain.AnalysisSession, error) {
	return uc.sessions.Update(ctx, documentID, func(s *domain.AnalysisSession) error {
		return s.Advance(domain.EventCheck, uc.now())
	})
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, session *domain.AnalysisSession) (string, error) {
	body, err := uc.storage.Open(ctx, session.StorageKey)
	if err != nil {
		return "", fmt.Errorf("open stored document: %w", err)
	}
	defer body.Close()

	text, err := uc.extractor.Extract(ctx, session.MimeType, body)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

func (uc *ProcessDocumentUseCase) persistAnalysis(ctx context.Context, documentID string, analysis domain.DocumentAnalysis) error {
	_, err := uc.sessions.Update(ctx, documentID, func(s *domain.AnalysisSession) error {
		return applyAnalysis(s, analysis, uc.now())
	})
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	ctx, cancel := detachedContext(ctx)
	defer cancel()
	_, err := uc.sessions.Update(ctx, documentID, func(s *domain.AnalysisSession) error {
		if err := s.Advance(domain.EventFail, uc.now()); err != nil {
			return err
		}
		s.Error = processErr.Error()
		return nil
	})
	return err
}

// detachedContext keeps ctx values but survives its cancellation, so a
// timed-out or shutting-down run can still leave the session in failed.
func detachedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
}
