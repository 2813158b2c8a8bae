package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lexora-app/lexora/internal/core/domain"
	"github.com/lexora-app/lexora/internal/core/ports"
)

type IngestDocumentUseCase struct {
	sessions ports.SessionStore
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	limits   domain.UploadLimits
	now      func() time.Time
}

func NewIngestDocumentUseCase(
	sessions ports.SessionStore,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	limits domain.UploadLimits,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		sessions: sessions,
		storage:  storage,
		queue:    queue,
		limits:   limits,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *IngestDocumentUseCase) Upload(
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

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := uc.now()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	session := &domain.AnalysisSession{
		ID:           id,
		DocumentName: filename,
		MimeType:     mimeType,
		SizeBytes:    int64(len(raw)),
		StorageKey:   storageKey,
		Stage:        domain.StageIdle,
		ChatHistory:  []domain.ChatExchange{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := advance(session, now, domain.EventSelectFile); err != nil {
		return nil, err
	}

	if err := uc.sessions.Create(ctx, session); err != nil {
		cleanupCtx, cancel := detachedContext(ctx)
		defer cancel()
		_ = uc.storage.Delete(cleanupCtx, storageKey)
		return nil, fmt.Errorf("create analysis session: %w", err)
	}

	if err := uc.publish(ctx, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

// Retry requeues a failed session. Stored bytes are kept for failed sessions,
// so the worker can read them again.
func (uc *IngestDocumentUseCase) Retry(ctx context.Context, documentID string) (*domain.AnalysisSession, error) {
	session, err := uc.sessions.Update(ctx, documentID, func(s *domain.AnalysisSession) error {
		if err := s.Advance(domain.EventRetry, uc.now()); err != nil {
			return err
		}
		s.Error = ""
		s.Analysis = nil
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("retry analysis session: %w", err)
	}
	if err := uc.publish(ctx, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

// publish queues the session and marks it failed when the queue refuses.
func (uc *IngestDocumentUseCase) publish(ctx context.Context, documentID string) error {
	err := uc.queue.PublishDocumentIngested(ctx, documentID)
	if err == nil {
		return nil
	}
	publishErr := fmt.Errorf("publish ingestion event: %w", err)
	ctx, cancel := detachedContext(ctx)
	defer cancel()
	_, _ = uc.sessions.Update(ctx, documentID, func(s *domain.AnalysisSession) error {
		if err := s.Advance(domain.EventFail, uc.now()); err != nil {
			return err
		}
		s.Error = publishErr.Error()
		return nil
	})
	return publishErr
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
