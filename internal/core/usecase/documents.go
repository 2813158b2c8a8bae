package usecase

import (
	"context"
	"fmt"

	"github.com/lexora-app/lexora/internal/core/domain"
	"github.com/lexora-app/lexora/internal/core/ports"
)

// GetDocumentUseCase is the read model over analysis sessions.
type GetDocumentUseCase struct {
	sessions ports.SessionStore
}

func NewGetDocumentUseCase(sessions ports.SessionStore) *GetDocumentUseCase {
	return &GetDocumentUseCase{sessions: sessions}
}

func (uc *GetDocumentUseCase) GetByID(ctx context.Context, id string) (*domain.AnalysisSession, error) {
	session, err := uc.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get analysis session: %w", err)
	}
	return session, nil
}
