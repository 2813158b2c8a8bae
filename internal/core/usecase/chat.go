package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexora-app/lexora/internal/core/domain"
	"github.com/lexora-app/lexora/internal/core/ports"
)

type ChatUseCase struct {
	sessions     ports.SessionStore
	responder    ports.ChatResponder
	historyLimit int
	now          func() time.Time
}

func NewChatUseCase(sessions ports.SessionStore, responder ports.ChatResponder, historyLimit int) *ChatUseCase {
	return &ChatUseCase{
		sessions:     sessions,
		responder:    responder,
		historyLimit: historyLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Ask answers from the chat dictionary. A documentID naming a live session
// records the exchange there; any other id is passed through untouched.
func (uc *ChatUseCase) Ask(ctx context.Context, documentID, message string) (domain.ChatExchange, error) {
	if strings.TrimSpace(message) == "" {
		return domain.ChatExchange{}, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("no message provided"))
	}

	answer, matched := uc.responder.Lookup(message)
	exchange := domain.ChatExchange{
		DocumentID: documentID,
		Question:   message,
		Answer:     answer,
		Matched:    matched,
		Timestamp:  uc.now(),
	}

	if strings.TrimSpace(documentID) == "" || uc.sessions == nil {
		return exchange, nil
	}
	_, err := uc.sessions.Update(ctx, documentID, func(s *domain.AnalysisSession) error {
		s.AppendChat(exchange, uc.historyLimit)
		return nil
	})
	if err != nil && !domain.IsKind(err, domain.ErrDocumentNotFound) {
		return domain.ChatExchange{}, fmt.Errorf("record chat exchange: %w", err)
	}
	return exchange, nil
}

func (uc *ChatUseCase) History(ctx context.Context, documentID string) ([]domain.ChatExchange, error) {
	session, err := uc.sessions.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	if session.ChatHistory == nil {
		return []domain.ChatExchange{}, nil
	}
	return session.ChatHistory, nil
}

func (uc *ChatUseCase) SuggestedQuestions() []string {
	return uc.responder.SuggestedQuestions()
}
