package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/lexora-app/lexora/internal/core/domain"
)

type sessionStoreFake struct {
	mu        sync.Mutex
	sessions  map[string]domain.AnalysisSession
	createErr error
	updateErr error
	updates   int
}

func newSessionStoreFake() *sessionStoreFake {
	return &sessionStoreFake{sessions: make(map[string]domain.AnalysisSession)}
}

func (f *sessionStoreFake) Create(_ context.Context, session *domain.AnalysisSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.sessions[session.ID] = *session
	return nil
}

func (f *sessionStoreFake) Get(_ context.Context, id string) (*domain.AnalysisSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get session", errors.New(id))
	}
	return &session, nil
}

func (f *sessionStoreFake) Update(ctx context.Context, id string, mutate func(*domain.AnalysisSession) error) (*domain.AnalysisSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "update session", err)
	}
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	session, ok := f.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "update session", errors.New(id))
	}
	session.ChatHistory = append([]domain.ChatExchange(nil), session.ChatHistory...)
	if err := mutate(&session); err != nil {
		return nil, err
	}
	f.sessions[id] = session
	return &session, nil
}

func (f *sessionStoreFake) stage(id string) domain.Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id].Stage
}

type storageFake struct {
	objects map[string][]byte
	saveErr error
	openErr error
	deleted []string
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open object", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type extractorFake struct {
	err      error
	mimeType string
	// cancel, when set, ends the caller's context mid-extraction.
	cancel context.CancelFunc
}

func (f *extractorFake) Extract(ctx context.Context, mimeType string, body io.Reader) (string, error) {
	f.mimeType = mimeType
	if f.cancel != nil {
		f.cancel()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

type classifierFake struct {
	analysis domain.DocumentAnalysis
	texts    []string
}

func (f *classifierFake) Classify(text string) domain.DocumentAnalysis {
	f.texts = append(f.texts, text)
	return f.analysis
}

type responderFake struct{}

func (responderFake) Lookup(question string) (string, bool) {
	if question == "rent?" {
		return "rent answer", true
	}
	return "default answer", false
}

func (responderFake) SuggestedQuestions() []string {
	return []string{"rent?"}
}

func legalAnalysis() domain.DocumentAnalysis {
	clauses := []domain.Clause{{ID: "1", RiskLevel: domain.RiskHigh, Suggestions: []string{}}}
	return domain.DocumentAnalysis{
		IsLegalDocument: true,
		DocumentType:    "Rental Agreement",
		Confidence:      50,
		Clauses:         clauses,
		RiskSummary:     domain.SummarizeRisk(clauses),
	}
}
