package httpadapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lexora-app/lexora/internal/config"
	"github.com/lexora-app/lexora/internal/core/domain"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type analyzerFake struct {
	session  *domain.AnalysisSession
	analysis domain.DocumentAnalysis
	err      error

	gotName string
	gotMime string
	gotBody string
	gotText string
}

func (f *analyzerFake) Analyze(_ context.Context, filename, mimeType string, _ int64, body io.Reader) (*domain.AnalysisSession, error) {
	f.gotName = filename
	f.gotMime = mimeType
	raw, _ := io.ReadAll(body)
	f.gotBody = string(raw)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *analyzerFake) AnalyzeText(_ context.Context, text string) (domain.DocumentAnalysis, error) {
	f.gotText = text
	return f.analysis, f.err
}

type ingestorFake struct {
	session *domain.AnalysisSession
	err     error

	uploads int
	retried string
}

func (f *ingestorFake) Upload(_ context.Context, _ string, _ string, _ int64, body io.Reader) (*domain.AnalysisSession, error) {
	f.uploads++
	_, _ = io.Copy(io.Discard, body)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *ingestorFake) Retry(_ context.Context, documentID string) (*domain.AnalysisSession, error) {
	f.retried = documentID
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type readerFake struct {
	sessions map[string]*domain.AnalysisSession
}

func (f *readerFake) GetByID(_ context.Context, id string) (*domain.AnalysisSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get session", fmt.Errorf("session %q", id))
	}
	return session, nil
}

type chatFake struct {
	exchange domain.ChatExchange
	history  []domain.ChatExchange
	err      error

	gotDocumentID string
	gotMessage    string
}

func (f *chatFake) Ask(_ context.Context, documentID, message string) (domain.ChatExchange, error) {
	f.gotDocumentID = documentID
	f.gotMessage = message
	if f.err != nil {
		return domain.ChatExchange{}, f.err
	}
	return f.exchange, nil
}

func (f *chatFake) History(_ context.Context, _ string) ([]domain.ChatExchange, error) {
	if f.history == nil {
		return []domain.ChatExchange{}, f.err
	}
	return f.history, f.err
}

func (f *chatFake) SuggestedQuestions() []string {
	return []string{"What is the rent amount?", "Can I terminate early?"}
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, &analyzerFake{}, &ingestorFake{}, &readerFake{}, &chatFake{}).Handler()
}

func legalAnalysisFixture() domain.DocumentAnalysis {
	clauses := []domain.Clause{
		{ID: "1", Title: "Rent Payment", RiskLevel: domain.RiskLow, Suggestions: []string{}},
		{ID: "2", Title: "Security Deposit", RiskLevel: domain.RiskHigh, Suggestions: []string{"Ask for an itemised list"}},
	}
	return domain.DocumentAnalysis{
		IsLegalDocument: true,
		DocumentType:    "Rental Agreement",
		Confidence:      45.45,
		Summary: domain.Summary{
			Title:     "Rental Agreement Analysis",
			KeyPoints: []string{},
			RiskLevel: domain.RiskMedium,
		},
		Clauses:     clauses,
		RiskSummary: domain.SummarizeRisk(clauses),
	}
}
