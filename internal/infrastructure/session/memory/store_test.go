package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lexora-app/lexora/internal/core/domain"
)

func TestStoreCreateGetUpdate(t *testing.T) {
	store := New(time.Hour)
	ctx := context.Background()

	session := &domain.AnalysisSession{ID: "doc-1", Stage: domain.StageFileSelected}
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	session.Stage = domain.StageFailed

	got, err := store.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Stage != domain.StageFileSelected {
		t.Fatalf("expected stored copy to be isolated, got %s", got.Stage)
	}

	updated, err := store.Update(ctx, "doc-1", func(s *domain.AnalysisSession) error {
		return s.Advance(domain.EventCheck, time.Now())
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Stage != domain.StageCheckingLegality {
		t.Fatalf("expected checking_legality, got %s", updated.Stage)
	}
}

func TestStoreUpdateAbortsOnMutateError(t *testing.T) {
	store := New(time.Hour)
	ctx := context.Background()
	_ = store.Create(ctx, &domain.AnalysisSession{ID: "doc-1", Stage: domain.StageFileSelected})

	boom := errors.New("boom")
	_, err := store.Update(ctx, "doc-1", func(s *domain.AnalysisSession) error {
		s.Stage = domain.StageComplete
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := store.Get(ctx, "doc-1")
	if got.Stage != domain.StageFileSelected {
		t.Fatalf("expected unchanged stage, got %s", got.Stage)
	}
}

func TestStoreUnknownAndExpired(t *testing.T) {
	store := New(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	_ = store.Create(ctx, &domain.AnalysisSession{ID: "doc-1"})
	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "doc-1"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired entry evicted on read")
	}
}

func TestStoreEvictExpired(t *testing.T) {
	store := New(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Create(ctx, &domain.AnalysisSession{ID: "old"})
	now = now.Add(30 * time.Second)
	_ = store.Create(ctx, &domain.AnalysisSession{ID: "new"})
	now = now.Add(45 * time.Second)

	store.evictExpired()
	if store.Len() != 1 {
		t.Fatalf("expected one live session, got %d", store.Len())
	}
	if _, err := store.Get(ctx, "new"); err != nil {
		t.Fatalf("expected new session to survive, got %v", err)
	}
}

func TestStoreConcurrentChatAppends(t *testing.T) {
	store := New(time.Hour)
	ctx := context.Background()
	_ = store.Create(ctx, &domain.AnalysisSession{ID: "doc-1"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Update(ctx, "doc-1", func(s *domain.AnalysisSession) error {
				s.AppendChat(domain.ChatExchange{Question: "q"}, 0)
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := store.Get(ctx, "doc-1")
	if len(got.ChatHistory) != 20 {
		t.Fatalf("expected 20 exchanges, got %d", len(got.ChatHistory))
	}
}

func TestStoreRejectsMissingID(t *testing.T) {
	if err := New(0).Create(context.Background(), &domain.AnalysisSession{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
