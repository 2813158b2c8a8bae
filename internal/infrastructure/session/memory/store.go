// Package memory keeps analysis sessions in process memory with a sliding TTL.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lexora-app/lexora/internal/core/domain"
)

const defaultTTL = 2 * time.Hour

type entry struct {
	session   *domain.AnalysisSession
	expiresAt time.Time
}

type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]entry

	stopOnce sync.Once
	stop     chan struct{}
}

func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]entry),
		stop:     make(chan struct{}),
	}
}

// StartJanitor evicts expired sessions every interval until Close or ctx end.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.evictExpired()
			}
		}
	}()
}

func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) Create(_ context.Context, session *domain.AnalysisSession) error {
	if session == nil || session.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "create session", errors.New("session id is required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = entry{session: session.Clone(), expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*domain.AnalysisSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.session.Clone(), nil
}

// Update holds the store lock while mutate runs; mutate must not call back
// into the store.
func (s *Store) Update(_ context.Context, id string, mutate func(*domain.AnalysisSession) error) (*domain.AnalysisSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	working := e.session.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	s.sessions[id] = entry{session: working, expiresAt: s.now().Add(s.ttl)}
	return working.Clone(), nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) lookup(id string) (entry, error) {
	e, ok := s.sessions[id]
	if !ok {
		return entry{}, domain.WrapError(domain.ErrDocumentNotFound, "get session", fmt.Errorf("id=%s", id))
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, id)
		return entry{}, domain.WrapError(domain.ErrDocumentNotFound, "get session", fmt.Errorf("id=%s expired", id))
	}
	return e, nil
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
		}
	}
}
