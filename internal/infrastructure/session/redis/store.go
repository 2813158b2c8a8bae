// Package redis shares analysis sessions between the API and workers.
// Sessions are JSON values under a TTL that slides on every write.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lexora-app/lexora/internal/core/domain"
	"github.com/lexora-app/lexora/internal/infrastructure/resilience"
)

const (
	SessionKeyPrefix = "lexora:session:"

	defaultTTL           = 2 * time.Hour
	defaultUpdateRetries = 5
)

type Options struct {
	TTL                time.Duration
	UpdateRetries      int
	ResilienceExecutor *resilience.Executor
}

type Store struct {
	client        redis.UniversalClient
	ttl           time.Duration
	updateRetries int
	executor      *resilience.Executor
}

func New(client redis.UniversalClient, options Options) *Store {
	ttl := options.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	retries := options.UpdateRetries
	if retries <= 0 {
		retries = defaultUpdateRetries
	}
	return &Store{
		client:        client,
		ttl:           ttl,
		updateRetries: retries,
		executor:      options.ResilienceExecutor,
	}
}

func (s *Store) Create(ctx context.Context, session *domain.AnalysisSession) error {
	if session == nil || session.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "create session", errors.New("session id is required"))
	}
	payload, err := encodeSession(session)
	if err != nil {
		return err
	}
	_, err = resilience.Call(ctx, s.executor, "redis.session.create", func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, s.client.Set(callCtx, sessionKey(session.ID), payload, s.ttl).Err()
	}, classifyRedisError)
	if err != nil {
		return resilience.WrapTemporary("create session", fmt.Errorf("redis set: %w", err), classifyRedisError)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.AnalysisSession, error) {
	raw, err := resilience.Call(ctx, s.executor, "redis.session.get", func(callCtx context.Context) ([]byte, error) {
		return s.client.Get(callCtx, sessionKey(id)).Bytes()
	}, classifyRedisError)
	if errors.Is(err, redis.Nil) {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get session", fmt.Errorf("id=%s", id))
	}
	if err != nil {
		return nil, resilience.WrapTemporary("get session", fmt.Errorf("redis get: %w", err), classifyRedisError)
	}
	return decodeSession(raw)
}

// Update is an optimistic WATCH/MULTI transaction, retried when another
// writer touches the key first.
func (s *Store) Update(ctx context.Context, id string, mutate func(*domain.AnalysisSession) error) (*domain.AnalysisSession, error) {
	key := sessionKey(id)
	updated, err := resilience.Call(ctx, s.executor, "redis.session.update", func(callCtx context.Context) (*domain.AnalysisSession, error) {
		var result *domain.AnalysisSession
		txn := func(tx *redis.Tx) error {
			raw, err := tx.Get(callCtx, key).Bytes()
			if err != nil {
				return err
			}
			session, err := decodeSession(raw)
			if err != nil {
				return err
			}
			if err := mutate(session); err != nil {
				return mutateError{err: err}
			}
			payload, err := encodeSession(session)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(callCtx, func(pipe redis.Pipeliner) error {
				pipe.Set(callCtx, key, payload, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			result = session
			return nil
		}

		for attempt := 0; attempt < s.updateRetries; attempt++ {
			err := s.client.Watch(callCtx, txn, key)
			if errors.Is(err, redis.TxFailedErr) {
				continue
			}
			return result, err
		}
		return nil, redis.TxFailedErr
	}, classifyRedisError)

	var mErr mutateError
	switch {
	case err == nil:
		return updated, nil
	case errors.As(err, &mErr):
		return nil, mErr.err
	case errors.Is(err, redis.Nil):
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "update session", fmt.Errorf("id=%s", id))
	default:
		return nil, resilience.WrapTemporary("update session", fmt.Errorf("redis update: %w", err), classifyRedisError)
	}
}

// mutateError carries caller errors through the transaction untouched.
type mutateError struct{ err error }

func (e mutateError) Error() string { return e.err.Error() }
func (e mutateError) Unwrap() error { return e.err }

func sessionKey(id string) string {
	return SessionKeyPrefix + id
}

func encodeSession(session *domain.AnalysisSession) ([]byte, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return payload, nil
}

func decodeSession(raw []byte) (*domain.AnalysisSession, error) {
	var session domain.AnalysisSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if session.ChatHistory == nil {
		session.ChatHistory = []domain.ChatExchange{}
	}
	return &session, nil
}
