package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/lexora-app/lexora/internal/core/domain"
)

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTemp),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestCallReturnsValueAfterRetry(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	})

	attempts := 0
	errTemp := errors.New("temporary")
	got, err := Call(context.Background(), exec, "session.get", func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errTemp
		}
		return "stored", nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, errTemp), RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "stored" || attempts != 2 {
		t.Fatalf("expected stored after 2 attempts, got %q after %d", got, attempts)
	}
}

func TestCallWithoutExecutorRunsOnce(t *testing.T) {
	calls := 0
	got, err := Call(context.Background(), nil, "op", func(context.Context) (int, error) {
		calls++
		return 7, nil
	}, nil)
	if err != nil || got != 7 || calls != 1 {
		t.Fatalf("expected single call returning 7, got %d, %v after %d calls", got, err, calls)
	}
}

func TestStateObserverSeesOpenTransition(t *testing.T) {
	var transitions []gobreaker.State
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}).WithStateObserver(func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	})

	_ = exec.Execute(context.Background(), "op", func(context.Context) error {
		return errors.New("down")
	}, nil)

	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Fatalf("expected a single open transition, got %v", transitions)
	}
}

func TestWrapTemporary(t *testing.T) {
	retryable := func(error) ErrorClassification { return ErrorClassification{Retryable: true} }

	if err := WrapTemporary("op", nil, retryable); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := WrapTemporary("op", errors.New("timeout"), retryable); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary, got %v", err)
	}
	if err := WrapTemporary("op", errors.New("bad"), nil); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error to pass through, got %v", err)
	}
	if err := WrapTemporary("op", gobreaker.ErrOpenState, nil); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected open circuit to be temporary, got %v", err)
	}
}

func TestConfigBackoffGrowsAndCaps(t *testing.T) {
	cfg := Config{
		RetryInitialBackoff: 10 * time.Millisecond,
		RetryMaxBackoff:     35 * time.Millisecond,
		RetryMultiplier:     2,
	}.withDefaults()

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 10 * time.Millisecond},
		{attempt: 2, want: 20 * time.Millisecond},
		{attempt: 3, want: 35 * time.Millisecond},
		{attempt: 9, want: 35 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := cfg.backoff(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestConfigWithDefaultsFillsZeroValues(t *testing.T) {
	got := Config{BreakerFailureRatio: 3, RetryMultiplier: 0.5}.withDefaults()
	def := DefaultConfig()

	if got.RetryMaxAttempts != def.RetryMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", def.RetryMaxAttempts, got.RetryMaxAttempts)
	}
	if got.BreakerFailureRatio != def.BreakerFailureRatio {
		t.Fatalf("expected failure ratio %v, got %v", def.BreakerFailureRatio, got.BreakerFailureRatio)
	}
	if got.RetryMultiplier != def.RetryMultiplier {
		t.Fatalf("expected multiplier %v, got %v", def.RetryMultiplier, got.RetryMultiplier)
	}
	if got.BreakerEnabled {
		t.Fatalf("breaker enablement must not be defaulted")
	}
}
