package redis

import (
	"errors"
	"io"
	"net"

	"github.com/redis/go-redis/v9"

	"github.com/lexora-app/lexora/internal/infrastructure/resilience"
)

func classifyRedisError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if class, ok := resilience.ContextClassification(err); ok {
		return class
	}
	var mErr mutateError
	if errors.Is(err, redis.Nil) || errors.As(err, &mErr) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var netErr net.Error
	if errors.Is(err, redis.TxFailedErr) ||
		errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
