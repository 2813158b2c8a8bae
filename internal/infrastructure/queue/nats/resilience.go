package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/lexora-app/lexora/internal/infrastructure/resilience"
)

// transientErrors are connection states a reconnecting client recovers from.
var transientErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
	nats.ErrConnectionReconnecting,
}

func classifyNATSError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if class, ok := resilience.ContextClassification(err); ok {
		return class
	}
	// A bad event is the caller's fault, not the broker's.
	if errors.Is(err, errEmptyDocumentID) {
		return resilience.ErrorClassification{}
	}
	for _, transient := range transientErrors {
		if errors.Is(err, transient) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}
