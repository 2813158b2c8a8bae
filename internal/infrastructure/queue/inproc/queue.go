// Package inproc is a single-process stand-in for the NATS queue, used when
// the API runs the processor itself.
package inproc

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lexora-app/lexora/internal/core/domain"
)

var ErrClosed = errors.New("inproc queue closed")

type Queue struct {
	events  chan string
	workers int

	closeOnce sync.Once
	closed    chan struct{}
}

func New(buffer, workers int) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		events:  make(chan string, buffer),
		workers: workers,
		closed:  make(chan struct{}),
	}
}

// PublishDocumentIngested waits for buffer space until ctx is done.
func (q *Queue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	select {
	case <-q.closed:
		return domain.WrapError(domain.ErrTemporary, "inproc publish", ErrClosed)
	default:
	}
	select {
	case q.events <- documentID:
		return nil
	case <-q.closed:
		return domain.WrapError(domain.ErrTemporary, "inproc publish", ErrClosed)
	case <-ctx.Done():
		return domain.WrapError(domain.ErrTemporary, "inproc publish", ctx.Err())
	}
}

// SubscribeDocumentIngested runs the handler on a fixed number of goroutines
// and blocks until ctx is cancelled or the queue is closed.
func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.closed:
					return
				case documentID := <-q.events:
					if err := handler(ctx, documentID); err != nil {
						slog.Error("document_handler_failed", "document_id", documentID, "error", err)
					}
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
