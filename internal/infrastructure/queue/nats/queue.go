// Package nats carries document ingestion events between the API and workers.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/lexora-app/lexora/internal/infrastructure/resilience"
)

const (
	clientName        = "lexora"
	publishOperation  = "nats.publish"
	drainFlushTimeout = 5 * time.Second

	// HeaderDocumentID lets subscribers route on the id without decoding the body.
	HeaderDocumentID = "Lexora-Document-Id"
)

var errEmptyDocumentID = errors.New("ingest event has no document id")

// ingestEvent is the wire body of one ingestion message.
type ingestEvent struct {
	DocumentID  string    `json:"documentId"`
	PublishedAt time.Time `json:"publishedAt"`
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	QueueGroup           string
	ResilienceExecutor   *resilience.Executor
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 2 * time.Second
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = 2 * time.Second
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 60
	}
	if o.RetryOnFailedConnect == nil {
		retry := true
		o.RetryOnFailedConnect = &retry
	}
	if strings.TrimSpace(o.QueueGroup) == "" {
		o.QueueGroup = "workers"
	}
	return o
}

type Queue struct {
	conn     *nats.Conn
	subject  string
	group    string
	executor *resilience.Executor
	now      func() time.Time
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	options = options.withDefaults()

	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.Timeout(options.ConnectTimeout),
		nats.ReconnectWait(options.ReconnectWait),
		nats.MaxReconnects(options.MaxReconnects),
		nats.RetryOnFailedConnect(*options.RetryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		group:    options.QueueGroup,
		executor: options.ResilienceExecutor,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	msg, err := encodeEvent(q.subject, ingestEvent{DocumentID: documentID, PublishedAt: q.now()})
	if err != nil {
		return err
	}

	publish := func(context.Context) error {
		if err := q.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}
	if q.executor != nil {
		err = q.executor.Execute(ctx, publishOperation, publish, classifyNATSError)
	} else {
		err = publish(ctx)
	}
	return resilience.WrapTemporary(publishOperation, err, classifyNATSError)
}

// SubscribeDocumentIngested joins the queue group and blocks until ctx is
// cancelled, then drains in-flight messages.
func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.group, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		event, err := decodeEvent(msg)
		if err != nil {
			slog.Warn("nats_invalid_ingest_event", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event.DocumentID); err != nil {
			slog.Error("document_handler_failed",
				"document_id", event.DocumentID,
				"queued_for_ms", q.now().Sub(event.PublishedAt).Milliseconds(),
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(drainFlushTimeout); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeEvent(subject string, event ingestEvent) (*nats.Msg, error) {
	if strings.TrimSpace(event.DocumentID) == "" {
		return nil, errEmptyDocumentID
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode ingest event: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Header.Set(HeaderDocumentID, event.DocumentID)
	msg.Data = body
	return msg, nil
}

func decodeEvent(msg *nats.Msg) (ingestEvent, error) {
	var event ingestEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return ingestEvent{}, fmt.Errorf("decode ingest event: %w", err)
	}
	if event.DocumentID == "" {
		event.DocumentID = msg.Header.Get(HeaderDocumentID)
	}
	if strings.TrimSpace(event.DocumentID) == "" {
		return ingestEvent{}, errEmptyDocumentID
	}
	return event, nil
}
