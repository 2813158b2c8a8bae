package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lexora-app/lexora/internal/config"
	"github.com/lexora-app/lexora/internal/core/chat"
	"github.com/lexora-app/lexora/internal/core/classifier"
	"github.com/lexora-app/lexora/internal/core/domain"
	"github.com/lexora-app/lexora/internal/core/ports"
	"github.com/lexora-app/lexora/internal/core/rules"
	"github.com/lexora-app/lexora/internal/core/usecase"
	"github.com/lexora-app/lexora/internal/infrastructure/extractor/plaintext"
	"github.com/lexora-app/lexora/internal/infrastructure/queue/inproc"
	"github.com/lexora-app/lexora/internal/infrastructure/queue/nats"
	"github.com/lexora-app/lexora/internal/infrastructure/resilience"
	"github.com/lexora-app/lexora/internal/infrastructure/session/memory"
	redisstore "github.com/lexora-app/lexora/internal/infrastructure/session/redis"
	"github.com/lexora-app/lexora/internal/infrastructure/storage/localfs"
)

const (
	janitorInterval  = time.Minute
	redisPingTimeout = 3 * time.Second
)

type App struct {
	Config config.Config
	Rules  *rules.Rulebook

	Queue    ports.MessageQueue
	Sessions ports.SessionStore

	AnalyzeUC ports.DocumentAnalyzer
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	ReaderUC  ports.DocumentReader
	ChatUC    ports.ChatService

	closeFns []func()
}

// Options tune wiring that depends on the binary, such as which metrics
// registry observes breaker transitions.
type Options struct {
	Logger          *slog.Logger
	BreakerObserver resilience.StateObserver
}

// New wires every use case against the configured queue and session backends.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app, err := newCore(ctx, cfg, opts, logger)
	if err != nil {
		return nil, err
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := newQueue(cfg, opts)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.Queue = queue
	app.closeFns = append(app.closeFns, queue.Close)

	if cfg.QueueBackend == config.QueueBackendNATS && cfg.SessionBackend == config.SessionBackendMemory {
		logger.Warn("memory_sessions_with_nats",
			"detail", "workers in other processes cannot see sessions created by the api; use SESSION_BACKEND=redis",
		)
	}

	engine := classifier.New(app.Rules)
	extractor := plaintext.NewExtractor()
	limits := domain.UploadLimits{MaxBytes: cfg.MaxUploadBytes}

	app.IngestUC = usecase.NewIngestDocumentUseCase(app.Sessions, storage, queue, limits)
	app.ProcessUC = usecase.NewProcessDocumentUseCase(app.Sessions, storage, extractor, engine)

	return app, nil
}

// NewLocal wires only the synchronous use cases over in-memory sessions,
// for the CLI and the MCP server.
func NewLocal(cfg config.Config) (*App, error) {
	cfg.SessionBackend = config.SessionBackendMemory
	return newCore(context.Background(), cfg, Options{}, slog.Default())
}

type closableQueue interface {
	ports.MessageQueue
	Close()
}

func newQueue(cfg config.Config, opts Options) (closableQueue, error) {
	switch cfg.QueueBackend {
	case config.QueueBackendInproc:
		return inproc.New(cfg.InprocBuffer, cfg.InprocWorkers), nil
	case config.QueueBackendNATS:
		executor := resilience.NewExecutor(cfg.Resilience)
		if opts.BreakerObserver != nil {
			executor.WithStateObserver(opts.BreakerObserver)
		}
		return nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			QueueGroup:         cfg.NATSQueueGroup,
			ResilienceExecutor: executor,
		})
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}
}

func newCore(ctx context.Context, cfg config.Config, opts Options, logger *slog.Logger) (*App, error) {
	rb, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rulebook: %w", err)
	}

	app := &App{Config: cfg, Rules: rb}

	sessions, closeSessions, err := newSessionStore(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}
	app.Sessions = sessions
	app.closeFns = append(app.closeFns, closeSessions)

	engine := classifier.New(rb)
	responder := chat.New(rb)
	limits := domain.UploadLimits{MaxBytes: cfg.MaxUploadBytes}

	app.AnalyzeUC = usecase.NewAnalyzeDocumentUseCase(sessions, plaintext.NewExtractor(), engine, limits)
	app.ReaderUC = usecase.NewGetDocumentUseCase(sessions)
	app.ChatUC = usecase.NewChatUseCase(sessions, responder, cfg.ChatHistoryLimit)

	logger.Debug("rulebook_loaded",
		"path", cfg.RulesPath,
		"clauses", len(rb.Clauses),
		"chat_responses", len(rb.Chat.Responses),
	)
	return app, nil
}

func newSessionStore(ctx context.Context, cfg config.Config, opts Options) (ports.SessionStore, func(), error) {
	switch cfg.SessionBackend {
	case config.SessionBackendMemory, "":
		store := memory.New(cfg.SessionTTL())
		store.StartJanitor(ctx, janitorInterval)
		return store, store.Close, nil
	case config.SessionBackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}

		executor := resilience.NewExecutor(cfg.Resilience)
		if opts.BreakerObserver != nil {
			executor.WithStateObserver(opts.BreakerObserver)
		}
		store := redisstore.New(client, redisstore.Options{
			TTL:                cfg.SessionTTL(),
			ResilienceExecutor: executor,
		})
		return store, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
