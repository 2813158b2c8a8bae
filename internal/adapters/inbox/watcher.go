// Package inbox ingests documents dropped into a watched directory.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lexora-app/lexora/internal/core/domain"
	"github.com/lexora-app/lexora/internal/core/ports"
)

const (
	processedDir  = "processed"
	defaultSettle = 500 * time.Millisecond
)

// Watcher uploads each new .txt/.pdf/.docx file once its writes have settled,
// then moves it into the processed/ subdirectory.
type Watcher struct {
	dir      string
	ingestor ports.DocumentIngestor
	settle   time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	pending  map[string]*time.Timer
	ready    chan string
	done     chan struct{}
	doneOnce sync.Once
}

func NewWatcher(dir string, ingestor ports.DocumentIngestor, settle time.Duration, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = defaultSettle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		ingestor: ingestor,
		settle:   settle,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 64),
		done:     make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled. Files already present at start are
// ingested too.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.shutdown()

	if err := os.MkdirAll(filepath.Join(w.dir, processedDir), 0o755); err != nil {
		return fmt.Errorf("create inbox dirs: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	if err := w.scanExisting(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if _, ok := mimeTypeFor(event.Name); ok {
				w.schedule(event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox_watch_error", "dir", w.dir, "error", err)
		case path := <-w.ready:
			w.ingest(ctx, path)
		}
	}
}

func (w *Watcher) scanExisting() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scan inbox: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if _, ok := mimeTypeFor(path); ok {
			w.schedule(path)
		}
	}
	return nil
}

// schedule restarts the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.deliver(path)
	})
}

// deliver hands path to Run, giving up once Run has returned.
func (w *Watcher) deliver(path string) bool {
	select {
	case w.ready <- path:
		return true
	case <-w.done:
		return false
	}
}

func (w *Watcher) shutdown() {
	w.doneOnce.Do(func() { close(w.done) })
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	mimeType, _ := mimeTypeFor(path)
	f, err := os.Open(path)
	if err != nil {
		// Already moved or deleted.
		return
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		w.logger.Error("inbox_stat_failed", "path", path, "error", err)
		return
	}

	session, err := w.ingestor.Upload(ctx, filepath.Base(path), mimeType, info.Size(), f)
	f.Close()
	if err != nil {
		w.logger.Error("inbox_ingest_failed", "path", path, "error", err)
		return
	}

	target := filepath.Join(w.dir, processedDir, session.ID+"_"+filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		w.logger.Warn("inbox_move_failed", "path", path, "error", err)
	}
	w.logger.Info("inbox_document_ingested", "path", path, "document_id", session.ID)
}

func mimeTypeFor(path string) (string, bool) {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return "", false
	}
	return domain.MimeTypeForExtension(filepath.Ext(path))
}
