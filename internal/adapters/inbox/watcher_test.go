package inbox

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lexora-app/lexora/internal/core/domain"
)

type ingestorFake struct {
	mu      sync.Mutex
	uploads []upload
	err     error
	done    chan struct{}
}

type upload struct {
	name     string
	mimeType string
	body     string
}

func (f *ingestorFake) Upload(_ context.Context, filename, mimeType string, _ int64, body io.Reader) (*domain.AnalysisSession, error) {
	raw, _ := io.ReadAll(body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, upload{name: filename, mimeType: mimeType, body: string(raw)})
	if f.done != nil {
		f.done <- struct{}{}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AnalysisSession{ID: "doc-1"}, nil
}

func (f *ingestorFake) Retry(context.Context, string) (*domain.AnalysisSession, error) {
	return nil, errors.New("not implemented")
}

func runWatcher(t *testing.T, dir string, ingestor *ingestorFake) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(dir, ingestor, 20*time.Millisecond, nil)
	go func() { _ = w.Run(ctx) }()
	return cancel
}

func waitUpload(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for upload")
	}
}

func TestWatcherIngestsNewFile(t *testing.T) {
	dir := t.TempDir()
	ingestor := &ingestorFake{done: make(chan struct{}, 4)}
	cancel := runWatcher(t, dir, ingestor)
	defer cancel()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "lease.txt"), []byte("lease agreement"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	waitUpload(t, ingestor.done)

	ingestor.mu.Lock()
	got := ingestor.uploads[0]
	ingestor.mu.Unlock()
	if got.name != "lease.txt" || got.mimeType != domain.MimeText || got.body != "lease agreement" {
		t.Fatalf("unexpected upload %+v", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filepath.Join(dir, processedDir, "doc-1_lease.txt")); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected file moved to processed dir")
}

func TestWatcherIngestsExistingFilesOnStart(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "old.docx"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	ingestor := &ingestorFake{done: make(chan struct{}, 4)}
	cancel := runWatcher(t, dir, ingestor)
	defer cancel()

	waitUpload(t, ingestor.done)
	ingestor.mu.Lock()
	defer ingestor.mu.Unlock()
	if ingestor.uploads[0].mimeType != domain.MimeDOCX {
		t.Fatalf("expected docx mime type, got %s", ingestor.uploads[0].mimeType)
	}
}

func TestWatcherLeavesFileOnIngestError(t *testing.T) {
	dir := t.TempDir()
	ingestor := &ingestorFake{done: make(chan struct{}, 4), err: errors.New("queue down")}
	path := filepath.Join(dir, "contract.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	cancel := runWatcher(t, dir, ingestor)
	defer cancel()

	waitUpload(t, ingestor.done)
	time.Sleep(50 * time.Millisecond)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to stay in inbox, got %v", err)
	}
}

func TestMimeTypeFor(t *testing.T) {
	tests := map[string]bool{
		"a.txt":       true,
		"a.PDF":       true,
		"a.docx":      true,
		"a.json":      false,
		".hidden.txt": false,
	}
	for path, want := range tests {
		if _, got := mimeTypeFor(path); got != want {
			t.Fatalf("mimeTypeFor(%q): expected %v, got %v", path, want, got)
		}
	}
}

func TestDeliverReturnsAfterRunExits(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(dir, &ingestorFake{}, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for len(w.ready) < cap(w.ready) {
		w.ready <- filepath.Join(dir, "queued.txt")
	}

	delivered := make(chan bool, 1)
	go func() { delivered <- w.deliver(filepath.Join(dir, "late.txt")) }()
	select {
	case ok := <-delivered:
		if ok {
			t.Fatalf("expected delivery to be dropped after Run returned")
		}
	case <-time.After(time.Second):
		t.Fatalf("deliver blocked on a full queue after Run returned")
	}

	w.schedule(filepath.Join(dir, "late.txt"))
	time.Sleep(60 * time.Millisecond)
	w.mu.Lock()
	pending := len(w.pending)
	w.mu.Unlock()
	if pending != 0 {
		t.Fatalf("expected settled timer to clear itself, got %d pending", pending)
	}
}
