package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spetr/studyrag/pkg/types"
)

// Watcher watches a drop directory and ingests new or changed documents for
// a fixed owner. Files removed from the directory are not deleted from the
// store; deletion stays an explicit operation.
type Watcher struct {
	ingestor *Ingestor
	ownerID  string
	dropDir  string

	watcher *fsnotify.Watcher

	// Debouncing
	pendingMu    sync.Mutex
	pendingFiles map[string]time.Time
	debounceTime time.Duration
}

// WatcherConfig contains watcher configuration.
type WatcherConfig struct {
	Ingestor     *Ingestor
	OwnerID      string
	DropDir      string
	DebounceTime time.Duration // Default: 500ms
}

// NewWatcher creates a new drop directory watcher.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounceTime := cfg.DebounceTime
	if debounceTime == 0 {
		debounceTime = 500 * time.Millisecond
	}

	return &Watcher{
		ingestor:     cfg.Ingestor,
		ownerID:      cfg.OwnerID,
		dropDir:      cfg.DropDir,
		watcher:      watcher,
		pendingFiles: make(map[string]time.Time),
		debounceTime: debounceTime,
	}, nil
}

// Watch starts watching the drop directory for documents.
// It blocks until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := os.MkdirAll(w.dropDir, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dropDir); err != nil {
		return err
	}

	slog.Info("watching for documents", "dir", w.dropDir, "owner", w.ownerID)

	// Start debounce processor
	go w.processDebounced(ctx)

	// Event loop
	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping watcher")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// handleEvent records a file event for debounced processing.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return // skip hidden files and editor temp files
	}

	w.pendingMu.Lock()
	w.pendingFiles[event.Name] = time.Now()
	w.pendingMu.Unlock()

	slog.Debug("document changed", "file", name, "op", event.Op.String())
}

// processDebounced processes pending files after the debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPendingFiles(ctx)
		}
	}
}

// processPendingFiles ingests files that have been stable for the debounce
// period.
func (w *Watcher) processPendingFiles(ctx context.Context) {
	w.pendingMu.Lock()
	now := time.Now()
	var toProcess []string
	for path, changedAt := range w.pendingFiles {
		if now.Sub(changedAt) >= w.debounceTime {
			toProcess = append(toProcess, path)
			delete(w.pendingFiles, path)
		}
	}
	w.pendingMu.Unlock()

	for _, path := range toProcess {
		if ctx.Err() != nil {
			return
		}
		if err := w.ingestFile(ctx, path); err != nil {
			slog.Warn("failed to ingest document", "file", filepath.Base(path), "error", err)
		}
	}
}

// ingestFile ingests a single dropped file.
func (w *Watcher) ingestFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // removed before processing
		}
		return err
	}
	if info.IsDir() {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	result, err := w.ingestor.Ingest(ctx, Request{
		OwnerID: w.ownerID,
		Source: &types.Source{
			Kind: types.SourceFile,
			Name: filepath.Base(path),
			Data: data,
		},
	})
	if err != nil {
		return err
	}

	slog.Info("document ingested from drop directory",
		"file", filepath.Base(path),
		"document", result.Document.ID,
		"chunks", result.ChunkCount,
	)
	return nil
}

// Close closes the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
