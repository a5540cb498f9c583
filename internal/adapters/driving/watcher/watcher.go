// Package watcher re-ingests report files when they change on disk.
// It watches a single directory of plain-text reports and feeds
// creates and writes back through the analysis engine so indexes stay
// current without manual re-ingestion.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marketlens/marketlens-cli/internal/core/ports/driving"
	"github.com/marketlens/marketlens-cli/internal/logger"
)

// defaultDebounce collapses the burst of write events editors emit
// while saving a file into a single re-ingest.
const defaultDebounce = 500 * time.Millisecond

// Watcher re-ingests watched report files on create and write events.
type Watcher struct {
	engine   driving.AnalysisEngine
	dir      string
	debounce time.Duration
}

// New creates a watcher over the given directory.
func New(engine driving.AnalysisEngine, dir string) *Watcher {
	return &Watcher{
		engine:   engine,
		dir:      dir,
		debounce: defaultDebounce,
	}
}

// Run watches until the context is cancelled. Ingest failures are
// logged and do not stop the watch loop.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch root error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root error: %s is not a directory", w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	logger.Info("watching %s for report changes", w.dir)

	ready := make(chan string, 16)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !watchedFile(event.Name) {
				continue
			}
			path := event.Name
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(timers, path)
			w.ingest(ctx, path)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("read %s: %v", path, err)
		return
	}

	filename := filepath.Base(path)
	documentID := documentIDFromFilename(filename)
	if err := w.engine.Ingest(ctx, documentID, filename, string(data)); err != nil {
		logger.Warn("re-ingest %s: %v", documentID, err)
		return
	}
	logger.Info("re-ingested %s", documentID)
}

// watchedFile reports whether path looks like a plain-text report.
// Hidden files and editor temp files are skipped.
func watchedFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}

func documentIDFromFilename(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	stem = strings.ToLower(stem)
	return strings.Join(strings.Fields(stem), "-")
}
