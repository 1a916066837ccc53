package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long the watcher waits after the last write event
// before uploading, so a file still being copied in is not sent half
// finished.
const settleDelay = 500 * time.Millisecond

// Outbox watches a directory and uploads every file dropped into it.
// Each file is uploaded once; rejected files stay in place with the
// reject logged.
type Outbox struct {
	dir      string
	pipeline *Pipeline
	logger   *slog.Logger

	// sent tracks files already handed to the pipeline, so the write
	// events fsnotify emits while a file is copied in do not trigger a
	// second upload.
	sent map[string]struct{}
}

// NewOutbox creates an outbox watcher over dir.
func NewOutbox(dir string, pipeline *Pipeline, logger *slog.Logger) *Outbox {
	return &Outbox{
		dir:      dir,
		pipeline: pipeline,
		logger:   logger,
		sent:     make(map[string]struct{}),
	}
}

// Watch blocks until ctx is cancelled, uploading files as they appear.
// Files already present when the watch starts are uploaded first.
func (o *Outbox) Watch(ctx context.Context) error {
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return fmt.Errorf("creating outbox directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(o.dir); err != nil {
		return fmt.Errorf("watching outbox: %w", err)
	}

	o.drainExisting(ctx)

	// pending holds paths whose last event is younger than settleDelay.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settleDelay / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed")
			}

			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				if o.shouldIgnore(event.Name) {
					continue
				}

				pending[event.Name] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed")
			}

			o.logger.Warn("outbox watch error", slog.Any("error", err))

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < settleDelay {
					continue
				}

				delete(pending, path)
				o.process(ctx, path)
			}
		}
	}
}

// drainExisting uploads files that were already sitting in the outbox
// when the watch started.
func (o *Outbox) drainExisting(ctx context.Context) {
	entries, err := os.ReadDir(o.dir)
	if err != nil {
		o.logger.Warn("reading outbox", slog.Any("error", err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(o.dir, entry.Name())
		if o.shouldIgnore(path) {
			continue
		}

		o.process(ctx, path)
	}
}

// process uploads one file and removes it from the outbox on success.
func (o *Outbox) process(ctx context.Context, path string) {
	if _, done := o.sent[path]; done {
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	o.sent[path] = struct{}{}

	if err := o.pipeline.Upload(ctx, path, ""); err != nil {
		// Leave rejected or failed files in place so the user can see
		// and correct them; dropping a replacement retries.
		delete(o.sent, path)
		o.logger.Warn("outbox upload failed",
			slog.String("file", filepath.Base(path)),
			slog.Any("error", err),
		)

		return
	}

	if err := os.Remove(path); err != nil {
		o.logger.Warn("removing uploaded outbox file", slog.String("file", filepath.Base(path)), slog.Any("error", err))
	}
}

// shouldIgnore filters hidden and editor temp files.
func (o *Outbox) shouldIgnore(path string) bool {
	name := filepath.Base(path)

	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp")
}
