package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for changes to settle before
// re-running the analysis.
const DefaultDebounce = 2 * time.Second

// RunCallback receives the outcome of every analysis run in watch mode.
type RunCallback func(result *PipelineResult, changed []string, err error)

// WatchRepo runs the pipeline once, then again after every settled batch of
// changes to supported files. Blocks until the context is cancelled.
func WatchRepo(ctx context.Context, root string, opts Options, debounce time.Duration, onRun RunCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if onRun == nil {
		onRun = func(*PipelineResult, []string, error) {}
	}

	walker, err := NewWalker(root, opts.Ignore)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, walker, root); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	result, err := RunPipeline(ctx, root, opts)
	onRun(result, nil, err)

	changedFiles := make(map[string]bool)
	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				// New directories must be watched explicitly.
				if addDirIfNeeded(watcher, walker, event.Name) {
					continue
				}
			}

			if !walker.Accepts(event.Name) {
				continue
			}

			relPath, err := walker.rel(event.Name)
			if err != nil {
				continue
			}
			changedFiles[relPath] = true
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case <-batchTimer.C:
			if len(changedFiles) == 0 {
				continue
			}
			changed := sortedKeys(changedFiles)
			changedFiles = make(map[string]bool)

			slog.Debug("re-analyzing", "changed", len(changed))
			result, err := RunPipeline(ctx, root, opts)
			onRun(result, changed, err)
		}
	}
}

// watchTree adds every non-ignored directory under root to the watcher.
func watchTree(watcher *fsnotify.Watcher, walker *Walker, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		relPath, err := walker.rel(path)
		if err != nil {
			return err
		}
		if relPath != "." && walker.Ignored(relPath, true) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func addDirIfNeeded(watcher *fsnotify.Watcher, walker *Walker, path string) bool {
	relPath, err := walker.rel(path)
	if err != nil {
		return false
	}
	if isDir, err := statDir(path); err != nil || !isDir {
		return false
	}
	if walker.Ignored(relPath, true) {
		return true
	}
	if err := watchTree(watcher, walker, path); err != nil {
		slog.Warn("watching new directory", "path", relPath, "error", err)
	}
	return true
}
