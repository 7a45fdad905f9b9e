// Package watch rebuilds the graph whenever the trace file changes, so a
// live UI-automation run can be followed as it appends records.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/suykerbuyk/tracegraph/internal/pipeline"
)

// debounce absorbs the burst of write events an appending trace writer
// produces before triggering a rebuild.
const debounce = 500 * time.Millisecond

// Run builds once, then rebuilds on every change to the trace file until
// the context is canceled. Rebuild failures are logged and the watch
// continues — the writer may have been caught mid-append.
func Run(ctx context.Context, opts pipeline.Options) error {
	tracePath, err := filepath.Abs(opts.TracePath)
	if err != nil {
		return fmt.Errorf("resolve trace path: %w", err)
	}
	opts.TracePath = tracePath

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors and atomic writers
	// replace the file and would drop a direct watch.
	if err := watcher.Add(filepath.Dir(tracePath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(tracePath), err)
	}

	build := func() {
		res, err := pipeline.Build(ctx, opts)
		if err != nil {
			slog.Error("rebuild failed", "trace", tracePath, "error", err)
			return
		}
		slog.Info("graph rebuilt",
			"clusters", res.Clusters,
			"edges", res.Edges-res.SelfLoops,
			"dot", res.DotPath,
			"image", res.ImagePath)
	}

	build()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, tracePath) {
				continue
			}
			if pending {
				if !timer.Stop() {
					<-timer.C
				}
			}
			timer.Reset(debounce)
			pending = true

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "error", err)

		case <-timer.C:
			pending = false
			build()
		}
	}
}

func relevant(ev fsnotify.Event, tracePath string) bool {
	if filepath.Clean(ev.Name) != tracePath {
		return false
	}
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
