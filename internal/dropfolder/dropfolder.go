// Package dropfolder turns a local directory into a drop target: image files
// created in it are uploaded into the browser's current folder.
package dropfolder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/slmtnm/s4admin/internal/browser"
	"github.com/slmtnm/s4admin/internal/logging"
	"github.com/slmtnm/s4admin/internal/mediaapi"
)

// DefaultSettle is how long a file must go without writes before upload.
const DefaultSettle = 500 * time.Millisecond

// Result reports one dropped file.
type Result struct {
	Path    string
	Media   *mediaapi.Media
	Err     error
	Message string // what the browser surfaced for a failure
}

// Watcher uploads files that appear in a directory.
type Watcher struct {
	Dir     string
	Browser *browser.Browser
	Settle  time.Duration
	// OnResult, if set, is called after every drop attempt.
	OnResult func(Result)
}

// Run watches w.Dir until ctx is done. Each new file is uploaded once it has
// settled; files still being written keep resetting their timer.
func (w *Watcher) Run(ctx context.Context) error {
	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}
	logging.Info("watching drop folder", logging.String("dir", w.Dir))

	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
		wg      sync.WaitGroup
		// The drop control takes one upload at a time.
		dropMu sync.Mutex
	)
	defer func() {
		mu.Lock()
		for _, t := range pending {
			if t.Stop() {
				wg.Done()
			}
		}
		mu.Unlock()
		wg.Wait()
	}()

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[path]; ok {
			if t.Stop() {
				t.Reset(settle)
			}
			return
		}
		wg.Add(1)
		pending[path] = time.AfterFunc(settle, func() {
			defer wg.Done()
			mu.Lock()
			delete(pending, path)
			mu.Unlock()

			dropMu.Lock()
			defer dropMu.Unlock()
			w.drop(ctx, path)
		})
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			base := filepath.Base(event.Name)
			if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				schedule(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watcher error", logging.Err(err))

		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) drop(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	res := Result{Path: path}

	f, err := mediaapi.FileFromPath(path)
	if err != nil {
		// Removed or turned out to be a directory.
		logging.Debug("skipping drop", logging.String("path", path), logging.Err(err))
		return
	}

	res.Media, res.Err = w.Browser.Drop(ctx, []mediaapi.File{f})
	if res.Err != nil {
		res.Message = w.Browser.Snapshot().Message
		logging.Warn("drop failed", logging.String("path", path), logging.Err(res.Err))
	} else {
		logging.Info("dropped", logging.String("path", path), logging.String("url", res.Media.URL))
	}
	if w.OnResult != nil {
		w.OnResult(res)
	}
}
