// Package watch re-triggers work when files on disk change, for the retrain
// loop where a model is re-exported or a recording re-captured while
// wakebench keeps evaluating it.
//
// The watcher observes the parent directory of every target rather than the
// file itself, so atomic saves (write to temp file, rename over target) are
// seen. Bursts of events are debounced into a single callback.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before the
// callback fires.
const DefaultDebounce = 300 * time.Millisecond

// Option configures a [Watcher].
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher reports changes to a fixed set of files.
type Watcher struct {
	targets  map[string]struct{}
	dirs     []string
	debounce time.Duration
}

// New returns a Watcher for paths. Paths need not exist yet, but their
// directories must.
func New(paths []string, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		targets:  make(map[string]struct{}, len(paths)),
		debounce: DefaultDebounce,
	}
	for _, o := range opts {
		o(w)
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %q: %w", p, err)
		}
		w.targets[abs] = struct{}{}
		if dir := filepath.Dir(abs); !slices.Contains(w.dirs, dir) {
			w.dirs = append(w.dirs, dir)
		}
	}
	if len(w.targets) == 0 {
		return nil, fmt.Errorf("watch: no paths given")
	}
	return w, nil
}

// Run blocks until ctx is cancelled, calling fn with the sorted absolute
// paths that changed during each debounced burst. fn runs on the watcher's
// goroutine; events arriving meanwhile are buffered and trigger the next
// call.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, changed []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch: add %q: %w", dir, err)
		}
	}
	slog.Debug("watching for changes", "dirs", w.dirs, "debounce", w.debounce)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch: watcher error", "err", err)

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			slices.Sort(changed)
			fn(ctx, changed)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	_, ok := w.targets[filepath.Clean(event.Name)]
	return ok
}
