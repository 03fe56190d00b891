package registry

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"maestro/internal/logging"
)

// Watcher re-triggers a forced registry refresh when the configuration
// file changes on disk, so edited model profiles take effect without a
// restart. Rapid editor saves are debounced.
type Watcher struct {
	registry   *Registry
	configPath string
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	log        interface {
		Debugw(msg string, kv ...interface{})
		Warnw(msg string, kv ...interface{})
	}

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher builds a watcher for the given config file. Watching the
// parent directory covers editors that replace the file on save.
func NewWatcher(registry *Registry, configPath string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(configPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{
		registry:   registry,
		configPath: configPath,
		watcher:    fsw,
		debounce:   500 * time.Millisecond,
		log:        logging.Get(logging.CategoryRegistry),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// Start begins watching until Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case event, open := <-w.watcher.Events:
			if !open {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			w.log.Debugw("config changed, refreshing registry", "path", w.configPath)
			if err := w.registry.Refresh(ctx, true); err != nil {
				w.log.Warnw("refresh after config change had failures", "error", err)
			}
		case err, open := <-w.watcher.Errors:
			if !open {
				return
			}
			w.log.Warnw("watcher error", "error", err)
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Stop halts the watcher and releases the inotify handle.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
	<-w.doneCh
}
