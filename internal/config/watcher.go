package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	debounceDelay = 200 * time.Millisecond
	readdDelay    = 50 * time.Millisecond
)

// Watcher watches the config file and reloads it on change.
// Callbacks receive the freshly loaded configuration; a config that fails
// to load or validate is dropped and the previous one stays in effect.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	callbacks []func(*Config)
	mu        sync.RWMutex
	debounce  *time.Timer
	debMu     sync.Mutex
}

// NewWatcher creates a watcher for the given config path.
func NewWatcher(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{fsWatcher: fsw, path: path}, nil
}

// OnReload registers a callback invoked with each successfully reloaded config.
func (w *Watcher) OnReload(cb func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Watch starts watching until ctx is done.
func (w *Watcher) Watch(ctx context.Context) {
	logger := zerolog.Ctx(ctx)

	if err := w.fsWatcher.Add(w.path); err != nil {
		logger.Warn().Err(err).Str("file", w.path).Msg("failed to watch config file")
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = w.fsWatcher.Close()

				return

			case event, ok := <-w.fsWatcher.Events:
				if !ok {
					return
				}

				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					logger.Debug().
						Str("file", event.Name).
						Str("op", event.Op.String()).
						Msg("config change detected")

					w.scheduleReload(ctx)

					// Re-add file if it was removed/renamed (common with atomic writes)
					if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
						time.Sleep(readdDelay)
						_ = w.fsWatcher.Add(event.Name)
					}
				}

			case err, ok := <-w.fsWatcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("fsnotify error")
			}
		}
	}()
}

// scheduleReload debounces bursts of events into a single reload.
func (w *Watcher) scheduleReload(ctx context.Context) {
	w.debMu.Lock()
	defer w.debMu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}

	w.debounce = time.AfterFunc(debounceDelay, func() {
		w.reload(ctx)
	})
}

func (w *Watcher) reload(ctx context.Context) {
	logger := zerolog.Ctx(ctx)

	cfg, err := Load(w.path)
	if err != nil {
		logger.Warn().Err(err).Str("file", w.path).Msg("config reload failed, keeping previous")

		return
	}

	logger.Info().Str("file", w.path).Msg("config reloaded")

	w.mu.RLock()
	callbacks := w.callbacks
	w.mu.RUnlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
