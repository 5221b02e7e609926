package config

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader watches a configuration file and reloads it on change. It
// supports fsnotify file watching (cross-platform) and SIGHUP (Unix
// only, registered in reload_unix.go).
type Reloader struct {
	mu        sync.RWMutex
	current   *File
	path      string
	logger    *slog.Logger
	callbacks []func(*File)
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewReloader creates a Reloader for the configuration file at path.
func NewReloader(path string, initial *File, logger *slog.Logger) *Reloader {
	return &Reloader{
		current: initial,
		path:    path,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Current returns the active configuration.
func (r *Reloader) Current() *File {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// OnReload registers a callback invoked with the new configuration after
// a successful reload. Callbacks typically push updated limits into live
// instances, for example via RateLimiter.ChangeLimitForPeriod.
func (r *Reloader) OnReload(fn func(*File)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

// Start begins watching the configuration file for changes and listening
// for SIGHUP (on Unix). Must be called once after NewReloader.
func (r *Reloader) Start() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Error("failed to create file watcher", "error", err)
		return
	}
	r.watcher = watcher

	if err := watcher.Add(r.path); err != nil {
		r.logger.Error("failed to watch config file", "path", r.path, "error", err)
		watcher.Close()
		r.watcher = nil
		return
	}

	r.logger.Info("config file watcher started", "path", r.path)

	go r.watchLoop()

	r.registerSignalHandler()
}

// Stop terminates the file watcher and signal handler.
func (r *Reloader) Stop() {
	close(r.stopCh)
	if r.watcher != nil {
		r.watcher.Close()
	}
}

// Reload loads the configuration from disk, validates it, and if valid
// swaps it in and notifies the registered callbacks. An invalid file
// keeps the current configuration. Exported so signal handlers and
// tests can call it.
func (r *Reloader) Reload() bool {
	r.logger.Info("reloading configuration", "path", r.path)

	next, err := Load(r.path)
	if err != nil {
		r.logger.Error("config reload failed: invalid config, keeping current",
			"path", r.path, "error", err)
		return false
	}

	r.mu.Lock()
	old := r.current
	r.current = next
	callbacks := make([]func(*File), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	r.logChanges(old, next)

	for _, cb := range callbacks {
		cb(next)
	}

	r.logger.Info("configuration reloaded successfully")
	return true
}

// watchLoop processes fsnotify events with debouncing.
func (r *Reloader) watchLoop() {
	// Editors often emit several events on one save.
	var debounce *time.Timer

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(300*time.Millisecond, func() {
					r.Reload()
				})
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("file watcher error", "error", err)
		case <-r.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

// logChanges logs a summary of section count changes between the old and
// new configuration.
func (r *Reloader) logChanges(old, next *File) {
	if len(old.CircuitBreakers) != len(next.CircuitBreakers) {
		r.logger.Info("circuit breaker count changed",
			"old", len(old.CircuitBreakers), "new", len(next.CircuitBreakers))
	}
	if len(old.Retries) != len(next.Retries) {
		r.logger.Info("retry count changed",
			"old", len(old.Retries), "new", len(next.Retries))
	}
	if len(old.RateLimiters) != len(next.RateLimiters) {
		r.logger.Info("rate limiter count changed",
			"old", len(old.RateLimiters), "new", len(next.RateLimiters))
	}
}
