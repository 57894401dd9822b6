package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the config file when it changes and hands each valid
// result to the registered callbacks. Invalid files are logged and ignored,
// so the previous configuration stays in force.
type Watcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	log        *zap.Logger

	mu         sync.RWMutex
	callbacks  []func(*Config)
	debounce   time.Duration
	lastConfig *Config
	done       chan struct{}
}

// NewWatcher loads configPath once and prepares to watch it.
func NewWatcher(configPath string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return &Watcher{
		watcher:    fsWatcher,
		configPath: configPath,
		log:        log.Named("config"),
		debounce:   300 * time.Millisecond,
		lastConfig: cfg,
		done:       make(chan struct{}),
	}, nil
}

// OnChange registers a callback for config changes.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start watches the directory holding the config file, so editors that
// replace the file by rename are still seen.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.configPath)); err != nil {
		return err
	}
	go w.watch()
	return nil
}

func (w *Watcher) watch() {
	var timer *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.Debounce(), w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", zap.Error(err))

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.configPath)
	if err != nil {
		w.log.Warn("config reload rejected", zap.String("path", w.configPath), zap.Error(err))
		return
	}

	w.mu.Lock()
	w.lastConfig = cfg
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.log.Info("configuration reloaded", zap.String("path", w.configPath))
	for _, cb := range callbacks {
		cb(cfg)
	}
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastConfig
}

// Debounce returns the delay between the last file event and the reload.
func (w *Watcher) Debounce() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.debounce
}

// SetDebounce sets the debounce duration for file changes.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Stop stops watching for changes.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
