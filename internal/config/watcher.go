package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher watches the configuration file and publishes every successfully
// reloaded Config to its callbacks.
type Watcher struct {
	v         *viper.Viper
	cfgFile   string
	mu        sync.RWMutex
	callbacks []func(*Config)
	onError   func(error)
	current   *Config
	started   bool
	stopped   bool
}

// NewWatcher loads the configuration and prepares a watcher for it.
func NewWatcher(cfgFile string) (*Watcher, error) {
	v := newViper(AppName)
	setViperDefaults(v, DefaultConfig())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		v:       v,
		cfgFile: v.ConfigFileUsed(),
		current: cfg,
	}, nil
}

// File returns the path of the watched file.
func (w *Watcher) File() string {
	return w.cfgFile
}

// OnChange registers a callback to be called when configuration changes.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// OnError registers a callback for reloads that fail to parse. The
// previous configuration stays current.
func (w *Watcher) OnError(callback func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = callback
}

// Start begins watching for configuration changes.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		w.handleChange()
	})
	w.v.WatchConfig()
}

// Stop detaches the callbacks. Viper offers no way to stop its file
// watcher, so later events are ignored instead.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
}

// handleChange is called when configuration changes.
func (w *Watcher) handleChange() {
	w.mu.RLock()
	if w.stopped {
		w.mu.RUnlock()
		return
	}
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	onError := w.onError
	w.mu.RUnlock()

	cfg, err := unmarshal(w.v)
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

// Current returns the last loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Reload forces a configuration reload.
func (w *Watcher) Reload() error {
	if err := w.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	w.handleChange()
	return nil
}
