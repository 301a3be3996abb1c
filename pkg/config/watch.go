package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ddspipe/ddspipe-go/pkg/logger"
)

// Watcher watches a configuration file for writes and invokes a reload
// callback, debounced so a burst of filesystem events (editors often
// write-then-rename) triggers at most one reload.
type Watcher struct {
	fsw  *fsnotify.Watcher
	log  *logger.Logger
	done chan struct{}
}

// Watch starts watching configFile. onReload is called with the freshly
// loaded, validated Configuration after each debounced write event; load
// or validation failures are logged and do not invoke onReload, leaving
// the prior configuration in effect (spec.md §7: "reload errors leave
// prior state intact").
func Watch(configFile string, debounce time.Duration, log *logger.Logger, onReload func(*Configuration)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fsw.Add(configFile); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch config file %q: %w", configFile, err)
	}

	w := &Watcher{fsw: fsw, log: log, done: make(chan struct{})}
	go w.loop(configFile, debounce, onReload)
	return w, nil
}

func (w *Watcher) loop(configFile string, debounce time.Duration, onReload func(*Configuration)) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			cfg, err := Load(configFile)
			if err != nil {
				w.log.Error("config reload failed, keeping prior configuration", logger.Error(err))
				continue
			}
			w.log.Info("configuration reloaded", logger.String("file", configFile))
			onReload(cfg)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", logger.Error(err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
