package config

import (
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/surfbridge/surf/internal/obslog"
)

// Watcher hot-reloads a config file, invoking onReload with the newly
// parsed Config whenever the file changes on disk. The daemon uses this
// to pick up new timeout and serialisation knobs without restarting its
// socket listener or native pipe; capture TTL and size cap belong to the
// router process, which does not reload them.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onReload func(Config)
	done     chan struct{}
}

// Watch starts watching path for changes. Call Close to stop.
func Watch(path string, onReload func(Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{path: path, watcher: fw, onReload: onReload, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	log := obslog.For("config")
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				log.Warn("config reload failed", zap.Error(err))
				continue
			}
			log.Info("config reloaded")
			w.onReload(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("config watch error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
