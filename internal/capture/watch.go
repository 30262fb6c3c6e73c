package capture

import (
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/surfbridge/surf/internal/obslog"
)

// ExternalWriteWatcher notifies a callback whenever requests.jsonl is
// rewritten by another process sharing this base directory (§5: "the
// network log and body store are shared between any host processes that
// might run concurrently against the same base directory"). The store
// itself has no read cache to invalidate, but callers that keep their
// own derived state (e.g. a router's "last seen entry count") can use
// this to know when to re-query.
type ExternalWriteWatcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
}

// WatchExternalWrites watches store's requests.jsonl for writes/renames
// (the cleanup rewrite is a rename-over) and invokes onChange for each.
func WatchExternalWrites(store *Store, onChange func()) (*ExternalWriteWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(store.base); err != nil {
		_ = fw.Close()
		return nil, err
	}

	ew := &ExternalWriteWatcher{w: fw, done: make(chan struct{})}
	go ew.loop(store.requestsPath(), onChange)
	return ew, nil
}

func (ew *ExternalWriteWatcher) loop(target string, onChange func()) {
	log := obslog.For("capture")
	for {
		select {
		case ev, ok := <-ew.w.Events:
			if !ok {
				return
			}
			if ev.Name == target {
				onChange()
			}
		case err, ok := <-ew.w.Errors:
			if !ok {
				return
			}
			log.Warn("capture watch error", zap.Error(err))
		case <-ew.done:
			return
		}
	}
}

// Close stops the watcher.
func (ew *ExternalWriteWatcher) Close() error {
	close(ew.done)
	return ew.w.Close()
}
