package capture

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/surfbridge/surf/internal/obslog"
)

// Scheduler runs Store.Cleanup on an hourly cadence and once asynchronously
// on boot if a stale cleanup is detected, per spec §3.
type Scheduler struct {
	store *Store
	cron  *cron.Cron
}

// StartScheduler wires the hourly cleanup job and kicks off the boot-time
// stale check in its own goroutine so startup is never blocked on it.
func StartScheduler(store *Store) *Scheduler {
	log := obslog.For("capture")
	c := cron.New()
	_, err := c.AddFunc("@hourly", func() {
		if err := store.Cleanup(); err != nil {
			log.Warn("hourly cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		log.Warn("failed to schedule hourly cleanup", zap.Error(err))
	}
	c.Start()

	go func() {
		if store.ShouldAutoCleanup() {
			if err := store.Cleanup(); err != nil {
				log.Warn("boot-time stale cleanup failed", zap.Error(err))
			}
		}
	}()

	return &Scheduler{store: store, cron: c}
}

func (s *Scheduler) Stop() { s.cron.Stop() }
