package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Sauce8888/MVP1/internal/logger"
)

// Scheduler runs the periodic batch sync. One cron job sweeps every
// connection; per-connection spacing is the sync service's concern.
type Scheduler struct {
	cron     *cron.Cron
	sync     *SyncService
	log      *logger.Logger
	interval time.Duration
	entryID  cron.EntryID
}

// NewScheduler creates a scheduler that syncs all connections at the
// given interval.
func NewScheduler(sync *SyncService, interval time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sync:     sync,
		log:      log,
		interval: interval,
	}
}

// Start registers the batch job and begins the cron loop.
func (s *Scheduler) Start() error {
	spec := "@every " + s.interval.String()

	entryID, err := s.cron.AddFunc(spec, s.runAll)
	if err != nil {
		return fmt.Errorf("scheduling sync job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.log.Info("sync scheduler started", "interval", s.interval.String())

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running pass
// to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("sync scheduler stopped")
}

// NextRun returns when the next batch pass fires, or nil before Start.
func (s *Scheduler) NextRun() *time.Time {
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

func (s *Scheduler) runAll() {
	ctx := context.Background()

	results, err := s.sync.SyncAll(ctx)
	if err != nil {
		s.log.Error("scheduled sync failed", "error", err)
		return
	}

	failed := 0
	for i := range results {
		if results[i].Error != nil {
			failed++
		}
	}
	s.log.Info("scheduled sync completed", "connections", len(results), "failed", failed)
}
