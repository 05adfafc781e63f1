// Package scheduler drives periodic category syncs and notification delivery.
package scheduler

import (
	"context"
	"sync"
	"time"

	"leaguesync/internal/service/notification"
	"leaguesync/internal/service/reconcile"
	"leaguesync/pkg/lock"
	"leaguesync/pkg/logger"
	"leaguesync/pkg/redis"
)

// Syncer reconciles one category
type Syncer interface {
	Sync(ctx context.Context, target reconcile.Target) (*reconcile.Result, error)
}

// Deliverer flushes and prunes notification records
type Deliverer interface {
	ProcessPendingNotifications(ctx context.Context) (notification.DeliveryStats, error)
	Cleanup(ctx context.Context) (int64, error)
}

type Options struct {
	SyncInterval     time.Duration
	DeliveryInterval time.Duration
	CleanupInterval  time.Duration
	// SyncTimeout bounds one category; a timeout never aborts the others
	SyncTimeout time.Duration
}

// PassReport summarizes one sync pass
type PassReport struct {
	Skipped bool
	Synced  int
	Changed int
	Failed  int
}

type Scheduler struct {
	syncer    Syncer
	deliverer Deliverer
	guard     lock.TryLocker
	targets   []reconcile.Target
	logger    *logger.Logger
	opts      Options
}

// New creates a Scheduler. guard keeps sync passes from overlapping; pass a
// Redis-backed locker to extend that across replicas.
func New(syncer Syncer, deliverer Deliverer, guard lock.TryLocker, targets []reconcile.Target, log *logger.Logger, opts Options) *Scheduler {
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = 5 * time.Minute
	}
	if opts.DeliveryInterval <= 0 {
		opts.DeliveryInterval = time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Hour
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = 2 * time.Minute
	}
	return &Scheduler{
		syncer:    syncer,
		deliverer: deliverer,
		guard:     guard,
		targets:   targets,
		logger:    log.Named("scheduler"),
		opts:      opts,
	}
}

// Run blocks until ctx is done. The first sync pass starts immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.WithFields(map[string]interface{}{
		"categories":        len(s.targets),
		"sync_interval":     s.opts.SyncInterval.String(),
		"delivery_interval": s.opts.DeliveryInterval.String(),
	}).Info("Scheduler started")

	var wg sync.WaitGroup
	loops := []struct {
		interval  time.Duration
		immediate bool
		fn        func(context.Context)
	}{
		{s.opts.SyncInterval, true, func(ctx context.Context) { s.RunSyncPass(ctx) }},
		{s.opts.DeliveryInterval, false, s.RunDeliveryPass},
		{s.opts.CleanupInterval, false, s.RunCleanup},
	}
	for _, loop := range loops {
		loop := loop
		wg.Add(1)
		go func() {
			defer wg.Done()
			every(ctx, loop.interval, loop.immediate, loop.fn)
		}()
	}
	wg.Wait()

	s.logger.Info("Scheduler stopped")
}

func every(ctx context.Context, interval time.Duration, immediate bool, fn func(context.Context)) {
	if immediate {
		fn(ctx)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// RunSyncPass syncs every category in order. A pass that finds the previous
// one still running is skipped.
func (s *Scheduler) RunSyncPass(ctx context.Context) PassReport {
	release, ok, err := s.guard.TryLock(ctx, redis.KeySyncPass)
	if err != nil {
		s.logger.WithError(err).Error("Failed to acquire sync pass guard")
		return PassReport{Skipped: true}
	}
	if !ok {
		s.logger.Warn("Previous sync pass still running, skipping tick")
		return PassReport{Skipped: true}
	}
	defer release()

	var report PassReport
	for _, target := range s.targets {
		if ctx.Err() != nil {
			break
		}

		res, err := s.syncOne(ctx, target)
		if err != nil {
			report.Failed++
			continue
		}
		report.Synced++
		if res.Changed {
			report.Changed++
		}
	}
	return report
}

func (s *Scheduler) syncOne(ctx context.Context, target reconcile.Target) (*reconcile.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SyncTimeout)
	defer cancel()

	res, err := s.syncer.Sync(ctx, target)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"category":       target.Category,
			"spreadsheet_id": target.SpreadsheetID,
		}).Error("Scheduled sync failed, continuing with next category")
		return nil, err
	}
	return res, nil
}

// RunDeliveryPass retries pending and failed notifications
func (s *Scheduler) RunDeliveryPass(ctx context.Context) {
	if _, err := s.deliverer.ProcessPendingNotifications(ctx); err != nil {
		s.logger.WithError(err).Error("Delivery pass failed")
	}
}

// RunCleanup prunes old notification records
func (s *Scheduler) RunCleanup(ctx context.Context) {
	if _, err := s.deliverer.Cleanup(ctx); err != nil {
		s.logger.WithError(err).Error("Notification cleanup failed")
	}
}
