package cache

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"schedulebot/core/logger"
)

// Purger removes expired entries from a backing store. Correctness never
// depends on the sweep; reads check expiry themselves. The sweep only keeps
// the store from growing without bound.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Sweeper runs periodic purges on a cron schedule.
type Sweeper struct {
	cron *cron.Cron
}

// NewSweeper schedules purger on spec (standard cron expression or a
// descriptor like "@hourly").
func NewSweeper(spec string, purger Purger) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx := logger.Background()
		removed, err := purger.PurgeExpired(ctx)
		if err != nil {
			logger.Warn(ctx, "cache", "sweep.fail", slog.Any("err", err))
			return
		}
		logger.Info(ctx, "cache", "sweep.done", slog.Int64("count", removed))
	})
	if err != nil {
		return nil, err
	}
	return &Sweeper{cron: c}, nil
}

// Start launches the schedule in its own goroutine.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop cancels the schedule and waits for a running purge to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
