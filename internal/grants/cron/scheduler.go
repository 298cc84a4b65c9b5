package cronjob

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/metrics"
)

// TotalsSource reports registry size. *service.GrantRegistry satisfies it.
type TotalsSource interface {
	Totals(ctx context.Context) (grants, projects uint64, err error)
}

// Cleaner drops idle rate-limit buckets.
type Cleaner interface {
	Cleanup(maxIdle time.Duration) int
}

type Scheduler struct {
	c   *cron.Cron
	log logrus.FieldLogger
}

func NewScheduler(log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		c:   cron.New(cron.WithSeconds()),
		log: log,
	}
}

// AddStatsJob refreshes the registry size gauges on the given cron schedule.
func (s *Scheduler) AddStatsJob(schedule string, src TotalsSource, m *metrics.Metrics) error {
	_, err := s.c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := RefreshStats(ctx, src, m); err != nil {
			s.log.WithError(err).Warn("stats job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create stats job: %w", err)
	}
	return nil
}

// AddCleanupJob evicts rate-limit buckets idle for longer than maxIdle
// every maxIdle.
func (s *Scheduler) AddCleanupJob(cl Cleaner, maxIdle time.Duration) error {
	_, err := s.c.AddFunc(fmt.Sprintf("@every %s", maxIdle), func() {
		if n := cl.Cleanup(maxIdle); n > 0 {
			s.log.WithField("removed", n).Debug("rate limiter cleanup")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create cleanup job: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.log.WithField("jobs", len(s.c.Entries())).Info("cron scheduler started")
	s.c.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
}

func RefreshStats(ctx context.Context, src TotalsSource, m *metrics.Metrics) error {
	grants, projects, err := src.Totals(ctx)
	if err != nil {
		return err
	}
	m.SetTotals(grants, projects)
	return nil
}
