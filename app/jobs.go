package app

import (
	"context"
	"time"
)

// runJobs drives the periodic maintenance work: snapshot saves, the daily
// counter reset and terminal-order retention.
func (s *Service) runJobs(ctx context.Context) {
	snapshotTick := time.NewTicker(time.Duration(s.cfg.Snapshot.IntervalSeconds) * time.Second)
	defer snapshotTick.Stop()
	dailyTick := time.NewTicker(time.Minute)
	defer dailyTick.Stop()
	purgeTick := time.NewTicker(time.Hour)
	defer purgeTick.Stop()

	lastResetDay := s.clock.Now().Format("2006-01-02")
	for {
		select {
		case <-ctx.Done():
			return
		case <-snapshotTick.C:
			s.saveSnapshot()
		case <-dailyTick.C:
			day := s.clock.Now().Format("2006-01-02")
			if day != lastResetDay {
				lastResetDay = day
				if n := s.Registry.ResetDailyCounters(); n > 0 {
					s.log.Infof("daily reset: cleared today's counters for %d drivers", n)
				}
			}
		case <-purgeTick.C:
			cutoff := s.clock.Now().AddDate(0, 0, -s.cfg.Dispatch.RetentionDays)
			if n := s.Orders.PurgeTerminal(cutoff); n > 0 {
				s.log.Infof("retention: purged %d terminal orders older than %s", n, cutoff.Format("2006-01-02"))
			}
		}
	}
}
