package fetcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/vahanfetch/config"
	"github.com/use-agent/vahanfetch/models"
	"golang.org/x/time/rate"
)

// cycleRunner is the single-attempt retrieval operation the scheduler drives.
type cycleRunner interface {
	Run(ctx context.Context, label string) (models.DownloadRecord, error)
}

// Scheduler walks the target list in order, retrying each target's cycle up
// to MaxAttempts. Attempts are paced by a rate limiter so retries (and the
// hop to the next target) keep a fixed, polite spacing against the public
// dashboard. One target's exhaustion never blocks the next target.
type Scheduler struct {
	runner  cycleRunner
	targets []*models.Target
	cfg     config.FetchConfig
	limiter *rate.Limiter
}

// NewScheduler builds the target list from cfg.Targets, all Pending.
func NewScheduler(runner cycleRunner, cfg config.FetchConfig) *Scheduler {
	targets := make([]*models.Target, 0, len(cfg.Targets))
	for _, label := range cfg.Targets {
		targets = append(targets, &models.Target{Label: label, Status: models.StatusPending})
	}
	every := cfg.RetryDelay
	if every <= 0 {
		every = time.Millisecond
	}
	return &Scheduler{
		runner:  runner,
		targets: targets,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

// Run drives every target to a terminal state and returns the run summary.
// The first successful attempt ends a target's retry loop immediately; no
// further attempts are spent on it.
func (s *Scheduler) Run(ctx context.Context) models.RunSummary {
	var summary models.RunSummary

	for _, t := range s.targets {
		slog.Info("starting target", "label", t.Label, "maxAttempts", s.cfg.MaxAttempts)

		for t.Attempts < s.cfg.MaxAttempts {
			if err := s.limiter.Wait(ctx); err != nil {
				break
			}
			t.Attempts++
			record, err := s.runner.Run(ctx, t.Label)
			if err == nil {
				t.Status = models.StatusSucceeded
				summary.Records = append(summary.Records, record)
				slog.Info("target succeeded", "label", t.Label, "attempt", t.Attempts, "path", record.Path)
				break
			}
			slog.Warn("attempt failed", "label", t.Label, "attempt", t.Attempts, "error", err)
		}

		if t.Status != models.StatusSucceeded {
			t.Status = models.StatusFailed
			summary.Failed = append(summary.Failed, t.Label)
			slog.Error("target exhausted all attempts", "label", t.Label, "attempts", t.Attempts)
		}
	}

	if len(summary.Failed) > 0 {
		summary.SnapshotDir = s.cfg.SnapshotDir
	}
	return summary
}

// Targets exposes the per-target states for the run summary.
func (s *Scheduler) Targets() []*models.Target {
	return s.targets
}
