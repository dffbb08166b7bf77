// Package scheduler runs the periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/casework"
)

// Default cron specs (UTC).
const (
	DefaultTokenSweepSpec   = "0 * * * *"
	DefaultOverdueSweepSpec = "0 2 * * *"
)

// Jobs is the work the scheduler triggers. *casework.Service satisfies it.
type Jobs interface {
	SweepExpiredTokens(ctx context.Context) (casework.SweepResult, error)
	OverdueCases(ctx context.Context) ([]models.Record, error)
}

// Config holds the cron specs; empty values fall back to the defaults.
type Config struct {
	TokenSweepSpec   string
	OverdueSweepSpec string
	Timeout          time.Duration
}

// Scheduler handles the token sweep and the overdue-TAT report.
type Scheduler struct {
	cron    *cron.Cron
	jobs    Jobs
	cfg     Config
	started bool
}

func New(jobs Jobs, cfg Config) *Scheduler {
	if cfg.TokenSweepSpec == "" {
		cfg.TokenSweepSpec = DefaultTokenSweepSpec
	}
	if cfg.OverdueSweepSpec == "" {
		cfg.OverdueSweepSpec = DefaultOverdueSweepSpec
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		jobs: jobs,
		cfg:  cfg,
	}
}

// Start registers both jobs and starts the cron loop. A bad spec is
// reported and nothing is started.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.TokenSweepSpec, s.SweepTokens); err != nil {
		return fmt.Errorf("register token sweep %q: %w", s.cfg.TokenSweepSpec, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.OverdueSweepSpec, s.ReportOverdue); err != nil {
		return fmt.Errorf("register overdue report %q: %w", s.cfg.OverdueSweepSpec, err)
	}
	s.cron.Start()
	s.started = true
	zap.S().Infow("scheduler started",
		"tokenSweep", s.cfg.TokenSweepSpec,
		"overdueReport", s.cfg.OverdueSweepSpec)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// SweepTokens deletes unused candidate tokens and short links past expiry.
func (s *Scheduler) SweepTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	res, err := s.jobs.SweepExpiredTokens(ctx)
	if err != nil {
		zap.S().Errorw("token sweep failed", "error", err)
		return
	}
	zap.S().Infow("token sweep finished", "tokens", res.Tokens, "shortLinks", res.ShortLinks)
}

// ReportOverdue logs every active case past its TAT due date.
func (s *Scheduler) ReportOverdue() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	records, err := s.jobs.OverdueCases(ctx)
	if err != nil {
		zap.S().Errorw("overdue report failed", "error", err)
		return
	}
	for _, r := range records {
		zap.S().Warnw("case past TAT",
			"recordId", r.ID,
			"reference", r.ReferenceNumber,
			"status", r.Status,
			"vendor", r.VendorName,
			"tatDueDate", r.TatDueDate)
	}
	zap.S().Infow("overdue report finished", "overdue", len(records))
}
