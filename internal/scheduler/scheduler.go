// Package scheduler wires up the cron job that periodically re-runs a full
// sync.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"jobmate/hh-loader/internal/pipeline"
)

// Syncer runs one complete sync.
type Syncer interface {
	Sync(ctx context.Context) (pipeline.Summary, error)
}

// Scheduler wraps robfig/cron and manages the sync loop.
type Scheduler struct {
	cron   *cron.Cron
	syncer Syncer
	spec   string // cron spec, e.g. "@every 6h"
	log    zerolog.Logger
}

// New creates a Scheduler that fires every intervalHours hours. Runs never
// overlap: a tick that fires while a sync is still running is skipped.
func New(syncer Syncer, intervalHours int, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		syncer: syncer,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
		log:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Spec returns the cron spec the scheduler registers.
func (s *Scheduler) Spec() string { return s.spec }

// Start registers the job and starts the scheduler, then runs one sync
// immediately in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).
		Then(cron.FuncJob(func() { s.runSync(ctx) }))
	if _, err := s.cron.AddJob(s.spec, job); err != nil {
		return fmt.Errorf("cron.AddJob: %w", err)
	}

	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("cron started")

	go job.Run()

	return nil
}

// Stop halts the scheduler and waits for a sync started by a tick.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("cron stopped")
}

func (s *Scheduler) runSync(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	sum, err := s.syncer.Sync(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sync failed")
		return
	}
	s.log.Info().
		Int("employers", sum.Employers).
		Int("vacancies", sum.Vacancies).
		Msg("scheduled sync complete")
}
