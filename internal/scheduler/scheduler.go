package scheduler

import (
	"context"
	"fmt"

	"nbasync/featurepipe/internal/config"
	"nbasync/featurepipe/internal/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the nightly delta sync. Historical backfills are one-shot
// and stay out of here; the cron surface only covers the incremental path.
type Scheduler struct {
	cfg          *config.Config
	orchestrator *pipeline.Orchestrator
	cron         *cron.Cron
}

// NewScheduler creates a scheduler around an orchestrator.
func NewScheduler(cfg *config.Config, orchestrator *pipeline.Orchestrator) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		cron:         cron.New(),
	}
}

// Start registers the delta sync job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.DeltaSyncCron, func() {
		log.Info().Msg("Running scheduled delta sync...")
		n, err := s.orchestrator.SyncRecent(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled delta sync failed")
			return
		}
		log.Info().Int("rows", n).Msg("Scheduled delta sync finished")
	}); err != nil {
		return fmt.Errorf("failed to schedule delta sync: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.DeltaSyncCron).
		Msg("Delta sync scheduled")

	return nil
}

// Stop stops the cron loop. Jobs already running finish on their own.
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	if s.cron != nil {
		s.cron.Stop()
	}
	log.Info().Msg("Scheduler stopped")
}
