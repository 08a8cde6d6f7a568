// Package scheduler runs the storefront's periodic maintenance jobs
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// RegionRefresher reloads the cached region directory
type RegionRefresher interface {
	RefreshRegions(ctx context.Context) error
}

// Sweeper drops expired entries of an in-process store and reports how many went
type Sweeper interface {
	Sweep() int
}

// MaintenanceScheduler keeps the region cache warm and sweeps the in-memory KV fallback
type MaintenanceScheduler struct {
	regions     RegionRefresher
	sweeper     Sweeper
	regionsSpec string
	sweepSpec   string
	jobTimeout  time.Duration
	cron        *cron.Cron
}

// NewMaintenanceScheduler wires the jobs. sweeper may be nil when redis holds the state.
func NewMaintenanceScheduler(regions RegionRefresher, sweeper Sweeper, regionsSpec string) *MaintenanceScheduler {
	if regionsSpec == "" {
		regionsSpec = "@every 30m"
	}
	return &MaintenanceScheduler{
		regions:     regions,
		sweeper:     sweeper,
		regionsSpec: regionsSpec,
		sweepSpec:   "@every 5m",
		jobTimeout:  30 * time.Second,
		cron:        cron.New(),
	}
}

// Start warms the region cache once, schedules the jobs and returns a stop function
func (s *MaintenanceScheduler) Start(parent context.Context) (func(), error) {
	ctx, cancel := context.WithCancel(parent)

	if _, err := s.cron.AddFunc(s.regionsSpec, func() { s.refreshRegions(ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule region refresh %q: %w", s.regionsSpec, err)
	}
	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(s.sweepSpec, s.sweep); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to schedule kv sweep: %w", err)
		}
	}

	go s.refreshRegions(ctx)
	s.cron.Start()
	log.Info().Str("regions_spec", s.regionsSpec).Bool("sweep", s.sweeper != nil).Msg("Maintenance scheduler started")

	return func() {
		cancel()
		<-s.cron.Stop().Done()
		log.Info().Msg("Maintenance scheduler stopped")
	}, nil
}

func (s *MaintenanceScheduler) refreshRegions(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, s.jobTimeout)
	defer cancel()

	start := time.Now()
	if err := s.regions.RefreshRegions(ctx); err != nil {
		log.Warn().Err(err).Msg("Region directory refresh failed")
		return
	}
	log.Debug().Dur("took", time.Since(start)).Msg("Region directory refreshed")
}

func (s *MaintenanceScheduler) sweep() {
	if removed := s.sweeper.Sweep(); removed > 0 {
		log.Debug().Int("removed", removed).Msg("Expired KV entries swept")
	}
}
