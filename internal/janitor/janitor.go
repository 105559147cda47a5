// Package janitor runs periodic housekeeping jobs such as purging expired
// discount grants.
package janitor

import (
	"context"
	"fmt"
	"time"

	"levelup-loyalty/internal/metrics"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

const defaultInterval = time.Hour

// Job is one unit of housekeeping.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Janitor executes its jobs once at start and then on a fixed cadence.
type Janitor struct {
	jobs     []Job
	interval time.Duration
	metrics  *metrics.Jobs
	logger   zerolog.Logger
}

// New builds a janitor. A non-positive interval falls back to one hour.
func New(interval time.Duration, m *metrics.Jobs, logger zerolog.Logger, jobs ...Job) *Janitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Janitor{
		jobs:     jobs,
		interval: interval,
		metrics:  m,
		logger:   logger.With().Str("component", "janitor").Logger(),
	}
}

// Run loops until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error().Err(err).Msg("housekeeping run failed")
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("janitor stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error().Err(err).Msg("housekeeping run failed")
			}
		}
	}
}

// RunOnce runs every job and returns their combined failures.
func (j *Janitor) RunOnce(ctx context.Context) error {
	var errs error
	for _, job := range j.jobs {
		start := time.Now()
		err := job.Run(ctx)
		duration := time.Since(start)
		j.metrics.Observe(job.Name(), duration, err)

		if err != nil {
			j.logger.Error().Err(err).Str("job", job.Name()).Dur("duration", duration).Msg("job failed")
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
			continue
		}
		j.logger.Debug().Str("job", job.Name()).Dur("duration", duration).Msg("job completed")
	}
	return errs
}
