package gift

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/giftrail/giftrail/logger"
)

// ScheduleRunner ticks the recurring-gift schedules. RunDue is also callable
// directly, so an external trigger can drive schedules without this runner.
type ScheduleRunner struct {
	coordinator *Coordinator
	interval    time.Duration
	ticker      *time.Ticker
	logger      zerolog.Logger
	stopCh      chan struct{}
}

// NewScheduleRunner creates a runner that fires RunDue at the given interval.
func NewScheduleRunner(coordinator *Coordinator, interval time.Duration, log zerolog.Logger) *ScheduleRunner {
	return &ScheduleRunner{
		coordinator: coordinator,
		interval:    interval,
		logger:      logger.ForComponent(log, "schedule_runner"),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic schedule processing.
func (r *ScheduleRunner) Start(ctx context.Context) error {
	r.logger.Info().
		Dur("interval", r.interval).
		Msg("starting schedule runner")

	r.ticker = time.NewTicker(r.interval)

	go func() {
		defer r.ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.logger.Info().Msg("context cancelled, stopping schedule runner")
				return
			case <-r.stopCh:
				r.logger.Info().Msg("stop signal received, stopping schedule runner")
				return
			case <-r.ticker.C:
				spawned, err := r.coordinator.RunDue(ctx, time.Now().UTC())
				if err != nil {
					r.logger.Error().Err(err).Msg("schedule tick failed")
					continue
				}
				if spawned > 0 {
					r.logger.Info().Int("spawned", spawned).Msg("scheduled gifts created")
				}
			}
		}
	}()

	return nil
}

// Stop gracefully stops the runner.
func (r *ScheduleRunner) Stop() {
	r.logger.Info().Msg("stopping schedule runner")
	close(r.stopCh)
	if r.ticker != nil {
		r.ticker.Stop()
	}
}
