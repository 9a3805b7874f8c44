package gift

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/giftrail/giftrail/logger"
)

// ExpirySweeper periodically flips overdue non-terminal gifts to expired.
// Correctness does not depend on it: expiry is enforced lazily on every read
// through the record store. The sweep keeps listings and aggregates honest
// for gifts nobody reads.
type ExpirySweeper struct {
	records  *RecordStore
	interval time.Duration
	ticker   *time.Ticker
	logger   zerolog.Logger
	stopCh   chan struct{}
}

// NewExpirySweeper creates a sweeper over the gift record store.
func NewExpirySweeper(records *RecordStore, interval time.Duration, log zerolog.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		records:  records,
		interval: interval,
		logger:   logger.ForComponent(log, "expiry_sweeper"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep, performing one pass immediately.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("starting expiry sweeper")

	if err := s.sweep(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial expiry sweep failed")
		// Startup proceeds; the lazy read-time check still guards claims.
	}

	s.ticker = time.NewTicker(s.interval)

	go func() {
		defer s.ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("context cancelled, stopping expiry sweeper")
				return
			case <-s.stopCh:
				s.logger.Info().Msg("stop signal received, stopping expiry sweeper")
				return
			case <-s.ticker.C:
				if err := s.sweep(ctx); err != nil {
					s.logger.Error().Err(err).Msg("scheduled expiry sweep failed")
				}
			}
		}
	}()

	return nil
}

// Stop gracefully stops the sweeper.
func (s *ExpirySweeper) Stop() {
	s.logger.Info().Msg("stopping expiry sweeper")
	close(s.stopCh)
	if s.ticker != nil {
		s.ticker.Stop()
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) error {
	start := time.Now()

	expired, err := s.records.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	if expired > 0 {
		s.logger.Info().
			Int64("expired", expired).
			Dur("duration", time.Since(start)).
			Msg("expiry sweep completed")
	} else {
		s.logger.Debug().
			Dur("duration", time.Since(start)).
			Msg("expiry sweep completed - nothing to expire")
	}
	return nil
}
