// Package core assembles the gift service: storage, escrow, settlement,
// background jobs, and the HTTP surface, wired from one Config.
package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/giftrail/giftrail/api"
	"github.com/giftrail/giftrail/config"
	"github.com/giftrail/giftrail/credential"
	"github.com/giftrail/giftrail/db"
	"github.com/giftrail/giftrail/errors"
	"github.com/giftrail/giftrail/escrow"
	"github.com/giftrail/giftrail/gift"
	"github.com/giftrail/giftrail/network"
	"github.com/giftrail/giftrail/transfer"
	"github.com/giftrail/giftrail/wallet"
)

// Service is the assembled gift core.
type Service struct {
	log         zerolog.Logger
	db          *db.DB
	coordinator *gift.Coordinator
	sweeper     *gift.ExpirySweeper
	scheduler   *gift.ScheduleRunner
	server      *api.Server
}

// NewService wires every component from the configuration. No component
// reads ambient settings after this point.
func NewService(cfg config.Config, log zerolog.Logger, database *db.DB) (*Service, error) {
	provider, err := wallet.NewHTTPProvider(cfg.WalletProviderURL, cfg.WalletProviderKey)
	if err != nil {
		return nil, err
	}

	gateways := make(map[string]transfer.Gateway, len(cfg.GatewayURLs))
	for net, url := range cfg.GatewayURLs {
		gw, err := network.NewHTTPGateway(net, url, cfg.WalletProviderKey)
		if err != nil {
			return nil, errors.WrapGiftError(err, errors.ErrCodeNotConfigured, "failed to build gateway").
				WithContext("network", net)
		}
		gateways[net] = gw
	}

	attester, err := network.NewHTTPAttester(cfg.AttesterURL)
	if err != nil {
		return nil, err
	}

	policy := transfer.PollPolicy{
		MaxAttempts:   cfg.AttestationPollMaxAttempts,
		Interval:      time.Duration(cfg.AttestationPollIntervalSeconds) * time.Second,
		BackoffFactor: cfg.AttestationPollBackoffFactor,
		MaxInterval:   time.Duration(cfg.AttestationPollMaxSeconds) * time.Second,
	}

	burnRetry := errors.DefaultRetryConfig()
	burnRetry.MaxAttempts = cfg.BurnMaxRetries
	mintRetry := errors.DefaultRetryConfig()
	mintRetry.MaxAttempts = cfg.MintMaxRetries

	orchestrator := transfer.NewOrchestrator(database, gateways, attester, policy, burnRetry, mintRetry, log)

	records := gift.NewRecordStore(database, log)
	coordinator := gift.NewCoordinator(
		records,
		credential.NewIssuer(),
		escrow.NewManager(provider, cfg.HoldingAccounts, log),
		orchestrator,
		cfg.ClaimBaseURL,
		cfg.StableDecimals,
		log,
	)

	return &Service{
		log:         log,
		db:          database,
		coordinator: coordinator,
		sweeper: gift.NewExpirySweeper(records,
			time.Duration(cfg.ExpirySweepIntervalSeconds)*time.Second, log),
		scheduler: gift.NewScheduleRunner(coordinator,
			time.Duration(cfg.ScheduleTickIntervalSeconds)*time.Second, log),
		server: api.NewServer(log, coordinator, orchestrator, cfg.QueryServerPort),
	}, nil
}

// Coordinator exposes the lifecycle coordinator for embedding callers.
func (s *Service) Coordinator() *gift.Coordinator {
	return s.coordinator
}

// Start runs the service until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.log.Info().Msg("starting gift service")

	if err := s.sweeper.Start(ctx); err != nil {
		return err
	}
	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}
	if err := s.server.Start(); err != nil {
		return err
	}

	s.log.Info().Msg("gift service running")

	<-ctx.Done()

	s.log.Info().Msg("shutting down gift service")
	s.scheduler.Stop()
	s.sweeper.Stop()
	if err := s.server.Stop(); err != nil {
		s.log.Error().Err(err).Msg("failed to stop gift server")
	}
	return s.db.Close()
}
