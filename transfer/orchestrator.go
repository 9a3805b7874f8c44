package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/giftrail/giftrail/db"
	"github.com/giftrail/giftrail/errors"
	"github.com/giftrail/giftrail/logger"
	"github.com/giftrail/giftrail/store"
)

// Orchestrator runs settlement attempts and tracks them in the database.
type Orchestrator struct {
	db        *db.DB
	gateways  map[string]Gateway
	attester  Attester
	policy    PollPolicy
	burnRetry *errors.RetryConfig
	mintRetry *errors.RetryConfig
	logger    zerolog.Logger
}

// NewOrchestrator creates a transfer orchestrator over the given network
// gateways. policy bounds every polling loop. Burn and mint carry separate
// transient-error retry budgets: a burn submission is only ever retried
// before a hash is recorded, while mint is idempotent per attestation and
// retries freely, so the mint budget is typically the larger. A nil config
// falls back to the default budget.
func NewOrchestrator(
	database *db.DB,
	gateways map[string]Gateway,
	attester Attester,
	policy PollPolicy,
	burnRetry, mintRetry *errors.RetryConfig,
	log zerolog.Logger,
) *Orchestrator {
	if burnRetry == nil {
		burnRetry = errors.DefaultRetryConfig()
	}
	if mintRetry == nil {
		mintRetry = errors.DefaultRetryConfig()
	}
	return &Orchestrator{
		db:        database,
		gateways:  gateways,
		attester:  attester,
		policy:    policy,
		burnRetry: burnRetry,
		mintRetry: mintRetry,
		logger:    logger.ForComponent(log, "transfer_orchestrator"),
	}
}

// Create persists a new Transfer in the initiated state. A retry of a failed
// settlement creates a fresh Transfer; rows are never reused.
func (o *Orchestrator) Create(ctx context.Context, params Params) (*store.Transfer, error) {
	if _, err := o.gateway(params.SourceNetwork); err != nil {
		return nil, err
	}
	if _, err := o.gateway(params.DestinationNetwork); err != nil {
		return nil, err
	}

	t := &store.Transfer{
		TransferID:         uuid.NewString(),
		GiftID:             params.GiftID,
		SourceNetwork:      params.SourceNetwork,
		DestinationNetwork: params.DestinationNetwork,
		Amount:             params.Amount,
		RecipientAddress:   params.RecipientAddress,
		Status:             store.TransferStatusInitiated,
	}

	if err := o.db.Client().WithContext(ctx).Create(t).Error; err != nil {
		return nil, errors.NewDatabaseError("failed to create transfer", err)
	}

	o.logger.Info().
		Str("transfer_id", t.TransferID).
		Str("gift_id", t.GiftID).
		Str("source", t.SourceNetwork).
		Str("destination", t.DestinationNetwork).
		Int64("amount", t.Amount).
		Msg("transfer initiated")

	return t, nil
}

// Run drives a transfer to a terminal state, persisting status after every
// phase boundary. It returns the terminal transfer; a settlement failure is
// also reported as a typed error.
func (o *Orchestrator) Run(ctx context.Context, t *store.Transfer) (*store.Transfer, error) {
	if t.Status.Terminal() {
		return t, o.terminalError(t)
	}

	if t.SourceNetwork == t.DestinationNetwork {
		return o.runDirect(ctx, t)
	}
	return o.runCrossNetwork(ctx, t)
}

// Resume continues a persisted transfer from its recorded phase. Used after
// a restart; it never starts a new settlement.
func (o *Orchestrator) Resume(ctx context.Context, transferID string) (*store.Transfer, error) {
	t, err := o.get(ctx, transferID)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, t)
}

// PollStatus returns the current state of a transfer. It is read-only and
// idempotent; polling a terminal transfer any number of times returns the
// same result and never mutates CompletedAt.
func (o *Orchestrator) PollStatus(ctx context.Context, transferID string) (*store.Transfer, error) {
	return o.get(ctx, transferID)
}

// runDirect settles a same-network gift with one direct debit/credit.
func (o *Orchestrator) runDirect(ctx context.Context, t *store.Transfer) (*store.Transfer, error) {
	gw, err := o.gateway(t.SourceNetwork)
	if err != nil {
		return o.fail(ctx, t, err)
	}

	// A direct transfer is a non-idempotent submission like a burn, so it
	// shares the burn budget.
	var txHash string
	err = errors.RetryWithConfig(ctx, func() error {
		var txErr error
		txHash, txErr = gw.TransferDirect(ctx, t.Amount, t.RecipientAddress)
		return txErr
	}, o.burnRetry)
	if err != nil {
		return o.fail(ctx, t, errors.WrapGiftError(err, errors.ErrCodeTransferRejected, "direct transfer failed"))
	}

	t.MintTxHash = txHash
	return o.complete(ctx, t)
}

// runCrossNetwork drives the burn -> attest -> mint phases, entering at
// whichever phase the persisted status names.
func (o *Orchestrator) runCrossNetwork(ctx context.Context, t *store.Transfer) (*store.Transfer, error) {
	if t.Status == store.TransferStatusInitiated {
		if err := o.burnPhase(ctx, t); err != nil {
			return o.fail(ctx, t, err)
		}
	}

	if t.Status == store.TransferStatusSourceConfirmed ||
		t.Status == store.TransferStatusAttestationPending {
		if err := o.attestPhase(ctx, t); err != nil {
			return o.fail(ctx, t, err)
		}
	}

	if t.Status == store.TransferStatusAttestationReceived {
		if err := o.mintPhase(ctx, t); err != nil {
			return o.fail(ctx, t, err)
		}
		return o.complete(ctx, t)
	}

	return t, o.terminalError(t)
}

// burnPhase submits the burn and waits for source finality. Submission is
// retried on transient errors only while no burn hash is recorded; a
// confirmed burn is never re-submitted.
func (o *Orchestrator) burnPhase(ctx context.Context, t *store.Transfer) error {
	gw, err := o.gateway(t.SourceNetwork)
	if err != nil {
		return err
	}

	if t.BurnTxHash == "" {
		var burnTx string
		err = errors.RetryWithConfig(ctx, func() error {
			var burnErr error
			burnTx, burnErr = gw.Burn(ctx, t.Amount, t.RecipientAddress)
			return burnErr
		}, o.burnRetry)
		if err != nil {
			return errors.WrapGiftError(err, errors.ErrCodeTransferRejected, "burn failed")
		}

		t.BurnTxHash = burnTx
		if err := o.save(ctx, t); err != nil {
			return err
		}

		o.logger.Info().
			Str("transfer_id", t.TransferID).
			Str("burn_tx", burnTx).
			Msg("burn submitted")
	}

	confirmed, err := o.pollConfirmation(ctx, gw, t.BurnTxHash)
	if err != nil {
		return err
	}
	if !confirmed {
		return errors.NewTransferTimeout("burn confirmation polling exhausted").
			WithNetwork(t.SourceNetwork)
	}

	t.Status = store.TransferStatusSourceConfirmed
	return o.save(ctx, t)
}

// attestPhase polls the attestation service within the poll policy's bounds.
func (o *Orchestrator) attestPhase(ctx context.Context, t *store.Transfer) error {
	if t.Status != store.TransferStatusAttestationPending {
		t.Status = store.TransferStatusAttestationPending
		if err := o.save(ctx, t); err != nil {
			return err
		}
	}

	delay := o.policy.Interval
	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		attestation, err := o.attester.Attestation(ctx, t.SourceNetwork, t.BurnTxHash)
		if err != nil {
			if errors.IsRetryable(err) {
				o.logger.Warn().
					Err(err).
					Str("transfer_id", t.TransferID).
					Int("attempt", attempt).
					Msg("attestation poll failed, will retry")
			} else {
				return errors.WrapGiftError(err, errors.ErrCodeTransferRejected, "attestation rejected")
			}
		} else if attestation != "" {
			t.Attestation = attestation
			t.Status = store.TransferStatusAttestationReceived
			if err := o.save(ctx, t); err != nil {
				return err
			}
			o.logger.Info().
				Str("transfer_id", t.TransferID).
				Int("attempts", attempt).
				Msg("attestation received")
			return nil
		}

		if attempt == o.policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = o.policy.next(delay)
	}

	return errors.NewTransferTimeout("attestation polling exhausted").
		WithContext("attempts", o.policy.MaxAttempts)
}

// mintPhase submits the mint on the destination network. Mint is idempotent
// per attestation, so submission retries freely.
func (o *Orchestrator) mintPhase(ctx context.Context, t *store.Transfer) error {
	gw, err := o.gateway(t.DestinationNetwork)
	if err != nil {
		return err
	}

	var mintTx string
	err = errors.RetryWithConfig(ctx, func() error {
		var mintErr error
		mintTx, mintErr = gw.Mint(ctx, t.Attestation, t.RecipientAddress, t.Amount)
		return mintErr
	}, o.mintRetry)
	if err != nil {
		return errors.WrapGiftError(err, errors.ErrCodeTransferRejected, "mint failed")
	}

	t.MintTxHash = mintTx
	if err := o.save(ctx, t); err != nil {
		return err
	}

	confirmed, err := o.pollConfirmation(ctx, gw, mintTx)
	if err != nil {
		return err
	}
	if !confirmed {
		return errors.NewTransferTimeout("mint confirmation polling exhausted").
			WithNetwork(t.DestinationNetwork)
	}
	return nil
}

// pollConfirmation polls tx finality within the poll policy's bounds.
func (o *Orchestrator) pollConfirmation(ctx context.Context, gw Gateway, txHash string) (bool, error) {
	delay := o.policy.Interval
	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		confirmed, err := gw.ConfirmTx(ctx, txHash)
		if err != nil && !errors.IsRetryable(err) {
			return false, errors.WrapGiftError(err, errors.ErrCodeTransferRejected, "confirmation check failed")
		}
		if confirmed {
			return true, nil
		}

		if attempt == o.policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(delay):
		}
		delay = o.policy.next(delay)
	}
	return false, nil
}

// complete marks the transfer destination-confirmed. CompletedAt is written
// exactly once.
func (o *Orchestrator) complete(ctx context.Context, t *store.Transfer) (*store.Transfer, error) {
	now := time.Now().UTC()
	t.Status = store.TransferStatusDestinationConfirmed
	t.CompletedAt = &now
	if err := o.save(ctx, t); err != nil {
		return t, err
	}

	o.logger.Info().
		Str("transfer_id", t.TransferID).
		Str("gift_id", t.GiftID).
		Str("mint_tx", t.MintTxHash).
		Msg("transfer completed")

	return t, nil
}

// fail persists the failed state before surfacing the error, so a later
// PollStatus reflects reality even if the caller's connection dropped.
func (o *Orchestrator) fail(ctx context.Context, t *store.Transfer, cause error) (*store.Transfer, error) {
	now := time.Now().UTC()
	t.Status = store.TransferStatusFailed
	t.ErrorMsg = cause.Error()
	t.CompletedAt = &now
	if err := o.save(ctx, t); err != nil {
		o.logger.Error().
			Err(err).
			Str("transfer_id", t.TransferID).
			Msg("failed to persist transfer failure")
	}

	o.logger.Error().
		Err(cause).
		Str("transfer_id", t.TransferID).
		Str("gift_id", t.GiftID).
		Msg("transfer failed")

	return t, cause
}

func (o *Orchestrator) terminalError(t *store.Transfer) error {
	if t.Status == store.TransferStatusFailed {
		return errors.NewTransferRejected("transfer previously failed").
			WithContext("transfer_id", t.TransferID)
	}
	return nil
}

func (o *Orchestrator) gateway(network string) (Gateway, error) {
	gw, ok := o.gateways[network]
	if !ok {
		return nil, errors.NewNotConfigured("no gateway for network").WithNetwork(network)
	}
	return gw, nil
}

func (o *Orchestrator) get(ctx context.Context, transferID string) (*store.Transfer, error) {
	var t store.Transfer
	err := o.db.Client().WithContext(ctx).
		Where("transfer_id = ?", transferID).
		First(&t).Error
	if err != nil {
		return nil, errors.NewNotFound().WithContext("transfer_id", transferID)
	}
	return &t, nil
}

func (o *Orchestrator) save(ctx context.Context, t *store.Transfer) error {
	if err := o.db.Client().WithContext(ctx).Save(t).Error; err != nil {
		return errors.NewDatabaseError("failed to persist transfer", err)
	}
	return nil
}
