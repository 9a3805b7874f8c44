package gift

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/giftrail/giftrail/amount"
	"github.com/giftrail/giftrail/credential"
	"github.com/giftrail/giftrail/errors"
	"github.com/giftrail/giftrail/escrow"
	"github.com/giftrail/giftrail/logger"
	"github.com/giftrail/giftrail/store"
	"github.com/giftrail/giftrail/transfer"
)

// CreateRequest is the inbound gift creation request. Amount arrives as a
// decimal string and is converted to smallest units exactly once, here.
type CreateRequest struct {
	SenderRef          string
	RecipientHandle    string
	RecipientEmail     string
	Amount             string
	SourceNetwork      string
	DestinationNetwork string
	Message            string
	ExpiresInDays      int
	WithSecret         bool

	// Multi-signature gate; empty means no gate.
	RequiredSignatures int
	SignerAddresses    []string

	// Set by the bulk and recurring variants, not by external callers.
	BatchID    string
	ScheduleID string
}

// CreateResult is returned once per gift. ClaimSecret, when present, is the
// only time the plaintext secret ever leaves the core.
type CreateResult struct {
	GiftID      string `json:"gift_id"`
	ClaimURL    string `json:"claim_url"`
	ClaimCode   string `json:"claim_code"`
	ClaimSecret string `json:"claim_secret,omitempty"`
}

// ClaimResult reports the settlement started (or finished) by a claim.
type ClaimResult struct {
	TransferID string           `json:"transfer_id"`
	Status     store.GiftStatus `json:"status"`
}

// Coordinator is the gift lifecycle state machine. It is the only component
// that mutates gift records, and the only place component errors are mapped
// to caller-facing results.
type Coordinator struct {
	records      *RecordStore
	issuer       *credential.Issuer
	escrow       *escrow.Manager
	orchestrator *transfer.Orchestrator
	claimBaseURL string
	decimals     int32
	logger       zerolog.Logger
}

// NewCoordinator wires the lifecycle coordinator.
func NewCoordinator(
	records *RecordStore,
	issuer *credential.Issuer,
	escrowManager *escrow.Manager,
	orchestrator *transfer.Orchestrator,
	claimBaseURL string,
	decimals int32,
	log zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		records:      records,
		issuer:       issuer,
		escrow:       escrowManager,
		orchestrator: orchestrator,
		claimBaseURL: claimBaseURL,
		decimals:     decimals,
		logger:       logger.ForComponent(log, "gift_coordinator"),
	}
}

// Create validates the request, issues claim credentials, and persists a
// pending gift. The shareable claim URL embeds the claim code as a path
// segment.
func (c *Coordinator) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	units, err := amount.ToUnits(req.Amount, c.decimals)
	if err != nil {
		return nil, err
	}
	if units <= 0 {
		return nil, errors.NewValidation("amount must be greater than zero")
	}
	if req.RecipientHandle == "" && req.RecipientEmail == "" {
		return nil, errors.NewValidation("recipient handle or email required")
	}
	if req.SourceNetwork == "" || req.DestinationNetwork == "" {
		return nil, errors.NewValidation("source and destination networks required")
	}
	if req.RequiredSignatures > len(req.SignerAddresses) {
		return nil, errors.NewValidation("required signatures exceed signer set")
	}

	var creds credential.Credentials
	if req.WithSecret {
		creds, err = c.issuer.IssueWithSecret()
	} else {
		creds, err = c.issuer.Issue()
	}
	if err != nil {
		return nil, err
	}

	g := &store.Gift{
		GiftID:             uuid.NewString(),
		ClaimCode:          creds.ClaimCode,
		ClaimSecretHash:    creds.SecretHash,
		SenderRef:          req.SenderRef,
		RecipientHandle:    req.RecipientHandle,
		RecipientEmail:     req.RecipientEmail,
		Amount:             units,
		SourceNetwork:      req.SourceNetwork,
		DestinationNetwork: req.DestinationNetwork,
		Message:            req.Message,
		RequiredSignatures: req.RequiredSignatures,
		SignerSet:          encodeSignerSet(req.SignerAddresses),
		BatchID:            req.BatchID,
		ScheduleID:         req.ScheduleID,
	}
	if req.ExpiresInDays > 0 {
		expiry := time.Now().UTC().AddDate(0, 0, req.ExpiresInDays)
		g.ExpiresAt = &expiry
	}

	if err := c.records.Create(ctx, g); err != nil {
		return nil, err
	}

	return &CreateResult{
		GiftID:      g.GiftID,
		ClaimURL:    fmt.Sprintf("%s/%s", c.claimBaseURL, g.ClaimCode),
		ClaimCode:   g.ClaimCode,
		ClaimSecret: creds.ClaimSecret,
	}, nil
}

// ConfirmFunding checks the escrow balance and moves the gift from pending
// to escrow_funded. Multi-signature gifts must have met their threshold
// first.
func (c *Coordinator) ConfirmFunding(ctx context.Context, giftID string) (*store.Gift, error) {
	g, err := c.records.Get(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if g.Status != store.GiftStatusPending {
		return nil, errors.NewConflict("gift is not awaiting funding").
			WithContext("status", string(g.Status))
	}

	if g.RequiredSignatures > 0 {
		met, err := c.thresholdMet(ctx, g)
		if err != nil {
			return nil, err
		}
		if !met {
			return nil, errors.NewValidation("signature threshold not met")
		}
	}

	funded, err := c.escrow.ConfirmFunded(ctx, g)
	if err != nil {
		return nil, err
	}
	if !funded {
		return nil, errors.NewInsufficientFunds(g.SourceNetwork)
	}

	return c.records.Transition(ctx, giftID, store.GiftStatusPending, store.GiftStatusEscrowFunded, nil)
}

// Lookup returns a sanitized gift view for a presented claim code. Expiry is
// evaluated before the secret; a wrong secret never reveals more than a
// wrong code would.
func (c *Coordinator) Lookup(ctx context.Context, claimCode, secret string) (*View, error) {
	g, err := c.records.GetByClaimCode(ctx, claimCode)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeExpired) {
			return nil, err
		}
		return nil, errors.NewNotFound()
	}

	if g.ClaimSecretHash != "" && secret != "" && !credential.VerifySecret(secret, g.ClaimSecretHash) {
		return nil, errors.NewInvalidSecret()
	}

	return newView(g, c.decimals), nil
}

// ExecuteClaim redeems a gift: it wins (or loses) the guarded transition to
// claimed, obtains release authorization, and drives settlement to a
// terminal state. Concurrent claims observe AlreadyClaimed; they never
// retry the transition.
func (c *Coordinator) ExecuteClaim(ctx context.Context, claimCode, secret, recipientAddress string) (*ClaimResult, error) {
	if recipientAddress == "" {
		return nil, errors.NewValidation("recipient address required")
	}

	g, err := c.records.GetByClaimCode(ctx, claimCode)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeExpired) {
			return nil, err
		}
		return nil, errors.NewNotFound()
	}

	// Expiry precedes secret verification; a correct secret on an expired
	// gift is still Expired (GetByClaimCode already enforced this).
	switch g.Status {
	case store.GiftStatusClaimed, store.GiftStatusTransferring, store.GiftStatusCompleted:
		return nil, errors.NewAlreadyClaimed()
	case store.GiftStatusFailed:
		return nil, errors.NewTransferRejected("gift settlement failed; an explicit retry is required")
	case store.GiftStatusPending:
		return nil, errors.NewValidation("gift is not yet funded")
	}

	if g.ClaimSecretHash != "" && !credential.VerifySecret(secret, g.ClaimSecretHash) {
		return nil, errors.NewInvalidSecret()
	}

	// The claim transition re-checks the expiry deadline in its WHERE clause,
	// so a gift crossing its deadline after the read above still loses here.
	now := time.Now().UTC()
	g, err = c.records.TransitionClaim(ctx, g.GiftID, now, map[string]any{
		"claimed_at":        &now,
		"recipient_address": recipientAddress,
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeConflict) {
			return nil, errors.NewAlreadyClaimed()
		}
		return nil, err
	}

	return c.settle(ctx, g)
}

// settle runs a fresh settlement attempt for a claimed gift. Every
// status-changing failure is persisted before the error is returned.
func (c *Coordinator) settle(ctx context.Context, g *store.Gift) (*ClaimResult, error) {
	if _, err := c.escrow.ReleaseAuthorization(ctx, g); err != nil {
		if _, ferr := c.records.MarkFailed(ctx, g.GiftID); ferr != nil {
			c.logger.Error().Err(ferr).Str("gift_id", g.GiftID).Msg("failed to persist gift failure")
		}
		return nil, err
	}

	t, err := c.orchestrator.Create(ctx, transfer.Params{
		GiftID:             g.GiftID,
		SourceNetwork:      g.SourceNetwork,
		DestinationNetwork: g.DestinationNetwork,
		Amount:             g.Amount,
		RecipientAddress:   g.RecipientAddress,
	})
	if err != nil {
		if _, ferr := c.records.MarkFailed(ctx, g.GiftID); ferr != nil {
			c.logger.Error().Err(ferr).Str("gift_id", g.GiftID).Msg("failed to persist gift failure")
		}
		return nil, err
	}

	// The transfer reference is persisted before settlement runs so a crash
	// mid-transfer resumes by polling this transfer, never by starting a
	// new one.
	g, err = c.records.Transition(ctx, g.GiftID, g.Status, store.GiftStatusTransferring, map[string]any{
		"transfer_ref": t.TransferID,
	})
	if err != nil {
		return nil, err
	}

	return c.finalize(ctx, g, t)
}

// finalize drives a transfer to its terminal state and records the outcome
// on the gift.
func (c *Coordinator) finalize(ctx context.Context, g *store.Gift, t *store.Transfer) (*ClaimResult, error) {
	t, runErr := c.orchestrator.Run(ctx, t)

	if t.Status == store.TransferStatusDestinationConfirmed {
		g, err := c.records.Transition(ctx, g.GiftID, store.GiftStatusTransferring, store.GiftStatusCompleted, nil)
		if err != nil {
			return nil, err
		}
		c.logger.Info().
			Str("gift_id", g.GiftID).
			Str("transfer_id", t.TransferID).
			Msg("gift completed")
		return &ClaimResult{TransferID: t.TransferID, Status: g.Status}, nil
	}

	if _, err := c.records.MarkFailed(ctx, g.GiftID); err != nil {
		c.logger.Error().Err(err).Str("gift_id", g.GiftID).Msg("failed to persist gift failure")
	}

	if runErr == nil {
		runErr = errors.NewTransferRejected("settlement did not complete")
	}
	return &ClaimResult{TransferID: t.TransferID, Status: store.GiftStatusFailed}, runErr
}

// ResumeSettlement re-attaches to an in-flight settlement after a restart,
// keyed off the gift's transfer reference. It never starts a second
// transfer for a transferring gift.
func (c *Coordinator) ResumeSettlement(ctx context.Context, giftID string) (*ClaimResult, error) {
	g, err := c.records.Get(ctx, giftID)
	if err != nil {
		return nil, err
	}

	switch g.Status {
	case store.GiftStatusTransferring:
		if g.TransferRef == "" {
			return nil, errors.NewInternal("transferring gift has no transfer reference", nil)
		}
		t, err := c.orchestrator.PollStatus(ctx, g.TransferRef)
		if err != nil {
			return nil, err
		}
		return c.finalize(ctx, g, t)
	case store.GiftStatusClaimed:
		// Crashed between claim and transfer creation; start settlement.
		return c.settle(ctx, g)
	case store.GiftStatusCompleted:
		return &ClaimResult{TransferID: g.TransferRef, Status: g.Status}, nil
	default:
		return nil, errors.NewConflict("gift has no settlement to resume").
			WithContext("status", string(g.Status))
	}
}

// RetrySettlement is the explicit, human-triggered retry path for a failed
// settlement. It creates a fresh transfer for the same gift; the gift keeps
// only the most recent transfer reference.
func (c *Coordinator) RetrySettlement(ctx context.Context, giftID string) (*ClaimResult, error) {
	g, err := c.records.Get(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if g.Status != store.GiftStatusFailed {
		return nil, errors.NewConflict("only failed gifts can be retried").
			WithContext("status", string(g.Status))
	}
	if g.RecipientAddress == "" {
		return nil, errors.NewValidation("gift was never claimed; nothing to retry")
	}

	t, err := c.orchestrator.Create(ctx, transfer.Params{
		GiftID:             g.GiftID,
		SourceNetwork:      g.SourceNetwork,
		DestinationNetwork: g.DestinationNetwork,
		Amount:             g.Amount,
		RecipientAddress:   g.RecipientAddress,
	})
	if err != nil {
		return nil, err
	}

	g, err = c.records.Transition(ctx, g.GiftID, store.GiftStatusFailed, store.GiftStatusTransferring, map[string]any{
		"transfer_ref": t.TransferID,
	})
	if err != nil {
		return nil, err
	}

	return c.finalize(ctx, g, t)
}
