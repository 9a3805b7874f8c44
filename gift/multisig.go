package gift

import (
	"context"
	"encoding/json"
	"time"

	"github.com/giftrail/giftrail/errors"
	"github.com/giftrail/giftrail/store"
)

// AddSignature records one authorization for a multi-signature gift. A
// signature from an address outside the gift's signer set is rejected, not
// ignored; a duplicate signer does not raise the count.
func (c *Coordinator) AddSignature(ctx context.Context, giftID, signer string) (int, error) {
	g, err := c.records.Get(ctx, giftID)
	if err != nil {
		return 0, err
	}
	if g.RequiredSignatures == 0 {
		return 0, errors.NewValidation("gift has no signature gate")
	}
	if g.Status != store.GiftStatusPending {
		return 0, errors.NewConflict("signatures can only be added before funding").
			WithContext("status", string(g.Status))
	}

	if !signerAllowed(g, signer) {
		return 0, errors.NewValidation("signer is not a member of the gift's signer set").
			WithContext("signer", signer)
	}

	sig := &store.GiftSignature{
		GiftID:   giftID,
		Signer:   signer,
		SignedAt: time.Now().UTC(),
	}
	if err := c.records.db.Client().WithContext(ctx).Create(sig).Error; err != nil {
		// The composite unique index turns a duplicate signer into a no-op.
		count, cerr := c.signatureCount(ctx, giftID)
		if cerr != nil {
			return 0, cerr
		}
		return count, nil
	}

	count, err := c.signatureCount(ctx, giftID)
	if err != nil {
		return 0, err
	}

	c.logger.Info().
		Str("gift_id", giftID).
		Str("signer", signer).
		Int("signatures", count).
		Int("required", g.RequiredSignatures).
		Msg("signature collected")

	return count, nil
}

// thresholdMet reports whether a multi-signature gift has collected enough
// authorizations to be funded.
func (c *Coordinator) thresholdMet(ctx context.Context, g *store.Gift) (bool, error) {
	count, err := c.signatureCount(ctx, g.GiftID)
	if err != nil {
		return false, err
	}
	return count >= g.RequiredSignatures, nil
}

func (c *Coordinator) signatureCount(ctx context.Context, giftID string) (int, error) {
	var count int64
	err := c.records.db.Client().WithContext(ctx).
		Model(&store.GiftSignature{}).
		Where("gift_id = ?", giftID).
		Count(&count).Error
	if err != nil {
		return 0, errors.NewDatabaseError("failed to count signatures", err)
	}
	return int(count), nil
}

func signerAllowed(g *store.Gift, signer string) bool {
	for _, s := range decodeSignerSet(g.SignerSet) {
		if s == signer {
			return true
		}
	}
	return false
}

func encodeSignerSet(signers []string) string {
	if len(signers) == 0 {
		return ""
	}
	data, _ := json.Marshal(signers)
	return string(data)
}

func decodeSignerSet(encoded string) []string {
	if encoded == "" {
		return nil
	}
	var signers []string
	if err := json.Unmarshal([]byte(encoded), &signers); err != nil {
		return nil
	}
	return signers
}
