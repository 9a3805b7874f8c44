package gift

import (
	"context"

	"github.com/google/uuid"

	"github.com/giftrail/giftrail/errors"
	"github.com/giftrail/giftrail/store"
)

// BulkRecipient identifies one recipient of a bulk fan-out.
type BulkRecipient struct {
	Handle string
	Email  string
}

// BulkRequest creates N independent gifts sharing one batch.
type BulkRequest struct {
	SenderRef          string
	Recipients         []BulkRecipient
	Amount             string // Per-recipient amount, decimal string
	SourceNetwork      string
	DestinationNetwork string
	Message            string
	ExpiresInDays      int
	WithSecret         bool
}

// BulkResult is the per-recipient outcome of a bulk creation.
type BulkResult struct {
	BatchID string         `json:"batch_id"`
	Gifts   []CreateResult `json:"gifts"`
}

// BatchStatus is the aggregate over a batch's member gifts, recomputed on
// read rather than stored, so there is a single source of truth.
type BatchStatus struct {
	BatchID   string `json:"batch_id"`
	Status    string `json:"status"` // "processing" or "completed"
	Total     int    `json:"total"`
	Claimed   int    `json:"claimed"`
	Completed int    `json:"completed"`
	Expired   int    `json:"expired"`
	Failed    int    `json:"failed"`
}

// CreateBulk fans a gift out to multiple recipients. Each sub-gift is a
// fully independent gift with its own claim code; only the batch id ties
// them together.
func (c *Coordinator) CreateBulk(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	if len(req.Recipients) == 0 {
		return nil, errors.NewValidation("bulk gift requires at least one recipient")
	}

	batch := &store.GiftBatch{
		BatchID:        uuid.NewString(),
		SenderRef:      req.SenderRef,
		RecipientCount: len(req.Recipients),
	}
	if err := c.records.db.Client().WithContext(ctx).Create(batch).Error; err != nil {
		return nil, errors.NewDatabaseError("failed to create gift batch", err)
	}

	result := &BulkResult{BatchID: batch.BatchID}
	for _, r := range req.Recipients {
		created, err := c.Create(ctx, CreateRequest{
			SenderRef:          req.SenderRef,
			RecipientHandle:    r.Handle,
			RecipientEmail:     r.Email,
			Amount:             req.Amount,
			SourceNetwork:      req.SourceNetwork,
			DestinationNetwork: req.DestinationNetwork,
			Message:            req.Message,
			ExpiresInDays:      req.ExpiresInDays,
			WithSecret:         req.WithSecret,
			BatchID:            batch.BatchID,
		})
		if err != nil {
			return nil, errors.WrapGiftError(err, errors.ErrCodeInternal, "bulk fan-out failed").
				WithContext("batch_id", batch.BatchID).
				WithContext("created", len(result.Gifts))
		}

		result.Gifts = append(result.Gifts, *created)
	}

	c.logger.Info().
		Str("batch_id", batch.BatchID).
		Int("recipients", len(req.Recipients)).
		Msg("bulk gift created")

	return result, nil
}

// GetBatchStatus recomputes the batch aggregate from the member gifts. The
// batch is "completed" only when every member is terminal.
func (c *Coordinator) GetBatchStatus(ctx context.Context, batchID string) (*BatchStatus, error) {
	gifts, err := c.records.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(gifts) == 0 {
		return nil, errors.NewNotFound().WithContext("batch_id", batchID)
	}

	status := &BatchStatus{BatchID: batchID, Total: len(gifts)}
	allTerminal := true
	for _, g := range gifts {
		switch g.Status {
		case store.GiftStatusCompleted:
			status.Completed++
			status.Claimed++
		case store.GiftStatusClaimed, store.GiftStatusTransferring:
			status.Claimed++
		case store.GiftStatusExpired:
			status.Expired++
		case store.GiftStatusFailed:
			status.Failed++
		}
		if !g.Status.Terminal() {
			allTerminal = false
		}
	}

	if allTerminal {
		status.Status = "completed"
	} else {
		status.Status = "processing"
	}
	return status, nil
}
