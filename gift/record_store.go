// Package gift implements the gift lifecycle: the record store with its
// guarded status transition, the coordinator state machine, and the bulk,
// recurring, and multi-signature variants.
package gift

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/giftrail/giftrail/db"
	"github.com/giftrail/giftrail/errors"
	"github.com/giftrail/giftrail/logger"
	"github.com/giftrail/giftrail/store"
)

// expirableStatuses are the statuses from which expiry can absorb a gift.
// A claim that already won its guarded transition is past the expiry gate.
var expirableStatuses = []store.GiftStatus{
	store.GiftStatusPending,
	store.GiftStatusEscrowFunded,
}

func expirable(s store.GiftStatus) bool {
	for _, e := range expirableStatuses {
		if s == e {
			return true
		}
	}
	return false
}

// RecordStore is the single source of truth for gift records. All status
// mutations flow through Transition, a compare-and-swap on the persisted
// status field; that guard is the only concurrency control in the system.
type RecordStore struct {
	db     *db.DB
	logger zerolog.Logger
}

// NewRecordStore creates a gift record store.
func NewRecordStore(database *db.DB, log zerolog.Logger) *RecordStore {
	return &RecordStore{
		db:     database,
		logger: logger.ForComponent(log, "gift_record_store"),
	}
}

// Create persists a new pending gift.
func (s *RecordStore) Create(ctx context.Context, g *store.Gift) error {
	g.Status = store.GiftStatusPending
	if err := s.db.Client().WithContext(ctx).Create(g).Error; err != nil {
		return errors.NewDatabaseError("failed to create gift", err)
	}

	s.logger.Info().
		Str("gift_id", g.GiftID).
		Str("sender", g.SenderRef).
		Int64("amount", g.Amount).
		Str("source", g.SourceNetwork).
		Str("destination", g.DestinationNetwork).
		Msg("gift created")

	return nil
}

// Get retrieves a gift by its opaque id.
func (s *RecordStore) Get(ctx context.Context, giftID string) (*store.Gift, error) {
	var g store.Gift
	err := s.db.Client().WithContext(ctx).
		Where("gift_id = ?", giftID).
		First(&g).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.NewNotFound()
	}
	if err != nil {
		return nil, errors.NewDatabaseError("failed to load gift", err)
	}
	return &g, nil
}

// GetByClaimCode retrieves a gift by claim code, evaluating expiry as a
// read-time check: an overdue non-terminal gift is lazily transitioned to
// expired before an Expired error is returned. An unknown code is NotFound;
// the two are never distinguishable for codes that never existed.
func (s *RecordStore) GetByClaimCode(ctx context.Context, code string) (*store.Gift, error) {
	var g store.Gift
	err := s.db.Client().WithContext(ctx).
		Where("claim_code = ?", code).
		First(&g).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.NewNotFound()
	}
	if err != nil {
		return nil, errors.NewDatabaseError("failed to load gift", err)
	}

	if expirable(g.Status) && g.Expired(time.Now().UTC()) {
		if _, terr := s.Transition(ctx, g.GiftID, g.Status, store.GiftStatusExpired, nil); terr != nil {
			// A losing race here means another caller expired or claimed it
			// first; re-read and fall through to the status check.
			if !errors.IsCode(terr, errors.ErrCodeConflict) {
				return nil, terr
			}
			return s.GetByClaimCode(ctx, code)
		}
		g.Status = store.GiftStatusExpired
	}

	if g.Status == store.GiftStatusExpired {
		return &g, errors.NewExpired()
	}
	return &g, nil
}

// Transition atomically moves a gift from one status to another, applying
// the given column mutations in the same statement. If the stored status no
// longer matches `from`, no row is touched and a Conflict is returned; this
// is what makes "at most one successful claim" hold under concurrency.
func (s *RecordStore) Transition(
	ctx context.Context,
	giftID string,
	from, to store.GiftStatus,
	mutations map[string]any,
) (*store.Gift, error) {
	updates := map[string]any{"status": to}
	for k, v := range mutations {
		updates[k] = v
	}

	res := s.db.Client().WithContext(ctx).
		Model(&store.Gift{}).
		Where("gift_id = ? AND status = ?", giftID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, errors.NewDatabaseError("failed to transition gift", res.Error)
	}

	if res.RowsAffected == 0 {
		// Distinguish a lost race from a missing record.
		if _, err := s.Get(ctx, giftID); err != nil {
			return nil, err
		}
		return nil, errors.NewConflict("gift status changed concurrently").
			WithContext("gift_id", giftID).
			WithContext("expected", string(from))
	}

	s.logger.Debug().
		Str("gift_id", giftID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("gift transitioned")

	return s.Get(ctx, giftID)
}

// TransitionClaim performs the escrow_funded -> claimed transition with the
// expiry deadline folded into the same statement. A gift that crosses its
// deadline between the caller's read and this write loses here, not at
// settlement; a sweeper that expired the gift first surfaces as Expired,
// never as a generic conflict.
func (s *RecordStore) TransitionClaim(
	ctx context.Context,
	giftID string,
	now time.Time,
	mutations map[string]any,
) (*store.Gift, error) {
	updates := map[string]any{"status": store.GiftStatusClaimed}
	for k, v := range mutations {
		updates[k] = v
	}

	res := s.db.Client().WithContext(ctx).
		Model(&store.Gift{}).
		Where("gift_id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
			giftID, store.GiftStatusEscrowFunded, now).
		Updates(updates)
	if res.Error != nil {
		return nil, errors.NewDatabaseError("failed to claim gift", res.Error)
	}

	if res.RowsAffected == 0 {
		g, err := s.Get(ctx, giftID)
		if err != nil {
			return nil, err
		}
		if g.Status == store.GiftStatusExpired {
			return nil, errors.NewExpired()
		}
		if expirable(g.Status) && g.Expired(now) {
			// The deadline guard blocked the claim; absorb the gift now so
			// the persisted status matches what the caller is told.
			if _, terr := s.Transition(ctx, g.GiftID, g.Status, store.GiftStatusExpired, nil); terr != nil &&
				!errors.IsCode(terr, errors.ErrCodeConflict) {
				return nil, terr
			}
			return nil, errors.NewExpired()
		}
		return nil, errors.NewConflict("gift status changed concurrently").
			WithContext("gift_id", giftID).
			WithContext("expected", string(store.GiftStatusEscrowFunded))
	}

	s.logger.Debug().
		Str("gift_id", giftID).
		Msg("gift claimed")

	return s.Get(ctx, giftID)
}

// MarkFailed absorbs a gift into the failed state from any non-absorbing
// status, recording why. Failures are persisted, never just logged.
func (s *RecordStore) MarkFailed(ctx context.Context, giftID string) (*store.Gift, error) {
	res := s.db.Client().WithContext(ctx).
		Model(&store.Gift{}).
		Where("gift_id = ? AND status NOT IN ?", giftID, []store.GiftStatus{
			store.GiftStatusCompleted,
			store.GiftStatusExpired,
			store.GiftStatusFailed,
		}).
		Update("status", store.GiftStatusFailed)
	if res.Error != nil {
		return nil, errors.NewDatabaseError("failed to mark gift failed", res.Error)
	}
	return s.Get(ctx, giftID)
}

// ListByBatch returns all gifts belonging to a bulk batch, in creation order.
func (s *RecordStore) ListByBatch(ctx context.Context, batchID string) ([]store.Gift, error) {
	var gifts []store.Gift
	err := s.db.Client().WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id ASC").
		Find(&gifts).Error
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list batch gifts", err)
	}
	return gifts, nil
}

// ExpireOverdue flips every overdue non-terminal gift to expired and returns
// how many rows changed. Lazy read-time expiry remains the correctness
// mechanism; this is the hygiene sweep.
func (s *RecordStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.Client().WithContext(ctx).
		Model(&store.Gift{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at < ?", expirableStatuses, now).
		Update("status", store.GiftStatusExpired)
	if res.Error != nil {
		return 0, errors.NewDatabaseError("failed to expire overdue gifts", res.Error)
	}
	return res.RowsAffected, nil
}
