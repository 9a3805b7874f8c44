package gift

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/giftrail/giftrail/amount"
	"github.com/giftrail/giftrail/errors"
	"github.com/giftrail/giftrail/store"
)

// ScheduleRequest creates a recurring gift schedule. Each due tick spawns a
// fully independent gift.
type ScheduleRequest struct {
	SenderRef          string
	RecipientHandle    string
	RecipientEmail     string
	Amount             string
	SourceNetwork      string
	DestinationNetwork string
	Message            string
	IntervalSeconds    int64
	Payments           int
	EndTime            *time.Time
}

// CreateSchedule persists a recurring gift schedule. The first payment runs
// one interval from now.
func (c *Coordinator) CreateSchedule(ctx context.Context, req ScheduleRequest) (*store.GiftSchedule, error) {
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
	if req.IntervalSeconds <= 0 {
		return nil, errors.NewValidation("interval must be positive")
	}
	if req.Payments <= 0 {
		return nil, errors.NewValidation("payment count must be positive")
	}

	sched := &store.GiftSchedule{
		ScheduleID:         uuid.NewString(),
		SenderRef:          req.SenderRef,
		RecipientHandle:    req.RecipientHandle,
		RecipientEmail:     req.RecipientEmail,
		Amount:             units,
		SourceNetwork:      req.SourceNetwork,
		DestinationNetwork: req.DestinationNetwork,
		Message:            req.Message,
		IntervalSeconds:    req.IntervalSeconds,
		NextRunAt:          time.Now().UTC().Add(time.Duration(req.IntervalSeconds) * time.Second),
		RemainingPayments:  req.Payments,
		EndTime:            req.EndTime,
		Active:             true,
	}

	if err := c.records.db.Client().WithContext(ctx).Create(sched).Error; err != nil {
		return nil, errors.NewDatabaseError("failed to create gift schedule", err)
	}

	c.logger.Info().
		Str("schedule_id", sched.ScheduleID).
		Int64("interval_seconds", sched.IntervalSeconds).
		Int("payments", sched.RemainingPayments).
		Msg("gift schedule created")

	return sched, nil
}

// RunDue spawns one gift per due schedule and advances each schedule's
// clock. A failed payment is logged and persisted on its own gift; it never
// blocks the schedule's next tick or any other schedule.
func (c *Coordinator) RunDue(ctx context.Context, now time.Time) (int, error) {
	var due []store.GiftSchedule
	err := c.records.db.Client().WithContext(ctx).
		Where("active = ? AND next_run_at <= ? AND remaining_payments > 0", true, now).
		Find(&due).Error
	if err != nil {
		return 0, errors.NewDatabaseError("failed to query due schedules", err)
	}

	spawned := 0
	for i := range due {
		sched := &due[i]

		if sched.EndTime != nil && now.After(*sched.EndTime) {
			c.deactivateSchedule(ctx, sched)
			continue
		}

		_, createErr := c.Create(ctx, CreateRequest{
			SenderRef:          sched.SenderRef,
			RecipientHandle:    sched.RecipientHandle,
			RecipientEmail:     sched.RecipientEmail,
			Amount:             amount.FromUnits(sched.Amount, c.decimals),
			SourceNetwork:      sched.SourceNetwork,
			DestinationNetwork: sched.DestinationNetwork,
			Message:            sched.Message,
			ScheduleID:         sched.ScheduleID,
		})
		if createErr != nil {
			c.logger.Error().
				Err(createErr).
				Str("schedule_id", sched.ScheduleID).
				Msg("scheduled payment failed")
		} else {
			spawned++
		}

		// The schedule advances whether or not this payment succeeded.
		sched.RemainingPayments--
		sched.NextRunAt = now.Add(time.Duration(sched.IntervalSeconds) * time.Second)
		if sched.RemainingPayments <= 0 {
			sched.Active = false
		}
		if err := c.records.db.Client().WithContext(ctx).Save(sched).Error; err != nil {
			c.logger.Error().
				Err(err).
				Str("schedule_id", sched.ScheduleID).
				Msg("failed to advance schedule")
		}
	}

	return spawned, nil
}

func (c *Coordinator) deactivateSchedule(ctx context.Context, sched *store.GiftSchedule) {
	sched.Active = false
	if err := c.records.db.Client().WithContext(ctx).Save(sched).Error; err != nil {
		c.logger.Error().
			Err(err).
			Str("schedule_id", sched.ScheduleID).
			Msg("failed to deactivate schedule")
	}
}

