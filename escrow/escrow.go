// Package escrow decides whether a gift may be settled. It verifies that the
// holding account on the gift's source network covers the gift amount and
// issues release authorizations ahead of settlement. It never moves funds;
// only the transfer orchestrator's burn phase debits the holding account.
package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/giftrail/giftrail/errors"
	"github.com/giftrail/giftrail/logger"
	"github.com/giftrail/giftrail/store"
	"github.com/giftrail/giftrail/wallet"
)

// ReleaseToken is a pure authorization to settle one gift. It carries no
// external side effect; it exists to keep "may this gift be settled" separate
// from "how is it settled".
type ReleaseToken struct {
	GiftID         string
	HoldingAccount string
	Nonce          string
	IssuedAt       time.Time
}

// Manager verifies escrow funding and authorizes release.
type Manager struct {
	provider        wallet.Provider
	holdingAccounts map[string]string // source network -> custodial account id
	logger          zerolog.Logger
}

// NewManager creates an escrow manager over the given holding accounts.
func NewManager(provider wallet.Provider, holdingAccounts map[string]string, log zerolog.Logger) *Manager {
	return &Manager{
		provider:        provider,
		holdingAccounts: holdingAccounts,
		logger:          logger.ForComponent(log, "escrow_manager"),
	}
}

// ConfirmFunded checks that the holding account for the gift's source network
// covers the gift amount. This is a point-in-time check, not a reservation;
// the burn phase fails safely if funds moved in the meantime.
//
// A shortfall returns (false, nil). A missing holding-account registration is
// a configuration defect and returns NotConfigured, never a plain false.
func (m *Manager) ConfirmFunded(ctx context.Context, gift *store.Gift) (bool, error) {
	accountID, ok := m.holdingAccounts[gift.SourceNetwork]
	if !ok {
		return false, errors.NewNotConfigured("no holding account for network").
			WithNetwork(gift.SourceNetwork)
	}

	balance, err := m.provider.Balance(ctx, accountID)
	if err != nil {
		return false, errors.WrapGiftError(err, errors.ErrCodeUpstream, "holding account balance query failed")
	}

	funded := balance >= gift.Amount
	m.logger.Debug().
		Str("gift_id", gift.GiftID).
		Str("network", gift.SourceNetwork).
		Int64("balance", balance).
		Int64("amount", gift.Amount).
		Bool("funded", funded).
		Msg("escrow balance checked")

	return funded, nil
}

// ReleaseAuthorization issues a release token for a gift. It has no side
// effect on external balances and must be obtained by the lifecycle
// coordinator before settlement starts.
func (m *Manager) ReleaseAuthorization(ctx context.Context, gift *store.Gift) (ReleaseToken, error) {
	accountID, ok := m.holdingAccounts[gift.SourceNetwork]
	if !ok {
		return ReleaseToken{}, errors.NewNotConfigured("no holding account for network").
			WithNetwork(gift.SourceNetwork)
	}

	token := ReleaseToken{
		GiftID:         gift.GiftID,
		HoldingAccount: accountID,
		Nonce:          uuid.NewString(),
		IssuedAt:       time.Now().UTC(),
	}

	m.logger.Debug().
		Str("gift_id", gift.GiftID).
		Str("nonce", token.Nonce).
		Msg("release authorized")

	return token, nil
}
