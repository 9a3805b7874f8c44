package escrow

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftrail/giftrail/errors"
	"github.com/giftrail/giftrail/store"
)

type stubProvider struct {
	balances map[string]int64
	err      error
}

func (p *stubProvider) CreateAccount(ctx context.Context, network string) (string, error) {
	return "acct-new", nil
}

func (p *stubProvider) Balance(ctx context.Context, accountID string) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.balances[accountID], nil
}

func testGift(amount int64) *store.Gift {
	return &store.Gift{
		GiftID:        "gift-1",
		SourceNetwork: "ethereum",
		Amount:        amount,
	}
}

func TestConfirmFunded(t *testing.T) {
	accounts := map[string]string{"ethereum": "acct-1"}

	t.Run("sufficient balance", func(t *testing.T) {
		provider := &stubProvider{balances: map[string]int64{"acct-1": 100}}
		m := NewManager(provider, accounts, zerolog.Nop())

		funded, err := m.ConfirmFunded(context.Background(), testGift(100))
		require.NoError(t, err)
		assert.True(t, funded)
	})

	t.Run("shortfall is false without error", func(t *testing.T) {
		provider := &stubProvider{balances: map[string]int64{"acct-1": 99}}
		m := NewManager(provider, accounts, zerolog.Nop())

		funded, err := m.ConfirmFunded(context.Background(), testGift(100))
		require.NoError(t, err)
		assert.False(t, funded)
	})

	t.Run("missing holding account is NotConfigured", func(t *testing.T) {
		provider := &stubProvider{}
		m := NewManager(provider, map[string]string{}, zerolog.Nop())

		_, err := m.ConfirmFunded(context.Background(), testGift(100))
		assert.True(t, errors.IsCode(err, errors.ErrCodeNotConfigured))
	})

	t.Run("provider failure surfaces as typed error", func(t *testing.T) {
		provider := &stubProvider{err: errors.NewUpstreamError("bad payload", nil)}
		m := NewManager(provider, accounts, zerolog.Nop())

		_, err := m.ConfirmFunded(context.Background(), testGift(100))
		assert.True(t, errors.IsCode(err, errors.ErrCodeUpstream))
	})
}

func TestReleaseAuthorization(t *testing.T) {
	accounts := map[string]string{"ethereum": "acct-1"}
	m := NewManager(&stubProvider{}, accounts, zerolog.Nop())

	token, err := m.ReleaseAuthorization(context.Background(), testGift(100))
	require.NoError(t, err)

	assert.Equal(t, "gift-1", token.GiftID)
	assert.Equal(t, "acct-1", token.HoldingAccount)
	assert.NotEmpty(t, token.Nonce)
	assert.False(t, token.IssuedAt.IsZero())

	// Two authorizations never share a nonce.
	second, err := m.ReleaseAuthorization(context.Background(), testGift(100))
	require.NoError(t, err)
	assert.NotEqual(t, token.Nonce, second.Nonce)
}

func TestReleaseAuthorizationMissingAccount(t *testing.T) {
	m := NewManager(&stubProvider{}, map[string]string{}, zerolog.Nop())

	_, err := m.ReleaseAuthorization(context.Background(), testGift(100))
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotConfigured))
}
