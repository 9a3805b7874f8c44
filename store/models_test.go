package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGiftStatusTerminal(t *testing.T) {
	assert.True(t, GiftStatusCompleted.Terminal())
	assert.True(t, GiftStatusExpired.Terminal())
	assert.True(t, GiftStatusFailed.Terminal())

	assert.False(t, GiftStatusPending.Terminal())
	assert.False(t, GiftStatusEscrowFunded.Terminal())
	assert.False(t, GiftStatusClaimed.Terminal())
	assert.False(t, GiftStatusTransferring.Terminal())
}

func TestTransferStatusTerminal(t *testing.T) {
	assert.True(t, TransferStatusDestinationConfirmed.Terminal())
	assert.True(t, TransferStatusFailed.Terminal())

	assert.False(t, TransferStatusInitiated.Terminal())
	assert.False(t, TransferStatusSourceConfirmed.Terminal())
	assert.False(t, TransferStatusAttestationPending.Terminal())
	assert.False(t, TransferStatusAttestationReceived.Terminal())
}

func TestGiftExpired(t *testing.T) {
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Gift{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&Gift{ExpiresAt: &future}).Expired(now))
	assert.False(t, (&Gift{}).Expired(now), "nil expiry never expires")
}
