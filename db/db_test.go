package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftrail/giftrail/store"
)

func TestOpenInMemoryDB(t *testing.T) {
	database, err := OpenInMemoryDB(true)
	require.NoError(t, err)
	defer database.Close()

	assert.NotNil(t, database.Client())

	// All schema models are migrated.
	for _, model := range schemaModels {
		assert.True(t, database.Client().Migrator().HasTable(model))
	}
}

func TestOpenFileDB(t *testing.T) {
	dir := t.TempDir()

	database, err := OpenFileDB(dir, "gifts.db", true)
	require.NoError(t, err)
	defer database.Close()

	assert.FileExists(t, filepath.Join(dir, "gifts.db"))
}

func TestOpenFileDBCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	database, err := OpenFileDB(dir, "gifts.db", true)
	require.NoError(t, err)
	defer database.Close()

	assert.DirExists(t, dir)
}

func TestGiftPersistence(t *testing.T) {
	database, err := OpenInMemoryDB(true)
	require.NoError(t, err)
	defer database.Close()

	expiry := time.Now().UTC().Add(24 * time.Hour)
	g := &store.Gift{
		GiftID:             "gift-1",
		ClaimCode:          "code-1",
		SenderRef:          "alice",
		RecipientEmail:     "bob@example.com",
		Amount:             25000000,
		SourceNetwork:      "ethereum",
		DestinationNetwork: "solana",
		Status:             store.GiftStatusPending,
		ExpiresAt:          &expiry,
	}
	require.NoError(t, database.Client().Create(g).Error)

	var loaded store.Gift
	require.NoError(t, database.Client().Where("gift_id = ?", "gift-1").First(&loaded).Error)
	assert.Equal(t, int64(25000000), loaded.Amount)
	assert.Equal(t, store.GiftStatusPending, loaded.Status)
	require.NotNil(t, loaded.ExpiresAt)
}

func TestClaimCodeUniqueConstraint(t *testing.T) {
	database, err := OpenInMemoryDB(true)
	require.NoError(t, err)
	defer database.Close()

	first := &store.Gift{
		GiftID:             "gift-1",
		ClaimCode:          "same-code",
		SenderRef:          "alice",
		Amount:             1,
		SourceNetwork:      "ethereum",
		DestinationNetwork: "ethereum",
		Status:             store.GiftStatusPending,
	}
	require.NoError(t, database.Client().Create(first).Error)

	dup := &store.Gift{
		GiftID:             "gift-2",
		ClaimCode:          "same-code",
		SenderRef:          "alice",
		Amount:             1,
		SourceNetwork:      "ethereum",
		DestinationNetwork: "ethereum",
		Status:             store.GiftStatusPending,
	}
	assert.Error(t, database.Client().Create(dup).Error)
}

func TestClose(t *testing.T) {
	database, err := OpenInMemoryDB(false)
	require.NoError(t, err)

	require.NoError(t, database.Close())
}
