// Package store contains the GORM-backed models for the gift core: gifts,
// settlement transfers, and the programmable-variant records (batches,
// schedules, signatures). Terminal records are never deleted; they are kept
// for audit and idempotent re-query.
package store

import (
	"time"

	"gorm.io/gorm"
)

// GiftStatus is the lifecycle status of a gift. Transitions are monotonic
// along pending -> escrow_funded -> claimed -> transferring -> completed,
// with expired and failed reachable as absorbing states from any
// non-terminal status.
type GiftStatus string

const (
	GiftStatusPending      GiftStatus = "pending"
	GiftStatusEscrowFunded GiftStatus = "escrow_funded"
	GiftStatusClaimed      GiftStatus = "claimed"
	GiftStatusTransferring GiftStatus = "transferring"
	GiftStatusCompleted    GiftStatus = "completed"
	GiftStatusExpired      GiftStatus = "expired"
	GiftStatusFailed       GiftStatus = "failed"
)

// Terminal reports whether the status is absorbing.
func (s GiftStatus) Terminal() bool {
	switch s {
	case GiftStatusCompleted, GiftStatusExpired, GiftStatusFailed:
		return true
	default:
		return false
	}
}

// TransferStatus is the status of a single settlement attempt.
type TransferStatus string

const (
	TransferStatusInitiated            TransferStatus = "initiated"
	TransferStatusSourceConfirmed      TransferStatus = "source_confirmed"
	TransferStatusAttestationPending   TransferStatus = "attestation_pending"
	TransferStatusAttestationReceived  TransferStatus = "attestation_received"
	TransferStatusDestinationConfirmed TransferStatus = "destination_confirmed"
	TransferStatusFailed               TransferStatus = "failed"
)

// Terminal reports whether the transfer status is absorbing.
func (s TransferStatus) Terminal() bool {
	return s == TransferStatusDestinationConfirmed || s == TransferStatusFailed
}

// Gift is one monetary gift addressed to a recipient handle or email,
// redeemable exactly once via its claim code.
type Gift struct {
	gorm.Model
	GiftID          string `gorm:"uniqueIndex;not null"` // Opaque external identifier
	ClaimCode       string `gorm:"uniqueIndex;not null"` // Public unguessable token used in claim URLs
	ClaimSecretHash string `gorm:"type:text"`            // bcrypt hash of the optional secret; empty = no secret gate

	SenderRef        string `gorm:"index;not null"` // Sender account or wallet address
	RecipientHandle  string // May be unresolved at creation time
	RecipientEmail   string
	RecipientAddress string // Filled in at claim time

	Amount             int64  `gorm:"not null"` // Smallest denomination unit, never floating point
	SourceNetwork      string `gorm:"not null"`
	DestinationNetwork string `gorm:"not null"`
	Message            string `gorm:"type:text"`

	Status    GiftStatus `gorm:"index:idx_gift_status_expiry;not null"`
	ExpiresAt *time.Time `gorm:"index:idx_gift_status_expiry"` // nil = never expires
	ClaimedAt *time.Time

	// TransferRef holds the most recent settlement attempt; a retry creates
	// a new Transfer row and overwrites this reference.
	TransferRef string

	// Variant fields
	BatchID            string `gorm:"index"` // Bulk fan-out membership
	ScheduleID         string `gorm:"index"` // Recurring schedule that spawned this gift
	RequiredSignatures int    // Multi-signature threshold; 0 = no gate
	SignerSet          string `gorm:"type:text"` // JSON array of authorized signer addresses
}

// Expired reports whether the gift's expiry has passed at the given time.
func (g *Gift) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// Transfer is one settlement attempt. A Transfer is owned exclusively by the
// gift it settles and is never reused across gifts, even on retry.
type Transfer struct {
	gorm.Model
	TransferID string `gorm:"uniqueIndex;not null"`
	GiftID     string `gorm:"index;not null"`

	SourceNetwork      string `gorm:"not null"`
	DestinationNetwork string `gorm:"not null"`
	Amount             int64  `gorm:"not null"`
	RecipientAddress   string `gorm:"not null"`

	Status      TransferStatus `gorm:"index;not null"`
	BurnTxHash  string         // Source transaction reference from the burn/lock phase
	Attestation string         `gorm:"type:text"` // Signed attestation authorizing the mint
	MintTxHash  string         // Destination transaction reference
	ErrorMsg    string         `gorm:"type:text"`
	CompletedAt *time.Time
}

// GiftBatch groups the independent gifts of one bulk fan-out. Batch status
// is aggregated over the member gifts on read, never stored here.
type GiftBatch struct {
	gorm.Model
	BatchID        string `gorm:"uniqueIndex;not null"`
	SenderRef      string `gorm:"index;not null"`
	RecipientCount int    `gorm:"not null"`
}

// GiftSchedule drives the recurring variant. Each due tick spawns a fully
// independent gift sharing the schedule's sender, amount, and recipient.
type GiftSchedule struct {
	gorm.Model
	ScheduleID string `gorm:"uniqueIndex;not null"`
	SenderRef  string `gorm:"index;not null"`

	RecipientHandle    string
	RecipientEmail     string
	Amount             int64  `gorm:"not null"`
	SourceNetwork      string `gorm:"not null"`
	DestinationNetwork string `gorm:"not null"`
	Message            string `gorm:"type:text"`

	IntervalSeconds   int64     `gorm:"not null"`
	NextRunAt         time.Time `gorm:"index;not null"`
	RemainingPayments int       `gorm:"not null"`
	EndTime           *time.Time
	Active            bool `gorm:"index;not null"`
}

// GiftSignature records one collected authorization for a multi-signature
// gift. The (gift, signer) pair is unique so a signer cannot count twice.
type GiftSignature struct {
	gorm.Model
	GiftID   string    `gorm:"uniqueIndex:idx_gift_signer;not null"`
	Signer   string    `gorm:"uniqueIndex:idx_gift_signer;not null"`
	SignedAt time.Time `gorm:"not null"`
}
