package gift

import (
	"time"

	"github.com/giftrail/giftrail/amount"
	"github.com/giftrail/giftrail/store"
)

// View is the sanitized gift representation returned to callers. It never
// includes the claim-secret hash.
type View struct {
	GiftID             string           `json:"gift_id"`
	SenderRef          string           `json:"sender_ref"`
	RecipientHandle    string           `json:"recipient_handle,omitempty"`
	RecipientEmail     string           `json:"recipient_email,omitempty"`
	Amount             string           `json:"amount"`
	SourceNetwork      string           `json:"source_network"`
	DestinationNetwork string           `json:"destination_network"`
	Message            string           `json:"message,omitempty"`
	Status             store.GiftStatus `json:"status"`
	SecretRequired     bool             `json:"secret_required"`
	ExpiresAt          *time.Time       `json:"expires_at,omitempty"`
	ClaimedAt          *time.Time       `json:"claimed_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

func newView(g *store.Gift, decimals int32) *View {
	return &View{
		GiftID:             g.GiftID,
		SenderRef:          g.SenderRef,
		RecipientHandle:    g.RecipientHandle,
		RecipientEmail:     g.RecipientEmail,
		Amount:             amount.FromUnits(g.Amount, decimals),
		SourceNetwork:      g.SourceNetwork,
		DestinationNetwork: g.DestinationNetwork,
		Message:            g.Message,
		Status:             g.Status,
		SecretRequired:     g.ClaimSecretHash != "",
		ExpiresAt:          g.ExpiresAt,
		ClaimedAt:          g.ClaimedAt,
		CreatedAt:          g.CreatedAt,
	}
}
