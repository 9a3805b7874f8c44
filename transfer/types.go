// Package transfer drives settlement of a claimed gift: either a direct
// same-network transfer or the three-phase burn -> attest -> mint protocol
// across two independent networks. Transfer state is persisted after every
// phase boundary so a restart resumes instead of double-spending.
package transfer

import (
	"context"
	"time"
)

// Gateway is the narrow view of one settlement network. Implementations talk
// to the custodial provider or the network's RPC; the orchestrator treats
// them as opaque, eventually-consistent back ends.
type Gateway interface {
	// Burn locks/burns the amount on this network and returns the source
	// transaction reference. Burn submission is not idempotent; the
	// orchestrator never re-submits after a confirmed burn.
	Burn(ctx context.Context, amount int64, recipient string) (string, error)

	// Mint releases the amount on this network using a signed attestation as
	// authorization. Mint is idempotent per attestation and safe to retry.
	Mint(ctx context.Context, attestation, recipient string, amount int64) (string, error)

	// TransferDirect performs a same-network debit/credit, terminal in one
	// round trip.
	TransferDirect(ctx context.Context, amount int64, recipient string) (string, error)

	// ConfirmTx reports whether a transaction reached finality on this
	// network.
	ConfirmTx(ctx context.Context, txHash string) (bool, error)

	// NativeBalance returns the native-token balance of an address, used for
	// plain balance queries independent of the gift flow.
	NativeBalance(ctx context.Context, address string) (int64, error)

	// StableBalance returns the stable-currency balance of an address.
	StableBalance(ctx context.Context, address string) (int64, error)
}

// Attester observes burns on source networks and issues signed attestations
// once they are final.
type Attester interface {
	// Attestation returns the signed attestation for a burn, or empty string
	// when the attestation is not yet available. An explicit rejection is
	// returned as a TRANSFER_REJECTED error.
	Attestation(ctx context.Context, sourceNetwork, burnTxHash string) (string, error)
}

// PollPolicy bounds every polling loop in the orchestrator. The "give up
// after N attempts" contract lives here once, not per call site.
type PollPolicy struct {
	MaxAttempts   int
	Interval      time.Duration
	BackoffFactor float64
	MaxInterval   time.Duration
}

// DefaultPollPolicy returns the default polling policy. Attestation latency
// is typically 10-20 seconds, so twenty polls starting at two seconds with
// mild backoff comfortably covers the common case.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		MaxAttempts:   20,
		Interval:      2 * time.Second,
		BackoffFactor: 1.5,
		MaxInterval:   15 * time.Second,
	}
}

// next returns the poll spacing after the given completed attempt.
func (p PollPolicy) next(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * p.BackoffFactor)
	if next > p.MaxInterval {
		return p.MaxInterval
	}
	if next < p.Interval {
		return p.Interval
	}
	return next
}

// Params describes one settlement attempt.
type Params struct {
	GiftID             string
	SourceNetwork      string
	DestinationNetwork string
	Amount             int64
	RecipientAddress   string
}
