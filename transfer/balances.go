package transfer

import (
	"context"
)

// NativeBalance queries the native-token balance of an address on a network,
// independent of any gift flow.
func (o *Orchestrator) NativeBalance(ctx context.Context, network, address string) (int64, error) {
	gw, err := o.gateway(network)
	if err != nil {
		return 0, err
	}
	return gw.NativeBalance(ctx, address)
}

// StableBalance queries the stable-currency balance of an address on a
// network.
func (o *Orchestrator) StableBalance(ctx context.Context, network, address string) (int64, error) {
	gw, err := o.gateway(network)
	if err != nil {
		return 0, err
	}
	return gw.StableBalance(ctx, address)
}
