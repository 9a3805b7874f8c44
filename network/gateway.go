// Package network implements the settlement-network boundary over the
// custodial provider's REST API. One gateway instance serves one network;
// response schemas are validated here so malformed upstream payloads never
// propagate into the settlement pipeline.
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/giftrail/giftrail/errors"
)

// HTTPGateway talks to one network's settlement endpoints.
type HTTPGateway struct {
	network string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway creates a gateway for one network. baseURL must be
// non-empty; a missing endpoint is an operator configuration defect.
func NewHTTPGateway(network, baseURL, apiKey string) (*HTTPGateway, error) {
	if baseURL == "" {
		return nil, errors.NewNotConfigured("gateway URL not configured").WithNetwork(network)
	}
	return &HTTPGateway{
		network: network,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// txResponse is the narrow schema consumed from burn, mint, and direct
// transfer submissions. Unknown fields in the upstream payload are ignored.
type txResponse struct {
	TxHash string `json:"tx_hash"`
}

// confirmResponse is the narrow schema consumed from finality queries.
type confirmResponse struct {
	Confirmed *bool `json:"confirmed"`
}

// gatewayBalanceResponse carries balances as decimal strings of smallest
// units.
type gatewayBalanceResponse struct {
	Balance *string `json:"balance"`
}

// Burn locks/burns the amount on this network. The returned hash is the
// source transaction reference the attester keys on.
func (g *HTTPGateway) Burn(ctx context.Context, amount int64, recipient string) (string, error) {
	return g.submit(ctx, "burns", amount, map[string]any{
		"amount":    strconv.FormatInt(amount, 10),
		"recipient": recipient,
	})
}

// Mint releases the amount on this network, authorized by the attestation.
// The provider deduplicates by attestation, so retries are safe.
func (g *HTTPGateway) Mint(ctx context.Context, attestation, recipient string, amount int64) (string, error) {
	return g.submit(ctx, "mints", amount, map[string]any{
		"attestation": attestation,
		"amount":      strconv.FormatInt(amount, 10),
		"recipient":   recipient,
	})
}

// TransferDirect performs a same-network debit/credit.
func (g *HTTPGateway) TransferDirect(ctx context.Context, amount int64, recipient string) (string, error) {
	return g.submit(ctx, "transfers", amount, map[string]any{
		"amount":    strconv.FormatInt(amount, 10),
		"recipient": recipient,
	})
}

// ConfirmTx reports whether a transaction reached finality on this network.
func (g *HTTPGateway) ConfirmTx(ctx context.Context, txHash string) (bool, error) {
	url := fmt.Sprintf("%s/v1/networks/%s/transactions/%s", g.baseURL, g.network, txHash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, errors.NewInternal("failed to build gateway request", err)
	}
	g.authorize(req)

	var out confirmResponse
	if err := g.do(req, &out); err != nil {
		return false, err
	}
	if out.Confirmed == nil {
		return false, errors.NewUpstreamError("gateway returned no confirmation field", nil).WithNetwork(g.network)
	}
	return *out.Confirmed, nil
}

// NativeBalance returns the native-token balance of an address.
func (g *HTTPGateway) NativeBalance(ctx context.Context, address string) (int64, error) {
	return g.balance(ctx, address, "native")
}

// StableBalance returns the stable-currency balance of an address.
func (g *HTTPGateway) StableBalance(ctx context.Context, address string) (int64, error) {
	return g.balance(ctx, address, "stable")
}

func (g *HTTPGateway) balance(ctx context.Context, address, kind string) (int64, error) {
	url := fmt.Sprintf("%s/v1/networks/%s/addresses/%s/balance?kind=%s", g.baseURL, g.network, address, kind)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.NewInternal("failed to build gateway request", err)
	}
	g.authorize(req)

	var out gatewayBalanceResponse
	if err := g.do(req, &out); err != nil {
		return 0, err
	}
	if out.Balance == nil {
		return 0, errors.NewUpstreamError("gateway returned no balance field", nil).WithNetwork(g.network)
	}

	balance, err := strconv.ParseInt(*out.Balance, 10, 64)
	if err != nil {
		return 0, errors.NewUpstreamError("gateway returned non-integer balance", err).WithNetwork(g.network)
	}
	return balance, nil
}

func (g *HTTPGateway) submit(ctx context.Context, kind string, amount int64, payload map[string]any) (string, error) {
	if amount <= 0 {
		return "", errors.NewValidation("amount must be greater than zero")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.NewInternal("failed to encode gateway request", err)
	}

	url := fmt.Sprintf("%s/v1/networks/%s/%s", g.baseURL, g.network, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternal("failed to build gateway request", err)
	}
	g.authorize(req)

	var out txResponse
	if err := g.do(req, &out); err != nil {
		return "", err
	}
	if out.TxHash == "" {
		return "", errors.NewUpstreamError("gateway returned no transaction hash", nil).WithNetwork(g.network)
	}
	return out.TxHash, nil
}

func (g *HTTPGateway) authorize(req *http.Request) {
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
}

func (g *HTTPGateway) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return errors.NewNetworkError(g.network, "gateway unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.NewNotConfigured("resource not registered with gateway").WithNetwork(g.network)
	case resp.StatusCode == http.StatusPaymentRequired ||
		resp.StatusCode == http.StatusUnprocessableEntity:
		return errors.NewInsufficientFunds(g.network)
	case resp.StatusCode >= 500:
		return errors.NewNetworkError(g.network, fmt.Sprintf("gateway error: %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return errors.NewUpstreamError(fmt.Sprintf("gateway rejected request: %d", resp.StatusCode), nil).WithNetwork(g.network)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewUpstreamError("failed to decode gateway response", err).WithNetwork(g.network)
	}
	return nil
}
