// Package wallet is the boundary to the custodial wallet provider. The core
// consumes it through a narrow interface: holding-account lookup and balance
// queries. Response schemas are validated here so malformed upstream payloads
// never propagate into business logic.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/giftrail/giftrail/errors"
)

// Provider is the custodial wallet provider as seen by the escrow manager.
type Provider interface {
	// CreateAccount provisions a holding account on the given network and
	// returns its opaque identifier.
	CreateAccount(ctx context.Context, network string) (string, error)

	// Balance returns the stable-currency balance of an account in smallest
	// units.
	Balance(ctx context.Context, accountID string) (int64, error)
}

// HTTPProvider talks to the wallet provider's REST API.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider creates a provider client. baseURL must be non-empty; a
// missing endpoint is an operator configuration defect.
func NewHTTPProvider(baseURL, apiKey string) (*HTTPProvider, error) {
	if baseURL == "" {
		return nil, errors.NewNotConfigured("wallet provider URL not configured")
	}
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// accountResponse is the narrow schema consumed from account provisioning.
// Unknown fields in the upstream payload are ignored.
type accountResponse struct {
	AccountID string `json:"account_id"`
}

// balanceResponse is the narrow schema consumed from balance queries. The
// balance is a decimal string of smallest units.
type balanceResponse struct {
	AccountID string  `json:"account_id"`
	Balance   *string `json:"balance"`
	Currency  string  `json:"currency"`
}

// CreateAccount provisions a holding account on the given network.
func (p *HTTPProvider) CreateAccount(ctx context.Context, network string) (string, error) {
	url := fmt.Sprintf("%s/v1/accounts", p.baseURL)
	body := strings.NewReader(fmt.Sprintf(`{"network":%q}`, network))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", errors.NewInternal("failed to build wallet request", err)
	}
	p.authorize(req)

	var out accountResponse
	if err := p.do(req, &out); err != nil {
		return "", err
	}
	if out.AccountID == "" {
		return "", errors.NewUpstreamError("wallet provider returned no account id", nil)
	}
	return out.AccountID, nil
}

// Balance queries the stable-currency balance of an account.
func (p *HTTPProvider) Balance(ctx context.Context, accountID string) (int64, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/balance", p.baseURL, accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.NewInternal("failed to build wallet request", err)
	}
	p.authorize(req)

	var out balanceResponse
	if err := p.do(req, &out); err != nil {
		return 0, err
	}
	if out.Balance == nil {
		return 0, errors.NewUpstreamError("wallet provider returned no balance field", nil)
	}

	balance, err := strconv.ParseInt(*out.Balance, 10, 64)
	if err != nil {
		return 0, errors.NewUpstreamError("wallet provider returned non-integer balance", err)
	}
	return balance, nil
}

func (p *HTTPProvider) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
}

func (p *HTTPProvider) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return errors.NewNetworkError("", "wallet provider unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.NewNotConfigured("wallet account not registered with provider")
	case resp.StatusCode >= 500:
		return errors.NewNetworkError("", fmt.Sprintf("wallet provider error: %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return errors.NewUpstreamError(fmt.Sprintf("wallet provider rejected request: %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewUpstreamError("failed to decode wallet provider response", err)
	}
	return nil
}
