package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/giftrail/giftrail/errors"
)

// HTTPAttester polls the external attestation service for signed burn
// attestations. "Not yet available" and "rejected" are distinct outcomes:
// the first is an empty result, the second a terminal error.
type HTTPAttester struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAttester creates an attester client.
func NewHTTPAttester(baseURL string) (*HTTPAttester, error) {
	if baseURL == "" {
		return nil, errors.NewNotConfigured("attester URL not configured")
	}
	return &HTTPAttester{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// attestationResponse is the narrow schema consumed from the attestation
// service. Status is "pending", "complete", or "rejected".
type attestationResponse struct {
	Status      string `json:"status"`
	Attestation string `json:"attestation"`
}

// Attestation returns the signed attestation for a burn, empty string while
// the attestation is still pending, or a terminal error on rejection.
func (a *HTTPAttester) Attestation(ctx context.Context, sourceNetwork, burnTxHash string) (string, error) {
	q := url.Values{}
	q.Set("network", sourceNetwork)
	q.Set("tx_hash", burnTxHash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/attestations?%s", a.baseURL, q.Encode()), nil)
	if err != nil {
		return "", errors.NewInternal("failed to build attester request", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", errors.NewNetworkError(sourceNetwork, "attester unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// The attester has not observed the burn yet.
		return "", nil
	case resp.StatusCode >= 500:
		return "", errors.NewNetworkError(sourceNetwork, fmt.Sprintf("attester error: %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return "", errors.NewUpstreamError(fmt.Sprintf("attester rejected request: %d", resp.StatusCode), nil).
			WithNetwork(sourceNetwork)
	}

	var out attestationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.NewUpstreamError("failed to decode attester response", err).WithNetwork(sourceNetwork)
	}

	switch out.Status {
	case "complete":
		if out.Attestation == "" {
			return "", errors.NewUpstreamError("attester reported complete without an attestation", nil).
				WithNetwork(sourceNetwork)
		}
		return out.Attestation, nil
	case "rejected":
		return "", errors.NewTransferRejected("attestation rejected for burn " + burnTxHash).
			WithNetwork(sourceNetwork)
	default:
		return "", nil
	}
}
