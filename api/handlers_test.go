package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftrail/giftrail/credential"
	"github.com/giftrail/giftrail/db"
	"github.com/giftrail/giftrail/errors"
	"github.com/giftrail/giftrail/escrow"
	"github.com/giftrail/giftrail/gift"
	"github.com/giftrail/giftrail/transfer"
)

// stubProvider reports one balance for every holding account.
type stubProvider struct {
	balance int64
}

func (p *stubProvider) CreateAccount(ctx context.Context, network string) (string, error) {
	return "acct-new", nil
}

func (p *stubProvider) Balance(ctx context.Context, accountID string) (int64, error) {
	return p.balance, nil
}

// stubGateway settles everything immediately.
type stubGateway struct{}

func (g *stubGateway) Burn(ctx context.Context, amount int64, recipient string) (string, error) {
	return "burn-tx", nil
}

func (g *stubGateway) Mint(ctx context.Context, attestation, recipient string, amount int64) (string, error) {
	return "mint-tx", nil
}

func (g *stubGateway) TransferDirect(ctx context.Context, amount int64, recipient string) (string, error) {
	return "direct-tx", nil
}

func (g *stubGateway) ConfirmTx(ctx context.Context, txHash string) (bool, error) {
	return true, nil
}

func (g *stubGateway) NativeBalance(ctx context.Context, address string) (int64, error) {
	return 42, nil
}

func (g *stubGateway) StableBalance(ctx context.Context, address string) (int64, error) {
	return 25000000, nil
}

type stubAttester struct{}

func (a *stubAttester) Attestation(ctx context.Context, sourceNetwork, burnTxHash string) (string, error) {
	return "attestation-1", nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	policy := transfer.PollPolicy{
		MaxAttempts:   3,
		Interval:      time.Millisecond,
		BackoffFactor: 1.5,
		MaxInterval:   5 * time.Millisecond,
	}
	orchestrator := transfer.NewOrchestrator(database, map[string]transfer.Gateway{
		"ethereum": &stubGateway{},
		"solana":   &stubGateway{},
	}, &stubAttester{}, policy, nil, nil, zerolog.Nop())

	records := gift.NewRecordStore(database, zerolog.Nop())
	coordinator := gift.NewCoordinator(
		records,
		credential.NewIssuer(),
		escrow.NewManager(&stubProvider{balance: 1_000_000_000},
			map[string]string{"ethereum": "acct-1"}, zerolog.Nop()),
		orchestrator,
		"https://gifts.example.com/claim",
		6,
		zerolog.Nop(),
	)

	return &Server{
		logger:       zerolog.New(zerolog.NewTestWriter(t)),
		coordinator:  coordinator,
		orchestrator: orchestrator,
	}
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t)
	mux := server.setupRoutes()

	w := doJSON(t, mux, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestHandleCreateGift(t *testing.T) {
	server := newTestServer(t)
	mux := server.setupRoutes()

	t.Run("creates a gift", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodPost, "/api/v1/gifts", CreateGiftRequest{
			SenderRef:          "alice",
			RecipientEmail:     "bob@example.com",
			Amount:             "25.50",
			SourceNetwork:      "ethereum",
			DestinationNetwork: "solana",
			WithSecret:         true,
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var result gift.CreateResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.NotEmpty(t, result.GiftID)
		assert.NotEmpty(t, result.ClaimCode)
		assert.NotEmpty(t, result.ClaimSecret)
		assert.Contains(t, result.ClaimURL, result.ClaimCode)
	})

	t.Run("validation errors map to 400", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodPost, "/api/v1/gifts", CreateGiftRequest{
			SenderRef: "alice",
			Amount:    "0",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, string(errors.ErrCodeValidation), resp.Code)
	})

	t.Run("malformed JSON maps to 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/gifts", bytes.NewReader([]byte("{")))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GET is not allowed", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodGet, "/api/v1/gifts", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestClaimFlow(t *testing.T) {
	server := newTestServer(t)
	mux := server.setupRoutes()

	// Create.
	w := doJSON(t, mux, http.MethodPost, "/api/v1/gifts", CreateGiftRequest{
		SenderRef:          "alice",
		RecipientEmail:     "bob@example.com",
		Amount:             "25.50",
		SourceNetwork:      "ethereum",
		DestinationNetwork: "solana",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created gift.CreateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Fund.
	w = doJSON(t, mux, http.MethodPost, "/api/v1/gifts/fund", ConfirmFundingRequest{GiftID: created.GiftID})
	require.Equal(t, http.StatusOK, w.Code)

	// Preview.
	w = doJSON(t, mux, http.MethodGet, "/api/v1/gifts/claim?code="+created.ClaimCode, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "claim_secret_hash")
	assert.Contains(t, w.Body.String(), `"status":"escrow_funded"`)

	// Redeem.
	w = doJSON(t, mux, http.MethodPost, "/api/v1/gifts/claim", ClaimRequest{
		ClaimCode:        created.ClaimCode,
		RecipientAddress: "recipient-addr",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result gift.ClaimResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.TransferID)
	assert.Equal(t, "completed", string(result.Status))

	// A second redemption maps to 409.
	w = doJSON(t, mux, http.MethodPost, "/api/v1/gifts/claim", ClaimRequest{
		ClaimCode:        created.ClaimCode,
		RecipientAddress: "other-addr",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.ErrCodeAlreadyClaimed), resp.Code)
}

func TestLookupErrorMapping(t *testing.T) {
	server := newTestServer(t)
	mux := server.setupRoutes()

	t.Run("missing code parameter", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodGet, "/api/v1/gifts/claim", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown code maps to 404", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodGet, "/api/v1/gifts/claim?code=unknown", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleBulkAndBatchStatus(t *testing.T) {
	server := newTestServer(t)
	mux := server.setupRoutes()

	w := doJSON(t, mux, http.MethodPost, "/api/v1/gifts/bulk", CreateBulkRequest{
		SenderRef:          "alice",
		Recipients:         []BulkRecipient{{Email: "a@example.com"}, {Email: "b@example.com"}},
		Amount:             "5",
		SourceNetwork:      "ethereum",
		DestinationNetwork: "solana",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var bulk gift.BulkResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bulk))
	require.Len(t, bulk.Gifts, 2)

	w = doJSON(t, mux, http.MethodGet, "/api/v1/batches?batch_id="+bulk.BatchID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status gift.BatchStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 2, status.Total)
	assert.Equal(t, "processing", status.Status)

	w = doJSON(t, mux, http.MethodGet, "/api/v1/batches", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCreateSchedule(t *testing.T) {
	server := newTestServer(t)
	mux := server.setupRoutes()

	w := doJSON(t, mux, http.MethodPost, "/api/v1/schedules", CreateScheduleRequest{
		SenderRef:          "alice",
		RecipientEmail:     "bob@example.com",
		Amount:             "10",
		SourceNetwork:      "ethereum",
		DestinationNetwork: "solana",
		IntervalSeconds:    3600,
		Payments:           3,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var sched ScheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sched))
	assert.NotEmpty(t, sched.ScheduleID)
	assert.Equal(t, 3, sched.RemainingPayments)
}

func TestHandleBalance(t *testing.T) {
	server := newTestServer(t)
	mux := server.setupRoutes()

	w := doJSON(t, mux, http.MethodGet, "/api/v1/balances?network=ethereum&account=0xaddr&kind=native", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp BalanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Balance)

	w = doJSON(t, mux, http.MethodGet, "/api/v1/balances?network=ethereum&account=0xaddr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "stable", resp.Kind)
	assert.Equal(t, int64(25000000), resp.Balance)

	w = doJSON(t, mux, http.MethodGet, "/api/v1/balances?network=unknown&account=0xaddr", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, mux, http.MethodGet, "/api/v1/balances?network=ethereum", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{errors.NewValidation("bad"), http.StatusBadRequest},
		{errors.NewInvalidSecret(), http.StatusUnauthorized},
		{errors.NewNotFound(), http.StatusNotFound},
		{errors.NewAlreadyClaimed(), http.StatusConflict},
		{errors.NewConflict("race"), http.StatusConflict},
		{errors.NewExpired(), http.StatusGone},
		{errors.NewInsufficientFunds("ethereum"), http.StatusUnprocessableEntity},
		{errors.NewNotConfigured("missing"), http.StatusServiceUnavailable},
		{errors.NewNetworkError("", "down", nil), http.StatusBadGateway},
		{errors.NewTransferRejected("no"), http.StatusBadGateway},
		{errors.NewTransferTimeout("slow"), http.StatusGatewayTimeout},
		{errors.NewInternal("boom", nil), http.StatusInternalServerError},
		{fmt.Errorf("plain error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatus(tt.err), "error %v", tt.err)
	}
}
