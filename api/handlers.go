package api

import (
	"encoding/json"
	"net/http"

	"github.com/giftrail/giftrail/gift"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleCreateGift handles POST /api/v1/gifts
func (s *Server) handleCreateGift(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateGiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.coordinator.Create(r.Context(), gift.CreateRequest{
		SenderRef:          req.SenderRef,
		RecipientHandle:    req.RecipientHandle,
		RecipientEmail:     req.RecipientEmail,
		Amount:             req.Amount,
		SourceNetwork:      req.SourceNetwork,
		DestinationNetwork: req.DestinationNetwork,
		Message:            req.Message,
		ExpiresInDays:      req.ExpiresInDays,
		WithSecret:         req.WithSecret,
		RequiredSignatures: req.RequiredSignatures,
		SignerAddresses:    req.SignerAddresses,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleConfirmFunding handles POST /api/v1/gifts/fund
func (s *Server) handleConfirmFunding(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ConfirmFundingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.GiftID == "" {
		writeBadRequest(w, "gift_id is required")
		return
	}

	g, err := s.coordinator.ConfirmFunding(r.Context(), req.GiftID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"gift_id": g.GiftID,
		"status":  string(g.Status),
	})
}

// handleClaim handles the claim endpoint:
//
//	GET  /api/v1/gifts/claim?code=<code>&secret=<secret>  preview
//	POST /api/v1/gifts/claim                              redeem
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleLookup(w, r)
	case http.MethodPost:
		s.handleExecuteClaim(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeBadRequest(w, "code parameter is required")
		return
	}

	view, err := s.coordinator.Lookup(r.Context(), code, r.URL.Query().Get("secret"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleExecuteClaim(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ClaimCode == "" {
		writeBadRequest(w, "claim_code is required")
		return
	}

	result, err := s.coordinator.ExecuteClaim(r.Context(), req.ClaimCode, req.ClaimSecret, req.RecipientAddress)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleRetry handles POST /api/v1/gifts/retry
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.GiftID == "" {
		writeBadRequest(w, "gift_id is required")
		return
	}

	result, err := s.coordinator.RetrySettlement(r.Context(), req.GiftID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAddSignature handles POST /api/v1/gifts/signatures
func (s *Server) handleAddSignature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AddSignatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.GiftID == "" || req.Signer == "" {
		writeBadRequest(w, "gift_id and signer are required")
		return
	}

	count, err := s.coordinator.AddSignature(r.Context(), req.GiftID, req.Signer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gift_id":    req.GiftID,
		"signatures": count,
	})
}

// handleCreateBulk handles POST /api/v1/gifts/bulk
func (s *Server) handleCreateBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	recipients := make([]gift.BulkRecipient, 0, len(req.Recipients))
	for _, rec := range req.Recipients {
		recipients = append(recipients, gift.BulkRecipient{Handle: rec.Handle, Email: rec.Email})
	}

	result, err := s.coordinator.CreateBulk(r.Context(), gift.BulkRequest{
		SenderRef:          req.SenderRef,
		Recipients:         recipients,
		Amount:             req.Amount,
		SourceNetwork:      req.SourceNetwork,
		DestinationNetwork: req.DestinationNetwork,
		Message:            req.Message,
		ExpiresInDays:      req.ExpiresInDays,
		WithSecret:         req.WithSecret,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleBatchStatus handles GET /api/v1/batches?batch_id=<id>
func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	batchID := r.URL.Query().Get("batch_id")
	if batchID == "" {
		writeBadRequest(w, "batch_id parameter is required")
		return
	}

	status, err := s.coordinator.GetBatchStatus(r.Context(), batchID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleCreateSchedule handles POST /api/v1/schedules
func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	sched, err := s.coordinator.CreateSchedule(r.Context(), gift.ScheduleRequest{
		SenderRef:          req.SenderRef,
		RecipientHandle:    req.RecipientHandle,
		RecipientEmail:     req.RecipientEmail,
		Amount:             req.Amount,
		SourceNetwork:      req.SourceNetwork,
		DestinationNetwork: req.DestinationNetwork,
		Message:            req.Message,
		IntervalSeconds:    req.IntervalSeconds,
		Payments:           req.Payments,
		EndTime:            req.EndTime,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ScheduleResponse{
		ScheduleID:        sched.ScheduleID,
		NextRunAt:         sched.NextRunAt,
		RemainingPayments: sched.RemainingPayments,
	})
}

// handleBalance handles GET /api/v1/balances?network=<n>&account=<a>&kind=<native|stable>
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	network := r.URL.Query().Get("network")
	account := r.URL.Query().Get("account")
	if network == "" || account == "" {
		writeBadRequest(w, "network and account parameters are required")
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "stable"
	}

	var (
		balance int64
		err     error
	)
	switch kind {
	case "native":
		balance, err = s.orchestrator.NativeBalance(r.Context(), network, account)
	case "stable":
		balance, err = s.orchestrator.StableBalance(r.Context(), network, account)
	default:
		writeBadRequest(w, "kind must be native or stable")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		Network: network,
		Account: account,
		Kind:    kind,
		Balance: balance,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), errorResponseFor(err))
}
