package api

import "net/http"

// setupRoutes configures all HTTP routes for the gift server
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", s.handleHealth)

	// API v1 endpoints
	mux.HandleFunc("/api/v1/gifts", s.handleCreateGift)
	mux.HandleFunc("/api/v1/gifts/fund", s.handleConfirmFunding)
	mux.HandleFunc("/api/v1/gifts/claim", s.handleClaim)
	mux.HandleFunc("/api/v1/gifts/retry", s.handleRetry)
	mux.HandleFunc("/api/v1/gifts/signatures", s.handleAddSignature)
	mux.HandleFunc("/api/v1/gifts/bulk", s.handleCreateBulk)
	mux.HandleFunc("/api/v1/batches", s.handleBatchStatus)
	mux.HandleFunc("/api/v1/schedules", s.handleCreateSchedule)
	mux.HandleFunc("/api/v1/balances", s.handleBalance)

	return mux
}
