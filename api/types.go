package api

import (
	"net/http"
	"time"

	"github.com/giftrail/giftrail/errors"
)

// CreateGiftRequest is the JSON body for POST /api/v1/gifts
type CreateGiftRequest struct {
	SenderRef          string   `json:"sender_ref"`
	RecipientHandle    string   `json:"recipient_handle,omitempty"`
	RecipientEmail     string   `json:"recipient_email,omitempty"`
	Amount             string   `json:"amount"`
	SourceNetwork      string   `json:"source_network"`
	DestinationNetwork string   `json:"destination_network"`
	Message            string   `json:"message,omitempty"`
	ExpiresInDays      int      `json:"expires_in_days,omitempty"`
	WithSecret         bool     `json:"with_secret,omitempty"`
	RequiredSignatures int      `json:"required_signatures,omitempty"`
	SignerAddresses    []string `json:"signer_addresses,omitempty"`
}

// ConfirmFundingRequest is the JSON body for POST /api/v1/gifts/fund
type ConfirmFundingRequest struct {
	GiftID string `json:"gift_id"`
}

// ClaimRequest is the JSON body for POST /api/v1/gifts/claim
type ClaimRequest struct {
	ClaimCode        string `json:"claim_code"`
	ClaimSecret      string `json:"claim_secret,omitempty"`
	RecipientAddress string `json:"recipient_address"`
}

// RetryRequest is the JSON body for POST /api/v1/gifts/retry
type RetryRequest struct {
	GiftID string `json:"gift_id"`
}

// AddSignatureRequest is the JSON body for POST /api/v1/gifts/signatures
type AddSignatureRequest struct {
	GiftID string `json:"gift_id"`
	Signer string `json:"signer"`
}

// CreateBulkRequest is the JSON body for POST /api/v1/gifts/bulk
type CreateBulkRequest struct {
	SenderRef          string          `json:"sender_ref"`
	Recipients         []BulkRecipient `json:"recipients"`
	Amount             string          `json:"amount"`
	SourceNetwork      string          `json:"source_network"`
	DestinationNetwork string          `json:"destination_network"`
	Message            string          `json:"message,omitempty"`
	ExpiresInDays      int             `json:"expires_in_days,omitempty"`
	WithSecret         bool            `json:"with_secret,omitempty"`
}

// BulkRecipient identifies one recipient of a bulk request
type BulkRecipient struct {
	Handle string `json:"handle,omitempty"`
	Email  string `json:"email,omitempty"`
}

// CreateScheduleRequest is the JSON body for POST /api/v1/schedules
type CreateScheduleRequest struct {
	SenderRef          string     `json:"sender_ref"`
	RecipientHandle    string     `json:"recipient_handle,omitempty"`
	RecipientEmail     string     `json:"recipient_email,omitempty"`
	Amount             string     `json:"amount"`
	SourceNetwork      string     `json:"source_network"`
	DestinationNetwork string     `json:"destination_network"`
	Message            string     `json:"message,omitempty"`
	IntervalSeconds    int64      `json:"interval_seconds"`
	Payments           int        `json:"payments"`
	EndTime            *time.Time `json:"end_time,omitempty"`
}

// ScheduleResponse is returned for a created schedule
type ScheduleResponse struct {
	ScheduleID        string    `json:"schedule_id"`
	NextRunAt         time.Time `json:"next_run_at"`
	RemainingPayments int       `json:"remaining_payments"`
}

// BalanceResponse is returned by GET /api/v1/balances
type BalanceResponse struct {
	Network string `json:"network"`
	Account string `json:"account"`
	Kind    string `json:"kind"`
	Balance int64  `json:"balance"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func errorResponseFor(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error()}
	var ge *errors.GiftError
	if errors.As(err, &ge) {
		resp.Error = ge.Message
		resp.Code = string(ge.Code)
	}
	return resp
}

// httpStatus maps domain error codes to HTTP status codes
func httpStatus(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrCodeValidation:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidSecret:
		return http.StatusUnauthorized
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeAlreadyClaimed, errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodeExpired:
		return http.StatusGone
	case errors.ErrCodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotConfigured:
		return http.StatusServiceUnavailable
	case errors.ErrCodeNetwork, errors.ErrCodeUpstream, errors.ErrCodeTransferRejected:
		return http.StatusBadGateway
	case errors.ErrCodeTransferTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
