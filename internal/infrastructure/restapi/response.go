package restapi

import (
	"errors"
	"net/http"

	"airdrop_multisend/internal/app/connection"
	"airdrop_multisend/internal/domain/entity"
	"airdrop_multisend/internal/infrastructure/projectstore"

	"github.com/gin-gonic/gin"
)

// APIError is the error part of every response envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the common response envelope.
type APIResponse struct {
	Data          any       `json:"data,omitempty"`
	Error         *APIError `json:"error,omitempty"`
	StatusMessage string    `json:"status_message"`
}

// validationError marks a malformed request.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func badRequest(msg string) error { return &validationError{msg: msg} }

func respondOK(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, APIResponse{Data: data, StatusMessage: message})
}

func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	c.JSON(status, APIResponse{
		Error:         &APIError{Code: code, Message: err.Error()},
		StatusMessage: http.StatusText(status),
	})
}

// respondPartial reports err with its mapped status but still carries data.
func respondPartial(c *gin.Context, data any, err error) {
	status, code := classify(err)
	c.JSON(status, APIResponse{
		Data:          data,
		Error:         &APIError{Code: code, Message: err.Error()},
		StatusMessage: http.StatusText(status),
	})
}

// classify maps domain errors to HTTP status codes and stable error codes.
func classify(err error) (int, string) {
	var ve *validationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, entity.ErrEmptyRecipients):
		return http.StatusBadRequest, "empty_recipients"
	case errors.Is(err, entity.ErrTokenContractRequired):
		return http.StatusBadRequest, "token_contract_required"
	case errors.Is(err, entity.ErrInvalidMode):
		return http.StatusBadRequest, "invalid_mode"
	case errors.Is(err, connection.ErrSwitchUnsupported):
		return http.StatusBadRequest, "switch_unsupported"
	case errors.Is(err, entity.ErrUnsupportedNetwork):
		return http.StatusNotFound, "unsupported_network"
	case errors.Is(err, entity.ErrNotConnected):
		return http.StatusConflict, "not_connected"
	case errors.Is(err, entity.ErrBatchInFlight):
		return http.StatusConflict, "batch_in_flight"
	case errors.Is(err, entity.ErrConnectInProgress):
		return http.StatusConflict, "connect_in_progress"
	case errors.Is(err, entity.ErrStaleContext):
		return http.StatusConflict, "stale_context"
	case errors.Is(err, entity.ErrNoWallet):
		return http.StatusConflict, "no_wallet"
	case errors.Is(err, entity.ErrNoAccounts):
		return http.StatusForbidden, "wallet_rejected"
	case errors.Is(err, entity.ErrInvalidContract), errors.Is(err, entity.ErrContractRead):
		return http.StatusUnprocessableEntity, "token_resolution_failed"
	case errors.Is(err, projectstore.ErrNotConfigured):
		return http.StatusServiceUnavailable, "project_store_not_configured"
	case errors.Is(err, entity.ErrRPCUnavailable):
		return http.StatusBadGateway, "rpc_unavailable"
	default:
		return http.StatusBadGateway, "upstream_error"
	}
}
