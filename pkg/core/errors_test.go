package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		name      string
		errorType ErrorType
		want      string
	}{
		{"unknown", ErrorTypeUnknown, "UNKNOWN"},
		{"network", ErrorTypeNetwork, "NETWORK"},
		{"timeout", ErrorTypeTimeout, "TIMEOUT"},
		{"rate_limit", ErrorTypeRateLimit, "RATE_LIMIT"},
		{"authentication", ErrorTypeAuthentication, "AUTHENTICATION"},
		{"bad_request", ErrorTypeBadRequest, "BAD_REQUEST"},
		{"not_found", ErrorTypeNotFound, "NOT_FOUND"},
		{"server_error", ErrorTypeServerError, "SERVER_ERROR"},
		{"insufficient_funds", ErrorTypeInsufficientFunds, "INSUFFICIENT_FUNDS"},
		{"invalid_order", ErrorTypeInvalidOrder, "INVALID_ORDER"},
		{"exchange", ErrorTypeExchange, "EXCHANGE"},
		{"invalid_address", ErrorTypeInvalidAddress, "INVALID_ADDRESS"},
		{"not_supported", ErrorTypeNotSupported, "NOT_SUPPORTED"},
		{"out_of_range", ErrorType(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.errorType.String())
		})
	}
}

func TestExchangeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ExchangeError
		want string
	}{
		{
			name: "without_code",
			err: &ExchangeError{
				Exchange:   "tidex",
				Type:       ErrorTypeRateLimit,
				StatusCode: 429,
				Message:    "too many requests",
			},
			want: "[tidex] RATE_LIMIT (429): too many requests",
		},
		{
			name: "with_code",
			err: &ExchangeError{
				Exchange: "tidex",
				Type:     ErrorTypeExchange,
				Code:     "MARKET_ORDER_UNSUPPORTED",
				Message:  "tidex allows limit orders only",
			},
			want: "[tidex] EXCHANGE (0/MARKET_ORDER_UNSUPPORTED): tidex allows limit orders only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestNewExchangeError(t *testing.T) {
	err := NewExchangeError("tidex", ErrorTypeNetwork, 503, "service unavailable")

	assert.Equal(t, "tidex", err.Exchange)
	assert.Equal(t, ErrorTypeNetwork, err.Type)
	assert.Equal(t, 503, err.StatusCode)
	assert.Equal(t, "service unavailable", err.Message)
	assert.False(t, err.Timestamp.IsZero())
}

func TestNewExchangeErrorWithCode(t *testing.T) {
	raw := map[string]any{"success": false}
	err := NewExchangeErrorWithCode("tidex", ErrorTypeAuthentication, 200, "1", "bad key").WithRaw(raw)

	assert.Equal(t, ErrorTypeAuthentication, err.Type)
	assert.Equal(t, "1", err.Code)
	assert.Equal(t, "bad key", err.Message)
	assert.Equal(t, raw, err.RawError)
}

func TestErrorPredicates_Wrapped(t *testing.T) {
	base := NewExchangeError("tidex", ErrorTypeAuthentication, 401, "unauthorized")
	wrapped := fmt.Errorf("fetch balance: %w", base)

	assert.True(t, IsAuthenticationError(wrapped))
	assert.False(t, IsNetworkError(wrapped))
	assert.Equal(t, ErrorTypeAuthentication, ErrorTypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, ErrorTypeOf(errors.New("plain")))
	assert.False(t, IsAuthenticationError(nil))
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name  string
		check func(error) bool
		match ErrorType
		other ErrorType
	}{
		{"network", IsNetworkError, ErrorTypeNetwork, ErrorTypeTimeout},
		{"timeout", IsTimeoutError, ErrorTypeTimeout, ErrorTypeNetwork},
		{"rate_limit", IsRateLimitError, ErrorTypeRateLimit, ErrorTypeNetwork},
		{"authentication", IsAuthenticationError, ErrorTypeAuthentication, ErrorTypeNetwork},
		{"exchange", IsExchangeError, ErrorTypeExchange, ErrorTypeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(NewExchangeError("tidex", tt.match, 0, "m")))
			assert.False(t, tt.check(NewExchangeError("tidex", tt.other, 0, "m")))
			assert.False(t, tt.check(nil))
		})
	}
}

func TestIsTerminalError(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		terminal bool
	}{
		{"insufficient_funds", ErrorTypeInsufficientFunds, true},
		{"invalid_order", ErrorTypeInvalidOrder, true},
		{"not_found", ErrorTypeNotFound, true},
		{"exchange", ErrorTypeExchange, true},
		{"invalid_address", ErrorTypeInvalidAddress, true},
		{"network", ErrorTypeNetwork, false},
		{"timeout", ErrorTypeTimeout, false},
		{"rate_limit", ErrorTypeRateLimit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewExchangeError("tidex", tt.errType, 500, "message")
			assert.Equal(t, tt.terminal, IsTerminalError(err))
		})
	}

	assert.False(t, IsTerminalError(nil))
}

func TestIsErrorCode(t *testing.T) {
	err := NewExchangeError("tidex", ErrorTypeAuthentication, 0, "missing").WithCode(ErrCodeNoCredentials)

	assert.True(t, IsErrorCode(err, ErrCodeNoCredentials))
	assert.True(t, IsErrorCode(fmt.Errorf("wrap: %w", err), ErrCodeNoCredentials))
	assert.False(t, IsErrorCode(err, ErrCodeAuth))
	assert.False(t, IsErrorCode(errors.New("plain"), ErrCodeNoCredentials))
	assert.False(t, IsErrorCode(errors.New("plain"), ""))
	assert.Equal(t, ErrCodeNoCredentials, CodeOf(err))
}

func TestDefaultCode(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    ErrorCode
	}{
		{ErrorTypeAuthentication, ErrCodeAuth},
		{ErrorTypeRateLimit, ErrCodeRateLimit},
		{ErrorTypeServerError, ErrCodeServerError},
		{ErrorTypeNotSupported, ErrCodeUnsupported},
		{ErrorTypeExchange, ""},
		{ErrorTypeInsufficientFunds, ""},
	}

	for _, tt := range tests {
		t.Run(tt.errType.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultCode(tt.errType))
		})
	}
}
