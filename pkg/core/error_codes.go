package core

import "errors"

// ErrorCode is a stable machine-readable reason attached to an
// ExchangeError. Venue envelopes carry their own codes, which are stored
// verbatim; these are the codes raised locally.
type ErrorCode string

// Transport and status codes.
const (
	ErrCodeNetwork        ErrorCode = "NETWORK_ERROR"
	ErrCodeTimeout        ErrorCode = "TIMEOUT"
	ErrCodeRateLimit      ErrorCode = "RATE_LIMIT"
	ErrCodeAuth           ErrorCode = "AUTH_ERROR"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeServerError    ErrorCode = "SERVER_ERROR"
	ErrCodeClientClosed   ErrorCode = "CLIENT_CLOSED"
	ErrCodeCircuitBreaker ErrorCode = "CIRCUIT_BREAKER_OPEN"
)

// Codes raised before any request leaves the process.
const (
	ErrCodeNoCredentials  ErrorCode = "NO_CREDENTIALS"
	ErrCodeUnsupported    ErrorCode = "UNSUPPORTED_METHOD"
	ErrCodeInvalidOrder   ErrorCode = "INVALID_ORDER"
	ErrCodeInvalidSymbol  ErrorCode = "INVALID_SYMBOL"
	ErrCodeInvalidAddress ErrorCode = "INVALID_ADDRESS"
	// ErrCodeMarketOrder rejects market orders on limit-only venues.
	ErrCodeMarketOrder ErrorCode = "MARKET_ORDER_UNSUPPORTED"
)

var defaultCodes = map[ErrorType]ErrorCode{
	ErrorTypeNetwork:        ErrCodeNetwork,
	ErrorTypeTimeout:        ErrCodeTimeout,
	ErrorTypeRateLimit:      ErrCodeRateLimit,
	ErrorTypeAuthentication: ErrCodeAuth,
	ErrorTypeBadRequest:     ErrCodeBadRequest,
	ErrorTypeNotFound:       ErrCodeNotFound,
	ErrorTypeServerError:    ErrCodeServerError,
	ErrorTypeInvalidOrder:   ErrCodeInvalidOrder,
	ErrorTypeInvalidAddress: ErrCodeInvalidAddress,
	ErrorTypeNotSupported:   ErrCodeUnsupported,
}

// DefaultCode returns the code used for t when the venue supplies none.
// Types without a default return "".
func DefaultCode(t ErrorType) ErrorCode {
	return defaultCodes[t]
}

// CodeOf returns the code of the first ExchangeError in err's chain.
func CodeOf(err error) ErrorCode {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return ErrorCode(exErr.Code)
	}
	return ""
}

// IsErrorCode reports whether err carries code.
func IsErrorCode(err error, code ErrorCode) bool {
	return code != "" && CodeOf(err) == code
}
