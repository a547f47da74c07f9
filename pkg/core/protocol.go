package core

import (
	"context"
	"time"
)

// RateLimitConfig defines rate limiting parameters for an exchange protocol.
type RateLimitConfig struct {
	// Requests is the number of calls allowed per Period.
	Requests int `json:"requests"`
	// Period is the window Requests applies to.
	Period time.Duration `json:"period"`
	// Burst allows temporary exceeding of rate limits.
	Burst int `json:"burst"`
}

// Protocol defines the interface for exchange-specific protocol implementations.
// Each exchange implements it to map operations onto endpoints and to encode
// and sign the resulting requests.
type Protocol interface {
	// Name returns the exchange identifier (e.g., "tidex").
	Name() string

	// Version returns the API version being used.
	Version() string

	// BaseURL returns the root URL of an API class.
	BaseURL(api string) string

	// BuildRequest maps an operation and its arguments onto an endpoint request.
	BuildRequest(ctx context.Context, op Operation, params Params) (*Request, error)

	// SignRequest encodes the request and, for private endpoints, signs it.
	SignRequest(req *Request, creds *Credentials) (*SignedRequest, error)

	// SupportedOperations returns the list of operations this protocol supports.
	SupportedOperations() []Operation

	// RateLimits returns the rate limiting configuration for this exchange.
	RateLimits() RateLimitConfig
}
