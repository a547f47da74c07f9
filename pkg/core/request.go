package core

import (
	"maps"
	"time"
)

// Params carries operation arguments and raw request parameters.
type Params map[string]any

// Endpoint access classes.
const (
	// APIPublic is the unauthenticated market-data API.
	APIPublic = "public"
	// APIPrivate is the signed trading API.
	APIPrivate = "private"
	// APIWeb is the unauthenticated metadata API served from a separate host.
	APIWeb = "web"
)

// Request describes an endpoint call before encoding and signing.
type Request struct {
	Method      string        `json:"method"`
	API         string        `json:"api"`
	Path        string        `json:"path"`
	Params      Params        `json:"params,omitempty"`
	CacheKey    string        `json:"cache_key,omitempty"`
	CacheTTL    time.Duration `json:"cache_ttl,omitempty"`
	RequireAuth bool          `json:"require_auth"`
}

// NewRequest creates a request for path on the given API class.
func NewRequest(method, api, path string) *Request {
	return &Request{
		Method:      method,
		API:         api,
		Path:        path,
		Params:      make(Params),
		RequireAuth: api == APIPrivate,
	}
}

func (r *Request) SetParam(key string, value any) *Request {
	if r.Params == nil {
		r.Params = make(Params)
	}
	r.Params[key] = value
	return r
}

func (r *Request) SetParams(params Params) *Request {
	if r.Params == nil {
		r.Params = make(Params)
	}
	maps.Copy(r.Params, params)
	return r
}

func (r *Request) SetCache(key string, ttl time.Duration) *Request {
	r.CacheKey = key
	r.CacheTTL = ttl
	return r
}

// SignedRequest is a fully encoded request ready for the transport.
type SignedRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}
