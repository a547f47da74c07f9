// Package http is the resty-backed transport used by exchange adapters.
// It sends fully encoded requests and returns raw status and body, leaving
// decoding and error classification to the caller.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"tidexgo/pkg/core"
)

// Doer performs one HTTP exchange. Adapters depend on this interface so
// tests can substitute a fake transport.
type Doer interface {
	Do(ctx context.Context, req *core.SignedRequest) (*Response, error)
}

// Response is the raw outcome of a request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Client struct {
	client   *resty.Client
	exchange string
	logger   zerolog.Logger
	mu       sync.RWMutex
	closed   bool
}

type Config struct {
	Exchange     string            `validate:"required"`
	Timeout      time.Duration     `validate:"min=1ms"`
	MaxRetries   int               `validate:"min=0"`
	RetryWaitMin time.Duration     `validate:"min=0"`
	RetryWaitMax time.Duration     `validate:"min=0"`
	Headers      map[string]string `validate:"omitempty"`
	Logger       zerolog.Logger    `validate:"-"`
}

type requestIDKey struct{}

// WithRequestID attaches a correlation id that the client includes in its
// log events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

var validate = validator.New()

func NewClient(config *Config) (*Client, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := resty.New()
	client.SetTimeout(config.Timeout)
	client.SetRetryCount(config.MaxRetries)
	client.SetRetryWaitTime(config.RetryWaitMin)
	client.SetRetryMaxWaitTime(config.RetryWaitMax)
	client.AddContentTypeEncoder("application/json", func(w io.Writer, v any) error {
		data, err := sonic.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	client.AddContentTypeDecoder("application/json", func(r io.Reader, v any) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return core.JSON.Unmarshal(data, v)
	})

	for k, v := range config.Headers {
		client.SetHeader(k, v)
	}

	c := &Client{
		client:   client,
		exchange: config.Exchange,
		logger:   config.Logger,
	}

	client.AddRequestMiddleware(func(_ *resty.Client, req *resty.Request) error {
		c.logger.Debug().
			Str("request_id", requestID(req.Context())).
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("http request")
		return nil
	})

	client.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		c.logger.Debug().
			Str("request_id", requestID(resp.Request.Context())).
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Int("size", len(resp.Bytes())).
			Dur("elapsed", resp.Duration()).
			Msg("http response")
		return nil
	})

	return c, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

// Do sends req as-is. Transport failures come back as network or timeout
// ExchangeErrors. Non-2xx statuses are not errors here.
func (c *Client) Do(ctx context.Context, req *core.SignedRequest) (*Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, core.NewExchangeError(c.exchange, core.ErrorTypeNetwork, 0,
			core.ErrClientClosed.Error()).WithCode(core.ErrCodeClientClosed)
	}

	r := c.client.R().SetContext(ctx).SetHeaders(req.Headers)
	if req.Body != "" {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, c.transportError(err)
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Bytes(),
	}, nil
}

func (c *Client) transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return core.NewExchangeError(c.exchange, core.ErrorTypeTimeout, 0, err.Error()).
			WithCode(core.ErrCodeTimeout).WithRaw(err)
	}
	return core.NewExchangeError(c.exchange, core.ErrorTypeNetwork, 0, err.Error()).
		WithCode(core.ErrCodeNetwork).WithRaw(err)
}
