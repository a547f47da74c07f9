package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidexgo/pkg/core"
)

func newTestClient(t *testing.T, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(&Config{
		Exchange: "tidex",
		Timeout:  timeout,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(&Config{Timeout: time.Second})
	assert.Error(t, err)

	_, err = NewClient(&Config{Exchange: "tidex"})
	assert.Error(t, err)
}

func TestClient_Do_PostForm(t *testing.T) {
	var gotMethod, gotBody, gotSign, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotSign = r.Header.Get("Sign")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":1}`))
	}))
	defer srv.Close()

	c := newTestClient(t, time.Second)
	resp, err := c.Do(WithRequestID(context.Background(), "req-1"), &core.SignedRequest{
		URL:    srv.URL,
		Method: http.MethodPost,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Sign":         "abc",
		},
		Body: "method=account%2Fbalances&nonce=1",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "abc", gotSign)
	assert.Equal(t, "application/x-www-form-urlencoded", gotType)
	assert.Equal(t, "method=account%2Fbalances&nonce=1", gotBody)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"success":1}`, string(resp.Body))
}

func TestClient_Do_NonSuccessStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "market=ETH_BTC", r.URL.RawQuery)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer srv.Close()

	c := newTestClient(t, time.Second)
	resp, err := c.Do(context.Background(), &core.SignedRequest{
		URL:    srv.URL + "?market=ETH_BTC",
		Method: http.MethodGet,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "bad gateway", string(resp.Body))
}

func TestClient_Do_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(t, 20*time.Millisecond)
	_, err := c.Do(context.Background(), &core.SignedRequest{URL: srv.URL, Method: http.MethodGet})
	require.Error(t, err)
	assert.True(t, core.IsTimeoutError(err), "got %v", err)
}

func TestClient_Do_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, time.Second)
	_, err := c.Do(context.Background(), &core.SignedRequest{URL: url, Method: http.MethodGet})
	require.Error(t, err)
	assert.True(t, core.IsNetworkError(err), "got %v", err)
}

func TestClient_Closed(t *testing.T) {
	c := newTestClient(t, time.Second)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Do(context.Background(), &core.SignedRequest{URL: "http://127.0.0.1", Method: http.MethodGet})
	assert.True(t, core.IsErrorCode(err, core.ErrCodeClientClosed))
}
