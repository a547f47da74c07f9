package tidex

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tidexgo/internal/nonce"
	"tidexgo/pkg/core"
)

// Endpoint paths. Private paths travel in the signed body as "method".
const (
	pathCurrency       = "currency"
	pathMarkets        = "markets"
	pathTickers        = "tickers"
	pathTicker         = "ticker"
	pathDepth          = "depth/result"
	pathHistory        = "history/result"
	pathKline          = "kline"
	pathBalances       = "account/balances"
	pathTrade          = "Trade"
	pathCancelOrder    = "CancelOrder"
	pathOrderInfo      = "OrderInfo"
	pathActiveOrders   = "ActiveOrders"
	pathTradeHistory   = "TradeHistory"
	pathCreateWithdraw = "CreateWithdraw"
)

const (
	headerContentType = "Content-Type"
	headerAPIKey      = "X-Api-Key"
	headerSign        = "Sign"

	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

var _ core.Protocol = (*Protocol)(nil)

// Protocol implements the core.Protocol interface for Tidex.
// It maps operations onto endpoints and encodes and signs the requests.
type Protocol struct {
	describe *Describe
	nonce    *nonce.Generator
	now      func() time.Time
}

// NewProtocol creates a protocol bound to the given metadata. A nil describe
// uses DefaultDescribe.
func NewProtocol(describe *Describe) *Protocol {
	if describe == nil {
		describe = DefaultDescribe()
	}
	return &Protocol{
		describe: describe,
		nonce:    nonce.New(),
		now:      time.Now,
	}
}

func (p *Protocol) Name() string {
	return p.describe.ID
}

func (p *Protocol) Version() string {
	return p.describe.Version
}

// BaseURL returns the root URL of an API class, or "" for an unknown class.
func (p *Protocol) BaseURL(api string) string {
	return p.describe.URLs.API[api]
}

func (p *Protocol) SupportedOperations() []core.Operation {
	return []core.Operation{
		core.OpFetchMarkets,
		core.OpFetchCurrencies,
		core.OpFetchTicker,
		core.OpFetchTickers,
		core.OpFetchOrderBook,
		core.OpFetchTrades,
		core.OpFetchOHLCV,
		core.OpFetchBalance,
		core.OpCreateOrder,
		core.OpCancelOrder,
		core.OpFetchOrder,
		core.OpFetchOpenOrders,
		core.OpFetchMyTrades,
		core.OpWithdraw,
	}
}

// RateLimits returns one request per RateLimit interval.
func (p *Protocol) RateLimits() core.RateLimitConfig {
	return core.RateLimitConfig{
		Requests: 1,
		Period:   p.describe.RateLimit,
		Burst:    1,
	}
}

// BuildRequest maps an operation onto its endpoint. Params carry native ids:
// callers resolve unified symbols and currency codes first. Only the keys an
// endpoint understands are copied into the request.
func (p *Protocol) BuildRequest(ctx context.Context, op core.Operation, params core.Params) (*core.Request, error) {
	var (
		req *core.Request
		err error
	)
	switch op {
	case core.OpFetchCurrencies:
		req = core.NewRequest(http.MethodGet, core.APIWeb, pathCurrency).SetCache(pathCurrency, 0)
	case core.OpFetchMarkets:
		req = core.NewRequest(http.MethodGet, core.APIPublic, pathMarkets).SetCache(pathMarkets, 0)
	case core.OpFetchTickers:
		req = core.NewRequest(http.MethodGet, core.APIPublic, pathTickers)
	case core.OpFetchTicker:
		req, err = p.buildTickerRequest(params)
	case core.OpFetchOrderBook:
		req, err = p.buildOrderBookRequest(params)
	case core.OpFetchTrades:
		req, err = p.buildTradesRequest(params)
	case core.OpFetchOHLCV:
		req, err = p.buildOHLCVRequest(params)
	case core.OpFetchBalance:
		req = core.NewRequest(http.MethodPost, core.APIPrivate, pathBalances)
	case core.OpCreateOrder:
		req, err = p.buildCreateOrderRequest(params)
	case core.OpCancelOrder:
		req, err = p.buildOrderIDRequest(pathCancelOrder, params)
	case core.OpFetchOrder:
		req, err = p.buildOrderIDRequest(pathOrderInfo, params)
	case core.OpFetchOpenOrders:
		req = core.NewRequest(http.MethodPost, core.APIPrivate, pathActiveOrders)
		copyOptional(req, params, "pair")
	case core.OpFetchMyTrades:
		req, err = p.buildMyTradesRequest(params)
	case core.OpWithdraw:
		req, err = p.buildWithdrawRequest(params)
	default:
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeNotSupported, 0,
			fmt.Sprintf("unsupported operation: %s", op)).WithCode(core.ErrCodeUnsupported)
	}
	if err != nil {
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeBadRequest, 0,
			fmt.Sprintf("%s: %v", op, err)).WithCode(core.ErrCodeBadRequest).WithRaw(err)
	}
	return req, nil
}

func (p *Protocol) buildTickerRequest(params core.Params) (*core.Request, error) {
	market, err := getRequiredStringParam(params, "market")
	if err != nil {
		return nil, err
	}
	return core.NewRequest(http.MethodGet, core.APIPublic, pathTicker).
		SetParam("market", market), nil
}

func (p *Protocol) buildOrderBookRequest(params core.Params) (*core.Request, error) {
	market, err := getRequiredStringParam(params, "market")
	if err != nil {
		return nil, err
	}
	req := core.NewRequest(http.MethodGet, core.APIPublic, pathDepth).SetParam("market", market)
	if limit := getIntParamWithDefault(params, "limit", 0); limit > 0 {
		req.SetParam("limit", min(limit, p.describe.Limits.OrderBookMax))
	}
	return req, nil
}

func (p *Protocol) buildTradesRequest(params core.Params) (*core.Request, error) {
	market, err := getRequiredStringParam(params, "market")
	if err != nil {
		return nil, err
	}
	// since is a trade id cursor, not a time
	req := core.NewRequest(http.MethodGet, core.APIPublic, pathHistory).
		SetParam("market", market).
		SetParam("since", getStringParamWithDefault(params, "since", "1"))
	if limit := getIntParamWithDefault(params, "limit", 0); limit > 0 {
		req.SetParam("limit", min(limit, p.describe.Limits.TradesMax))
	}
	return req, nil
}

// buildOHLCVRequest takes market, timeframe and the optional since (epoch
// ms) and limit, and turns them into the interval and epoch-seconds window
// the kline endpoint expects.
func (p *Protocol) buildOHLCVRequest(params core.Params) (*core.Request, error) {
	market, err := getRequiredStringParam(params, "market")
	if err != nil {
		return nil, err
	}
	timeframe := getStringParamWithDefault(params, "timeframe", "1m")
	seconds, ok := p.describe.TimeframeSeconds(timeframe)
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q, want one of %s", timeframe,
			strings.Join(p.describe.SupportedTimeframes(), ", "))
	}
	limit := int64(getIntParamWithDefault(params, "limit", 0))
	if limit <= 0 {
		limit = int64(p.describe.Limits.OHLCVDefault)
	}
	since := int64(getIntParamWithDefault(params, "since", 0))

	var start, end int64
	if since > 0 {
		start = since / 1000
		end = start + limit*seconds
	} else {
		end = p.now().Unix()
		start = end - limit*seconds
	}

	return core.NewRequest(http.MethodGet, core.APIPublic, pathKline).
		SetParam("market", market).
		SetParam("interval", strconv.FormatInt(seconds, 10)).
		SetParam("start", start).
		SetParam("end", end), nil
}

func (p *Protocol) buildCreateOrderRequest(params core.Params) (*core.Request, error) {
	req := core.NewRequest(http.MethodPost, core.APIPrivate, pathTrade)
	for _, key := range []string{"pair", "type", "amount", "rate"} {
		v, err := getRequiredStringParam(params, key)
		if err != nil {
			return nil, err
		}
		req.SetParam(key, v)
	}
	side := req.Params["type"]
	if side != string(core.SideBuy) && side != string(core.SideSell) {
		return nil, fmt.Errorf("invalid order side %v", side)
	}
	return req, nil
}

func (p *Protocol) buildOrderIDRequest(path string, params core.Params) (*core.Request, error) {
	id, err := getRequiredStringParam(params, "order_id")
	if err != nil {
		return nil, err
	}
	orderID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("order_id must be an integer: %q", id)
	}
	return core.NewRequest(http.MethodPost, core.APIPrivate, path).SetParam("order_id", orderID), nil
}

func (p *Protocol) buildMyTradesRequest(params core.Params) (*core.Request, error) {
	req := core.NewRequest(http.MethodPost, core.APIPrivate, pathTradeHistory)
	copyOptional(req, params, "pair")
	if count := getIntParamWithDefault(params, "count", 0); count > 0 {
		req.SetParam("count", count)
	}
	// since arrives in epoch ms and is sent in seconds
	if since := getIntParamWithDefault(params, "since", 0); since > 0 {
		req.SetParam("since", since/1000)
	}
	return req, nil
}

func (p *Protocol) buildWithdrawRequest(params core.Params) (*core.Request, error) {
	req := core.NewRequest(http.MethodPost, core.APIPrivate, pathCreateWithdraw)
	for _, key := range []string{"asset", "amount", "address"} {
		v, err := getRequiredStringParam(params, key)
		if err != nil {
			return nil, err
		}
		req.SetParam(key, v)
	}
	copyOptional(req, params, "memo")
	return req, nil
}

// SignRequest encodes req using the protocol's own nonce sequence.
func (p *Protocol) SignRequest(req *core.Request, creds *core.Credentials) (*core.SignedRequest, error) {
	var n int64
	if req.API == core.APIPrivate {
		n = p.nonce.Next()
	}
	return p.Sign(req, creds, n)
}

// Sign encodes req for its API class. Private requests require both halves
// of creds and use the supplied nonce; the other classes ignore both.
func (p *Protocol) Sign(req *core.Request, creds *core.Credentials, nonce int64) (*core.SignedRequest, error) {
	base := p.BaseURL(req.API)
	if base == "" {
		return nil, core.NewExchangeError(p.Name(), core.ErrorTypeBadRequest, 0,
			fmt.Sprintf("unknown api class %q", req.API)).WithCode(core.ErrCodeBadRequest)
	}
	path, query := implodePath(req.Path, req.Params)

	switch req.API {
	case core.APIPrivate:
		if !creds.Valid() {
			return nil, core.NewExchangeError(p.Name(), core.ErrorTypeAuthentication, 0,
				p.Name()+" requires apiKey and secret").WithCode(core.ErrCodeNoCredentials)
		}
		form := encodeValues(query)
		form.Set("nonce", strconv.FormatInt(nonce, 10))
		form.Set("method", path)
		body := form.Encode()
		return &core.SignedRequest{
			URL:    base,
			Method: req.Method,
			Headers: map[string]string{
				headerContentType: contentTypeForm,
				headerAPIKey:      creds.APIKey,
				headerSign:        signHMAC(body, creds.SecretKey),
			},
			Body: body,
		}, nil

	case core.APIPublic:
		return &core.SignedRequest{
			URL:    withQuery(base+"/"+path, query),
			Method: req.Method,
		}, nil

	default:
		signed := &core.SignedRequest{URL: base + "/" + path, Method: req.Method}
		if len(query) == 0 {
			return signed, nil
		}
		if req.Method == http.MethodGet {
			signed.URL = withQuery(signed.URL, query)
			return signed, nil
		}
		body, err := core.JSON.MarshalToString(jsonValues(query))
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		signed.Body = body
		signed.Headers = map[string]string{headerContentType: contentTypeJSON}
		return signed, nil
	}
}

func signHMAC(message, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// implodePath substitutes {name} placeholders and returns the params that
// were not consumed by the path.
func implodePath(path string, params core.Params) (string, core.Params) {
	rest := make(core.Params, len(params))
	for k, v := range params {
		placeholder := "{" + k + "}"
		if strings.Contains(path, placeholder) {
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(formatParam(v)))
			continue
		}
		rest[k] = v
	}
	return path, rest
}

func withQuery(u string, params core.Params) string {
	if len(params) == 0 {
		return u
	}
	return u + "?" + encodeValues(params).Encode()
}

func encodeValues(params core.Params) url.Values {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, formatParam(v))
	}
	return values
}

// jsonValues renders decimals as strings so JSON bodies never carry floats.
func jsonValues(params core.Params) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch x := v.(type) {
		case *apd.Decimal, apd.Decimal:
			out[k] = formatParam(x)
		default:
			out[k] = v
		}
	}
	return out
}

func formatParam(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case *apd.Decimal:
		return core.FormatDecimal(x)
	case apd.Decimal:
		return core.FormatDecimal(&x)
	default:
		return fmt.Sprint(x)
	}
}

func copyOptional(req *core.Request, params core.Params, key string) {
	if v := getStringParamWithDefault(params, key, ""); v != "" {
		req.SetParam(key, v)
	}
}

func getRequiredStringParam(params core.Params, key string) (string, error) {
	val, ok := params[key]
	if !ok || val == nil {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}

	str := formatParam(val)
	if str == "" {
		return "", fmt.Errorf("parameter %s cannot be empty", key)
	}

	return str, nil
}

func getStringParamWithDefault(params core.Params, key, def string) string {
	if val, ok := params[key]; ok && val != nil {
		if str := formatParam(val); str != "" {
			return str
		}
	}
	return def
}

func getIntParamWithDefault(params core.Params, key string, def int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i)
			}
		case string:
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
	}
	return def
}
