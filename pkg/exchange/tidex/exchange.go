package tidex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tidexgo/internal/cache"
	"tidexgo/internal/circuitbreaker"
	httpClient "tidexgo/internal/http"
	"tidexgo/internal/keyring"
	"tidexgo/internal/ratelimit"
	"tidexgo/pkg/core"
	"tidexgo/pkg/exchange"
	"tidexgo/pkg/safe"
)

var _ exchange.Exchange = (*TidexExchange)(nil)

// OrderTracker receives every order the adapter creates, cancels or fetches.
type OrderTracker interface {
	Track(order core.Order)
}

// TidexExchange implements the Exchange interface for Tidex spot markets.
// It provides rate limiting, circuit breaker, response caching and API key
// rotation around the protocol and normalizer.
type TidexExchange struct {
	config         *core.Config
	describe       *Describe
	keyRing        *keyring.KeyRing
	transport      httpClient.Doer
	closer         io.Closer
	rateLimiter    *ratelimit.RateLimiter
	circuitBreaker *circuitbreaker.Breaker
	responses      *cache.Cache[any]
	logger         zerolog.Logger
	normalizer     *Normalizer
	protocol       *Protocol
	tracker        OrderTracker
	newRequestID   func() string

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// Option is a functional option for configuring the TidexExchange.
type Option func(*Options)

// Options holds configuration options for the TidexExchange.
type Options struct {
	KeyRing      *keyring.KeyRing
	Logger       zerolog.Logger
	Transport    httpClient.Doer
	Tracker      OrderTracker
	Describe     *Describe
	BucketLimits map[string]core.RateLimitConfig
}

// WithKeyRing sets the API key ring. Without it the config credentials are
// used as a single key.
func WithKeyRing(kr *keyring.KeyRing) Option {
	return func(o *Options) {
		o.KeyRing = kr
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithTransport replaces the resty-backed HTTP client.
func WithTransport(d httpClient.Doer) Option {
	return func(o *Options) {
		o.Transport = d
	}
}

// WithOrderTracker installs the order-tracking hook.
func WithOrderTracker(t OrderTracker) Option {
	return func(o *Options) {
		o.Tracker = t
	}
}

// WithDescribe overrides the venue metadata, for example to add error rules.
func WithDescribe(d *Describe) Option {
	return func(o *Options) {
		o.Describe = d
	}
}

// WithBucketLimit paces one API class ("public", "private" or "web") in
// addition to the global limit.
func WithBucketLimit(api string, requests int, period time.Duration) Option {
	return func(o *Options) {
		if o.BucketLimits == nil {
			o.BucketLimits = make(map[string]core.RateLimitConfig)
		}
		o.BucketLimits[api] = core.RateLimitConfig{Requests: requests, Period: period, Burst: requests}
	}
}

// DefaultConfig returns the Tidex defaults: one request per two seconds and
// no transport retries, since a retried private body would reuse its nonce.
func DefaultConfig() *core.Config {
	return core.DefaultConfig(ExchangeID).WithRateLimit(1, 2*time.Second)
}

// New creates a new TidexExchange with the given configuration and options.
// A nil config uses DefaultConfig.
func New(config *core.Config, opts ...Option) (*TidexExchange, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	options := &Options{
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	describe := options.Describe
	if describe == nil {
		describe = DefaultDescribe()
	}
	logger := options.Logger.With().Str("exchange", describe.ID).Logger()

	keyRing := options.KeyRing
	if keyRing == nil {
		keyRing = keyring.FromCredentials(config.Credentials)
	}
	keyRing.SetLogger(logger)
	logger.Debug().Int("api_keys", keyRing.Len()).Msg("key ring ready")

	transport := options.Transport
	var closer io.Closer
	if transport == nil {
		client, err := httpClient.NewClient(&httpClient.Config{
			Exchange:     describe.ID,
			Timeout:      config.Timeout,
			MaxRetries:   config.MaxRetries,
			RetryWaitMin: config.RetryWaitMin,
			RetryWaitMax: config.RetryWaitMax,
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create http client: %w", err)
		}
		transport = client
		closer = client
	}

	rl := ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod)
	for api, limit := range options.BucketLimits {
		rl.SetBucketLimit(api, limit.Requests, limit.Period)
	}

	var cb *circuitbreaker.Breaker
	if config.CircuitBreakerEnabled {
		cb = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.CircuitBreakerFailThreshold,
			SuccessThreshold: config.CircuitBreakerSuccessThreshold,
			Timeout:          config.CircuitBreakerTimeout,
			IsFailure:        isUpstreamFailure,
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			},
		})
	}

	var responses *cache.Cache[any]
	if config.CacheEnabled {
		responses = cache.New[any](config.CacheTTL)
	}

	return &TidexExchange{
		config:         config,
		describe:       describe,
		keyRing:        keyRing,
		transport:      transport,
		closer:         closer,
		rateLimiter:    rl,
		circuitBreaker: cb,
		responses:      responses,
		logger:         logger,
		normalizer:     NewNormalizer(describe),
		protocol:       NewProtocol(describe),
		tracker:        options.Tracker,
		newRequestID:   uuid.NewString,
	}, nil
}

// Register installs a Tidex factory in r under ExchangeID. Every instance
// opened through r gets opts.
func Register(r *exchange.Registry, opts ...Option) {
	r.Register(ExchangeID, func(config *core.Config) (exchange.Exchange, error) {
		ex, err := New(config, opts...)
		if err != nil {
			return nil, fmt.Errorf("create tidex exchange: %w", err)
		}
		return ex, nil
	})
}

// errUpstreamStatus marks a 5xx answer for the circuit breaker.
var errUpstreamStatus = errors.New("upstream server error")

func isUpstreamFailure(err error) bool {
	return errors.Is(err, errUpstreamStatus) || core.IsNetworkError(err) || core.IsTimeoutError(err)
}

func (e *TidexExchange) Name() string {
	return e.describe.ID
}

func (e *TidexExchange) Version() string {
	return e.describe.Version
}

// Has reports a capability flag. Unknown features are false.
func (e *TidexExchange) Has(feature string) bool {
	return e.describe.Has[feature]
}

// Describe returns the venue metadata.
func (e *TidexExchange) Describe() *Describe {
	return e.describe
}

// Close releases the HTTP client when the exchange created it.
func (e *TidexExchange) Close() error {
	if e.responses != nil {
		e.responses.Clear()
	}
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}

// LoadMarkets fetches markets once and indexes them for symbol resolution.
// reload forces a fresh fetch.
func (e *TidexExchange) LoadMarkets(ctx context.Context, reload bool) (map[string]core.Market, error) {
	e.marketsMu.Lock()
	defer e.marketsMu.Unlock()

	if e.marketsLoaded && !reload {
		return e.normalizer.Markets(), nil
	}
	if reload && e.responses != nil {
		e.responses.Delete(pathMarkets)
	}

	markets, err := e.FetchMarkets(ctx)
	if err != nil {
		return nil, err
	}
	e.normalizer.SetMarkets(markets)
	e.marketsLoaded = true
	return e.normalizer.Markets(), nil
}

func (e *TidexExchange) FetchMarkets(ctx context.Context) ([]core.Market, error) {
	resp, err := e.call(ctx, core.OpFetchMarkets, nil, nil)
	if err != nil {
		return nil, err
	}
	return e.normalizer.ParseMarkets(resp), nil
}

// FetchCurrencies returns currencies keyed by unified code.
func (e *TidexExchange) FetchCurrencies(ctx context.Context) (map[string]core.Currency, error) {
	resp, err := e.call(ctx, core.OpFetchCurrencies, nil, nil)
	if err != nil {
		return nil, err
	}
	return e.normalizer.ParseCurrencies(resp), nil
}

func (e *TidexExchange) FetchTicker(ctx context.Context, symbol string, opts ...exchange.Option) (*core.Ticker, error) {
	options := exchange.ApplyOptions(opts...)

	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}

	resp, err := e.call(ctx, core.OpFetchTicker, core.Params{"market": market.ID}, options.Params)
	if err != nil {
		return nil, err
	}

	ticker := e.normalizer.ParseTicker(safe.Map(resp, "result"), &market)
	return &ticker, nil
}

// FetchTickers returns tickers keyed by symbol. An empty symbols list
// returns every market.
func (e *TidexExchange) FetchTickers(ctx context.Context, symbols []string, opts ...exchange.Option) (map[string]core.Ticker, error) {
	options := exchange.ApplyOptions(opts...)

	if limit := e.describe.Limits.TickersMaxSymbols; limit > 0 && len(symbols) > limit {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeBadRequest, 0,
			fmt.Sprintf("at most %d symbols per tickers call", limit)).WithCode(core.ErrCodeBadRequest)
	}
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}

	resp, err := e.call(ctx, core.OpFetchTickers, nil, options.Params)
	if err != nil {
		return nil, err
	}
	return e.normalizer.ParseTickers(resp, symbols), nil
}

func (e *TidexExchange) FetchOrderBook(ctx context.Context, symbol string, opts ...exchange.Option) (*core.OrderBook, error) {
	options := exchange.ApplyOptions(opts...)

	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}

	params := core.Params{"market": market.ID}
	if options.Limit > 0 {
		params["limit"] = options.Limit
	}
	resp, err := e.call(ctx, core.OpFetchOrderBook, params, options.Params)
	if err != nil {
		return nil, err
	}
	return e.normalizer.ParseOrderBook(resp, market.Symbol), nil
}

// FetchTrades yields the public trades after the trade id given by
// WithCursor (default 1). Since is not applied: the endpoint pages by id.
func (e *TidexExchange) FetchTrades(ctx context.Context, symbol string, opts ...exchange.Option) iter.Seq2[*core.Trade, error] {
	options := exchange.ApplyOptions(opts...)

	return func(yield func(*core.Trade, error) bool) {
		market, err := e.market(ctx, symbol)
		if err != nil {
			yield(nil, err)
			return
		}

		params := core.Params{"market": market.ID}
		if options.Cursor != "" {
			params["since"] = options.Cursor
		}
		if options.Limit > 0 {
			params["limit"] = options.Limit
		}
		resp, err := e.call(ctx, core.OpFetchTrades, params, options.Params)
		if err != nil {
			yield(nil, err)
			return
		}

		trades := e.normalizer.ParseTrades(resp, &market, 0, options.Limit)
		for i := range trades {
			if !yield(&trades[i], nil) {
				return
			}
		}
	}
}

// FetchOHLCV returns candles for WithTimeframe (default 1m). Without
// WithSince the window ends now.
func (e *TidexExchange) FetchOHLCV(ctx context.Context, symbol string, opts ...exchange.Option) ([]core.OHLCV, error) {
	options := exchange.ApplyOptions(opts...)

	timeframe := options.Timeframe
	if timeframe == "" {
		timeframe = "1m"
	}
	if _, ok := e.describe.TimeframeSeconds(timeframe); !ok {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeBadRequest, 0,
			fmt.Sprintf("unsupported timeframe %q, want one of %s", timeframe,
				strings.Join(e.describe.SupportedTimeframes(), ", "))).WithCode(core.ErrCodeBadRequest)
	}

	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}

	params := core.Params{"market": market.ID, "timeframe": timeframe}
	if options.Since > 0 {
		params["since"] = options.Since
	}
	if options.Limit > 0 {
		params["limit"] = options.Limit
	}
	resp, err := e.call(ctx, core.OpFetchOHLCV, params, options.Params)
	if err != nil {
		return nil, err
	}
	return e.normalizer.ParseOHLCVs(resp, options.Since, options.Limit), nil
}

func (e *TidexExchange) FetchBalance(ctx context.Context, opts ...exchange.Option) (*core.Balances, error) {
	options := exchange.ApplyOptions(opts...)

	resp, err := e.call(ctx, core.OpFetchBalance, nil, options.Params)
	if err != nil {
		return nil, err
	}
	return e.normalizer.ParseBalance(resp), nil
}

// CreateOrder places a limit order. Market orders are rejected before any
// other work since the venue does not support them.
func (e *TidexExchange) CreateOrder(ctx context.Context, req *exchange.OrderRequest, opts ...exchange.Option) (*core.Order, error) {
	if req == nil {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeInvalidOrder, 0,
			"order request is required").WithCode(core.ErrCodeInvalidOrder)
	}
	if req.Type == core.TypeMarket {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeExchange, 0,
			e.Name()+" allows limit orders only").WithCode(core.ErrCodeMarketOrder)
	}
	if err := req.Validate(); err != nil {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeInvalidOrder, 0,
			err.Error()).WithCode(core.ErrCodeInvalidOrder).WithRaw(err)
	}
	if err := e.requireCredentials(); err != nil {
		return nil, err
	}
	options := exchange.ApplyOptions(opts...)

	market, err := e.market(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	amount := req.Amount
	if p := market.Precision.Amount; p != nil {
		if amount, err = core.RoundDecimal(amount, *p); err != nil {
			return nil, fmt.Errorf("round amount: %w", err)
		}
	}
	price := req.Price
	if p := market.Precision.Price; p != nil {
		if price, err = core.RoundDecimal(price, *p); err != nil {
			return nil, fmt.Errorf("round price: %w", err)
		}
	}

	params := core.Params{
		"pair":   market.ID,
		"type":   string(req.Side),
		"amount": core.FormatDecimal(amount),
		"rate":   core.FormatDecimal(price),
	}
	resp, err := e.call(ctx, core.OpCreateOrder, params, options.Params)
	if err != nil {
		return nil, err
	}

	order := e.normalizer.ParseCreateOrder(resp, market.Symbol, req.Side, req.Amount, req.Price)
	order.ClientOrderID = req.ClientOrderID
	e.track(order)
	return &order, nil
}

func (e *TidexExchange) CancelOrder(ctx context.Context, req *exchange.CancelRequest, opts ...exchange.Option) (*core.Order, error) {
	if req == nil {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeBadRequest, 0,
			"cancel request is required").WithCode(core.ErrCodeBadRequest)
	}
	if err := req.Validate(); err != nil {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeBadRequest, 0,
			err.Error()).WithCode(core.ErrCodeBadRequest).WithRaw(err)
	}
	if err := e.requireCredentials(); err != nil {
		return nil, err
	}
	options := exchange.ApplyOptions(opts...)

	resp, err := e.call(ctx, core.OpCancelOrder, core.Params{"order_id": req.OrderID}, options.Params)
	if err != nil {
		return nil, err
	}

	order := e.normalizer.ParseCancelOrder(resp, req.OrderID, req.Symbol)
	e.track(order)
	return &order, nil
}

func (e *TidexExchange) FetchOrder(ctx context.Context, req *exchange.OrderQuery, opts ...exchange.Option) (*core.Order, error) {
	if req == nil {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeBadRequest, 0,
			"order query is required").WithCode(core.ErrCodeBadRequest)
	}
	if err := req.Validate(); err != nil {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeBadRequest, 0,
			err.Error()).WithCode(core.ErrCodeBadRequest).WithRaw(err)
	}
	if err := e.requireCredentials(); err != nil {
		return nil, err
	}
	options := exchange.ApplyOptions(opts...)

	market, err := e.optionalMarket(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	resp, err := e.call(ctx, core.OpFetchOrder, core.Params{"order_id": req.OrderID}, options.Params)
	if err != nil {
		return nil, err
	}

	order, ok := e.normalizer.ParseOrderInfo(resp, req.OrderID, market)
	if !ok {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeNotFound, 0,
			fmt.Sprintf("order %s not found", req.OrderID)).WithCode(core.ErrCodeNotFound).WithRaw(resp)
	}
	e.track(order)
	return &order, nil
}

// FetchOpenOrders returns resting orders. Tidex has no endpoint for closed
// orders.
func (e *TidexExchange) FetchOpenOrders(ctx context.Context, symbol string, opts ...exchange.Option) ([]core.Order, error) {
	if err := e.requireCredentials(); err != nil {
		return nil, err
	}
	options := exchange.ApplyOptions(opts...)

	market, err := e.optionalMarket(ctx, symbol)
	if err != nil {
		return nil, err
	}

	params := core.Params{}
	if market != nil {
		params["pair"] = market.ID
	}
	resp, err := e.call(ctx, core.OpFetchOpenOrders, params, options.Params)
	if err != nil {
		return nil, err
	}

	orders := e.normalizer.ParseOrders(resp, market, options.Since, options.Limit)
	for _, o := range orders {
		e.track(o)
	}
	return orders, nil
}

func (e *TidexExchange) FetchMyTrades(ctx context.Context, symbol string, opts ...exchange.Option) ([]core.Trade, error) {
	if err := e.requireCredentials(); err != nil {
		return nil, err
	}
	options := exchange.ApplyOptions(opts...)

	market, err := e.optionalMarket(ctx, symbol)
	if err != nil {
		return nil, err
	}

	params := core.Params{}
	if market != nil {
		params["pair"] = market.ID
	}
	if options.Limit > 0 {
		params["count"] = options.Limit
	}
	if options.Since > 0 {
		params["since"] = options.Since
	}
	resp, err := e.call(ctx, core.OpFetchMyTrades, params, options.Params)
	if err != nil {
		return nil, err
	}

	trades, ok := safe.Value(resp, "return")
	if !ok {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeServerError, 0,
			"trade history response has no return object").WithCode(core.ErrCodeServerError).WithRaw(resp)
	}
	return e.normalizer.ParseTrades(trades, market, options.Since, options.Limit), nil
}

// Withdraw sends funds to an external address. The address is checked
// before any request is made.
func (e *TidexExchange) Withdraw(ctx context.Context, req *exchange.WithdrawRequest, opts ...exchange.Option) (*core.Withdrawal, error) {
	if req == nil {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeBadRequest, 0,
			"withdraw request is required").WithCode(core.ErrCodeBadRequest)
	}
	if err := checkAddress(e.Name(), req.Address); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeBadRequest, 0,
			err.Error()).WithCode(core.ErrCodeBadRequest).WithRaw(err)
	}
	if err := e.requireCredentials(); err != nil {
		return nil, err
	}
	options := exchange.ApplyOptions(opts...)

	code := strings.ToUpper(req.Currency)
	assetID := code
	currencies, err := e.FetchCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	if c, ok := currencies[code]; ok {
		assetID = c.ID
	}

	params := core.Params{
		"asset":   assetID,
		"amount":  core.FormatDecimal(req.Amount),
		"address": req.Address,
	}
	if req.Tag != "" {
		params["memo"] = req.Tag
	}
	resp, err := e.call(ctx, core.OpWithdraw, params, options.Params)
	if err != nil {
		return nil, err
	}
	return e.normalizer.ParseWithdrawal(resp, code, req.Amount, req.Address, req.Tag), nil
}

func checkAddress(exchangeID, address string) error {
	if address == "" || strings.IndexFunc(address, unicode.IsSpace) >= 0 {
		return core.NewExchangeError(exchangeID, core.ErrorTypeInvalidAddress, 0,
			fmt.Sprintf("address is invalid or has less than 1 characters: %q", address)).
			WithCode(core.ErrCodeInvalidAddress)
	}
	return nil
}

func (e *TidexExchange) market(ctx context.Context, symbol string) (core.Market, error) {
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return core.Market{}, err
	}
	m, ok := e.normalizer.MarketBySymbol(symbol)
	if !ok {
		return core.Market{}, core.NewExchangeError(e.Name(), core.ErrorTypeBadRequest, 0,
			fmt.Sprintf("%s does not have market symbol %s", e.Name(), symbol)).WithCode(core.ErrCodeInvalidSymbol)
	}
	return m, nil
}

// optionalMarket resolves symbol when one is given and only loads markets
// in that case.
func (e *TidexExchange) optionalMarket(ctx context.Context, symbol string) (*core.Market, error) {
	if symbol == "" {
		return nil, nil
	}
	m, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (e *TidexExchange) requireCredentials() error {
	if e.keyRing == nil || e.keyRing.Current() == nil {
		return core.NewExchangeError(e.Name(), core.ErrorTypeAuthentication, 0,
			e.Name()+" requires apiKey and secret").WithCode(core.ErrCodeNoCredentials)
	}
	return nil
}

func (e *TidexExchange) track(order core.Order) {
	if e.tracker != nil {
		e.tracker.Track(order)
	}
}

// call builds the request for op, overlays the caller's raw params and runs
// it.
func (e *TidexExchange) call(ctx context.Context, op core.Operation, params, extra core.Params) (any, error) {
	req, err := e.protocol.BuildRequest(ctx, op, params)
	if err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		req.SetParams(extra)
	}
	return e.doRequest(ctx, req)
}

// doRequest serves cacheable requests from the response cache, loading a
// miss once however many callers wait on it.
func (e *TidexExchange) doRequest(ctx context.Context, req *core.Request) (any, error) {
	if req.CacheKey == "" || e.responses == nil {
		return e.execute(ctx, req)
	}
	return e.responses.GetOrLoad(ctx, req.CacheKey, req.CacheTTL, func(ctx context.Context) (any, error) {
		return e.execute(ctx, req)
	})
}

// execute runs one request through the rate limiter, signer, circuit
// breaker and transport, then classifies and decodes the answer.
func (e *TidexExchange) execute(ctx context.Context, req *core.Request) (any, error) {
	var key *keyring.APIKey
	var creds *core.Credentials
	if req.RequireAuth {
		if key = e.keyRing.Current(); key == nil {
			return nil, core.NewExchangeError(e.Name(), core.ErrorTypeAuthentication, 0,
				e.Name()+" requires apiKey and secret").WithCode(core.ErrCodeNoCredentials)
		}
		creds = key.Credentials()
	}

	if err := e.rateLimiter.Wait(ctx, req.API); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var nonce int64
	if key != nil {
		nonce = key.NextNonce()
	}
	signed, err := e.protocol.Sign(req, creds, nonce)
	if err != nil {
		return nil, err
	}

	requestID := e.newRequestID()
	ctx = httpClient.WithRequestID(ctx, requestID)
	e.logger.Debug().
		Str("request_id", requestID).
		Str("api", req.API).
		Str("path", req.Path).
		Msg("sending request")

	resp, err := e.send(ctx, signed)
	if err != nil {
		e.onKeyError(key, err)
		return nil, err
	}

	decoded, decodeErr := core.Decode(resp.Body)
	if decodeErr == nil {
		if err := Classify(e.describe, resp.StatusCode, resp.Body, decoded); err != nil {
			e.logger.Warn().Err(err).Str("request_id", requestID).Str("path", req.Path).Msg("request rejected")
			e.onKeyError(key, err)
			return nil, err
		}
	}
	if err := HTTPError(e.describe, resp.StatusCode, resp.Body); err != nil {
		e.logger.Warn().Err(err).Str("request_id", requestID).Str("path", req.Path).Msg("http error")
		e.onKeyError(key, err)
		return nil, err
	}
	if decodeErr != nil {
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeServerError, resp.StatusCode,
			fmt.Sprintf("decode response: %v", decodeErr)).WithCode(core.ErrCodeServerError).WithRaw(decodeErr)
	}

	if key != nil {
		e.keyRing.MarkUsed(key.ID)
	}
	return decoded, nil
}

func (e *TidexExchange) send(ctx context.Context, signed *core.SignedRequest) (*httpClient.Response, error) {
	if e.circuitBreaker == nil {
		return e.transport.Do(ctx, signed)
	}

	var resp *httpClient.Response
	err := e.circuitBreaker.Do(func() error {
		var err error
		resp, err = e.transport.Do(ctx, signed)
		if err == nil && resp.StatusCode >= 500 {
			return errUpstreamStatus
		}
		return err
	})
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return nil, core.NewExchangeError(e.Name(), core.ErrorTypeServerError, 0,
			core.ErrCircuitBreakerOpen.Error()).WithCode(core.ErrCodeCircuitBreaker).WithRaw(err)
	case errors.Is(err, errUpstreamStatus):
		return resp, nil
	case err != nil:
		return nil, err
	}
	return resp, nil
}

func (e *TidexExchange) onKeyError(key *keyring.APIKey, err error) {
	if key != nil {
		e.keyRing.OnError(key.ID, err)
	}
}
