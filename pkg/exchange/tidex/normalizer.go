package tidex

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tidexgo/pkg/core"
	"tidexgo/pkg/safe"
)

// Normalizer converts decoded Tidex responses into core records. Every
// Parse method is a pure function of its input and the loaded markets index.
type Normalizer struct {
	describe *Describe
	now      func() time.Time

	mu      sync.RWMutex
	byID    map[string]core.Market
	symbols map[string]core.Market
}

// NewNormalizer creates a normalizer bound to the given metadata.
func NewNormalizer(describe *Describe) *Normalizer {
	if describe == nil {
		describe = DefaultDescribe()
	}
	return &Normalizer{
		describe: describe,
		now:      time.Now,
		byID:     make(map[string]core.Market),
		symbols:  make(map[string]core.Market),
	}
}

// SetMarkets replaces the markets index used for symbol resolution.
func (n *Normalizer) SetMarkets(markets []core.Market) {
	byID := make(map[string]core.Market, len(markets))
	symbols := make(map[string]core.Market, len(markets))
	for _, m := range markets {
		byID[m.ID] = m
		symbols[m.Symbol] = m
	}
	n.mu.Lock()
	n.byID = byID
	n.symbols = symbols
	n.mu.Unlock()
}

// MarketByID looks a market up by native id, trying the id as given and
// then uppercased.
func (n *Normalizer) MarketByID(id string) (core.Market, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if m, ok := n.byID[id]; ok {
		return m, true
	}
	m, ok := n.byID[strings.ToUpper(id)]
	return m, ok
}

// MarketBySymbol looks a market up by unified symbol.
func (n *Normalizer) MarketBySymbol(symbol string) (core.Market, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	m, ok := n.symbols[symbol]
	return m, ok
}

// Markets returns the loaded markets keyed by symbol.
func (n *Normalizer) Markets() map[string]core.Market {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return maps.Clone(n.symbols)
}

// symbol resolves a native market id. Known ids map to their market and
// unknown BASE_QUOTE ids are split. The caller's market only stands in for
// an id that is neither, so a foreign pair is never relabeled.
func (n *Normalizer) symbol(marketID string, market *core.Market) string {
	if marketID != "" {
		if m, ok := n.MarketByID(marketID); ok {
			return m.Symbol
		}
		if baseID, quoteID, ok := strings.Cut(marketID, "_"); ok && baseID != "" && quoteID != "" {
			return n.describe.CurrencyCode(baseID) + "/" + n.describe.CurrencyCode(quoteID)
		}
	}
	if market != nil {
		return market.Symbol
	}
	return marketID
}

// ParseMarkets reads the result array of the markets endpoint. Entries whose
// name is not BASE_QUOTE are skipped.
func (n *Normalizer) ParseMarkets(response any) []core.Market {
	raw := safe.Slice(response, "result")
	markets := make([]core.Market, 0, len(raw))
	for _, entry := range raw {
		id := safe.String(entry, "name", "")
		baseID, quoteID, ok := strings.Cut(id, "_")
		if !ok || baseID == "" || quoteID == "" {
			continue
		}
		base := n.describe.CurrencyCode(baseID)
		quote := n.describe.CurrencyCode(quoteID)
		markets = append(markets, core.Market{
			ID:      id,
			Symbol:  base + "/" + quote,
			Base:    base,
			Quote:   quote,
			BaseID:  baseID,
			QuoteID: quoteID,
			Type:    core.MarketTypeSpot,
			Spot:    true,
			Precision: core.MarketPrecision{
				Price: optionalInt32(entry, "moneyPrec"),
			},
			Limits: core.MarketLimits{
				Amount: core.MinMax{Min: safe.Decimal(entry, "minAmount")},
			},
			Info: entry,
		})
	}
	return markets
}

// ParseCurrencies reads the currency array of the web API, keyed by code.
func (n *Normalizer) ParseCurrencies(response any) map[string]core.Currency {
	raw, _ := response.([]any)
	currencies := make(map[string]core.Currency, len(raw))
	for _, entry := range raw {
		id := safe.String(entry, "symbol", "")
		if id == "" {
			continue
		}
		code := n.describe.CurrencyCode(id)
		currencies[code] = core.Currency{
			ID:        id,
			Code:      code,
			Name:      safe.String(entry, "name", ""),
			Active:    safe.Bool(entry, "visible"),
			Deposit:   safe.Bool(entry, "depositEnable"),
			Withdraw:  safe.Bool(entry, "withdrawEnable"),
			Precision: optionalInt32(entry, "amountPoint"),
			Fee:       safe.Decimal(entry, "withdrawFee"),
			Limits: core.CurrencyLimits{
				Withdraw: core.MinMax{Min: safe.Decimal(entry, "withdrawMinAmount")},
				Deposit:  core.MinMax{Min: safe.Decimal(entry, "depositMinAmount")},
			},
			Info: entry,
		}
	}
	return currencies
}

// ParseTicker accepts both the flat ticker object and the batch form
// {"at": seconds, "ticker": {...}}.
//
// Bid and ask come from "buy" and "sell". When those are absent they fall
// back to "bid" and "ask", which the single-ticker endpoint returns; the
// upstream client reads only buy and sell and leaves both nil there.
func (n *Normalizer) ParseTicker(raw any, market *core.Market) core.Ticker {
	ticker := raw
	timestamp, nested := safe.Timestamp(raw, "at")
	if nested {
		ticker = safe.Map(raw, "ticker")
	}
	last := safe.Decimal(ticker, "last")
	return core.Ticker{
		Symbol:      n.symbol(safe.StringUpper(ticker, "name", ""), market),
		Timestamp:   timestamp,
		Datetime:    safe.ISO8601(timestamp),
		High:        safe.Decimal(ticker, "high"),
		Low:         safe.Decimal(ticker, "low"),
		Bid:         firstDecimal(ticker, "buy", "bid"),
		Ask:         firstDecimal(ticker, "sell", "ask"),
		Close:       last,
		Last:        last,
		Average:     safe.Decimal(ticker, "avg"),
		BaseVolume:  safe.Decimal(ticker, "vol_cur"),
		QuoteVolume: safe.Decimal(ticker, "vol"),
		Info:        ticker,
	}
}

// ParseTickers reads the result object of the tickers endpoint. A non-empty
// symbols list keeps only those symbols.
func (n *Normalizer) ParseTickers(response any, symbols []string) map[string]core.Ticker {
	raw := safe.Map(response, "result")
	tickers := make(map[string]core.Ticker, len(raw))
	for _, id := range slices.Sorted(maps.Keys(raw)) {
		var market *core.Market
		if m, ok := n.MarketByID(id); ok {
			market = &m
		}
		t := n.ParseTicker(raw[id], market)
		if t.Symbol == "" {
			t.Symbol = n.symbol(strings.ToUpper(id), nil)
		}
		if len(symbols) > 0 && !slices.Contains(symbols, t.Symbol) {
			continue
		}
		tickers[t.Symbol] = t
	}
	return tickers
}

// ParseOrderBook reads {"asks": [[price, amount]...], "bids": [...]}.
func (n *Normalizer) ParseOrderBook(response any, symbol string) *core.OrderBook {
	bids := parseLevels(safe.Slice(response, "bids"))
	asks := parseLevels(safe.Slice(response, "asks"))
	slices.SortStableFunc(bids, func(a, b core.OrderBookLevel) int { return b.Price.Cmp(a.Price) })
	slices.SortStableFunc(asks, func(a, b core.OrderBookLevel) int { return a.Price.Cmp(b.Price) })
	return &core.OrderBook{
		Symbol: symbol,
		Bids:   bids,
		Asks:   asks,
	}
}

func parseLevels(raw []any) []core.OrderBookLevel {
	levels := make([]core.OrderBookLevel, 0, len(raw))
	for _, entry := range raw {
		price := safe.Decimal(entry, 0)
		amount := safe.Decimal(entry, 1)
		if price == nil || amount == nil {
			continue
		}
		levels = append(levels, core.OrderBookLevel{Price: price, Amount: amount})
	}
	return levels
}

// ParseTrade handles public history entries and private trade history
// entries, which name some fields differently.
func (n *Normalizer) ParseTrade(raw any, market *core.Market) core.Trade {
	timestamp, ok := safe.Timestamp(raw, "date")
	if !ok {
		timestamp, _ = safe.Timestamp(raw, "timestamp")
	}
	price := safe.Decimal(raw, "price")
	if price == nil {
		price = safe.Decimal(raw, "rate")
	}
	return core.Trade{
		ID:        firstString(raw, "tid", "id", "trade_id"),
		Order:     safe.String(raw, "order_id", ""),
		Timestamp: timestamp,
		Datetime:  safe.ISO8601(timestamp),
		Symbol:    n.symbol(safe.String(raw, "pair", ""), market),
		Side:      core.OrderSide(safe.StringLower(raw, "type", "")),
		Price:     price,
		Amount:    safe.Decimal(raw, "amount"),
		Info:      raw,
	}
}

// ParseTrades accepts a trade array or an object keyed by trade id, sorts
// by timestamp and applies since and limit.
func (n *Normalizer) ParseTrades(raw any, market *core.Market, since int64, limit int) []core.Trade {
	var trades []core.Trade
	forEachEntry(raw, "id", func(entry any) {
		trades = append(trades, n.ParseTrade(entry, market))
	})
	if market != nil {
		trades = slices.DeleteFunc(trades, func(t core.Trade) bool { return t.Symbol != market.Symbol })
	}
	return core.FilterBySinceLimit(trades, core.TradeTimestamp, since, limit)
}

// ParseOHLCV maps {time, open, highest, lowest, close, volume} onto a candle.
func (n *Normalizer) ParseOHLCV(raw any) core.OHLCV {
	timestamp, _ := safe.Timestamp(raw, "time")
	return core.OHLCV{
		Timestamp: timestamp,
		Open:      safe.Decimal(raw, "open"),
		High:      safe.Decimal(raw, "highest"),
		Low:       safe.Decimal(raw, "lowest"),
		Close:     safe.Decimal(raw, "close"),
		Volume:    safe.Decimal(raw, "volume"),
	}
}

// ParseOHLCVs reads result.kline.
func (n *Normalizer) ParseOHLCVs(response any, since int64, limit int) []core.OHLCV {
	raw := safe.Slice(safe.Map(response, "result"), "kline")
	candles := make([]core.OHLCV, 0, len(raw))
	for _, entry := range raw {
		candles = append(candles, n.ParseOHLCV(entry))
	}
	return core.FilterBySinceLimit(candles, core.OHLCVTimestamp, since, limit)
}

// ParseBalance reads return.funds. Every currency gets an account.
func (n *Normalizer) ParseBalance(response any) *core.Balances {
	result := safe.Map(response, "return")
	timestamp, _ := safe.Timestamp(result, "server_time")
	funds := safe.Map(result, "funds")
	accounts := make(map[string]core.Account, len(funds))
	for id, fund := range funds {
		accounts[n.describe.CurrencyCode(id)] = core.Account{
			Free: safe.Decimal(fund, "value"),
			Used: safe.Decimal(fund, "inOrders"),
		}
	}
	return core.NewBalances(accounts, timestamp, safe.ISO8601(timestamp), response)
}

var orderStatuses = map[string]core.OrderStatus{
	"0": core.StatusOpen,
	"1": core.StatusClosed,
	"2": core.StatusCanceled,
	// upstream may also use 3 for partially filled orders that are still open
	"3": core.StatusCanceled,
}

// ParseOrderStatus maps a numeric status code. Unknown codes pass through.
func ParseOrderStatus(code string) core.OrderStatus {
	if status, ok := orderStatuses[code]; ok {
		return status
	}
	return core.OrderStatus(code)
}

// ParseOrder maps an order object. When start_amount is present it is the
// requested size and amount is what remains; otherwise amount only gives
// the remainder.
func (n *Normalizer) ParseOrder(raw any, market *core.Market) core.Order {
	timestamp, _ := safe.Timestamp(raw, "timestamp_created")
	var amount *apd.Decimal
	if safe.Has(raw, "start_amount") {
		amount = safe.Decimal(raw, "start_amount")
	}
	return core.Order{
		ID:        safe.String(raw, "id", ""),
		Symbol:    n.symbol(safe.String(raw, "pair", ""), market),
		Timestamp: timestamp,
		Datetime:  safe.ISO8601(timestamp),
		Type:      core.TypeLimit,
		Side:      core.OrderSide(safe.StringLower(raw, "type", "")),
		Price:     safe.Decimal(raw, "rate"),
		Amount:    amount,
		Remaining: safe.Decimal(raw, "amount"),
		Status:    ParseOrderStatus(safe.String(raw, "status", "")),
		Info:      raw,
	}
}

// ParseOrders reads the return object keyed by order id, or an order array.
func (n *Normalizer) ParseOrders(response any, market *core.Market, since int64, limit int) []core.Order {
	var orders []core.Order
	forEachEntry(safe.Map(response, "return"), "id", func(entry any) {
		orders = append(orders, n.ParseOrder(entry, market))
	})
	if market != nil {
		orders = slices.DeleteFunc(orders, func(o core.Order) bool { return o.Symbol != market.Symbol })
	}
	return core.FilterBySinceLimit(orders, core.OrderTimestamp, since, limit)
}

// ParseOrderInfo picks the order stored under id in the return object.
func (n *Normalizer) ParseOrderInfo(response any, id string, market *core.Market) (core.Order, bool) {
	entry := safe.Map(safe.Map(response, "return"), id)
	if entry == nil {
		return core.Order{}, false
	}
	return n.ParseOrder(withKey(entry, "id", id), market), true
}

// ParseCreateOrder builds the placed order from the Trade response and the
// submitted values. Order id "0" means the order filled on arrival and the
// real id is init_order_id.
func (n *Normalizer) ParseCreateOrder(response any, symbol string, side core.OrderSide, amount, price *apd.Decimal) core.Order {
	result := safe.Map(response, "return")
	status := core.StatusOpen
	id := safe.String(result, "order_id", "")
	if id == "0" {
		id = safe.String(result, "init_order_id", "")
		status = core.StatusClosed
	}
	filled := safe.DecimalOr(result, "received", "0.0")
	remaining := amount
	if d := safe.Decimal(result, "remains"); d != nil {
		remaining = d
	}
	timestamp := n.now().UnixMilli()
	return core.Order{
		ID:        id,
		Symbol:    symbol,
		Timestamp: timestamp,
		Datetime:  safe.ISO8601(timestamp),
		Type:      core.TypeLimit,
		Side:      side,
		Price:     price,
		Amount:    amount,
		Filled:    filled,
		Remaining: remaining,
		Status:    status,
		Info:      response,
	}
}

// ParseCancelOrder reports the canceled order.
func (n *Normalizer) ParseCancelOrder(response any, id, symbol string) core.Order {
	if returned := safe.String(safe.Map(response, "return"), "order_id", ""); returned != "" {
		id = returned
	}
	return core.Order{
		ID:     id,
		Symbol: symbol,
		Type:   core.TypeLimit,
		Status: core.StatusCanceled,
		Info:   response,
	}
}

// ParseWithdrawal reads return.withdraw_id and, when present, the
// withdraw_info details. Missing details fall back to the request values.
func (n *Normalizer) ParseWithdrawal(response any, code string, amount *apd.Decimal, address, tag string) *core.Withdrawal {
	result := safe.Map(response, "return")
	info := safe.Map(result, "withdraw_info")
	data := safe.Map(info, "data")

	id := safe.String(result, "withdraw_id", "")
	if id == "" {
		id = safe.String(info, "id", "")
	}
	if d := safe.Decimal(info, "amount"); d != nil {
		amount = d
	}
	var fee *core.Fee
	if cost := safe.Decimal(info, "fee"); cost != nil {
		fee = &core.Fee{Currency: code, Cost: cost}
	}
	timestamp, _ := safe.Timestamp(info, "create_time")
	return &core.Withdrawal{
		ID:        id,
		TxID:      safe.String(data, "tx", ""),
		Currency:  code,
		Amount:    amount,
		Fee:       fee,
		Address:   safe.String(data, "address", address),
		Tag:       safe.String(data, "memo", tag),
		Status:    safe.StringLower(info, "status", ""),
		Timestamp: timestamp,
		Datetime:  safe.ISO8601(timestamp),
		Info:      response,
	}
}

// forEachEntry walks an array, or an object in key order with the key
// injected under idKey when the entry lacks it.
func forEachEntry(raw any, idKey string, fn func(entry any)) {
	switch v := raw.(type) {
	case []any:
		for _, entry := range v {
			fn(entry)
		}
	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(v)) {
			entry, ok := v[key].(map[string]any)
			if !ok {
				continue
			}
			fn(withKey(entry, idKey, key))
		}
	}
}

func withKey(entry map[string]any, key, value string) map[string]any {
	if safe.String(entry, key, "") != "" {
		return entry
	}
	out := maps.Clone(entry)
	out[key] = value
	return out
}

func firstDecimal(container any, keys ...string) *apd.Decimal {
	for _, key := range keys {
		if d := safe.Decimal(container, key); d != nil {
			return d
		}
	}
	return nil
}

func firstString(container any, keys ...string) string {
	for _, key := range keys {
		if s := safe.String(container, key, ""); s != "" {
			return s
		}
	}
	return ""
}

func optionalInt32(container any, key string) *int32 {
	if safe.Decimal(container, key) == nil {
		return nil
	}
	v := int32(safe.Integer(container, key, 0))
	return &v
}
