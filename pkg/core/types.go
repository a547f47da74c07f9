package core

import (
	"github.com/cockroachdb/apd/v3"
)

// OrderSide represents the direction of an order (buy or sell).
type OrderSide string

// Order side constants define the direction of a trade.
const (
	// SideBuy indicates an order to purchase an asset.
	SideBuy OrderSide = "buy"
	// SideSell indicates an order to sell an asset.
	SideSell OrderSide = "sell"
)

// OrderType represents the type of order to place on an exchange.
type OrderType string

// Order type constants define how an order is executed.
const (
	// TypeMarket executes immediately at the best available price.
	TypeMarket OrderType = "market"
	// TypeLimit executes at a specified price or better.
	TypeLimit OrderType = "limit"
)

// OrderStatus represents the current state of an order.
// Venue codes that have no mapping are carried through verbatim.
type OrderStatus string

// Order status constants define the lifecycle state of an order.
const (
	// StatusOpen indicates the order rests on the book.
	StatusOpen OrderStatus = "open"
	// StatusClosed indicates the order has been completely filled.
	StatusClosed OrderStatus = "closed"
	// StatusCanceled indicates the order has been canceled.
	StatusCanceled OrderStatus = "canceled"
)

// IsTerminal returns true if the order is in a terminal state (no further changes possible).
func (s OrderStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCanceled
}

// MinMax is an optional numeric range. Nil bounds are unset.
type MinMax struct {
	Min *apd.Decimal `json:"min"`
	Max *apd.Decimal `json:"max"`
}

// MarketPrecision holds the number of decimal places for amounts and prices.
type MarketPrecision struct {
	Amount *int32 `json:"amount"`
	Price  *int32 `json:"price"`
}

// MarketLimits holds order-size limits for a market.
type MarketLimits struct {
	Amount   MinMax `json:"amount"`
	Price    MinMax `json:"price"`
	Cost     MinMax `json:"cost"`
	Leverage MinMax `json:"leverage"`
}

// Market describes a tradable instrument.
// Symbol is always Base + "/" + Quote.
type Market struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	BaseID    string          `json:"base_id"`
	QuoteID   string          `json:"quote_id"`
	Type      MarketType      `json:"type"`
	Spot      bool            `json:"spot"`
	Margin    bool            `json:"margin"`
	Swap      bool            `json:"swap"`
	Future    bool            `json:"future"`
	Option    bool            `json:"option"`
	Contract  bool            `json:"contract"`
	Active    *bool           `json:"active"`
	Precision MarketPrecision `json:"precision"`
	Limits    MarketLimits    `json:"limits"`
	Info      any             `json:"info"`
}

// CurrencyLimits holds amount limits for a currency.
type CurrencyLimits struct {
	Amount   MinMax `json:"amount"`
	Withdraw MinMax `json:"withdraw"`
	Deposit  MinMax `json:"deposit"`
}

// Currency describes an asset and its transfer capabilities.
type Currency struct {
	ID        string         `json:"id"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Active    *bool          `json:"active"`
	Deposit   *bool          `json:"deposit"`
	Withdraw  *bool          `json:"withdraw"`
	Precision *int32         `json:"precision"`
	Fee       *apd.Decimal   `json:"fee"`
	Limits    CurrencyLimits `json:"limits"`
	Info      any            `json:"info"`
}

// Ticker represents a market data snapshot for a trading pair.
type Ticker struct {
	// Symbol is the trading pair identifier (e.g., "BTC/USDT").
	Symbol string `json:"symbol"`
	// Timestamp is epoch milliseconds; zero when the venue omits it.
	Timestamp     int64        `json:"timestamp"`
	Datetime      string       `json:"datetime"`
	High          *apd.Decimal `json:"high"`
	Low           *apd.Decimal `json:"low"`
	Bid           *apd.Decimal `json:"bid"`
	BidVolume     *apd.Decimal `json:"bid_volume"`
	Ask           *apd.Decimal `json:"ask"`
	AskVolume     *apd.Decimal `json:"ask_volume"`
	VWAP          *apd.Decimal `json:"vwap"`
	Open          *apd.Decimal `json:"open"`
	Close         *apd.Decimal `json:"close"`
	Last          *apd.Decimal `json:"last"`
	PreviousClose *apd.Decimal `json:"previous_close"`
	Change        *apd.Decimal `json:"change"`
	Percentage    *apd.Decimal `json:"percentage"`
	Average       *apd.Decimal `json:"average"`
	BaseVolume    *apd.Decimal `json:"base_volume"`
	QuoteVolume   *apd.Decimal `json:"quote_volume"`
	Info          any          `json:"info"`
}

// Fee describes a fee charged on a trade or order.
type Fee struct {
	Currency string       `json:"currency"`
	Cost     *apd.Decimal `json:"cost"`
	Rate     *apd.Decimal `json:"rate"`
}

// Trade represents a single executed trade.
type Trade struct {
	ID           string       `json:"id"`
	Order        string       `json:"order"`
	Timestamp    int64        `json:"timestamp"`
	Datetime     string       `json:"datetime"`
	Symbol       string       `json:"symbol"`
	Type         OrderType    `json:"type"`
	TakerOrMaker string       `json:"taker_or_maker"`
	Side         OrderSide    `json:"side"`
	Price        *apd.Decimal `json:"price"`
	Amount       *apd.Decimal `json:"amount"`
	Cost         *apd.Decimal `json:"cost"`
	Fee          *Fee         `json:"fee"`
	Info         any          `json:"info"`
}

// OHLCV is one candle. It marshals as the tuple
// [timestamp, open, high, low, close, volume].
type OHLCV struct {
	Timestamp int64
	Open      *apd.Decimal
	High      *apd.Decimal
	Low       *apd.Decimal
	Close     *apd.Decimal
	Volume    *apd.Decimal
}

// MarshalJSON implements json.Marshaler for OHLCV.
func (c OHLCV) MarshalJSON() ([]byte, error) {
	return JSON.Marshal([]any{
		c.Timestamp,
		decimalValue(c.Open),
		decimalValue(c.High),
		decimalValue(c.Low),
		decimalValue(c.Close),
		decimalValue(c.Volume),
	})
}

// Account is the balance of a single currency.
type Account struct {
	Free  *apd.Decimal `json:"free"`
	Used  *apd.Decimal `json:"used"`
	Total *apd.Decimal `json:"total"`
}

// Balances holds per-currency accounts keyed by unified currency code.
type Balances struct {
	Timestamp int64              `json:"timestamp"`
	Datetime  string             `json:"datetime"`
	Accounts  map[string]Account `json:"accounts"`
	Info      any                `json:"info"`
}

// NewBalances fills in each account's total as free plus used when both are known.
func NewBalances(accounts map[string]Account, timestamp int64, datetime string, info any) *Balances {
	for code, acc := range accounts {
		if acc.Total == nil && acc.Free != nil && acc.Used != nil {
			acc.Total = AddDecimals(acc.Free, acc.Used)
			accounts[code] = acc
		}
	}
	return &Balances{
		Timestamp: timestamp,
		Datetime:  datetime,
		Accounts:  accounts,
		Info:      info,
	}
}

// Order represents an exchange order.
type Order struct {
	ID                 string       `json:"id"`
	ClientOrderID      string       `json:"client_order_id"`
	Symbol             string       `json:"symbol"`
	Timestamp          int64        `json:"timestamp"`
	Datetime           string       `json:"datetime"`
	LastTradeTimestamp int64        `json:"last_trade_timestamp"`
	Type               OrderType    `json:"type"`
	TimeInForce        string       `json:"time_in_force"`
	PostOnly           *bool        `json:"post_only"`
	Side               OrderSide    `json:"side"`
	Price              *apd.Decimal `json:"price"`
	StopPrice          *apd.Decimal `json:"stop_price"`
	Cost               *apd.Decimal `json:"cost"`
	Average            *apd.Decimal `json:"average"`
	Amount             *apd.Decimal `json:"amount"`
	Filled             *apd.Decimal `json:"filled"`
	Remaining          *apd.Decimal `json:"remaining"`
	Status             OrderStatus  `json:"status"`
	Fee                *Fee         `json:"fee"`
	Info               any          `json:"info"`
}

// OrderBookLevel represents a single price level in the order book.
type OrderBookLevel struct {
	Price  *apd.Decimal `json:"price"`
	Amount *apd.Decimal `json:"amount"`
}

// OrderBook represents the current state of the order book for a trading pair.
type OrderBook struct {
	Symbol string `json:"symbol"`
	// Bids are buy orders sorted by price descending.
	Bids []OrderBookLevel `json:"bids"`
	// Asks are sell orders sorted by price ascending.
	Asks      []OrderBookLevel `json:"asks"`
	Timestamp int64            `json:"timestamp"`
	Datetime  string           `json:"datetime"`
	Nonce     *int64           `json:"nonce"`
}

// Withdrawal is the result of a withdrawal request.
type Withdrawal struct {
	ID        string       `json:"id"`
	TxID      string       `json:"txid"`
	Currency  string       `json:"currency"`
	Amount    *apd.Decimal `json:"amount"`
	Fee       *Fee         `json:"fee"`
	Address   string       `json:"address"`
	Tag       string       `json:"tag"`
	Status    string       `json:"status"`
	Timestamp int64        `json:"timestamp"`
	Datetime  string       `json:"datetime"`
	Info      any          `json:"info"`
}
