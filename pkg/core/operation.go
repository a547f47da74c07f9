package core

// Operation represents a type of action that can be performed on an exchange.
type Operation int

// Operation constants define all supported exchange operations.
const (
	// OpFetchMarkets lists tradable markets.
	OpFetchMarkets Operation = iota
	// OpFetchCurrencies lists currencies with deposit and withdrawal metadata.
	OpFetchCurrencies
	// OpFetchTicker retrieves the ticker of a single market.
	OpFetchTicker
	// OpFetchTickers retrieves tickers of every market in one call.
	OpFetchTickers
	// OpFetchOrderBook retrieves the current order book depth.
	OpFetchOrderBook
	// OpFetchTrades retrieves public trade history for a market.
	OpFetchTrades
	// OpFetchOHLCV retrieves candlestick data.
	OpFetchOHLCV
	// OpFetchBalance retrieves account balances.
	OpFetchBalance
	// OpCreateOrder submits a new order.
	OpCreateOrder
	// OpCancelOrder cancels an existing order.
	OpCancelOrder
	// OpFetchOrder retrieves a single order by id.
	OpFetchOrder
	// OpFetchOpenOrders retrieves all open orders.
	OpFetchOpenOrders
	// OpFetchMyTrades retrieves the account's own trade history.
	OpFetchMyTrades
	// OpWithdraw requests a withdrawal to an external address.
	OpWithdraw
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	names := [...]string{
		"FETCH_MARKETS",
		"FETCH_CURRENCIES",
		"FETCH_TICKER",
		"FETCH_TICKERS",
		"FETCH_ORDER_BOOK",
		"FETCH_TRADES",
		"FETCH_OHLCV",
		"FETCH_BALANCE",
		"CREATE_ORDER",
		"CANCEL_ORDER",
		"FETCH_ORDER",
		"FETCH_OPEN_ORDERS",
		"FETCH_MY_TRADES",
		"WITHDRAW",
	}
	if o < 0 || int(o) >= len(names) {
		return "UNKNOWN"
	}
	return names[o]
}

// IsPrivate reports whether the operation needs signed credentials.
func (o Operation) IsPrivate() bool {
	return o >= OpFetchBalance && o <= OpWithdraw
}
