package core

// MarketType represents the type of trading market on an exchange.
type MarketType string

// Market type constants define the available trading market categories.
const (
	// MarketTypeSpot indicates spot trading where assets are exchanged immediately.
	MarketTypeSpot MarketType = "spot"
	// MarketTypeMargin indicates leveraged spot trading.
	MarketTypeMargin MarketType = "margin"
	// MarketTypeSwap indicates perpetual contracts.
	MarketTypeSwap MarketType = "swap"
	// MarketTypeFuture indicates dated futures contracts.
	MarketTypeFuture MarketType = "future"
	// MarketTypeOption indicates options contracts.
	MarketTypeOption MarketType = "option"
)

// String returns the market type name.
func (m MarketType) String() string {
	return string(m)
}
