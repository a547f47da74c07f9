package tidex

import (
	"maps"
	"slices"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tidexgo/pkg/core"
)

const (
	ExchangeID   = "tidex"
	ExchangeName = "Tidex"
	APIVersion   = "3"

	WebURL     = "https://gate.tidex.com/api"
	PublicURL  = "https://api.tidex.com/api/v1/public"
	PrivateURL = "https://api.tidex.com/api/v1"
)

// URLs lists the API roots per access class plus the informational links.
type URLs struct {
	API  map[string]string
	WWW  string
	Doc  string
	Fees string
}

// TradingFees is the flat spot fee schedule.
type TradingFees struct {
	FeeSide    string
	TierBased  bool
	Percentage bool
	Taker      *apd.Decimal
	Maker      *apd.Decimal
}

// BroadRule maps a message substring onto an error type.
type BroadRule struct {
	Substring string
	Type      core.ErrorType
}

// Exceptions are the error tables consulted by Classify. Broad rules are
// tried in order.
type Exceptions struct {
	Exact map[string]core.ErrorType
	Broad []BroadRule
}

// Limits are request-size bounds enforced before a request is built.
type Limits struct {
	OrderBookMax      int
	TradesMax         int
	OHLCVDefault      int
	TickersMaxSymbols int
}

// Describe is the static venue metadata. It is built once by DefaultDescribe
// and shared read-only by the protocol, the normalizer and the classifier.
type Describe struct {
	ID                  string
	Name                string
	Version             string
	Countries           []string
	RateLimit           time.Duration
	URLs                URLs
	Has                 map[string]bool
	Timeframes          map[string]int64
	Fees                TradingFees
	CommonCurrencies    map[string]string
	Exceptions          Exceptions
	RequiredCredentials []string
	Limits              Limits
}

var tidexCurrencies = map[string]string{
	"DSH":  "DASH",
	"EMGO": "MGO",
	"MGO":  "WMGO",
}

// DefaultDescribe returns a fresh copy of the Tidex metadata.
func DefaultDescribe() *Describe {
	return &Describe{
		ID:        ExchangeID,
		Name:      ExchangeName,
		Version:   APIVersion,
		Countries: []string{"UK"},
		RateLimit: 2000 * time.Millisecond,
		URLs: URLs{
			API: map[string]string{
				core.APIWeb:     WebURL,
				core.APIPublic:  PublicURL,
				core.APIPrivate: PrivateURL,
			},
			WWW:  "https://tidex.com",
			Doc:  "https://gitlab.com/tidex/api/-/blob/main/tidex_doc.md",
			Fees: "https://tidex.com/fee-schedule",
		},
		Has: map[string]bool{
			"spot":              true,
			"margin":            false,
			"swap":              false,
			"future":            false,
			"option":            false,
			"cancelOrder":       true,
			"createMarketOrder": false,
			"createOrder":       true,
			"fetchBalance":      true,
			"fetchCurrencies":   true,
			"fetchMarkets":      true,
			"fetchMyTrades":     true,
			"fetchOHLCV":        true,
			"fetchOpenOrders":   true,
			"fetchOrder":        true,
			"fetchOrderBook":    true,
			"fetchTicker":       true,
			"fetchTickers":      true,
			"fetchTrades":       true,
			"withdraw":          true,
			"fetchClosedOrders": false,
			"fetchOrders":       false,
		},
		Timeframes: map[string]int64{
			"15s": 15,
			"1m":  60,
			"5m":  300,
			"15m": 900,
			"1h":  3600,
			"4h":  14400,
			"1d":  86400,
			"3d":  259200,
			"1w":  604800,
		},
		Fees: TradingFees{
			FeeSide:    "get",
			TierBased:  false,
			Percentage: true,
			Taker:      core.MustDecimal("0.002"),
			Maker:      core.MustDecimal("0.002"),
		},
		CommonCurrencies: core.MergeCurrencyTables(core.CommonCurrencies, tidexCurrencies),
		Exceptions: Exceptions{
			Exact: map[string]core.ErrorType{},
			Broad: []BroadRule{
				{Substring: "Api key header is missing!", Type: core.ErrorTypeAuthentication},
			},
		},
		RequiredCredentials: []string{"apiKey", "secret"},
		Limits: Limits{
			OrderBookMax:      100,
			TradesMax:         1000,
			OHLCVDefault:      1501,
			TickersMaxSymbols: 1000,
		},
	}
}

// TimeframeSeconds returns the candle width for a unified timeframe.
func (d *Describe) TimeframeSeconds(timeframe string) (int64, bool) {
	s, ok := d.Timeframes[timeframe]
	return s, ok
}

// SupportedTimeframes returns the unified timeframes sorted by width.
func (d *Describe) SupportedTimeframes() []string {
	tfs := slices.Collect(maps.Keys(d.Timeframes))
	slices.SortFunc(tfs, func(a, b string) int {
		return int(d.Timeframes[a] - d.Timeframes[b])
	})
	return tfs
}

// CurrencyCode converts a native currency id into a unified code.
func (d *Describe) CurrencyCode(id string) string {
	return core.CurrencyCode(id, d.CommonCurrencies)
}
