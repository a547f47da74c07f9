package exchange

import (
	"context"
	"fmt"
	"iter"

	"github.com/cockroachdb/apd/v3"
	"github.com/go-playground/validator/v10"

	"tidexgo/pkg/core"
)

// Exchange defines the unified interface every adapter exposes. Market data
// calls are public; balance, order and withdrawal calls require credentials.
type Exchange interface {
	Name() string
	Version() string
	Has(feature string) bool

	LoadMarkets(ctx context.Context, reload bool) (map[string]core.Market, error)
	FetchMarkets(ctx context.Context) ([]core.Market, error)
	FetchCurrencies(ctx context.Context) (map[string]core.Currency, error)
	FetchTicker(ctx context.Context, symbol string, opts ...Option) (*core.Ticker, error)
	FetchTickers(ctx context.Context, symbols []string, opts ...Option) (map[string]core.Ticker, error)
	FetchOrderBook(ctx context.Context, symbol string, opts ...Option) (*core.OrderBook, error)
	FetchTrades(ctx context.Context, symbol string, opts ...Option) iter.Seq2[*core.Trade, error]
	FetchOHLCV(ctx context.Context, symbol string, opts ...Option) ([]core.OHLCV, error)

	FetchBalance(ctx context.Context, opts ...Option) (*core.Balances, error)

	CreateOrder(ctx context.Context, req *OrderRequest, opts ...Option) (*core.Order, error)
	CancelOrder(ctx context.Context, req *CancelRequest, opts ...Option) (*core.Order, error)
	FetchOrder(ctx context.Context, req *OrderQuery, opts ...Option) (*core.Order, error)
	FetchOpenOrders(ctx context.Context, symbol string, opts ...Option) ([]core.Order, error)
	FetchMyTrades(ctx context.Context, symbol string, opts ...Option) ([]core.Trade, error)

	Withdraw(ctx context.Context, req *WithdrawRequest, opts ...Option) (*core.Withdrawal, error)

	Close() error
}

var validate = validator.New()

// OrderRequest contains the parameters required to place a new order on an exchange.
type OrderRequest struct {
	Symbol string         `validate:"required"`
	Side   core.OrderSide `validate:"required,oneof=buy sell"`
	Type   core.OrderType `validate:"required,oneof=limit market"`
	Amount *apd.Decimal   `validate:"required"`
	// Price is required for limit orders.
	Price         *apd.Decimal
	ClientOrderID string
}

// Validate checks required fields and that limit orders carry a positive price.
func (r *OrderRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid order request: %w", err)
	}
	if r.Amount.Sign() <= 0 {
		return fmt.Errorf("invalid order request: amount must be positive")
	}
	if r.Type == core.TypeLimit && (r.Price == nil || r.Price.Sign() <= 0) {
		return fmt.Errorf("invalid order request: limit order needs a positive price")
	}
	return nil
}

// CancelRequest contains the parameters required to cancel an existing order.
type CancelRequest struct {
	Symbol  string
	OrderID string `validate:"required,numeric"`
}

func (r *CancelRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid cancel request: %w", err)
	}
	return nil
}

// OrderQuery contains the parameters required to query order status.
type OrderQuery struct {
	Symbol  string
	OrderID string `validate:"required,numeric"`
}

func (r *OrderQuery) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid order query: %w", err)
	}
	return nil
}

// WithdrawRequest contains the parameters of a withdrawal.
type WithdrawRequest struct {
	Currency string       `validate:"required"`
	Amount   *apd.Decimal `validate:"required"`
	Address  string
	// Tag is the memo or destination tag, when the network uses one.
	Tag string
}

func (r *WithdrawRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid withdraw request: %w", err)
	}
	if r.Amount.Sign() <= 0 {
		return fmt.Errorf("invalid withdraw request: amount must be positive")
	}
	return nil
}
