// Package ordertracker keeps the last known state of orders seen by an
// adapter. It is an optional hook: adapters hand it every order they create,
// cancel or fetch, and callers read it back or subscribe to updates.
package ordertracker

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"tidexgo/pkg/core"
)

type OrderCallback func(core.Order)

type Config struct {
	// MaxOrders bounds the number of tracked orders. The oldest tracked
	// order is evicted first.
	MaxOrders int `json:"max_orders" yaml:"max_orders"`
}

type Tracker struct {
	config         Config
	logger         zerolog.Logger
	mu             sync.RWMutex
	orders         map[string]core.Order
	sequence       []string
	clientOrderIDs map[string]string
	callbacks      []OrderCallback
	callbacksMu    sync.RWMutex
}

func New(config Config) *Tracker {
	if config.MaxOrders <= 0 {
		config.MaxOrders = 10000
	}

	return &Tracker{
		config:         config,
		logger:         zerolog.Nop(),
		orders:         make(map[string]core.Order),
		clientOrderIDs: make(map[string]string),
	}
}

func (t *Tracker) SetLogger(l zerolog.Logger) {
	t.logger = l
}

// Track records order. Fields the update leaves unset keep their previous
// value, and a terminal status is never replaced by a different one.
func (t *Tracker) Track(order core.Order) {
	if order.ID == "" {
		return
	}

	t.mu.Lock()
	existing, exists := t.orders[order.ID]
	if exists {
		if !isValidTransition(existing.Status, order.Status) {
			t.logger.Warn().
				Str("order_id", order.ID).
				Str("from", string(existing.Status)).
				Str("to", string(order.Status)).
				Msg("ignoring order status transition")
			order.Status = existing.Status
		}
		order = merge(existing, order)
	} else {
		t.sequence = append(t.sequence, order.ID)
	}
	t.orders[order.ID] = order
	if order.ClientOrderID != "" {
		t.clientOrderIDs[order.ClientOrderID] = order.ID
	}
	t.evictLocked()
	t.mu.Unlock()

	t.notifyCallbacks(order)
}

func (t *Tracker) evictLocked() {
	for len(t.sequence) > t.config.MaxOrders {
		id := t.sequence[0]
		t.sequence = t.sequence[1:]
		if o, ok := t.orders[id]; ok && o.ClientOrderID != "" {
			delete(t.clientOrderIDs, o.ClientOrderID)
		}
		delete(t.orders, id)
	}
}

func (t *Tracker) Get(orderID string) (core.Order, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	o, ok := t.orders[orderID]
	return o, ok
}

func (t *Tracker) GetByClientID(clientOrderID string) (core.Order, bool) {
	if clientOrderID == "" {
		return core.Order{}, false
	}

	t.mu.RLock()
	id, ok := t.clientOrderIDs[clientOrderID]
	t.mu.RUnlock()
	if !ok {
		return core.Order{}, false
	}
	return t.Get(id)
}

// Orders returns the tracked orders matching filter, oldest first.
func (t *Tracker) Orders(filter OrderFilter) []core.Order {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []core.Order
	for _, id := range t.sequence {
		if o := t.orders[id]; filter.Matches(&o) {
			result = append(result, o)
		}
	}
	return result
}

func (t *Tracker) OpenOrders() []core.Order {
	return slices.DeleteFunc(t.Orders(OrderFilter{}), func(o core.Order) bool {
		return o.Status.IsTerminal()
	})
}

func (t *Tracker) Remove(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.orders[orderID]
	if !ok {
		return
	}
	delete(t.orders, orderID)
	if o.ClientOrderID != "" {
		delete(t.clientOrderIDs, o.ClientOrderID)
	}
	t.sequence = slices.DeleteFunc(t.sequence, func(id string) bool { return id == orderID })
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.orders)
}

func (t *Tracker) OnOrderUpdate(callback OrderCallback) {
	t.callbacksMu.Lock()
	defer t.callbacksMu.Unlock()
	t.callbacks = append(t.callbacks, callback)
}

func (t *Tracker) notifyCallbacks(order core.Order) {
	t.callbacksMu.RLock()
	callbacks := slices.Clone(t.callbacks)
	t.callbacksMu.RUnlock()

	for _, callback := range callbacks {
		callback(order)
	}
}

type OrderFilter struct {
	Symbol string           `json:"symbol,omitempty"`
	Side   core.OrderSide   `json:"side,omitempty"`
	Status core.OrderStatus `json:"status,omitempty"`
	Type   core.OrderType   `json:"type,omitempty"`
}

func (f *OrderFilter) Matches(order *core.Order) bool {
	if f.Symbol != "" && order.Symbol != f.Symbol {
		return false
	}

	if f.Side != "" && order.Side != f.Side {
		return false
	}

	if f.Status != "" && order.Status != f.Status {
		return false
	}

	if f.Type != "" && order.Type != f.Type {
		return false
	}

	return true
}

// isValidTransition allows any move out of a non-terminal or unknown status
// and no move out of a terminal one.
func isValidTransition(from, to core.OrderStatus) bool {
	if from == to || from == "" || to == "" {
		return true
	}
	return !from.IsTerminal()
}

func merge(prev, next core.Order) core.Order {
	if next.Symbol == "" {
		next.Symbol = prev.Symbol
	}
	if next.ClientOrderID == "" {
		next.ClientOrderID = prev.ClientOrderID
	}
	if next.Timestamp == 0 {
		next.Timestamp = prev.Timestamp
		next.Datetime = prev.Datetime
	}
	if next.Type == "" {
		next.Type = prev.Type
	}
	if next.Side == "" {
		next.Side = prev.Side
	}
	if next.Status == "" {
		next.Status = prev.Status
	}
	if next.Price == nil {
		next.Price = prev.Price
	}
	if next.Amount == nil {
		next.Amount = prev.Amount
	}
	if next.Filled == nil {
		next.Filled = prev.Filled
	}
	if next.Remaining == nil {
		next.Remaining = prev.Remaining
	}
	if next.Fee == nil {
		next.Fee = prev.Fee
	}
	return next
}
