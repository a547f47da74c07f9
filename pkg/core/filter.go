package core

import "slices"

// FilterBySinceLimit sorts items by timestamp ascending, drops those older
// than since (when since > 0) and keeps at most limit items (when limit > 0).
func FilterBySinceLimit[T any](items []T, timestamp func(T) int64, since int64, limit int) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		ta, tb := timestamp(a), timestamp(b)
		switch {
		case ta < tb:
			return -1
		case ta > tb:
			return 1
		}
		return 0
	})
	if since > 0 {
		out = slices.DeleteFunc(out, func(item T) bool {
			return timestamp(item) < since
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TradeTimestamp returns t.Timestamp.
func TradeTimestamp(t Trade) int64 { return t.Timestamp }

// OrderTimestamp returns o.Timestamp.
func OrderTimestamp(o Order) int64 { return o.Timestamp }

// OHLCVTimestamp returns c.Timestamp.
func OHLCVTimestamp(c OHLCV) int64 { return c.Timestamp }
