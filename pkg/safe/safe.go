// Package safe extracts typed values from loosely-typed decoded JSON.
//
// Every accessor takes a container (map[string]any or []any), a key, and
// returns the value coerced to the requested shape. Absent keys, nulls and
// values of an incompatible shape produce the zero value or the caller's
// default. Accessors never panic and never return errors.
package safe

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Value returns the raw value stored under key. Map containers take string
// keys and slice containers take int keys.
func Value(container any, key any) (any, bool) {
	switch c := container.(type) {
	case map[string]any:
		k, ok := key.(string)
		if !ok {
			return nil, false
		}
		v, ok := c[k]
		return v, ok
	case []any:
		i, ok := key.(int)
		if !ok || i < 0 || i >= len(c) {
			return nil, false
		}
		return c[i], true
	}
	return nil, false
}

// Has reports whether key is present, even when it holds null.
func Has(container any, key any) bool {
	_, ok := Value(container, key)
	return ok
}

// String returns the value under key rendered as a string. Numbers keep
// their decoded text. Booleans render as "true" or "false".
func String(container any, key any, def string) string {
	v, ok := Value(container, key)
	if !ok {
		return def
	}
	s, ok := toString(v)
	if !ok {
		return def
	}
	return s
}

// StringUpper is String followed by strings.ToUpper on a hit.
func StringUpper(container any, key any, def string) string {
	v, ok := Value(container, key)
	if !ok {
		return def
	}
	s, ok := toString(v)
	if !ok {
		return def
	}
	return strings.ToUpper(s)
}

// StringLower is String followed by strings.ToLower on a hit.
func StringLower(container any, key any, def string) string {
	v, ok := Value(container, key)
	if !ok {
		return def
	}
	s, ok := toString(v)
	if !ok {
		return def
	}
	return strings.ToLower(s)
}

// Integer returns the value under key as an int64. Fractional numbers are
// truncated toward zero.
func Integer(container any, key any, def int64) int64 {
	v, ok := Value(container, key)
	if !ok {
		return def
	}
	i, ok := toInt(v)
	if !ok {
		return def
	}
	return i
}

// Decimal returns the value under key as a new decimal, or nil.
func Decimal(container any, key any) *apd.Decimal {
	v, ok := Value(container, key)
	if !ok {
		return nil
	}
	return toDecimal(v)
}

// DecimalOr is Decimal falling back to parsing def.
func DecimalOr(container any, key any, def string) *apd.Decimal {
	if d := Decimal(container, key); d != nil {
		return d
	}
	return toDecimal(def)
}

// Bool returns the value under key as a bool, or nil when it cannot be
// interpreted. Numbers are true when non-zero. Strings accept "true",
// "false", "1" and "0".
func Bool(container any, key any) *bool {
	v, ok := Value(container, key)
	if !ok {
		return nil
	}
	return toBool(v)
}

// Map returns the object under key, or nil.
func Map(container any, key any) map[string]any {
	v, ok := Value(container, key)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// Slice returns the array under key, or nil.
func Slice(container any, key any) []any {
	v, ok := Value(container, key)
	if !ok {
		return nil
	}
	s, _ := v.([]any)
	return s
}

// Timestamp reads epoch seconds under key and returns epoch milliseconds.
func Timestamp(container any, key any) (int64, bool) {
	v, ok := Value(container, key)
	if !ok {
		return 0, false
	}
	d := toDecimal(v)
	if d == nil {
		return 0, false
	}
	var ms apd.Decimal
	if _, err := truncCtx.Mul(&ms, d, thousand); err != nil {
		return 0, false
	}
	if _, err := truncCtx.RoundToIntegralValue(&ms, &ms); err != nil {
		return 0, false
	}
	i, err := ms.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

// ISO8601 renders epoch milliseconds as a UTC timestamp with millisecond
// precision. Non-positive input renders as "".
func ISO8601(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

var thousand = apd.New(1000, 0)

var truncCtx = func() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundDown
	return ctx
}()

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	case json.Number, string:
		s, _ := toString(x)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		d := toDecimal(s)
		if d == nil {
			return 0, false
		}
		var truncated apd.Decimal
		if _, err := truncCtx.RoundToIntegralValue(&truncated, d); err != nil {
			return 0, false
		}
		i, err := truncated.Int64()
		return i, err == nil
	}
	return 0, false
}

func toDecimal(v any) *apd.Decimal {
	var s string
	switch x := v.(type) {
	case nil, bool:
		return nil
	case string:
		s = strings.TrimSpace(x)
	default:
		var ok bool
		if s, ok = toString(x); !ok {
			return nil
		}
	}
	if s == "" {
		return nil
	}
	d, _, err := apd.NewFromString(s)
	if err != nil || d.Form != apd.Finite {
		return nil
	}
	return d
}

func toBool(v any) *bool {
	var b bool
	switch x := v.(type) {
	case bool:
		b = x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1":
			b = true
		case "false", "0":
			b = false
		default:
			return nil
		}
	case nil:
		return nil
	default:
		d := toDecimal(x)
		if d == nil {
			return nil
		}
		b = !d.IsZero()
	}
	return &b
}
