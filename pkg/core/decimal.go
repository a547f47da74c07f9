package core

import (
	"github.com/cockroachdb/apd/v3"
)

var decimalCtx = func() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp
	return ctx
}()

// ParseDecimal parses s into a new decimal.
func ParseDecimal(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// MustDecimal is ParseDecimal for constants and tests.
func MustDecimal(s string) *apd.Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FormatDecimal renders d in plain notation. Nil renders as "".
func FormatDecimal(d *apd.Decimal) string {
	if d == nil {
		return ""
	}
	return d.Text('f')
}

// AddDecimals returns a+b, or nil if either operand is nil.
func AddDecimals(a, b *apd.Decimal) *apd.Decimal {
	if a == nil || b == nil {
		return nil
	}
	var res apd.Decimal
	if _, err := decimalCtx.Add(&res, a, b); err != nil {
		return nil
	}
	return &res
}

// RoundDecimal rounds d half-up to the given number of decimal places and
// drops trailing zeros.
func RoundDecimal(d *apd.Decimal, places int32) (*apd.Decimal, error) {
	if d == nil {
		return nil, nil
	}
	var res apd.Decimal
	if _, err := decimalCtx.Quantize(&res, d, -places); err != nil {
		return nil, err
	}
	if !res.IsZero() {
		if _, _, err := decimalCtx.Reduce(&res, &res); err != nil {
			return nil, err
		}
	}
	return &res, nil
}

func decimalValue(d *apd.Decimal) any {
	if d == nil {
		return nil
	}
	return d.Text('f')
}
