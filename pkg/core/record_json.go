package core

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

var decimalPtrType = reflect.TypeFor[*apd.Decimal]()

// marshalRecord encodes the exported fields of the struct v in declaration
// order under their json names. *apd.Decimal fields render in plain
// notation; every other field goes through JSON.
func marshalRecord(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	rt := rv.Type()

	buf := []byte{'{'}
	n := 0
	for i := range rt.NumField() {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		var value []byte
		if f.Type == decimalPtrType {
			value = plainDecimalJSON(rv.Field(i).Interface().(*apd.Decimal))
		} else {
			var err error
			if value, err = JSON.Marshal(rv.Field(i).Interface()); err != nil {
				return nil, fmt.Errorf("marshal %s.%s: %w", rt.Name(), f.Name, err)
			}
		}

		if n > 0 {
			buf = append(buf, ',')
		}
		n++
		buf = strconv.AppendQuote(buf, name)
		buf = append(buf, ':')
		buf = append(buf, value...)
	}
	return append(buf, '}'), nil
}

func plainDecimalJSON(d *apd.Decimal) []byte {
	if d == nil {
		return []byte("null")
	}
	return strconv.AppendQuote(nil, d.Text('f'))
}

// MarshalJSON implements json.Marshaler for MinMax.
func (m MinMax) MarshalJSON() ([]byte, error) { return marshalRecord(m) }

// MarshalJSON implements json.Marshaler for Currency.
func (c Currency) MarshalJSON() ([]byte, error) { return marshalRecord(c) }

// MarshalJSON implements json.Marshaler for Ticker.
func (t Ticker) MarshalJSON() ([]byte, error) { return marshalRecord(t) }

// MarshalJSON implements json.Marshaler for Fee.
func (f Fee) MarshalJSON() ([]byte, error) { return marshalRecord(f) }

// MarshalJSON implements json.Marshaler for Trade.
func (t Trade) MarshalJSON() ([]byte, error) { return marshalRecord(t) }

// MarshalJSON implements json.Marshaler for Account.
func (a Account) MarshalJSON() ([]byte, error) { return marshalRecord(a) }

// MarshalJSON implements json.Marshaler for Order.
func (o Order) MarshalJSON() ([]byte, error) { return marshalRecord(o) }

// MarshalJSON implements json.Marshaler for OrderBookLevel.
func (l OrderBookLevel) MarshalJSON() ([]byte, error) { return marshalRecord(l) }

// MarshalJSON implements json.Marshaler for Withdrawal.
func (w Withdrawal) MarshalJSON() ([]byte, error) { return marshalRecord(w) }
