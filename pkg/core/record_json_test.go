package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecords_MarshalPlainDecimals(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{
			name: "account",
			v:    Account{Free: MustDecimal("3.0741708E-8"), Used: MustDecimal("1e3")},
			want: `{"free":"0.000000030741708","used":"1000","total":null}`,
		},
		{
			name: "order book level",
			v:    OrderBookLevel{Price: MustDecimal("1E-8"), Amount: MustDecimal("2.5E+2")},
			want: `{"price":"0.00000001","amount":"250"}`,
		},
		{
			name: "min max",
			v:    MinMax{Min: MustDecimal("1E-7")},
			want: `{"min":"0.0000001","max":null}`,
		},
		{
			name: "fee",
			v:    Fee{Currency: "BTC", Cost: MustDecimal("7E-4")},
			want: `{"currency":"BTC","cost":"0.0007","rate":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := JSON.Marshal(tt.v)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestRecords_NestedDecimals(t *testing.T) {
	ticker := Ticker{Symbol: "BCH/BTC", Bid: MustDecimal("1E-8"), Last: MustDecimal("1.2E-9")}
	data, err := JSON.Marshal(&ticker)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"bid":"0.00000001"`)
	assert.Contains(t, string(data), `"last":"0.0000000012"`)
	assert.NotContains(t, string(data), "E-")

	market := Market{Symbol: "BCH/BTC", Limits: MarketLimits{Amount: MinMax{Min: MustDecimal("1E-6")}}}
	data, err = JSON.Marshal(market)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"amount":{"min":"0.000001","max":null}`)

	order := Order{ID: "1", Status: StatusOpen, Price: MustDecimal("2E-6"), Fee: &Fee{Cost: MustDecimal("1e-9")}}
	data, err = JSON.Marshal([]Order{order})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price":"0.000002"`)
	assert.Contains(t, string(data), `"cost":"0.000000001"`)
	assert.Contains(t, string(data), `"status":"open"`)
}

func TestBalances_JSONRoundTrip(t *testing.T) {
	balances := NewBalances(map[string]Account{
		"BTC": {Free: MustDecimal("0.0000499885629956"), Used: MustDecimal("0.0")},
		"ETH": {Free: MustDecimal("0.000000030741708"), Used: MustDecimal("1e3")},
	}, 1619436907000, "2021-04-26T11:35:07.000Z", nil)

	data, err := JSON.Marshal(balances)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "E+")
	assert.NotContains(t, string(data), "E-")

	var decoded Balances
	require.NoError(t, JSON.Unmarshal(data, &decoded))
	assert.Equal(t, int64(1619436907000), decoded.Timestamp)

	eth := decoded.Accounts["ETH"]
	assert.Equal(t, "0.000000030741708", FormatDecimal(eth.Free))
	assert.Equal(t, "1000", FormatDecimal(eth.Used))
	assert.Equal(t, "1000.000000030741708", FormatDecimal(eth.Total))
	assert.Equal(t, "0.0000499885629956", FormatDecimal(decoded.Accounts["BTC"].Free))
}
