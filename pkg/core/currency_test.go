package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrencyCode(t *testing.T) {
	table := MergeCurrencyTables(CommonCurrencies, map[string]string{
		"DSH":  "DASH",
		"EMGO": "MGO",
		"MGO":  "WMGO",
	})

	tests := []struct {
		id   string
		want string
	}{
		{"btc", "BTC"},
		{"xbt", "BTC"},
		{"DSH", "DASH"},
		{"emgo", "MGO"},
		{"mgo", "WMGO"},
		{"usdt", "USDT"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrencyCode(tt.id, table))
		})
	}
}

func TestMergeCurrencyTables_DoesNotMutateBase(t *testing.T) {
	base := map[string]string{"XBT": "BTC"}
	merged := MergeCurrencyTables(base, map[string]string{"XBT": "XBTC"})

	assert.Equal(t, "XBTC", merged["XBT"])
	assert.Equal(t, "BTC", base["XBT"])
}
