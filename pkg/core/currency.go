package core

import "strings"

// CommonCurrencies remaps venue-specific legacy codes to unified codes.
// Adapters layer their own overrides on top with MergeCurrencyTables.
var CommonCurrencies = map[string]string{
	"XBT":    "BTC",
	"BCC":    "BCH",
	"BCHABC": "BCH",
	"BCHSV":  "BSV",
	"DRK":    "DASH",
}

// MergeCurrencyTables returns a new table holding base overlaid by overrides.
func MergeCurrencyTables(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// CurrencyCode converts a native currency id into a unified code: the id is
// uppercased and looked up once in table. Lookups never chain, so MGO->WMGO
// does not affect a code that was produced by EMGO->MGO.
func CurrencyCode(id string, table map[string]string) string {
	if id == "" {
		return ""
	}
	code := strings.ToUpper(id)
	if mapped, ok := table[code]; ok {
		return mapped
	}
	return code
}
