package market

import (
	"sort"
	"strings"
)

// Definition names the symbols a market is evaluated against
type Definition struct {
	Code                string
	Benchmark           string  // regime detection and P&L reference
	Volatility          string  // volatility index
	Growth              string  // growth proxy used for breadth and dispersion
	Rates               string  // rates series used for liquidity
	VolatilityThreshold float64 // regime is not BULLISH at or above this level

	// Upstream tickers keyed by local symbol
	Tickers map[string]string
}

var definitions = map[string]Definition{
	"US": {
		Code:                "US",
		Benchmark:           "SPY",
		Volatility:          "VIX",
		Growth:              "QQQ",
		Rates:               "^TNX",
		VolatilityThreshold: 25,
		Tickers: map[string]string{
			"SPY":  "SPY.US",
			"VIX":  "VIX.INDX",
			"QQQ":  "QQQ.US",
			"^TNX": "TNX.INDX",
		},
	},
	"INDIA": {
		Code:                "INDIA",
		Benchmark:           "NIFTY50",
		Volatility:          "INDIAVIX",
		Growth:              "BANKNIFTY",
		Rates:               "IN10Y",
		VolatilityThreshold: 20,
		Tickers: map[string]string{
			"NIFTY50":   "NSEI.INDX",
			"INDIAVIX":  "INDIAVIX.INDX",
			"BANKNIFTY": "NSEBANK.INDX",
			"IN10Y":     "IN10Y.GBOND",
		},
	},
}

// Lookup returns the definition for a market code (case-insensitive)
func Lookup(code string) (Definition, bool) {
	def, ok := definitions[strings.ToUpper(strings.TrimSpace(code))]
	return def, ok
}

// Codes returns the known market codes, sorted
func Codes() []string {
	codes := make([]string, 0, len(definitions))
	for code := range definitions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Required returns the symbols a window must have to be viable
func (d Definition) Required() []string {
	return []string{d.Benchmark, d.Volatility, d.Growth}
}

// Symbols returns every symbol of the market, required ones first
func (d Definition) Symbols() []string {
	return append(d.Required(), d.Rates)
}

// Ticker returns the upstream ticker for a local symbol
func (d Definition) Ticker(symbol string) string {
	if t, ok := d.Tickers[symbol]; ok {
		return t
	}
	return symbol
}
