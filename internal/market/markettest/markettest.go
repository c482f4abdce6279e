// Package markettest builds deterministic synthetic series for tests.
package markettest

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/evharness/internal/market"
)

// Day returns a UTC midnight date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Trend builds n daily observations starting at start, compounding by
// dailyPct per day.
func Trend(symbol string, start time.Time, n int, first, dailyPct float64) market.Series {
	bars := make([]market.Bar, n)
	price := first
	for i := 0; i < n; i++ {
		bars[i] = market.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1000,
		}
		price *= 1 + dailyPct/100
	}
	return market.Series{Symbol: symbol, Bars: bars}
}

// Flat builds n observations at a constant level
func Flat(symbol string, start time.Time, n int, level float64) market.Series {
	return Trend(symbol, start, n, level, 0)
}

// Wave builds a trend with a sine oscillation of the given amplitude (percent
// of price) and period (days) laid over it.
func Wave(symbol string, start time.Time, n int, first, dailyPct, amplitudePct float64, period int) market.Series {
	s := Trend(symbol, start, n, first, dailyPct)
	for i := range s.Bars {
		f := 1 + amplitudePct/100*math.Sin(2*math.Pi*float64(i)/float64(period))
		s.Bars[i].Close *= f
		s.Bars[i].Open = s.Bars[i].Close
		s.Bars[i].High = s.Bars[i].Close
		s.Bars[i].Low = s.Bars[i].Close
	}
	return s
}

// WriteStore writes series under root/<market>/<SYMBOL>.csv
func WriteStore(t testing.TB, root, marketCode string, series ...market.Series) {
	t.Helper()
	dir := filepath.Join(root, strings.ToUpper(marketCode))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create series dir: %v", err)
	}
	for _, s := range series {
		f, err := os.Create(filepath.Join(dir, market.FileName(s.Symbol)))
		if err != nil {
			t.Fatalf("failed to create series file: %v", err)
		}
		if err := market.WriteCSV(f, s); err != nil {
			f.Close()
			t.Fatalf("failed to write series %s: %v", s.Symbol, err)
		}
		f.Close()
	}
}

// USStore writes a complete, aligned US market of n observations ending the
// day before start+n.
func USStore(t testing.TB, root string, start time.Time, n int, spyDailyPct, vixLevel float64) {
	t.Helper()
	WriteStore(t, root, "US",
		Trend("SPY", start, n, 400, spyDailyPct),
		Flat("VIX", start, n, vixLevel),
		Trend("QQQ", start, n, 350, spyDailyPct),
		Flat("^TNX", start, n, 4.2),
	)
}
