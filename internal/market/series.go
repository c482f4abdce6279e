package market

import (
	"sort"
	"time"
)

// Bar is one end-of-day observation
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is a date-ascending run of bars for one symbol. Series returned by
// the cache share backing arrays and must be treated as read-only.
type Series struct {
	Symbol string
	Bars   []Bar
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s.Bars)
}

// Empty reports whether the series has no observations
func (s Series) Empty() bool {
	return len(s.Bars) == 0
}

// Last returns the final bar
func (s Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// First returns the first bar
func (s Series) First() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[0], true
}

// Closes returns a fresh slice of closing prices
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Truncate returns the bars dated at or before end. The result is capped so
// that appending to it can never write into the shared array.
func (s Series) Truncate(end time.Time) Series {
	n := sort.Search(len(s.Bars), func(i int) bool {
		return s.Bars[i].Date.After(end)
	})
	return Series{Symbol: s.Symbol, Bars: s.Bars[:n:n]}
}

// Between returns the bars dated within [start, end]
func (s Series) Between(start, end time.Time) Series {
	lo := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Date.Before(start)
	})
	hi := sort.Search(len(s.Bars), func(i int) bool {
		return s.Bars[i].Date.After(end)
	})
	if lo > hi {
		lo = hi
	}
	return Series{Symbol: s.Symbol, Bars: s.Bars[lo:hi:hi]}
}

// Coverage returns the first and last observation dates
func (s Series) Coverage() (time.Time, time.Time, bool) {
	first, ok := s.First()
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	last, _ := s.Last()
	return first.Date, last.Date, true
}
