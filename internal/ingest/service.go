package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/interfaces"
	"github.com/ternarybob/evharness/internal/market"
)

// Store locates series files and drops cached copies after a write
type Store interface {
	Path(marketCode, symbol string) string
	Invalidate()
}

// Result summarises the download of one symbol
type Result struct {
	Symbol string
	Ticker string
	Added  int
	Last   time.Time
	Err    error
}

// Service downloads series for a market and merges them into the store.
// Progress is kept as KV cursors "ingest:<MARKET>:<SYMBOL>" holding the last
// stored bar date, so that later runs only request newer bars.
type Service struct {
	client       *Client
	store        Store
	kv           interfaces.KeyValueStorage // optional
	lookbackDays int
	logger       arbor.ILogger
	now          func() time.Time
}

// NewService creates an ingest service. kv may be nil, in which case every
// run requests the full lookback.
func NewService(client *Client, store Store, kv interfaces.KeyValueStorage, lookbackDays int, logger arbor.ILogger) *Service {
	if lookbackDays <= 0 {
		lookbackDays = 730
	}
	return &Service{
		client:       client,
		store:        store,
		kv:           kv,
		lookbackDays: lookbackDays,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for the lookback window
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CursorKey is the KV key holding the last stored date of a symbol
func CursorKey(marketCode, symbol string) string {
	return fmt.Sprintf("ingest:%s:%s", strings.ToUpper(marketCode), strings.ToUpper(symbol))
}

// IngestMarket downloads symbols (default: every symbol of the market).
// Failed symbols do not stop the others; their errors are joined.
func (s *Service) IngestMarket(ctx context.Context, marketCode string, symbols []string) error {
	results, err := s.Ingest(ctx, marketCode, symbols)
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Symbol, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Ingest downloads and stores each symbol and reports per-symbol results
func (s *Service) Ingest(ctx context.Context, marketCode string, symbols []string) ([]Result, error) {
	def, ok := market.Lookup(marketCode)
	if !ok {
		return nil, fmt.Errorf("unknown market %s (known: %s)", marketCode, strings.Join(market.Codes(), ", "))
	}
	if len(symbols) == 0 {
		symbols = def.Symbols()
	}

	results := make([]Result, 0, len(symbols))
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r := s.ingestSymbol(ctx, def, symbol)
		if r.Err != nil {
			s.logger.Warn().Err(r.Err).Str("symbol", symbol).Str("ticker", r.Ticker).Msg("Ingest failed")
		} else {
			s.logger.Info().Str("symbol", symbol).Int("added", r.Added).Msg("Series ingested")
		}
		results = append(results, r)
	}

	s.store.Invalidate()
	return results, nil
}

func (s *Service) ingestSymbol(ctx context.Context, def market.Definition, symbol string) Result {
	r := Result{Symbol: symbol, Ticker: def.Ticker(symbol)}
	path := s.store.Path(def.Code, symbol)

	existing, err := market.LoadCSV(path, symbol)
	if err != nil && !errors.Is(err, market.ErrSeriesNotFound) {
		r.Err = err
		return r
	}

	to := s.now().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -s.lookbackDays)
	if cursor, ok := s.cursor(ctx, def.Code, symbol); ok && !existing.Empty() {
		from = cursor.AddDate(0, 0, 1)
	}
	if from.After(to) {
		r.Last, _ = lastDate(existing)
		return r
	}

	bars, err := s.client.GetEOD(ctx, r.Ticker, from, to)
	if err != nil {
		r.Err = err
		return r
	}

	merged, added := merge(symbol, existing, bars)
	r.Added = added
	var buf bytes.Buffer
	if err := market.WriteCSV(&buf, merged); err != nil {
		r.Err = err
		return r
	}
	if err := artifacts.Write(path, buf.Bytes()); err != nil {
		r.Err = err
		return r
	}

	last, ok := lastDate(merged)
	if !ok {
		return r
	}
	r.Last = last
	if s.kv != nil {
		if err := s.kv.Set(ctx, CursorKey(def.Code, symbol), last.Format(dateLayout), "last ingested bar of "+symbol); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to store ingest cursor")
		}
	}
	return r
}

func (s *Service) cursor(ctx context.Context, marketCode, symbol string) (time.Time, bool) {
	if s.kv == nil {
		return time.Time{}, false
	}
	value, err := s.kv.Get(ctx, CursorKey(marketCode, symbol))
	if err != nil {
		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read ingest cursor")
		}
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// merge overlays downloaded bars on the existing series; downloaded bars win
// on equal dates. The adjusted close is stored as the close when present.
func merge(symbol string, existing market.Series, bars []EODBar) (market.Series, int) {
	byDate := make(map[time.Time]market.Bar, len(existing.Bars)+len(bars))
	for _, b := range existing.Bars {
		byDate[b.Date] = b
	}

	added := 0
	for _, b := range bars {
		closeValue := b.Close
		if b.AdjustedClose > 0 {
			closeValue = b.AdjustedClose
		}
		if _, ok := byDate[b.Date]; !ok {
			added++
		}
		byDate[b.Date] = market.Bar{
			Date:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  closeValue,
			Volume: b.Volume,
		}
	}

	out := market.Series{Symbol: symbol, Bars: make([]market.Bar, 0, len(byDate))}
	for _, b := range byDate {
		out.Bars = append(out.Bars, b)
	}
	sort.Slice(out.Bars, func(i, j int) bool { return out.Bars[i].Date.Before(out.Bars[j].Date) })
	return out, added
}

func lastDate(s market.Series) (time.Time, bool) {
	b, ok := s.Last()
	if !ok {
		return time.Time{}, false
	}
	return b.Date, true
}
