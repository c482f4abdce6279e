package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrSeriesNotFound is returned when a symbol has no file in the series store
var ErrSeriesNotFound = errors.New("series not found")

const dateLayout = "2006-01-02"

// CSVHeader is the column layout written by the ingest sink
var CSVHeader = []string{"date", "open", "high", "low", "close", "volume"}

// FileName maps a symbol to its file name; index prefixes such as "^" are dropped
func FileName(symbol string) string {
	name := strings.TrimLeft(strings.ToUpper(symbol), "^")
	name = strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name)
	return name + ".csv"
}

// ReadCSV parses a date/close series. Columns are located by header name;
// "adjusted_close" is preferred over "close" when both are present. Rows are
// sorted by date and duplicate dates keep the last row.
func ReadCSV(r io.Reader, symbol string) (Series, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Series{}, fmt.Errorf("%s: failed to read header: %w", symbol, err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		return Series{}, fmt.Errorf("%s: missing date column", symbol)
	}
	closeCol, ok := cols["adjusted_close"]
	if !ok {
		if closeCol, ok = cols["close"]; !ok {
			return Series{}, fmt.Errorf("%s: missing close column", symbol)
		}
	}

	byDate := map[time.Time]Bar{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return Series{}, fmt.Errorf("%s: line %d: %w", symbol, line, err)
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(record[dateCol]))
		if err != nil {
			return Series{}, fmt.Errorf("%s: line %d: invalid date %q", symbol, line, record[dateCol])
		}
		closeValue, err := parseFloat(record, closeCol)
		if err != nil || closeValue == nil {
			// blank closes are holidays in some upstream exports
			continue
		}

		bar := Bar{Date: date, Close: *closeValue}
		bar.Open = valueOr(record, cols, "open", bar.Close)
		bar.High = valueOr(record, cols, "high", bar.Close)
		bar.Low = valueOr(record, cols, "low", bar.Close)
		bar.Volume = valueOr(record, cols, "volume", 0)
		byDate[date] = bar
	}

	bars := make([]Bar, 0, len(byDate))
	for _, bar := range byDate {
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return Series{Symbol: symbol, Bars: bars}, nil
}

// LoadCSV reads a series file
func LoadCSV(path, symbol string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Series{}, fmt.Errorf("%w: %s (%s)", ErrSeriesNotFound, symbol, path)
		}
		return Series{}, fmt.Errorf("failed to open series %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, symbol)
}

// WriteCSV writes a series in the CSVHeader layout
func WriteCSV(w io.Writer, series Series) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return err
	}
	for _, b := range series.Bars {
		record := []string{
			b.Date.Format(dateLayout),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseFloat(record []string, col int) (*float64, error) {
	if col >= len(record) {
		return nil, nil
	}
	raw := strings.TrimSpace(record[col])
	if raw == "" || strings.EqualFold(raw, "null") || strings.EqualFold(raw, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func valueOr(record []string, cols map[string]int, name string, fallback float64) float64 {
	col, ok := cols[name]
	if !ok {
		return fallback
	}
	v, err := parseFloat(record, col)
	if err != nil || v == nil {
		return fallback
	}
	return *v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
