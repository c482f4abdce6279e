package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ternarybob/evharness/internal/app"
	"github.com/ternarybob/evharness/internal/models"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Download EOD series into the local series store",
	Long: `Downloads end-of-day bars for a market from the EOD provider and merges
them into <series_dir>/<MARKET>/<SYMBOL>.csv. Requires [ingest] api_key or
EVHARNESS_EODHD_API_KEY.`,
	RunE: runIngest,
}

var (
	ingestMarket  string
	ingestSymbols []string
)

func init() {
	ingestCmd.Flags().StringVar(&ingestMarket, "market", "", "Market code (default: [data] default_market)")
	ingestCmd.Flags().StringSliceVar(&ingestSymbols, "symbols", nil, "Symbols to download (default: [ingest] symbols, then every symbol of the market)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if config.Ingest.APIKey == "" {
		return fail(errors.New("no EOD API key configured ([ingest] api_key or EVHARNESS_EODHD_API_KEY)"))
	}

	marketCode := strings.ToUpper(ingestMarket)
	if marketCode == "" {
		marketCode = strings.ToUpper(config.Data.DefaultMarket)
	}
	symbols := ingestSymbols
	if len(symbols) == 0 {
		symbols = config.Ingest.Symbols
	}

	application, err := app.New(config, logger)
	if err != nil {
		return fail(err)
	}
	defer application.Close()

	results, err := application.Ingest.Ingest(cmd.Context(), marketCode, symbols)
	if err != nil {
		return fail(err)
	}

	failed := 0
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "  %-10s %-14s FAILED  %v\n", r.Symbol, r.Ticker, r.Err)
			continue
		}
		last := "-"
		if !r.Last.IsZero() {
			last = r.Last.Format(models.DateLayout)
		}
		fmt.Fprintf(out, "  %-10s %-14s +%d bars, last %s\n", r.Symbol, r.Ticker, r.Added, last)
	}
	if failed > 0 {
		return fail(fmt.Errorf("%d of %d symbols failed", failed, len(results)))
	}
	return nil
}
