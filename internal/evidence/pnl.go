package evidence

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/market"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/signals"
)

// PaperNotional is the simulated capital behind an eligible strategy
var PaperNotional = decimal.NewFromInt(100000)

var pnlHeader = []string{"strategy_id", "total_pnl", "sharpe", "max_drawdown", "trades", "regime"}

// PaperResult is the simulated outcome of holding the benchmark across a
// window
type PaperResult struct {
	StrategyID  string
	TotalPnL    decimal.Decimal
	Sharpe      float64
	MaxDrawdown float64
	Trades      int
}

// weight is the share of notional a verdict commits
func weight(status models.EligibilityStatus) decimal.Decimal {
	switch status {
	case models.StatusEligible:
		return decimal.NewFromInt(1)
	case models.StatusConditional:
		return decimal.NewFromFloat(0.5)
	default:
		return decimal.Zero
	}
}

// SimulateHold buys capital worth of the benchmark at the first close and
// marks it at every following close. A non-positive close cannot be marked
// and fails the simulation.
func SimulateHold(strategyID string, capital decimal.Decimal, bars []market.Bar) (PaperResult, error) {
	res := PaperResult{StrategyID: strategyID, TotalPnL: decimal.Zero}
	if capital.IsZero() || len(bars) < 2 {
		return res, nil
	}
	for _, bar := range bars {
		if bar.Close <= 0 {
			return res, fmt.Errorf("benchmark close %v on %s is not positive", bar.Close, bar.Date.Format("2006-01-02"))
		}
	}

	units := capital.Div(decimal.NewFromFloat(bars[0].Close))
	prev := capital
	peak := capital
	daily := make([]float64, 0, len(bars)-1)
	for _, bar := range bars[1:] {
		equity := units.Mul(decimal.NewFromFloat(bar.Close))
		daily = append(daily, equity.Sub(prev).Div(prev).InexactFloat64())
		if equity.GreaterThan(peak) {
			peak = equity
		}
		dd := peak.Sub(equity).Div(peak).InexactFloat64()
		if dd > res.MaxDrawdown {
			res.MaxDrawdown = dd
		}
		prev = equity
	}

	res.TotalPnL = prev.Sub(capital).Round(2)
	if sd := signals.StdDev(daily); sd > 0 {
		res.Sharpe = signals.Round(signals.Mean(daily)/sd*math.Sqrt(signals.TradingDays), 3)
	}
	res.MaxDrawdown = signals.Round(res.MaxDrawdown, 4)
	res.Trades = 2
	return res, nil
}

// WritePaperPnL writes the simulated P&L of every strategy. Blocked
// strategies hold nothing and report zeros.
func WritePaperPnL(dir string, in Inputs) error {
	rows := make([][]string, 0, len(in.Resolution.Strategies))
	for _, s := range in.Resolution.Strategies {
		r, err := SimulateHold(s.StrategyID, PaperNotional.Mul(weight(s.EligibilityStatus)), in.Benchmark)
		if err != nil {
			return fmt.Errorf("paper P&L for %s: %w", s.StrategyID, err)
		}
		rows = append(rows, []string{
			s.StrategyID,
			r.TotalPnL.StringFixed(2),
			strconv.FormatFloat(r.Sharpe, 'f', 3, 64),
			strconv.FormatFloat(r.MaxDrawdown, 'f', 4, 64),
			strconv.Itoa(r.Trades),
			in.Regime.RegimeLabel,
		})
	}
	return writeCSV(filepath.Join(dir, artifacts.PaperPnLSummary), pnlHeader, rows)
}
