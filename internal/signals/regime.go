package signals

import (
	"fmt"

	"github.com/ternarybob/evharness/internal/models"
)

// Regime thresholds
const (
	RegimeMinObservations = 50
	TrendPeriod           = 50
	LongTrendPeriod       = 200
	RealizedVolPeriod     = 20
)

// RegimeSignal is the outcome of trend/volatility regime classification
type RegimeSignal struct {
	Code         string
	Observations int
	Close        float64
	SMA50        float64
	SMA200       float64
	Reason       string
}

// RegimeClassifier classifies a benchmark close series into a market regime
type RegimeClassifier struct {
	MinObservations int
}

// NewRegimeClassifier creates a new regime classifier
func NewRegimeClassifier(minObservations int) *RegimeClassifier {
	if minObservations < TrendPeriod {
		minObservations = TrendPeriod
	}
	return &RegimeClassifier{MinObservations: minObservations}
}

// Classify determines the regime from closes ending at the evaluation date.
// volLevel is compared against threshold; BULLISH needs both an uptrend and a
// calm tape, BEARISH needs a long history below the 200-period average.
func (c *RegimeClassifier) Classify(closes []float64, volLevel, threshold float64) RegimeSignal {
	sig := RegimeSignal{Observations: len(closes)}

	if len(closes) < c.MinObservations {
		sig.Code = models.RegimeUnknown
		sig.Reason = fmt.Sprintf("insufficient history: %d observations, %d required", len(closes), c.MinObservations)
		return sig
	}

	sig.Close = closes[len(closes)-1]
	sig.SMA50 = SMA(closes, TrendPeriod)
	if sig.Close <= 0 || sig.SMA50 <= 0 {
		sig.Code = models.RegimeUnknown
		sig.Reason = "non-positive price data"
		return sig
	}
	hasLong := len(closes) >= LongTrendPeriod
	if hasLong {
		sig.SMA200 = SMA(closes, LongTrendPeriod)
	}

	switch {
	case sig.Close > sig.SMA50 && volLevel < threshold:
		sig.Code = models.RegimeBullish
		sig.Reason = fmt.Sprintf("close %.2f above SMA50 %.2f with volatility %.2f below %.2f",
			sig.Close, sig.SMA50, volLevel, threshold)
	case hasLong && sig.Close < sig.SMA200:
		sig.Code = models.RegimeBearish
		sig.Reason = fmt.Sprintf("close %.2f below SMA200 %.2f", sig.Close, sig.SMA200)
	default:
		sig.Code = models.RegimeNeutral
		sig.Reason = "no trend condition met"
	}
	return sig
}
