package signals

import (
	"fmt"
	"math"
)

// Classifier thresholds
const (
	ShortAverage       = 20
	AccelerationPeriod = 10
	AccelerationBand   = 2.0 // percent
	SpreadPeriod       = 20
	SpreadBand         = 2.0 // percent
	SpreadLookback     = 20
	DispersionWindow   = 20
	RatioExpanding     = 1.2
	RatioContracting   = 0.8
	ShortStateLimit    = 10
	MediumStateLimit   = 40
	IndexScaleFloor    = 20.0
	IndexTight         = 102.0
	IndexLoose         = 98.0
	YieldTight         = 4.0
	YieldLoose         = 2.0

	// below this a dispersion is float noise
	epsilon = 1e-9
)

// Classification is a discrete state with the confidence behind it
type Classification struct {
	State      string
	Confidence float64
	Value      *float64
	Note       string
}

// Unknown is the fail-closed classification
func Unknown(note string) Classification {
	return Classification{State: "unknown", Confidence: 0, Note: note}
}

// Known reports whether a state was observed
func (c Classification) Known() bool {
	return c.State != "unknown" && c.State != ""
}

// Confidence maps how far a reading is past its threshold, measured in
// multiples of band, to [0.5, 0.95]. Readings inside the band score 0.5.
func Confidence(excess, band float64) float64 {
	if band <= 0 || excess <= 0 {
		return 0.5
	}
	return Round(Clamp(0.5+0.5*excess/band, 0.5, 0.95), 3)
}

func valuePtr(v float64, places int) *float64 {
	r := Round(v, places)
	return &r
}

func levelAt(closes []float64) string {
	price := closes[len(closes)-1]
	s20 := SMA(closes, ShortAverage)
	s50 := SMA(closes, TrendPeriod)
	switch {
	case price > s20 && s20 > s50:
		return "strong"
	case price < s20 && s20 < s50:
		return "weak"
	default:
		return "neutral"
	}
}

// MomentumLevel compares price with its 20 and 50 period averages
func MomentumLevel(closes []float64) Classification {
	if len(closes) < TrendPeriod {
		return Unknown("momentum level needs 50 observations")
	}
	state := levelAt(closes)
	s20 := SMA(closes, ShortAverage)
	distance := math.Abs(PctChange(s20, closes[len(closes)-1]))
	conf := 0.5
	if state != "neutral" {
		conf = Confidence(distance, AccelerationBand)
	}
	return Classification{State: state, Confidence: conf, Value: valuePtr(distance, 3)}
}

// MomentumAcceleration classifies the 10-period rate of change
func MomentumAcceleration(closes []float64) Classification {
	if len(closes) < AccelerationPeriod+1 {
		return Unknown("acceleration needs 11 observations")
	}
	roc := ReturnPct(closes, AccelerationPeriod)
	state := "flat"
	switch {
	case roc > AccelerationBand:
		state = "accelerating"
	case roc < -AccelerationBand:
		state = "decelerating"
	}
	return Classification{
		State:      state,
		Confidence: Confidence(math.Abs(roc)-AccelerationBand, AccelerationBand),
		Value:      valuePtr(roc, 3),
	}
}

// TimeInState counts the trailing observations that share today's momentum
// level and buckets the count.
func TimeInState(closes []float64) (Classification, int) {
	if len(closes) < TrendPeriod {
		return Unknown("time in state needs 50 observations"), 0
	}
	current := levelAt(closes)
	count := 0
	for end := len(closes); end >= TrendPeriod; end-- {
		if levelAt(closes[:end]) != current {
			break
		}
		count++
	}

	state := "long"
	switch {
	case count < ShortStateLimit:
		state = "short"
	case count < MediumStateLimit:
		state = "medium"
	}
	v := float64(count)
	return Classification{State: state, Confidence: 0.8, Value: &v}, count
}

// Persistence is persistent when a directional level has held beyond the
// short bucket.
func Persistence(level, timeInState Classification) Classification {
	if !level.Known() || !timeInState.Known() {
		return Unknown("persistence needs level and time in state")
	}
	if level.State != "neutral" && timeInState.State != "short" {
		return Classification{State: "persistent", Confidence: Round(math.Min(level.Confidence+0.1, 0.95), 3)}
	}
	return Classification{State: "intermittent", Confidence: 0.5}
}

// Spread is the growth proxy's 20-period return minus the benchmark's, in
// percent.
func Spread(benchmark, growth []float64) (float64, bool) {
	if len(benchmark) < SpreadPeriod+1 || len(growth) < SpreadPeriod+1 {
		return 0, false
	}
	return ReturnPct(growth, SpreadPeriod) - ReturnPct(benchmark, SpreadPeriod), true
}

// Breadth reads leadership: a benchmark leading its growth proxy is broad
// participation, a growth-led tape is narrow.
func Breadth(benchmark, growth []float64) Classification {
	spread, ok := Spread(benchmark, growth)
	if !ok {
		return Unknown("breadth needs 21 observations of benchmark and growth proxy")
	}
	state := "neutral"
	switch {
	case spread < -SpreadBand:
		state = "broad"
	case spread > SpreadBand:
		state = "narrow"
	}
	return Classification{
		State:      state,
		Confidence: Confidence(math.Abs(spread)-SpreadBand, SpreadBand),
		Value:      valuePtr(spread, 3),
	}
}

// ValueSpread labels which side of the spread leads
func ValueSpread(benchmark, growth []float64) Classification {
	spread, ok := Spread(benchmark, growth)
	if !ok {
		return Unknown("value spread needs 21 observations of benchmark and growth proxy")
	}
	state := "balanced"
	switch {
	case spread > SpreadBand:
		state = "growth_premium"
	case spread < -SpreadBand:
		state = "value_premium"
	}
	return Classification{
		State:      state,
		Confidence: Confidence(math.Abs(spread)-SpreadBand, SpreadBand),
		Value:      valuePtr(spread, 3),
	}
}

// SpreadDispersion compares the absolute spread now with the absolute spread
// 20 observations earlier.
func SpreadDispersion(benchmark, growth []float64) Classification {
	now, ok := Spread(benchmark, growth)
	if !ok || len(benchmark) <= SpreadLookback || len(growth) <= SpreadLookback {
		return Unknown("dispersion needs 41 observations")
	}
	then, ok := Spread(benchmark[:len(benchmark)-SpreadLookback], growth[:len(growth)-SpreadLookback])
	if !ok {
		return Unknown("dispersion needs 41 observations")
	}
	delta := math.Abs(now) - math.Abs(then)
	state := "stable"
	switch {
	case delta > SpreadBand:
		state = "expanding"
	case delta < -SpreadBand:
		state = "contracting"
	}
	return Classification{
		State:      state,
		Confidence: Confidence(math.Abs(delta)-SpreadBand, SpreadBand),
		Value:      valuePtr(delta, 3),
	}
}

// RelativeDispersion compares the volatility of daily relative returns over
// the last 20 observations with the 20 before. Inputs must be date-aligned.
func RelativeDispersion(benchmark, growth []float64) Classification {
	n := len(benchmark)
	if len(growth) < n {
		n = len(growth)
	}
	if n < 2*DispersionWindow+1 {
		return Unknown("relative dispersion needs 41 aligned observations")
	}
	rb := Returns(Tail(benchmark, n))
	rg := Returns(Tail(growth, n))
	rel := make([]float64, len(rb))
	for i := range rb {
		rel[i] = rg[i] - rb[i]
	}
	recent := StdDev(rel[len(rel)-DispersionWindow:])
	prior := StdDev(rel[len(rel)-2*DispersionWindow : len(rel)-DispersionWindow])
	return ratioClassification(recent, prior)
}

// VolatilityRatio is 20-period over 50-period realised volatility
func VolatilityRatio(closes []float64) (float64, bool) {
	if len(closes) < TrendPeriod {
		return 0, false
	}
	long := RealizedVol(closes, TrendPeriod)
	short := RealizedVol(closes, RealizedVolPeriod)
	if long < epsilon {
		return 1, true
	}
	return short / long, true
}

// VolatilityRegime classifies the 20/50 realised volatility ratio
func VolatilityRegime(closes []float64) Classification {
	ratio, ok := VolatilityRatio(closes)
	if !ok {
		return Unknown("volatility regime needs 50 observations")
	}
	c := ratioClassification(ratio, 1)
	c.Value = valuePtr(ratio, 3)
	return c
}

func ratioClassification(num, den float64) Classification {
	if den < epsilon {
		return Classification{State: "stable", Confidence: 0.5, Note: "zero reference dispersion"}
	}
	ratio := num / den
	switch {
	case ratio > RatioExpanding:
		return Classification{State: "expanding", Confidence: Confidence(ratio-RatioExpanding, RatioExpanding-1), Value: valuePtr(ratio, 3)}
	case ratio < RatioContracting:
		return Classification{State: "contracting", Confidence: Confidence(RatioContracting-ratio, 1-RatioContracting), Value: valuePtr(ratio, 3)}
	default:
		return Classification{State: "stable", Confidence: 0.5, Value: valuePtr(ratio, 3)}
	}
}

// VolatilityLevel places a volatility reading against the market threshold
func VolatilityLevel(level, threshold float64) Classification {
	if level <= 0 || threshold <= 0 {
		return Unknown("volatility level unavailable")
	}
	state := "normal"
	conf := 0.5
	switch {
	case level >= threshold:
		state = "elevated"
		conf = Confidence(level-threshold, threshold*0.2)
	case level < threshold*0.6:
		state = "subdued"
		conf = Confidence(threshold*0.6-level, threshold*0.2)
	}
	return Classification{State: state, Confidence: conf, Value: valuePtr(level, 3)}
}

// Liquidity reads the last rates observation. Values above 20 are treated as
// an index level (around 100), lower values as a yield in percent.
func Liquidity(rates []float64) (Classification, string) {
	if len(rates) == 0 {
		return Unknown("rates series unavailable"), ""
	}
	v := rates[len(rates)-1]
	if v > IndexScaleFloor {
		state := "neutral"
		conf := 0.5
		switch {
		case v > IndexTight:
			state = "tight"
			conf = Confidence(v-IndexTight, 2)
		case v < IndexLoose:
			state = "loose"
			conf = Confidence(IndexLoose-v, 2)
		}
		return Classification{State: state, Confidence: conf, Value: valuePtr(v, 3)}, "index"
	}

	state := "neutral"
	conf := 0.5
	switch {
	case v > YieldTight:
		state = "tight"
		conf = Confidence(v-YieldTight, 0.5)
	case v < YieldLoose:
		state = "loose"
		conf = Confidence(YieldLoose-v, 0.5)
	}
	return Classification{State: state, Confidence: conf, Value: valuePtr(v, 3), Note: fmt.Sprintf("yield scale %.2f", v)}, "yield"
}
