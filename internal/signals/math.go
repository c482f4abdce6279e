package signals

import "math"

// TradingDays annualises daily statistics
const TradingDays = 252

// Clamp restricts a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Round rounds to specified decimal places
func Round(value float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(value*mult) / mult
}

// SMA calculates the simple moving average of the last n values
func SMA(values []float64, n int) float64 {
	if len(values) < n || n <= 0 {
		return 0
	}
	sum := 0.0
	for i := len(values) - n; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(n)
}

// Mean calculates the average of all values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev calculates the sample standard deviation
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}

// PctChange calculates the percentage change from old to new
func PctChange(old, newVal float64) float64 {
	if old == 0 {
		return 0
	}
	return ((newVal - old) / old) * 100
}

// ReturnPct calculates the return over the last n observations
func ReturnPct(prices []float64, n int) float64 {
	count := len(prices)
	if count < n+1 || n <= 0 {
		return 0
	}
	return PctChange(prices[count-n-1], prices[count-1])
}

// Returns converts prices to simple daily returns
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, prices[i]/prices[i-1]-1)
	}
	return out
}

// RealizedVol is the annualised standard deviation of the last n daily
// returns, as a fraction. Fewer returns than n use what is available.
func RealizedVol(prices []float64, n int) float64 {
	returns := Returns(prices)
	if len(returns) > n {
		returns = returns[len(returns)-n:]
	}
	if len(returns) < 2 {
		return 0
	}
	return StdDev(returns) * math.Sqrt(TradingDays)
}

// Tail returns the last n values, or all of them when there are fewer
func Tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
