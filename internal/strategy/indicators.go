package strategy

import "math"

// Rolling windows produce NaN until the window is full. Comparisons against
// NaN are false, so warm-up bars always hold.

func rollingMean(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	nan := 0
	for i, x := range xs {
		if math.IsNaN(x) {
			nan++
		} else {
			sum += x
		}
		if i >= window {
			old := xs[i-window]
			if math.IsNaN(old) {
				nan--
			} else {
				sum -= old
			}
		}
		if i < window-1 || nan > 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

// rollingStd is the sample standard deviation over window.
func rollingStd(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		seg := xs[i-window+1 : i+1]
		mean := 0.0
		for _, x := range seg {
			mean += x
		}
		mean /= float64(window)
		ss := 0.0
		for _, x := range seg {
			ss += (x - mean) * (x - mean)
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

// ema is an exponential moving average with alpha = 2/(span+1), seeded
// with the first value.
func ema(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	alpha := 2 / float64(span+1)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

func smaSignals(closes []float64, short, long int) []int {
	s := rollingMean(closes, short)
	l := rollingMean(closes, long)
	sig := make([]int, len(closes))
	for i := range closes {
		switch {
		case s[i] > l[i]:
			sig[i] = 1
		case s[i] < l[i]:
			sig[i] = -1
		}
	}
	return sig
}

// rsi uses simple rolling means of gains and losses. A window with no
// losses reads 100; a flat window is undefined and holds.
func rsi(closes []float64, period int) []float64 {
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	g := rollingMean(gains, period)
	l := rollingMean(losses, period)
	out := make([]float64, len(closes))
	for i := range closes {
		switch {
		case math.IsNaN(g[i]) || math.IsNaN(l[i]) || (g[i] == 0 && l[i] == 0):
			out[i] = math.NaN()
		case l[i] == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g[i]/l[i])
		}
	}
	return out
}

func rsiSignals(closes []float64, period int, oversold, overbought float64) []int {
	r := rsi(closes, period)
	sig := make([]int, len(closes))
	for i := range closes {
		switch {
		case r[i] < oversold:
			sig[i] = 1
		case r[i] > overbought:
			sig[i] = -1
		}
	}
	return sig
}

// macdSignals is long while the MACD line is above its signal line. Bars
// before the slow average has a full period behind it hold.
func macdSignals(closes []float64, fast, slow, signal int) []int {
	f := ema(closes, fast)
	s := ema(closes, slow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = f[i] - s[i]
	}
	trigger := ema(line, signal)
	sig := make([]int, len(closes))
	for i := slow - 1; i < len(closes); i++ {
		switch {
		case line[i] > trigger[i]:
			sig[i] = 1
		case line[i] < trigger[i]:
			sig[i] = -1
		}
	}
	return sig
}

// meanReversionSignals buys z standard deviations below the rolling mean
// and sells z above it.
func meanReversionSignals(closes []float64, window int, z float64) []int {
	mean := rollingMean(closes, window)
	std := rollingStd(closes, window)
	sig := make([]int, len(closes))
	for i := range closes {
		if math.IsNaN(mean[i]) || std[i] == 0 {
			continue
		}
		score := (closes[i] - mean[i]) / std[i]
		switch {
		case score < -z:
			sig[i] = 1
		case score > z:
			sig[i] = -1
		}
	}
	return sig
}
