// Package strategy backtests the trading strategies agents advertise. It
// runs on synthetic prices so that a seed reproduces a result exactly.
package strategy

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Kind names a strategy. The values match the tags used on-chain.
type Kind string

const (
	SMACrossover  Kind = "sma_crossover"
	RSI           Kind = "rsi"
	MACD          Kind = "macd"
	MeanReversion Kind = "mean_reversion"
)

// ErrUnknownKind is returned for a strategy tag that is not supported.
var ErrUnknownKind = errors.New("unknown strategy")

// Kinds lists every supported strategy.
func Kinds() []Kind { return []Kind{SMACrossover, RSI, MACD, MeanReversion} }

// ParseKind accepts a strategy tag in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Params holds the knobs of every strategy; each strategy reads only its own.
type Params struct {
	ShortWindow int     `json:"short_window,omitempty" yaml:"short_window,omitempty"`
	LongWindow  int     `json:"long_window,omitempty" yaml:"long_window,omitempty"`
	RSIPeriod   int     `json:"rsi_period,omitempty" yaml:"rsi_period,omitempty"`
	Oversold    float64 `json:"oversold,omitempty" yaml:"oversold,omitempty"`
	Overbought  float64 `json:"overbought,omitempty" yaml:"overbought,omitempty"`
	Fast        int     `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow        int     `json:"slow,omitempty" yaml:"slow,omitempty"`
	Signal      int     `json:"signal,omitempty" yaml:"signal,omitempty"`
	Window      int     `json:"window,omitempty" yaml:"window,omitempty"`
	ZScore      float64 `json:"z_score,omitempty" yaml:"z_score,omitempty"`
}

// DefaultParams returns the standard parameters for k.
func DefaultParams(k Kind) Params {
	switch k {
	case SMACrossover:
		return Params{ShortWindow: 10, LongWindow: 50}
	case RSI:
		return Params{RSIPeriod: 14, Oversold: 30, Overbought: 70}
	case MACD:
		return Params{Fast: 12, Slow: 26, Signal: 9}
	case MeanReversion:
		return Params{Window: 20, ZScore: 2}
	}
	return Params{}
}

// Validate checks the parameters k uses.
func (p Params) Validate(k Kind) error {
	switch k {
	case SMACrossover:
		if p.ShortWindow < 1 || p.LongWindow <= p.ShortWindow {
			return fmt.Errorf("sma windows must satisfy 0 < short < long, got %d/%d", p.ShortWindow, p.LongWindow)
		}
	case RSI:
		if p.RSIPeriod < 1 {
			return fmt.Errorf("rsi period must be positive, got %d", p.RSIPeriod)
		}
		if p.Oversold <= 0 || p.Overbought >= 100 || p.Oversold >= p.Overbought {
			return fmt.Errorf("rsi thresholds must satisfy 0 < oversold < overbought < 100, got %g/%g", p.Oversold, p.Overbought)
		}
	case MACD:
		if p.Fast < 1 || p.Slow <= p.Fast || p.Signal < 1 {
			return fmt.Errorf("macd periods must satisfy 0 < fast < slow and signal > 0, got %d/%d/%d", p.Fast, p.Slow, p.Signal)
		}
	case MeanReversion:
		if p.Window < 2 || p.ZScore <= 0 {
			return fmt.Errorf("mean reversion needs window >= 2 and z > 0, got %d/%g", p.Window, p.ZScore)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return nil
}

// Label is a short human name such as "SMA Bot (10/50)".
func Label(k Kind, p Params) string {
	switch k {
	case SMACrossover:
		return fmt.Sprintf("SMA Bot (%d/%d)", p.ShortWindow, p.LongWindow)
	case RSI:
		return fmt.Sprintf("RSI Bot (%d/%g/%g)", p.RSIPeriod, p.Oversold, p.Overbought)
	case MACD:
		return fmt.Sprintf("MACD Bot (%d/%d/%d)", p.Fast, p.Slow, p.Signal)
	case MeanReversion:
		return fmt.Sprintf("Mean Reversion Bot (%d/%g)", p.Window, p.ZScore)
	}
	return string(k)
}

// Fingerprint is the first 8 bytes of keccak256 over the strategy and its
// parameters, hex encoded. Equal configurations share a fingerprint.
func Fingerprint(k Kind, p Params) string {
	data, _ := json.Marshal(struct {
		Strategy Kind   `json:"strategy"`
		Params   Params `json:"params"`
	}{k, p})
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// Signals computes the position signal per bar: 1 buy, -1 sell, 0 hold.
func Signals(k Kind, p Params, closes []float64) ([]int, error) {
	if err := p.Validate(k); err != nil {
		return nil, err
	}
	switch k {
	case SMACrossover:
		return smaSignals(closes, p.ShortWindow, p.LongWindow), nil
	case RSI:
		return rsiSignals(closes, p.RSIPeriod, p.Oversold, p.Overbought), nil
	case MACD:
		return macdSignals(closes, p.Fast, p.Slow, p.Signal), nil
	default:
		return meanReversionSignals(closes, p.Window, p.ZScore), nil
	}
}

// Variant is one strategy configuration to simulate.
type Variant struct {
	Name     string
	Strategy Kind
	Params   Params
}

// DefaultVariants is the standard field of competing agents.
func DefaultVariants() []Variant {
	var out []Variant
	for _, w := range [][2]int{{5, 20}, {10, 50}, {20, 100}} {
		p := Params{ShortWindow: w[0], LongWindow: w[1]}
		out = append(out, Variant{Name: Label(SMACrossover, p), Strategy: SMACrossover, Params: p})
	}
	for _, r := range []Params{
		{RSIPeriod: 14, Oversold: 30, Overbought: 70},
		{RSIPeriod: 21, Oversold: 25, Overbought: 75},
	} {
		out = append(out, Variant{Name: Label(RSI, r), Strategy: RSI, Params: r})
	}
	for _, k := range []Kind{MACD, MeanReversion} {
		p := DefaultParams(k)
		out = append(out, Variant{Name: Label(k, p), Strategy: k, Params: p})
	}
	return out
}

// Rank orders results by total return, best first. Ties keep input order.
func Rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Performance.TotalReturn > results[j].Performance.TotalReturn
	})
}
