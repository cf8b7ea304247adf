package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SampleTrades is how many of the latest trades a summary keeps.
const SampleTrades = 5

// Result is one simulated agent.
type Result struct {
	Name        string      `json:"name" yaml:"name"`
	Fingerprint string      `json:"fingerprint" yaml:"fingerprint"`
	Performance Performance `json:"performance" yaml:"performance"`
	// TradesSample holds the last SampleTrades trades.
	TradesSample []Trade `json:"trades_sample" yaml:"trades_sample"`
}

// Report is the exported outcome of a simulation run.
type Report struct {
	Seed        uint64    `json:"seed" yaml:"seed"`
	Days        int       `json:"days" yaml:"days"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Agents      []Result  `json:"agents" yaml:"agents"`
}

// Best returns the top-ranked agent.
func (r *Report) Best() (Result, bool) {
	if len(r.Agents) == 0 {
		return Result{}, false
	}
	return r.Agents[0], true
}

// Simulator backtests variants on independent synthetic series drawn from
// one seeded generator.
type Simulator struct {
	Seed uint64
	Days int
	// Now anchors the generated dates.
	Now func() time.Time
}

// NewSimulator creates a simulator over DefaultDays.
func NewSimulator(seed uint64) *Simulator {
	return &Simulator{Seed: seed, Days: DefaultDays, Now: time.Now}
}

// Run backtests each variant and returns them ranked by return.
func (s *Simulator) Run(ctx context.Context, variants []Variant) (*Report, error) {
	now := s.Now().UTC()
	rng := NewRand(s.Seed)
	report := &Report{Seed: s.Seed, Days: s.Days, GeneratedAt: now}
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bars := GeneratePrices(rng, s.Days, now)
		perf, trades, err := Backtest(v.Strategy, v.Params, bars)
		if err != nil {
			return nil, fmt.Errorf("simulating %s: %w", v.Name, err)
		}
		name := v.Name
		if name == "" {
			name = Label(v.Strategy, v.Params)
		}
		if len(trades) > SampleTrades {
			trades = trades[len(trades)-SampleTrades:]
		}
		if trades == nil {
			trades = []Trade{}
		}
		report.Agents = append(report.Agents, Result{
			Name:         name,
			Fingerprint:  Fingerprint(v.Strategy, v.Params),
			Performance:  perf,
			TradesSample: trades,
		})
	}
	Rank(report.Agents)
	return report, nil
}

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Encode writes r to w in format f.
func (r *Report) Encode(w io.Writer, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return fmt.Errorf("unsupported format %q", f)
}

// Export writes r to path in the format its extension implies.
func (r *Report) Export(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := r.Encode(f, FormatForPath(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadReport reads a report written by Export.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var r Report
	if FormatForPath(path) == FormatYAML {
		err = yaml.Unmarshal(data, &r)
	} else {
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &r, nil
}

// StrategyHash is the on-chain strategy reference for a simulated agent.
func (r Result) StrategyHash() string {
	return fmt.Sprintf("strategy_%s_%s", r.Performance.Strategy, r.Fingerprint)
}
