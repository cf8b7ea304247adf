// Package rpc chooses which JSON-RPC endpoint of a network to talk to.
package rpc

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest  Algorithm = "fastest"
	AlgorithmFailover Algorithm = "failover"

	// Nodes more than this many blocks behind the best head are skipped.
	staleBlockThreshold = 3
	probeTimeout        = 5 * time.Second
)

// ParseAlgorithm maps a config value to an Algorithm, defaulting to fastest.
func ParseAlgorithm(s string) Algorithm {
	if Algorithm(s) == AlgorithmFailover {
		return AlgorithmFailover
	}
	return AlgorithmFastest
}

// Probe is the outcome of pinging one endpoint.
type Probe struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
}

// Healthy reports whether the endpoint answered.
func (p Probe) Healthy() bool { return p.Err == nil }

// ProbeAll pings every URL in parallel. Results keep the input order.
func ProbeAll(ctx context.Context, urls []string) []Probe {
	out := make([]Probe, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			latency, block, err := chain.NewEVMClient(url).Ping(pctx)
			out[idx] = Probe{URL: url, Latency: latency, BlockNumber: block, Err: err}
		}(i, u)
	}
	wg.Wait()
	return out
}

// Pick chooses an endpoint from probes.
//
// Fastest drops unhealthy and stale nodes and takes the lowest latency.
// Failover takes the first healthy node in configured order.
func Pick(probes []Probe, algo Algorithm) (string, error) {
	var best uint64
	for _, p := range probes {
		if p.Healthy() && p.BlockNumber > best {
			best = p.BlockNumber
		}
	}

	var live []Probe
	for _, p := range probes {
		if !p.Healthy() {
			continue
		}
		if algo == AlgorithmFastest && best-p.BlockNumber > staleBlockThreshold {
			continue
		}
		live = append(live, p)
	}
	if len(live) == 0 {
		return "", ErrNoHealthyRPC
	}
	if algo == AlgorithmFastest {
		sort.SliceStable(live, func(i, j int) bool { return live[i].Latency < live[j].Latency })
	}
	return live[0].URL, nil
}

// Select probes urls and picks one. A single URL is returned unprobed.
func Select(ctx context.Context, urls []string, algo Algorithm) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	return Pick(ProbeAll(ctx, urls), algo)
}
