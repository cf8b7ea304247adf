package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNotInBuildInfo is returned when a contract was not compiled in the
// given build-info file.
var ErrNotInBuildInfo = errors.New("contract not found in build info")

// BuildInfo is the subset of a Hardhat build-info file needed to verify
// sources: the exact compiler and the standard JSON input.
type BuildInfo struct {
	SolcLongVersion string
	Input           json.RawMessage
	// contracts maps source name to the contract names it defines.
	contracts map[string]map[string]struct{}
}

// LoadBuildInfo reads artifacts/build-info/<hash>.json.
func LoadBuildInfo(path string) (*BuildInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read build info: %w", err)
	}
	var raw struct {
		SolcLongVersion string          `json:"solcLongVersion"`
		Input           json.RawMessage `json:"input"`
		Output          struct {
			Contracts map[string]map[string]json.RawMessage `json:"contracts"`
		} `json:"output"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid build info JSON: %w", err)
	}
	if raw.SolcLongVersion == "" || len(raw.Input) == 0 {
		return nil, fmt.Errorf("build info has no compiler version or input: %s", path)
	}
	bi := &BuildInfo{
		SolcLongVersion: raw.SolcLongVersion,
		Input:           raw.Input,
		contracts:       make(map[string]map[string]struct{}),
	}
	for source, names := range raw.Output.Contracts {
		set := make(map[string]struct{}, len(names))
		for name := range names {
			set[name] = struct{}{}
		}
		bi.contracts[source] = set
	}
	return bi, nil
}

// FindBuildInfo returns the build-info file in dir that compiled every one
// of the qualified names ("source:Contract").
func FindBuildInfo(dir string, qualified ...string) (*BuildInfo, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		bi, err := LoadBuildInfo(m)
		if err != nil {
			continue
		}
		all := true
		for _, q := range qualified {
			if !bi.Has(q) {
				all = false
				break
			}
		}
		if all {
			return bi, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrNotInBuildInfo, strings.Join(qualified, ", "), dir)
}

// Has reports whether qualified ("source:Contract") was compiled.
func (b *BuildInfo) Has(qualified string) bool {
	source, name, ok := strings.Cut(qualified, ":")
	if !ok {
		return false
	}
	_, found := b.contracts[source][name]
	return found
}

// Request builds the explorer verification request for a deployed contract.
func (b *BuildInfo) Request(addr common.Address, qualified, ctorArgs string) (chain.VerifyRequest, error) {
	if !b.Has(qualified) {
		return chain.VerifyRequest{}, fmt.Errorf("%w: %s", ErrNotInBuildInfo, qualified)
	}
	return chain.VerifyRequest{
		Address:           addr,
		ContractName:      qualified,
		CompilerVersion:   "v" + strings.TrimPrefix(b.SolcLongVersion, "v"),
		StandardJSONInput: string(b.Input),
		ConstructorArgs:   ctorArgs,
	}, nil
}
