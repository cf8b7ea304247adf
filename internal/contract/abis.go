package contract

import (
	"bytes"
	"embed"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abi/*.json
var abiFiles embed.FS

// Built-in contract IDs.
const (
	AgentRegistryID = "agent_registry"
	CopyTradeID     = "copy_trade"
)

// Builtin describes a contract whose ABI is embedded in the binary.
type Builtin struct {
	ID          string // machine key, e.g. "agent_registry"
	Name        string // artifact name, e.g. "AgentRegistry"
	Description string
	ABI         abi.ABI
}

var builtinRegistry = map[string]Builtin{}

func init() {
	mustRegister(AgentRegistryID, "AgentRegistry", "Registry of AI trading agents and their copiers")
	mustRegister(CopyTradeID, "CopyTradeSimulator", "Simulated trade log for copied agents")
}

func mustRegister(id, name, desc string) {
	data, err := abiFiles.ReadFile("abi/" + name + ".json")
	if err != nil {
		panic(fmt.Sprintf("contract: missing embedded ABI %s: %v", name, err))
	}
	parsed, err := ParseABI(data)
	if err != nil {
		panic(fmt.Sprintf("contract: embedded ABI %s: %v", name, err))
	}
	builtinRegistry[id] = Builtin{ID: id, Name: name, Description: desc, ABI: parsed}
}

// ParseABI parses a raw ABI JSON array.
func ParseABI(data []byte) (abi.ABI, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		return abi.ABI{}, fmt.Errorf("ABI is a JSON object, not an array; Hardhat/Foundry artifacts must be loaded with LoadArtifact")
	}
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("invalid ABI JSON: %w", err)
	}
	return parsed, nil
}

// GetBuiltin returns a built-in by ID. ok is false if not found.
func GetBuiltin(id string) (Builtin, bool) {
	b, ok := builtinRegistry[id]
	return b, ok
}

// MustABI returns the ABI of a registered built-in and panics otherwise.
func MustABI(id string) abi.ABI {
	b, ok := builtinRegistry[id]
	if !ok {
		panic("contract: unknown builtin " + id)
	}
	return b.ABI
}

// AllBuiltins returns all registered built-ins sorted by ID.
func AllBuiltins() []Builtin {
	out := make([]Builtin, 0, len(builtinRegistry))
	for _, b := range builtinRegistry {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
