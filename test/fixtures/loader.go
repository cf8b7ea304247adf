package fixtures

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixturesDir returns the absolute path to the fixtures directory.
func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// Agent is one registry entry as stored in agents.json.
type Agent struct {
	Creator      string `json:"creator"`
	Name         string `json:"name"`
	StrategyHash string `json:"strategy_hash"`
	ReturnBP     int64  `json:"return_bp"`
	Copiers      int64  `json:"copiers"`
	CreatedAt    int64  `json:"created_at"`
}

// LoadAgents loads the sample registry contents, in registration order.
func LoadAgents(t *testing.T) []Agent {
	t.Helper()
	var agents []Agent
	loadJSON(t, "agents.json", &agents)
	return agents
}

// LoadRPCResponse loads a fixture mapping JSON-RPC methods to results.
func LoadRPCResponse(t *testing.T, filename string) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	loadJSON(t, filepath.Join("rpc", filename), &resp)
	return resp
}

func loadJSON(t *testing.T, name string, v interface{}) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fixturesDir(), name))
	require.NoError(t, err, "failed to load fixture: %s", name)
	require.NoError(t, json.Unmarshal(data, v), "invalid fixture: %s", name)
}
