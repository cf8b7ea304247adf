package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/copytrader/internal/config"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/Mohsinsiddi/copytrader/internal/strategy"
	"github.com/Mohsinsiddi/copytrader/internal/view"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creator = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

// Field names follow the AgentRegistry.Agent ABI components.
type agentTuple struct {
	Creator           common.Address
	Name              string
	StrategyHash      string
	TwelveMonthReturn *big.Int
	CopierCount       *big.Int
	CreatedAt         *big.Int
}

// fakeNode answers the reads the CLI makes: chain id, block number, code
// and getAllAgents.
func fakeNode(t *testing.T, agents []agentTuple) *httptest.Server {
	t.Helper()
	packed, err := contract.MustABI(contract.AgentRegistryID).Methods["getAllAgents"].Outputs.Pack(agents)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int    `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		switch req.Method {
		case "eth_chainId":
			resp["result"] = "0x7a69"
		case "eth_blockNumber":
			resp["result"] = "0x2a"
		case "eth_getCode":
			resp["result"] = "0x6080"
		case "eth_call":
			resp["result"] = hexutil.Bytes(packed)
		default:
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

// runCLI executes the root command in a fresh config directory and returns
// what it wrote to stdout.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigDir, dir)
	t.Setenv("COPYTRADER_KEYRING_PASSWORD", "test")

	cfgDir, networkFlag, yesFlag, verbose = "", "", true, false
	walletKeyFlag = ""
	agentsOutput, tradesOutput, simOutput = outputTable, outputTable, outputTable
	simOut, simStrategies, simRegister = "", nil, false
	connectOnly = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func TestValidOutput(t *testing.T) {
	for _, f := range []string{outputTable, outputJSON, outputYAML} {
		assert.NoError(t, validOutput(f))
	}
	err := validOutput("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"xml"`)
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, outputYAML, map[string]int{"copiers": 3}))
	assert.Equal(t, "copiers: 3\n", buf.String())
}

func TestEncodeJSONIndented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, outputJSON, map[string]int{"copiers": 3}))
	assert.Equal(t, "{\n  \"copiers\": 3\n}\n", buf.String())
}

func TestParseAgentID(t *testing.T) {
	id, err := parseAgentID("7")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)

	for _, bad := range []string{"-1", "abc", ""} {
		_, err := parseAgentID(bad)
		assert.Error(t, err, bad)
	}
}

func TestStrategyFlagHelpListsTags(t *testing.T) {
	help := strategyFlagHelp()
	assert.Contains(t, help, "sma_crossover")
	assert.Contains(t, help, "mean_reversion")
}

func TestSelectVariants(t *testing.T) {
	all, err := selectVariants(nil)
	require.NoError(t, err)
	assert.Equal(t, strategy.DefaultVariants(), all)

	rsi, err := selectVariants([]string{"RSI"})
	require.NoError(t, err)
	require.NotEmpty(t, rsi)
	for _, v := range rsi {
		assert.Equal(t, strategy.RSI, v.Strategy)
	}

	_, err = selectVariants([]string{"martingale"})
	assert.ErrorIs(t, err, strategy.ErrUnknownKind)
}

func TestDisplayValueMasksExplorerKey(t *testing.T) {
	assert.Equal(t, "****WXYZ", displayValue("explorer_api_key", "ABCDWXYZ"))
	assert.Equal(t, "****", displayValue("explorer_api_key", "abc"))
	assert.Equal(t, "", displayValue("explorer_api_key", ""))
	assert.Equal(t, "localhost", displayValue("default_network", "localhost"))
}

func TestArtifactPathFollowsHardhatLayout(t *testing.T) {
	assert.Equal(t,
		filepath.Join("artifacts", "contracts", "AgentRegistry.sol", "AgentRegistry.json"),
		artifactPath(filepath.Join("artifacts", "contracts"), "AgentRegistry"))
}

func TestBannerErrPrefersText(t *testing.T) {
	assert.EqualError(t, bannerErr("Agent not found.", assert.AnError), "Agent not found.")
	assert.Equal(t, assert.AnError, bannerErr("", assert.AnError))
	assert.Error(t, bannerErr("", nil))
}

type fakeConnection struct {
	state session.State
}

func (c *fakeConnection) Connected() bool      { return c.state.Connected }
func (c *fakeConnection) State() session.State { return c.state }

// connectFirst mimics a controller: the first call while disconnected only
// connects.
func connectFirst(c *fakeConnection, runs *int) func() (view.Outcome, error) {
	return func() (view.Outcome, error) {
		if !c.state.Connected {
			c.state = session.State{Account: creator, Connected: true}
			return view.Connected, nil
		}
		*runs++
		return view.Done, nil
	}
}

func TestGatedRunsActionAfterConnect(t *testing.T) {
	connectOnly = false
	c := &fakeConnection{}
	runs := 0
	var out bytes.Buffer

	outcome, err := gated(context.Background(), c, &out, "working", connectFirst(c, &runs))
	require.NoError(t, err)
	assert.Equal(t, view.Done, outcome)
	assert.Equal(t, 1, runs)
	assert.Contains(t, out.String(), "Connected")
}

func TestGatedConnectOnlyStopsAfterConnect(t *testing.T) {
	connectOnly = true
	t.Cleanup(func() { connectOnly = false })
	c := &fakeConnection{}
	runs := 0
	var out bytes.Buffer

	outcome, err := gated(context.Background(), c, &out, "working", connectFirst(c, &runs))
	require.NoError(t, err)
	assert.Equal(t, view.Connected, outcome)
	assert.Zero(t, runs)
	assert.Contains(t, out.String(), "Run the command again")

	outcome, err = gated(context.Background(), c, &out, "working", connectFirst(c, &runs))
	require.NoError(t, err)
	assert.Equal(t, view.Done, outcome)
	assert.Equal(t, 1, runs)
}

// ---------------------------------------------------------------------------
// commands
// ---------------------------------------------------------------------------

func TestNetworksCommand(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "networks")
	require.NoError(t, err)
	assert.Contains(t, out, "localhost")
	assert.Contains(t, out, "base-sepolia")
	assert.Contains(t, out, "84532")
}

func TestConfigSetPersistsAndShows(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set", "default_network", "anvil")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "config", "get", "default_network")
	require.NoError(t, err)
	assert.Equal(t, "localhost\n", out, "aliases are stored by canonical name")

	_, err = runCLI(t, dir, "config", "set", "confirm_timeout", "300")
	require.NoError(t, err)
	out, err = runCLI(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "confirm_timeout")
	assert.Contains(t, out, "300")
	assert.FileExists(t, filepath.Join(dir, "config.json"))
}

func TestConfigSetUnknownKey(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "config", "set", "colour", "blue")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnknownKey)
	assert.Contains(t, err.Error(), "Valid keys")
}

func TestConfigKeys(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "config", "keys")
	require.NoError(t, err)
	assert.Equal(t, config.Keys(), strings.Split(strings.TrimSpace(out), "\n"))
}

func TestWalletAddWatchOnlyAndList(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "wallet", "add", "observer", creator.Hex())
	require.NoError(t, err)

	out, err := runCLI(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "observer")
	assert.Contains(t, out, "watch-only")

	data, err := os.ReadFile(filepath.Join(dir, "wallets.json"))
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(string(data)), strings.ToLower(creator.Hex()))
}

func TestAgentsListJSON(t *testing.T) {
	srv := fakeNode(t, []agentTuple{
		{Creator: creator, Name: "Slow Grinder", StrategyHash: "strategy_rsi_1", TwelveMonthReturn: big.NewInt(450), CopierCount: big.NewInt(1), CreatedAt: big.NewInt(1700000000)},
		{Creator: creator, Name: "Momentum Hunter", StrategyHash: "strategy_sma_crossover_2", TwelveMonthReturn: big.NewInt(1550), CopierCount: big.NewInt(12), CreatedAt: big.NewInt(1700000100)},
	})
	t.Setenv("COPYTRADER_RPC_URL", srv.URL)

	out, err := runCLI(t, t.TempDir(), "agents", "list", "-o", "json")
	require.NoError(t, err)

	var agents []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &agents))
	require.Len(t, agents, 2)
	assert.Equal(t, "Momentum Hunter", agents[0]["name"], "best return first")
	assert.Equal(t, "Slow Grinder", agents[1]["name"])
}

func TestAgentsListTable(t *testing.T) {
	srv := fakeNode(t, []agentTuple{
		{Creator: creator, Name: "Momentum Hunter", StrategyHash: "strategy_sma_crossover_2", TwelveMonthReturn: big.NewInt(1550), CopierCount: big.NewInt(12), CreatedAt: big.NewInt(1700000100)},
	})
	t.Setenv("COPYTRADER_RPC_URL", srv.URL)

	out, err := runCLI(t, t.TempDir(), "agents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Momentum Hunter")
	assert.Contains(t, out, "+15.50%")
}

func TestAgentsListRejectsUnknownFormat(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "agents", "list", "-o", "xml")
	assert.Error(t, err)
}

func TestSimulateExportsReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.yaml")

	out, err := runCLI(t, dir, "simulate", "--seed", "7", "--days", "120", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "seed 7")

	report, err := strategy.LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), report.Seed)
	assert.Equal(t, 120, report.Days)
	assert.Len(t, report.Agents, len(strategy.DefaultVariants()))
	best, ok := report.Best()
	require.True(t, ok)
	assert.Contains(t, out, best.StrategyHash())
}

func TestSimulateRejectsShortSeries(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "simulate", "--days", "1")
	assert.Error(t, err)
}
