package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/events"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/Mohsinsiddi/copytrader/internal/view"
	"github.com/Mohsinsiddi/copytrader/test/fixtures"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Field names follow the AgentRegistry.Agent ABI components.
type agentTuple struct {
	Creator           common.Address
	Name              string
	StrategyHash      string
	TwelveMonthReturn *big.Int
	CopierCount       *big.Int
	CreatedAt         *big.Int
}

// mockRPCServer answers fixed methods from responses. eth_call is answered
// with call, and eth_getLogs with logs.
func mockRPCServer(t *testing.T, responses map[string]interface{}, call []byte, logs []chain.LogEntry) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck

		var result interface{}
		switch req.Method {
		case "eth_call":
			result = hexutil.Bytes(call)
		case "eth_getLogs":
			result = logs
		default:
			resp, ok := responses[req.Method]
			if !ok {
				http.Error(w, "method not found", http.StatusNotFound)
				return
			}
			result = resp
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func packAgents(t *testing.T, agents []fixtures.Agent) []byte {
	t.Helper()
	tuples := make([]agentTuple, len(agents))
	for i, a := range agents {
		tuples[i] = agentTuple{
			Creator:           common.HexToAddress(a.Creator),
			Name:              a.Name,
			StrategyHash:      a.StrategyHash,
			TwelveMonthReturn: big.NewInt(a.ReturnBP),
			CopierCount:       big.NewInt(a.Copiers),
			CreatedAt:         big.NewInt(a.CreatedAt),
		}
	}
	out, err := contract.MustABI(contract.AgentRegistryID).Methods["getAllAgents"].Outputs.Pack(tuples)
	require.NoError(t, err)
	return out
}

func eventLog(t *testing.T, id, name string, addr common.Address, block uint64, args ...interface{}) chain.LogEntry {
	t.Helper()
	ev := contract.MustABI(id).Events[name]
	data, err := ev.Inputs.Pack(args...)
	require.NoError(t, err)
	return chain.LogEntry{
		Address:     addr,
		Topics:      []common.Hash{ev.ID},
		Data:        data,
		BlockNumber: hexutil.Uint64(block),
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
	}
}

func TestLeaderboardFromRegistry(t *testing.T) {
	agents := fixtures.LoadAgents(t)
	srv := mockRPCServer(t, fixtures.LoadRPCResponse(t, "node.json"), packAgents(t, agents), nil)

	sess := session.NewManager(nil, session.WithLogger(quietLogger()))
	b := contract.New(sess, contract.DefaultAddresses(),
		contract.WithLogger(quietLogger()),
		contract.WithReadClient(chain.NewEVMClient(srv.URL)),
	)
	lb := view.NewLeaderboard(sess, b, b, quietLogger())
	require.NoError(t, lb.Load(context.Background()))

	v := lb.Snapshot()
	require.Len(t, v.Rows, len(agents))
	// Equal returns keep registration order.
	assert.Equal(t, "Momentum Hunter", v.Rows[0].Agent.Name)
	assert.Equal(t, uint64(1), v.Rows[0].Agent.ID)
	assert.Equal(t, "Band Rider", v.Rows[1].Agent.Name)
	assert.Equal(t, "Slow Grinder", v.Rows[2].Agent.Name)
	assert.Equal(t, "+15.50%", v.Rows[0].Return)
	assert.Equal(t, "12", v.Rows[0].Copiers)
}

func TestBackfillDecodesBothContracts(t *testing.T) {
	addrs := contract.DefaultAddresses()
	creator := common.HexToAddress(fixtures.LoadAgents(t)[1].Creator)
	logs := []chain.LogEntry{
		eventLog(t, contract.AgentRegistryID, "AgentRegistered", addrs.AgentRegistry, 10, big.NewInt(0), creator, "Momentum Hunter"),
		eventLog(t, contract.AgentRegistryID, "AgentCopied", addrs.AgentRegistry, 11, big.NewInt(0), creator),
		eventLog(t, contract.CopyTradeID, "TradeExecuted", addrs.CopyTrade, 12,
			big.NewInt(0), creator, "BUY", "ETH", new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)),
	}
	removed := eventLog(t, contract.AgentRegistryID, "AgentCopied", addrs.AgentRegistry, 13, big.NewInt(0), creator)
	removed.Removed = true
	logs = append(logs, removed)

	srv := mockRPCServer(t, fixtures.LoadRPCResponse(t, "node.json"), nil, logs)
	evs, err := events.Backfill(context.Background(), chain.NewEVMClient(srv.URL), addrs, big.NewInt(0))
	require.NoError(t, err)
	require.Len(t, evs, 3)

	reg, ok := evs[0].(contract.AgentRegistered)
	require.True(t, ok)
	assert.Equal(t, "Momentum Hunter", reg.Name)
	assert.Equal(t, creator, reg.Creator)

	_, ok = evs[1].(contract.AgentCopied)
	assert.True(t, ok)

	trade, ok := evs[2].(contract.TradeExecuted)
	require.True(t, ok)
	assert.Equal(t, contract.Buy, trade.Action)
	assert.Equal(t, "0.1", trade.Amount.String())
	assert.Equal(t, uint64(12), uint64(trade.Raw().BlockNumber))
}
