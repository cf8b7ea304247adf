package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logsServer(t *testing.T, logs []chain.LogEntry) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int               `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "eth_getLogs", req.Method)
		var filter struct {
			Address   []common.Address `json:"address"`
			FromBlock string           `json:"fromBlock"`
		}
		require.NoError(t, json.Unmarshal(req.Params[0], &filter))
		assert.Len(t, filter.Address, 2)
		assert.Equal(t, "earliest", filter.FromBlock)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0", "id": req.ID, "result": logs,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBackfillDecodesAndSkips(t *testing.T) {
	removed := copiedLog(t, 5)
	removed.Removed = true
	broken := copiedLog(t, 6)
	broken.Data = broken.Data[:3]
	srv := logsServer(t, []chain.LogEntry{
		copiedLog(t, 1),
		{Topics: []common.Hash{{0x42}}},
		removed,
		broken,
		copiedLog(t, 2),
	})

	evs, err := Backfill(context.Background(), chain.NewEVMClient(srv.URL), contract.DefaultAddresses(), nil)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, uint64(1), evs[0].(contract.AgentCopied).AgentID)
	assert.Equal(t, uint64(2), evs[1].(contract.AgentCopied).AgentID)
}

func TestBackfillRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"query returned more than 10000 results"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := Backfill(context.Background(), chain.NewEVMClient(srv.URL), contract.DefaultAddresses(), nil)
	assert.ErrorContains(t, err, "10000 results")
}
