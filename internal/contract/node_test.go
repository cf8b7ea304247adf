package contract

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/Mohsinsiddi/copytrader/internal/wallet"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// Hardhat account #0.
const (
	testKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

// ---------------------------------------------------------------------------
// fake node
// ---------------------------------------------------------------------------

// fakeNode is a JSON-RPC server that answers contract reads from canned
// outputs and accepts raw transactions.
type fakeNode struct {
	t *testing.T

	mu          sync.Mutex
	reads       map[string][]byte // method name -> packed output
	readErr     map[string]string // method name -> revert reason
	estimateErr string            // revert reason for eth_estimateGas
	status      uint64
	receiptLogs []chain.LogEntry
	sent        []*types.Transaction
	methods     []string
}

func newFakeNode(t *testing.T) (*fakeNode, *httptest.Server) {
	t.Helper()
	n := &fakeNode{t: t, reads: map[string][]byte{}, readErr: map[string]string{}, status: 1}
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	return n, srv
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     int               `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	n.mu.Lock()
	n.methods = append(n.methods, req.Method)
	n.mu.Unlock()

	result, rpcErr := n.handle(req.Method, req.Params)
	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (n *fakeNode) handle(method string, params []json.RawMessage) (interface{}, map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch method {
	case "eth_chainId":
		return "0x7a69", nil
	case "eth_gasPrice":
		return "0x3b9aca00", nil
	case "eth_getTransactionCount":
		return "0x0", nil
	case "eth_estimateGas":
		if n.estimateErr != "" {
			return nil, revertError(n.estimateErr)
		}
		return "0x30d40", nil
	case "eth_call":
		name := n.methodOf(params)
		if reason, ok := n.readErr[name]; ok {
			return nil, revertError(reason)
		}
		out, ok := n.reads[name]
		if !ok {
			return "0x", nil
		}
		return hexutil.Bytes(out), nil
	case "eth_sendRawTransaction":
		var raw hexutil.Bytes
		require.NoError(n.t, json.Unmarshal(params[0], &raw))
		tx := new(types.Transaction)
		require.NoError(n.t, tx.UnmarshalBinary(raw))
		n.sent = append(n.sent, tx)
		return tx.Hash(), nil
	case "eth_getTransactionReceipt":
		var hash common.Hash
		require.NoError(n.t, json.Unmarshal(params[0], &hash))
		return map[string]interface{}{
			"transactionHash": hash,
			"status":          hexutil.Uint64(n.status),
			"blockNumber":     "0x1",
			"gasUsed":         "0x5208",
			"contractAddress": nil,
			"logs":            n.receiptLogs,
		}, nil
	}
	return nil, map[string]interface{}{"code": -32601, "message": "method not found"}
}

// methodOf resolves the contract method an eth_call targets.
func (n *fakeNode) methodOf(params []json.RawMessage) string {
	var msg struct {
		Data hexutil.Bytes `json:"data"`
	}
	require.NoError(n.t, json.Unmarshal(params[0], &msg))
	require.GreaterOrEqual(n.t, len(msg.Data), 4)
	for _, id := range []string{AgentRegistryID, CopyTradeID} {
		parsed := MustABI(id)
		if m, err := parsed.MethodById(msg.Data[:4]); err == nil {
			return m.Name
		}
	}
	n.t.Fatalf("unknown selector %x", msg.Data[:4])
	return ""
}

func (n *fakeNode) setRead(t *testing.T, id, method string, vals ...interface{}) {
	t.Helper()
	out, err := MustABI(id).Methods[method].Outputs.Pack(vals...)
	require.NoError(t, err)
	n.mu.Lock()
	n.reads[method] = out
	n.mu.Unlock()
}

func (n *fakeNode) sentTxs() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.Transaction(nil), n.sent...)
}

func (n *fakeNode) called(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.methods {
		if m == method {
			c++
		}
	}
	return c
}

func revertError(reason string) map[string]interface{} {
	strType, _ := abi.NewType("string", "", nil)
	enc, _ := abi.Arguments{{Type: strType}}.Pack(reason)
	data := append([]byte{0x08, 0xc3, 0x79, 0xa0}, enc...)
	return map[string]interface{}{
		"code":    3,
		"message": "execution reverted: " + reason,
		"data":    hexutil.Encode(data),
	}
}

// ---------------------------------------------------------------------------
// session helpers
// ---------------------------------------------------------------------------

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// connectedSession returns a session connected to url through an
// in-memory wallet holding testKey.
func connectedSession(t *testing.T, url string) *session.Manager {
	t.Helper()
	wallets := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := wallets.AddWithKey("deployer", testKey)
	require.NoError(t, err)
	p := wallet.NewKeystoreProvider(wallets, chain.NewEVMClient(url))
	m := session.NewManager(p, session.WithLogger(quietLogger()))
	_, err = m.Connect(context.Background())
	require.NoError(t, err)
	return m
}

func bi(n int64) *big.Int { return big.NewInt(n) }

