package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrTxReverted is returned when a mined transaction has status 0.
	ErrTxReverted = errors.New("transaction reverted")
	// ErrTxTimeout is returned when a transaction is not mined in time.
	ErrTxTimeout = errors.New("transaction not mined in time")
)

// receiptPollInterval is how often WaitForReceipt asks for the receipt.
var receiptPollInterval = 2 * time.Second

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url    string
	client *http.Client
	nextID atomic.Int64
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string) *EVMClient {
	return &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// URL returns the endpoint the client talks to.
func (c *EVMClient) URL() string { return c.url }

// CallMsg describes an eth_call or eth_estimateGas request.
type CallMsg struct {
	From  common.Address
	To    *common.Address
	Data  []byte
	Value *big.Int
}

func (m CallMsg) params() map[string]interface{} {
	p := map[string]interface{}{}
	if m.From != (common.Address{}) {
		p["from"] = m.From
	}
	if m.To != nil {
		p["to"] = m.To
	}
	if len(m.Data) > 0 {
		p["data"] = hexutil.Bytes(m.Data)
	}
	if m.Value != nil && m.Value.Sign() > 0 {
		p["value"] = (*hexutil.Big)(m.Value)
	}
	return p
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (int64, error) {
	var id hexutil.Big
	if err := c.call(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return id.ToInt().Int64(), nil
}

// BlockNumber returns the latest block number.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.call(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// Balance returns the native balance of addr in wei.
func (c *EVMClient) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var b hexutil.Big
	if err := c.call(ctx, &b, "eth_getBalance", addr, "latest"); err != nil {
		return nil, err
	}
	return b.ToInt(), nil
}

// GasPrice returns the current gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	var gp hexutil.Big
	if err := c.call(ctx, &gp, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return gp.ToInt(), nil
}

// PendingNonce returns the transaction count including queued transactions.
func (c *EVMClient) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	var n hexutil.Uint64
	if err := c.call(ctx, &n, "eth_getTransactionCount", addr, "pending"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// EstimateGas estimates gas for msg. A revert surfaces as an *RPCError.
func (c *EVMClient) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	var n hexutil.Uint64
	if err := c.call(ctx, &n, "eth_estimateGas", msg.params()); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// Call executes a read-only contract call against the latest block.
func (c *EVMClient) Call(ctx context.Context, msg CallMsg) ([]byte, error) {
	var out hexutil.Bytes
	if err := c.call(ctx, &out, "eth_call", msg.params(), "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

// Code returns the bytecode at addr. Empty means an EOA or nothing deployed.
func (c *EVMClient) Code(ctx context.Context, addr common.Address) ([]byte, error) {
	var out hexutil.Bytes
	if err := c.call(ctx, &out, "eth_getCode", addr, "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

// SendRawTransaction broadcasts a signed raw transaction.
func (c *EVMClient) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var h common.Hash
	if err := c.call(ctx, &h, "eth_sendRawTransaction", hexutil.Bytes(raw)); err != nil {
		return common.Hash{}, err
	}
	return h, nil
}

// Receipt holds the on-chain receipt of a mined transaction.
type Receipt struct {
	TxHash          common.Hash
	Status          uint64 // 1 = success, 0 = reverted
	BlockNumber     uint64
	GasUsed         uint64
	ContractAddress common.Address // set when a contract was deployed
	Logs            []LogEntry
}

type rawReceipt struct {
	TxHash          common.Hash     `json:"transactionHash"`
	Status          hexutil.Uint64  `json:"status"`
	BlockNumber     hexutil.Uint64  `json:"blockNumber"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	ContractAddress *common.Address `json:"contractAddress"`
	Logs            []LogEntry      `json:"logs"`
}

// TransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *EVMClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var raw *rawReceipt
	if err := c.call(ctx, &raw, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	r := &Receipt{
		TxHash:      hash,
		Status:      uint64(raw.Status),
		BlockNumber: uint64(raw.BlockNumber),
		GasUsed:     uint64(raw.GasUsed),
		Logs:        raw.Logs,
	}
	if raw.ContractAddress != nil {
		r.ContractAddress = *raw.ContractAddress
	}
	return r, nil
}

// WaitForReceipt polls until the transaction is mined, ctx is done or
// timeout expires. A zero timeout waits for as long as ctx allows.
// Returns the receipt together with ErrTxReverted when Status == 0.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*Receipt, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == 0 {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrTxReverted, hash.Hex())
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && timeout > 0 {
				return nil, fmt.Errorf("%w: %s after %s", ErrTxTimeout, hash.Hex(), timeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForConfirmations blocks until the block holding the receipt has n
// confirmations (the mining block counts as one).
func (c *EVMClient) WaitForConfirmations(ctx context.Context, r *Receipt, n uint64) error {
	if n <= 1 {
		return nil
	}
	target := r.BlockNumber + n - 1
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		head, err := c.BlockNumber(ctx)
		if err != nil {
			return err
		}
		if head >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LogEntry holds one event log.
type LogEntry struct {
	Address     common.Address `json:"address"`
	Topics      []common.Hash  `json:"topics"`
	Data        hexutil.Bytes  `json:"data"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	TxHash      common.Hash    `json:"transactionHash"`
	LogIndex    hexutil.Uint   `json:"logIndex"`
	Removed     bool           `json:"removed"`
}

// FilterQuery selects logs for GetLogs. A nil FromBlock means "earliest",
// a nil ToBlock means "latest".
type FilterQuery struct {
	Addresses []common.Address
	Topics    [][]common.Hash
	FromBlock *big.Int
	ToBlock   *big.Int
}

// Params returns the JSON-RPC filter object for q. It is also used for
// eth_subscribe "logs" requests, which ignore the block range.
func (q FilterQuery) Params() map[string]interface{} {
	p := map[string]interface{}{"address": q.Addresses}
	if len(q.Topics) > 0 {
		p["topics"] = q.Topics
	}
	p["fromBlock"] = blockTag(q.FromBlock, "earliest")
	p["toBlock"] = blockTag(q.ToBlock, "latest")
	return p
}

func blockTag(n *big.Int, def string) string {
	if n == nil {
		return def
	}
	return hexutil.EncodeBig(n)
}

// GetLogs queries event logs matching the given filter.
func (c *EVMClient) GetLogs(ctx context.Context, q FilterQuery) ([]LogEntry, error) {
	var logs []LogEntry
	if err := c.call(ctx, &logs, "eth_getLogs", q.Params()); err != nil {
		return nil, fmt.Errorf("fetching logs: %w", err)
	}
	return logs, nil
}

// Ping tests the RPC endpoint and returns latency + block number.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.BlockNumber(ctx)
	return time.Since(start), blockNum, err
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the JSON-RPC error code.
func (e *RPCError) ErrorCode() int { return e.Code }

// RevertReason decodes the Error(string) payload carried in Data, falling
// back to the reason embedded in Message by nodes that only send text.
func (e *RPCError) RevertReason() string {
	if len(e.Data) > 0 {
		var s string
		if json.Unmarshal(e.Data, &s) == nil && strings.HasPrefix(s, "0x") {
			if b, err := hexutil.Decode(s); err == nil {
				if reason, err := abi.UnpackRevert(b); err == nil {
					return reason
				}
			}
		}
	}
	return extractRevertReason(e.Message)
}

// extractRevertReason pulls the reason out of messages such as
// "execution reverted: X" or "reverted with reason string 'X'".
func extractRevertReason(msg string) string {
	if idx := strings.Index(msg, "reason string '"); idx >= 0 {
		rest := msg[idx+len("reason string '"):]
		return strings.TrimSuffix(rest, "'")
	}
	if idx := strings.Index(msg, "execution reverted:"); idx >= 0 {
		return strings.TrimSpace(msg[idx+len("execution reverted:"):])
	}
	return ""
}

func (c *EVMClient) call(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("parsing %s result: %w", method, err)
	}
	return nil
}
