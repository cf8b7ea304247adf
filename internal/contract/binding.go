// Package contract binds the agent registry and copy-trade simulator
// contracts to the wallet session.
package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/apperr"
	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/Mohsinsiddi/copytrader/internal/units"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// ErrNoContract is returned when a read hits an address without code.
var ErrNoContract = errors.New("no contract deployed at address")

// Default addresses of the first two contracts deployed on a fresh
// Hardhat/Anvil node.
var (
	DefaultAgentRegistry = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	DefaultCopyTrade     = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
)

// Addresses locates the two contracts.
type Addresses struct {
	AgentRegistry common.Address
	CopyTrade     common.Address
}

// DefaultAddresses returns the local-node fallbacks.
func DefaultAddresses() Addresses {
	return Addresses{AgentRegistry: DefaultAgentRegistry, CopyTrade: DefaultCopyTrade}
}

// StateSource hands out session snapshots. *session.Manager implements it.
type StateSource interface {
	State() session.State
}

// Binding exposes the domain operations of both contracts. Writes need a
// connected session with a signer; reads only need a network connection.
type Binding struct {
	src            StateSource
	addrs          Addresses
	readClient     *chain.EVMClient
	registry       abi.ABI
	copyTrade      abi.ABI
	log            *slog.Logger
	confirmTimeout time.Duration

	loading atomic.Int32
}

// Option configures a Binding.
type Option func(*Binding)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Binding) { b.log = l }
}

// WithReadClient sets the connection used for reads while no wallet is
// connected.
func WithReadClient(c *chain.EVMClient) Option {
	return func(b *Binding) { b.readClient = c }
}

// WithConfirmTimeout bounds the wait for a write's receipt. Zero waits for
// as long as the caller's context allows.
func WithConfirmTimeout(d time.Duration) Option {
	return func(b *Binding) { b.confirmTimeout = d }
}

// New creates a Binding over src.
func New(src StateSource, addrs Addresses, opts ...Option) *Binding {
	b := &Binding{
		src:            src,
		addrs:          addrs,
		registry:       MustABI(AgentRegistryID),
		copyTrade:      MustABI(CopyTradeID),
		log:            slog.Default(),
		confirmTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Addresses returns the contract addresses in use.
func (b *Binding) Addresses() Addresses { return b.addrs }

// Loading reports whether a write is in flight.
func (b *Binding) Loading() bool { return b.loading.Load() > 0 }

// Ready reports whether reads can reach the network.
func (b *Binding) Ready() bool { return b.client() != nil }

func (b *Binding) client() *chain.EVMClient {
	if c := b.src.State().Client(); c != nil {
		return c
	}
	return b.readClient
}

// ---------------------------------------------------------------------------
// writes
// ---------------------------------------------------------------------------

// RegisterAgent registers a new agent. returnPercent is stored as basis
// points, floor(returnPercent*100).
func (b *Binding) RegisterAgent(ctx context.Context, name, strategyHash string, returnPercent decimal.Decimal) (*chain.Receipt, error) {
	const op = "register agent"
	bp, err := units.PercentToBasisPoints(returnPercent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b.transact(ctx, op, b.addrs.AgentRegistry, b.registry, "registerAgent", name, strategyHash, bp)
}

// CopyAgent records the connected account as a copier of agentID.
func (b *Binding) CopyAgent(ctx context.Context, agentID uint64) (*chain.Receipt, error) {
	return b.transact(ctx, "copy agent", b.addrs.AgentRegistry, b.registry, "copyAgent", new(big.Int).SetUint64(agentID))
}

// ExecuteTrade logs a simulated trade of amountETH for agentID.
func (b *Binding) ExecuteTrade(ctx context.Context, agentID uint64, action Action, asset string, amountETH decimal.Decimal) (*chain.Receipt, error) {
	const op = "execute trade"
	wei, err := units.ETHToWei(amountETH)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b.transact(ctx, op, b.addrs.CopyTrade, b.copyTrade, "executeTrade",
		new(big.Int).SetUint64(agentID), string(action), asset, wei)
}

// transact packs, estimates, signs and broadcasts a call, then waits for
// its receipt. A failed estimate aborts before anything is submitted.
func (b *Binding) transact(ctx context.Context, op string, to common.Address, parsed abi.ABI, method string, args ...interface{}) (*chain.Receipt, error) {
	b.loading.Add(1)
	defer b.loading.Add(-1)

	st := b.src.State()
	client := st.Client()
	if !st.CanSign() || client == nil {
		return nil, apperr.New(apperr.NotInitialized, op)
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding call: %w", op, err)
	}
	from := st.Signer.Address()

	gas, err := client.EstimateGas(ctx, chain.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return nil, b.writeErr(op, err)
	}
	gasPrice, err := client.GasPrice(ctx)
	if err != nil {
		return nil, b.writeErr(op, fmt.Errorf("getting gas price: %w", err))
	}
	nonce, err := client.PendingNonce(ctx, from)
	if err != nil {
		return nil, b.writeErr(op, fmt.Errorf("getting nonce: %w", err))
	}

	chainID := big.NewInt(st.ChainID)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})
	raw, err := st.Signer.SignTx(tx, chainID)
	if err != nil {
		return nil, b.writeErr(op, fmt.Errorf("signing transaction: %w", err))
	}

	hash, err := client.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, b.writeErr(op, err)
	}
	b.log.Info("tx_submitted", "op", op, "hash", hash.Hex(), "from", from.Hex())

	receipt, err := client.WaitForReceipt(ctx, hash, b.confirmTimeout)
	if err != nil {
		return receipt, b.writeErr(op, err)
	}
	b.log.Info("tx_confirmed", "op", op, "hash", hash.Hex(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return receipt, nil
}

func (b *Binding) writeErr(op string, err error) error {
	cerr := apperr.Classify(op, err, apperr.RemoteWrite)
	if !apperr.Canceled(err) {
		b.log.Warn("tx_failed", "op", op, "kind", apperr.KindOf(cerr).String(), "err", err)
	}
	return cerr
}

// ---------------------------------------------------------------------------
// reads
// ---------------------------------------------------------------------------

// GetAllAgents returns every registered agent. It never fails: without a
// connection, or when the read fails, the result is empty.
func (b *Binding) GetAllAgents(ctx context.Context) []Agent {
	agents, err := b.LoadAgents(ctx)
	if err != nil {
		if !apperr.Canceled(err) {
			b.log.Error("agents_fetch_failed", "err", err)
		}
		return []Agent{}
	}
	return agents
}

// GetTradeHistory returns every simulated trade, or empty on any failure.
func (b *Binding) GetTradeHistory(ctx context.Context) []Trade {
	trades, err := b.LoadTrades(ctx)
	if err != nil {
		if !apperr.Canceled(err) {
			b.log.Error("trades_fetch_failed", "err", err)
		}
		return []Trade{}
	}
	return trades
}

// LoadAgents is GetAllAgents for callers that report failures. Each agent's
// ID is its position in the registry. Without a connection it returns an
// empty result and no error.
func (b *Binding) LoadAgents(ctx context.Context) ([]Agent, error) {
	client := b.client()
	if client == nil {
		return []Agent{}, nil
	}
	var records []agentRecord
	if err := b.callInto(ctx, client, b.addrs.AgentRegistry, b.registry, &records, "getAllAgents"); err != nil {
		return nil, apperr.Classify("load agents", err, apperr.RemoteRead)
	}
	agents := make([]Agent, len(records))
	for i, r := range records {
		agents[i] = r.toAgent(uint64(i))
	}
	return agents, nil
}

// LoadTrades is GetTradeHistory for callers that report failures.
func (b *Binding) LoadTrades(ctx context.Context) ([]Trade, error) {
	client := b.client()
	if client == nil {
		return []Trade{}, nil
	}
	var records []tradeRecord
	if err := b.callInto(ctx, client, b.addrs.CopyTrade, b.copyTrade, &records, "getTradeHistory"); err != nil {
		return nil, apperr.Classify("load trades", err, apperr.RemoteRead)
	}
	trades := make([]Trade, len(records))
	for i, r := range records {
		trades[i] = r.toTrade()
	}
	return trades, nil
}

// GetAgent reads a single agent. An unknown ID yields NonexistentAgent.
func (b *Binding) GetAgent(ctx context.Context, agentID uint64) (Agent, error) {
	const op = "get agent"
	client := b.client()
	if client == nil {
		return Agent{}, apperr.New(apperr.NotInitialized, op)
	}
	out, err := b.call(ctx, client, b.addrs.AgentRegistry, b.registry, "getAgent", new(big.Int).SetUint64(agentID))
	if err != nil {
		return Agent{}, apperr.Classify(op, err, apperr.RemoteRead)
	}
	vals, err := b.registry.Unpack("getAgent", out)
	if err != nil || len(vals) == 0 {
		return Agent{}, apperr.Wrap(apperr.RemoteRead, op, fmt.Errorf("decoding agent: %w", err))
	}
	rec, err := convert[agentRecord](vals[0])
	if err != nil {
		return Agent{}, apperr.Wrap(apperr.RemoteRead, op, err)
	}
	return rec.toAgent(agentID), nil
}

// NextAgentID returns the ID the next registered agent will get.
func (b *Binding) NextAgentID(ctx context.Context) (uint64, error) {
	const op = "next agent id"
	client := b.client()
	if client == nil {
		return 0, apperr.New(apperr.NotInitialized, op)
	}
	var n *big.Int
	if err := b.callInto(ctx, client, b.addrs.AgentRegistry, b.registry, &n, "nextAgentId"); err != nil {
		return 0, apperr.Classify(op, err, apperr.RemoteRead)
	}
	return uint64OrZero(n), nil
}

// GetUserTrades returns the positions in the trade history of user's trades.
func (b *Binding) GetUserTrades(ctx context.Context, user common.Address) ([]uint64, error) {
	const op = "get user trades"
	client := b.client()
	if client == nil {
		return nil, apperr.New(apperr.NotInitialized, op)
	}
	var ids []*big.Int
	if err := b.callInto(ctx, client, b.addrs.CopyTrade, b.copyTrade, &ids, "getUserTrades", user); err != nil {
		return nil, apperr.Classify(op, err, apperr.RemoteRead)
	}
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64OrZero(id)
	}
	return out, nil
}

// UserTrades resolves GetUserTrades against the full history.
func (b *Binding) UserTrades(ctx context.Context, user common.Address) ([]Trade, error) {
	ids, err := b.GetUserTrades(ctx, user)
	if err != nil {
		return nil, err
	}
	all, err := b.LoadTrades(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Trade, 0, len(ids))
	for _, id := range ids {
		if id < uint64(len(all)) {
			out = append(out, all[id])
		}
	}
	return out, nil
}

func (b *Binding) call(ctx context.Context, client *chain.EVMClient, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	out, err := client.Call(ctx, chain.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoContract, to.Hex())
	}
	return out, nil
}

func (b *Binding) callInto(ctx context.Context, client *chain.EVMClient, to common.Address, parsed abi.ABI, dst interface{}, method string, args ...interface{}) error {
	out, err := b.call(ctx, client, to, parsed, method, args...)
	if err != nil {
		return err
	}
	if err := parsed.UnpackIntoInterface(dst, method, out); err != nil {
		return fmt.Errorf("decoding %s: %w", method, err)
	}
	return nil
}

// convert copies an abi-decoded anonymous struct into T.
func convert[T any](v interface{}) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("converting %T: %v", v, r)
		}
	}()
	return *abi.ConvertType(v, new(T)).(*T), nil
}
