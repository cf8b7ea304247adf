package contract

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/apperr"
	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creator = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

func newBinding(src StateSource, opts ...Option) *Binding {
	return New(src, DefaultAddresses(), append([]Option{WithLogger(quietLogger())}, opts...)...)
}

// unpackTx decodes the calldata of a sent transaction.
func unpackTx(t *testing.T, id string, tx *types.Transaction) (string, []interface{}) {
	t.Helper()
	parsed := MustABI(id)
	m, err := parsed.MethodById(tx.Data()[:4])
	require.NoError(t, err)
	args, err := m.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	return m.Name, args
}

// ---------------------------------------------------------------------------
// writes
// ---------------------------------------------------------------------------

func TestRegisterAgentEncodesBasisPoints(t *testing.T) {
	node, srv := newFakeNode(t)
	b := newBinding(connectedSession(t, srv.URL))

	receipt, err := b.RegisterAgent(context.Background(), "SMA Bot", "strategy_sma_crossover_1700000000000", decimal.RequireFromString("15.5"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Status)
	assert.False(t, b.Loading())

	sent := node.sentTxs()
	require.Len(t, sent, 1)
	tx := sent[0]
	assert.Equal(t, DefaultAgentRegistry, *tx.To())
	assert.Equal(t, big.NewInt(31337), tx.ChainId())
	assert.Equal(t, uint64(200000), tx.Gas())
	assert.Equal(t, big.NewInt(2000000000), tx.GasFeeCap())

	from, err := types.Sender(types.NewLondonSigner(tx.ChainId()), tx)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddr), from)

	name, args := unpackTx(t, AgentRegistryID, tx)
	assert.Equal(t, "registerAgent", name)
	assert.Equal(t, "SMA Bot", args[0])
	assert.Equal(t, "strategy_sma_crossover_1700000000000", args[1])
	assert.Equal(t, big.NewInt(1550), args[2])
}

func TestRegisterAgentFloorsReturn(t *testing.T) {
	node, srv := newFakeNode(t)
	b := newBinding(connectedSession(t, srv.URL))

	_, err := b.RegisterAgent(context.Background(), "x", "h", decimal.RequireFromString("12.349"))
	require.NoError(t, err)
	_, args := unpackTx(t, AgentRegistryID, node.sentTxs()[0])
	assert.Equal(t, big.NewInt(1234), args[2])
}

func TestRegisterAgentRejectsNegativeReturn(t *testing.T) {
	node, srv := newFakeNode(t)
	b := newBinding(connectedSession(t, srv.URL))

	_, err := b.RegisterAgent(context.Background(), "x", "h", decimal.NewFromInt(-1))
	require.Error(t, err)
	assert.Empty(t, node.sentTxs())
}

func TestCopyAgentSubmits(t *testing.T) {
	node, srv := newFakeNode(t)
	b := newBinding(connectedSession(t, srv.URL))

	_, err := b.CopyAgent(context.Background(), 3)
	require.NoError(t, err)
	name, args := unpackTx(t, AgentRegistryID, node.sentTxs()[0])
	assert.Equal(t, "copyAgent", name)
	assert.Equal(t, big.NewInt(3), args[0])
}

func TestCopyAgentNonexistent(t *testing.T) {
	node, srv := newFakeNode(t)
	node.estimateErr = "Agent does not exist"
	b := newBinding(connectedSession(t, srv.URL))

	_, err := b.CopyAgent(context.Background(), 99)
	assert.ErrorIs(t, err, apperr.ErrNonexistentAgent)
	assert.Empty(t, node.sentTxs(), "a failed estimate must not submit")
	assert.False(t, b.Loading())
}

func TestExecuteTradeEncodesWei(t *testing.T) {
	node, srv := newFakeNode(t)
	b := newBinding(connectedSession(t, srv.URL))

	_, err := b.ExecuteTrade(context.Background(), 1, Sell, "ETH", decimal.RequireFromString("0.0001"))
	require.NoError(t, err)
	tx := node.sentTxs()[0]
	assert.Equal(t, DefaultCopyTrade, *tx.To())
	name, args := unpackTx(t, CopyTradeID, tx)
	assert.Equal(t, "executeTrade", name)
	assert.Equal(t, big.NewInt(1), args[0])
	assert.Equal(t, "SELL", args[1])
	assert.Equal(t, "ETH", args[2])
	assert.Equal(t, big.NewInt(100000000000000), args[3])
}

func TestWriteWithoutSession(t *testing.T) {
	_, srv := newFakeNode(t)
	m := session.NewManager(nil, session.WithLogger(quietLogger()))
	b := newBinding(m, WithReadClient(chain.NewEVMClient(srv.URL)))

	_, err := b.RegisterAgent(context.Background(), "x", "h", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, apperr.ErrNotInitialized)
	_, err = b.CopyAgent(context.Background(), 0)
	assert.ErrorIs(t, err, apperr.ErrNotInitialized)
	_, err = b.ExecuteTrade(context.Background(), 0, Buy, "ETH", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, apperr.ErrNotInitialized)
}

func TestWriteRevertedReceipt(t *testing.T) {
	node, srv := newFakeNode(t)
	node.status = 0
	b := newBinding(connectedSession(t, srv.URL))

	receipt, err := b.CopyAgent(context.Background(), 0)
	assert.ErrorIs(t, err, apperr.ErrRemoteWrite)
	assert.ErrorIs(t, err, chain.ErrTxReverted)
	require.NotNil(t, receipt)
	assert.False(t, b.Loading())
}

func TestWriteCancelledIsNotClassified(t *testing.T) {
	_, srv := newFakeNode(t)
	b := newBinding(connectedSession(t, srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.CopyAgent(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, apperr.Unknown, apperr.KindOf(err))
}

// ---------------------------------------------------------------------------
// reads
// ---------------------------------------------------------------------------

func TestLoadAgentsAssignsPositionalIDs(t *testing.T) {
	node, srv := newFakeNode(t)
	node.setRead(t, AgentRegistryID, "getAllAgents", []agentRecord{
		{Creator: creator, Name: "SMA Bot", StrategyHash: "strategy_sma_crossover_1", TwelveMonthReturn: bi(1550), CopierCount: bi(2), CreatedAt: bi(1700000000)},
		{Creator: creator, Name: "RSI Bot", StrategyHash: "strategy_rsi_2", TwelveMonthReturn: bi(4200), CopierCount: bi(0), CreatedAt: bi(1700000100)},
	})
	b := newBinding(connectedSession(t, srv.URL))

	agents, err := b.LoadAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, uint64(0), agents[0].ID)
	assert.Equal(t, uint64(1), agents[1].ID)
	assert.Equal(t, "15.5", agents[0].ReturnPercent.String())
	assert.Equal(t, "42", agents[1].ReturnPercent.String())
	assert.Equal(t, uint64(2), agents[0].CopierCount)
	assert.Equal(t, creator, agents[0].Creator)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), agents[0].CreatedAt)
}

func TestReadsUseReadClientWhenDisconnected(t *testing.T) {
	node, srv := newFakeNode(t)
	node.setRead(t, CopyTradeID, "getTradeHistory", []tradeRecord{
		{AgentId: bi(0), User: creator, Action: "BUY", Asset: "ETH", Amount: bi(100000000000000), Timestamp: bi(1700000000)},
	})
	m := session.NewManager(nil, session.WithLogger(quietLogger()))
	b := newBinding(m, WithReadClient(chain.NewEVMClient(srv.URL)))

	require.True(t, b.Ready())
	trades := b.GetTradeHistory(context.Background())
	require.Len(t, trades, 1)
	assert.Equal(t, Buy, trades[0].Action)
	assert.Equal(t, "0.0001", trades[0].Amount.String())
	assert.Equal(t, creator, trades[0].User)
}

func TestReadsAfterDisconnectAreEmpty(t *testing.T) {
	_, srv := newFakeNode(t)
	m := connectedSession(t, srv.URL)
	b := newBinding(m)
	m.Disconnect()

	assert.False(t, b.Ready())
	assert.NotNil(t, b.GetAllAgents(context.Background()))
	assert.Empty(t, b.GetAllAgents(context.Background()))
	assert.Empty(t, b.GetTradeHistory(context.Background()))
	agents, err := b.LoadAgents(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, agents)
}

func TestGetAllAgentsSwallowsErrors(t *testing.T) {
	node, srv := newFakeNode(t)
	node.readErr["getAllAgents"] = "boom"
	b := newBinding(connectedSession(t, srv.URL))

	assert.Empty(t, b.GetAllAgents(context.Background()))

	_, err := b.LoadAgents(context.Background())
	assert.ErrorIs(t, err, apperr.ErrRemoteRead)
}

func TestLoadTradesNoContract(t *testing.T) {
	_, srv := newFakeNode(t)
	b := newBinding(connectedSession(t, srv.URL))

	_, err := b.LoadTrades(context.Background())
	assert.ErrorIs(t, err, ErrNoContract)
	assert.ErrorIs(t, err, apperr.ErrRemoteRead)
}

func TestGetAgent(t *testing.T) {
	node, srv := newFakeNode(t)
	node.setRead(t, AgentRegistryID, "getAgent", agentRecord{
		Creator: creator, Name: "MACD Bot", StrategyHash: "strategy_macd_1", TwelveMonthReturn: bi(999), CopierCount: bi(7), CreatedAt: bi(1700000000),
	})
	b := newBinding(connectedSession(t, srv.URL))

	a, err := b.GetAgent(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), a.ID)
	assert.Equal(t, "MACD Bot", a.Name)
	assert.Equal(t, "9.99", a.ReturnPercent.String())
	assert.Equal(t, uint64(7), a.CopierCount)
}

func TestGetAgentNonexistent(t *testing.T) {
	node, srv := newFakeNode(t)
	node.readErr["getAgent"] = "Agent does not exist"
	b := newBinding(connectedSession(t, srv.URL))

	_, err := b.GetAgent(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrNonexistentAgent)
}

func TestNextAgentID(t *testing.T) {
	node, srv := newFakeNode(t)
	node.setRead(t, AgentRegistryID, "nextAgentId", bi(5))
	b := newBinding(connectedSession(t, srv.URL))

	n, err := b.NextAgentID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

func TestUserTrades(t *testing.T) {
	node, srv := newFakeNode(t)
	node.setRead(t, CopyTradeID, "getTradeHistory", []tradeRecord{
		{AgentId: bi(0), User: creator, Action: "BUY", Asset: "ETH", Amount: bi(1), Timestamp: bi(1)},
		{AgentId: bi(1), User: common.HexToAddress(testAddr), Action: "SELL", Asset: "BTC", Amount: bi(2), Timestamp: bi(2)},
	})
	node.setRead(t, CopyTradeID, "getUserTrades", []*big.Int{bi(1), bi(9)})
	b := newBinding(connectedSession(t, srv.URL))

	ids, err := b.GetUserTrades(context.Background(), common.HexToAddress(testAddr))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 9}, ids)

	trades, err := b.UserTrades(context.Background(), common.HexToAddress(testAddr))
	require.NoError(t, err)
	require.Len(t, trades, 1, "out-of-range positions are skipped")
	assert.Equal(t, "BTC", trades[0].Asset)
}

func TestSupplementedReadsNeedConnection(t *testing.T) {
	b := newBinding(session.NewManager(nil, session.WithLogger(quietLogger())))
	_, err := b.GetAgent(context.Background(), 0)
	assert.ErrorIs(t, err, apperr.ErrNotInitialized)
	_, err = b.NextAgentID(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNotInitialized)
	_, err = b.GetUserTrades(context.Background(), creator)
	assert.ErrorIs(t, err, apperr.ErrNotInitialized)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" buy ")
	require.NoError(t, err)
	assert.Equal(t, Buy, a)
	_, err = ParseAction("hold")
	assert.Error(t, err)
}
