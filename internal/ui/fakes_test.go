package ui

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/Mohsinsiddi/copytrader/internal/view"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	alice = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeSession struct {
	mu    sync.Mutex
	state session.State
}

func (s *fakeSession) State() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSession) Connect(context.Context) (session.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = session.State{Account: alice, ChainID: 31337, Connected: true}
	return s.state, nil
}

func (s *fakeSession) Disconnect() {
	s.mu.Lock()
	s.state = session.State{}
	s.mu.Unlock()
}

func (s *fakeSession) ClearError() {
	s.mu.Lock()
	s.state.LastError = ""
	s.mu.Unlock()
}

type fakeContracts struct {
	mu         sync.Mutex
	agents     []contract.Agent
	trades     []contract.Trade
	registered []string
	copied     []uint64
}

func (c *fakeContracts) LoadAgents(context.Context) ([]contract.Agent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]contract.Agent(nil), c.agents...), nil
}

func (c *fakeContracts) LoadTrades(context.Context) ([]contract.Trade, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]contract.Trade(nil), c.trades...), nil
}

func (c *fakeContracts) CopyAgent(_ context.Context, id uint64) (*chain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copied = append(c.copied, id)
	return &chain.Receipt{Status: 1}, nil
}

func (c *fakeContracts) RegisterAgent(_ context.Context, name, _ string, _ decimal.Decimal) (*chain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered = append(c.registered, name)
	return &chain.Receipt{Status: 1}, nil
}

func (c *fakeContracts) Loading() bool { return false }

func sampleAgents() []contract.Agent {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []contract.Agent{
		{ID: 1, Creator: alice, Name: "Slow Grinder", ReturnPercent: decimal.RequireFromString("4.5"), CopierCount: 1, CreatedAt: created},
		{ID: 2, Creator: bob, Name: "Momentum Hunter", ReturnPercent: decimal.RequireFromString("15.5"), CopierCount: 12, CreatedAt: created},
	}
}

func sampleTrades() []contract.Trade {
	return []contract.Trade{{
		AgentID:   2,
		User:      alice,
		Action:    contract.Buy,
		Asset:     "ETH",
		Amount:    decimal.RequireFromString("0.25"),
		Timestamp: time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC),
	}}
}

// deps builds dashboard controllers over one fake contract set.
func deps(sess *fakeSession, c *fakeContracts) DashboardDeps {
	log := quietLogger()
	return DashboardDeps{
		Leaderboard: view.NewLeaderboard(sess, c, c, log),
		Builder:     view.NewBuilder(sess, c, log),
		History:     view.NewTradeHistory(c, log),
		Wallet:      view.NewWalletWidget(sess, nil, log),
	}
}
