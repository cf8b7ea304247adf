package view

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	alice = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeSession struct {
	mu         sync.Mutex
	state      session.State
	connectErr error
	connects   int
	// block, when set, holds Connect until closed.
	block chan struct{}
}

func (s *fakeSession) State() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSession) Connect(ctx context.Context) (session.State, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return session.State{}, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.connectErr != nil {
		s.state = session.State{LastError: session.ConnectMessage(s.connectErr)}
		return session.State{}, s.connectErr
	}
	s.state = session.State{Account: alice, ChainID: 31337, Connected: true}
	return s.state, nil
}

func (s *fakeSession) Disconnect() {
	s.mu.Lock()
	s.state = session.State{LastError: s.state.LastError}
	s.mu.Unlock()
}

func (s *fakeSession) ClearError() {
	s.mu.Lock()
	s.state.LastError = ""
	s.mu.Unlock()
}

func connected() *fakeSession {
	return &fakeSession{state: session.State{Account: alice, ChainID: 31337, Connected: true}}
}

type registration struct {
	Name, Hash string
	Return     decimal.Decimal
}

type fakeContracts struct {
	mu          sync.Mutex
	agents      []contract.Agent
	trades      []contract.Trade
	loadErr     error
	copyErr     error
	registerErr error
	loading     bool
	copied      []uint64
	registered  []registration
	loads       int
	// block, when set, holds CopyAgent until closed.
	block chan struct{}
}

func (f *fakeContracts) LoadAgents(context.Context) ([]contract.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]contract.Agent(nil), f.agents...), nil
}

func (f *fakeContracts) LoadTrades(context.Context) ([]contract.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]contract.Trade(nil), f.trades...), nil
}

func (f *fakeContracts) CopyAgent(ctx context.Context, id uint64) (*chain.Receipt, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return nil, f.copyErr
	}
	f.copied = append(f.copied, id)
	for i := range f.agents {
		if f.agents[i].ID == id {
			f.agents[i].CopierCount++
		}
	}
	return &chain.Receipt{Status: 1}, nil
}

func (f *fakeContracts) RegisterAgent(_ context.Context, name, hash string, ret decimal.Decimal) (*chain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered = append(f.registered, registration{name, hash, ret})
	return &chain.Receipt{Status: 1}, nil
}

func (f *fakeContracts) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

func agent(id uint64, name, ret string) contract.Agent {
	return contract.Agent{
		ID:            id,
		Creator:       alice,
		Name:          name,
		StrategyHash:  "strategy_rsi_1",
		ReturnPercent: decimal.RequireFromString(ret),
		CreatedAt:     time.Unix(1700000000, 0).UTC(),
	}
}
