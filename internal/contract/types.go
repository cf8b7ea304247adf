package contract

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Action is the side of a simulated trade.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// ParseAction accepts "buy"/"sell" in any case.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case Buy, Sell:
		return a, nil
	}
	return "", fmt.Errorf("invalid trade action %q (want BUY or SELL)", s)
}

// Agent is a registered trading agent as read from the registry.
type Agent struct {
	ID            uint64          `json:"id" yaml:"id"`
	Creator       common.Address  `json:"creator" yaml:"creator"`
	Name          string          `json:"name" yaml:"name"`
	StrategyHash  string          `json:"strategy_hash" yaml:"strategy_hash"`
	ReturnPercent decimal.Decimal `json:"return_percent" yaml:"return_percent"`
	CopierCount   uint64          `json:"copier_count" yaml:"copier_count"`
	CreatedAt     time.Time       `json:"created_at" yaml:"created_at"`
}

// Trade is one simulated trade as read from the simulator.
type Trade struct {
	AgentID   uint64          `json:"agent_id" yaml:"agent_id"`
	User      common.Address  `json:"user" yaml:"user"`
	Action    Action          `json:"action" yaml:"action"`
	Asset     string          `json:"asset" yaml:"asset"`
	Amount    decimal.Decimal `json:"amount" yaml:"amount"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
}

// agentRecord mirrors the AgentRegistry.Agent tuple for abi unpacking.
type agentRecord struct {
	Creator           common.Address
	Name              string
	StrategyHash      string
	TwelveMonthReturn *big.Int
	CopierCount       *big.Int
	CreatedAt         *big.Int
}

func (r agentRecord) toAgent(id uint64) Agent {
	return Agent{
		ID:            id,
		Creator:       r.Creator,
		Name:          r.Name,
		StrategyHash:  r.StrategyHash,
		ReturnPercent: units.BasisPointsToPercent(r.TwelveMonthReturn),
		CopierCount:   uint64OrZero(r.CopierCount),
		CreatedAt:     unixTime(r.CreatedAt),
	}
}

// tradeRecord mirrors the CopyTradeSimulator.Trade tuple.
type tradeRecord struct {
	AgentId   *big.Int //nolint:revive // field name must match the ABI component
	User      common.Address
	Action    string
	Asset     string
	Amount    *big.Int
	Timestamp *big.Int
}

func (r tradeRecord) toTrade() Trade {
	return Trade{
		AgentID:   uint64OrZero(r.AgentId),
		User:      r.User,
		Action:    Action(strings.ToUpper(r.Action)),
		Asset:     r.Asset,
		Amount:    units.WeiToETH(r.Amount),
		Timestamp: unixTime(r.Timestamp),
	}
}

func uint64OrZero(n *big.Int) uint64 {
	if n == nil || !n.IsUint64() {
		return 0
	}
	return n.Uint64()
}

func unixTime(n *big.Int) time.Time {
	if n == nil || !n.IsInt64() {
		return time.Time{}
	}
	return time.Unix(n.Int64(), 0).UTC()
}
