package contract

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/units"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ErrUnknownEvent is returned by DecodeLog for logs of other events.
var ErrUnknownEvent = errors.New("unknown event")

// Event is a decoded contract notification.
type Event interface {
	EventName() string
	Raw() chain.LogEntry
}

// AgentRegistered is emitted when an agent is registered.
type AgentRegistered struct {
	AgentID uint64
	Creator common.Address
	Name    string
	Log     chain.LogEntry
}

// AgentCopied is emitted when an account copies an agent.
type AgentCopied struct {
	AgentID uint64
	Copier  common.Address
	Log     chain.LogEntry
}

// TradeExecuted is emitted for each simulated trade.
type TradeExecuted struct {
	AgentID uint64
	User    common.Address
	Action  Action
	Asset   string
	Amount  decimal.Decimal
	Log     chain.LogEntry
}

func (AgentRegistered) EventName() string     { return "AgentRegistered" }
func (AgentCopied) EventName() string         { return "AgentCopied" }
func (TradeExecuted) EventName() string       { return "TradeExecuted" }
func (e AgentRegistered) Raw() chain.LogEntry { return e.Log }
func (e AgentCopied) Raw() chain.LogEntry     { return e.Log }
func (e TradeExecuted) Raw() chain.LogEntry   { return e.Log }

// EventTopics returns the topic0 values of every event DecodeLog understands.
func EventTopics() []common.Hash {
	reg, ct := MustABI(AgentRegistryID), MustABI(CopyTradeID)
	return []common.Hash{
		reg.Events["AgentRegistered"].ID,
		reg.Events["AgentCopied"].ID,
		ct.Events["TradeExecuted"].ID,
	}
}

// DecodeLog decodes a registry or simulator log.
func DecodeLog(l chain.LogEntry) (Event, error) {
	if len(l.Topics) == 0 {
		return nil, ErrUnknownEvent
	}
	reg, ct := MustABI(AgentRegistryID), MustABI(CopyTradeID)
	switch l.Topics[0] {
	case reg.Events["AgentRegistered"].ID:
		vals, err := unpackEvent(reg, "AgentRegistered", l.Data)
		if err != nil {
			return nil, err
		}
		return AgentRegistered{
			AgentID: uint64OrZero(vals[0].(*big.Int)),
			Creator: vals[1].(common.Address),
			Name:    vals[2].(string),
			Log:     l,
		}, nil
	case reg.Events["AgentCopied"].ID:
		vals, err := unpackEvent(reg, "AgentCopied", l.Data)
		if err != nil {
			return nil, err
		}
		return AgentCopied{
			AgentID: uint64OrZero(vals[0].(*big.Int)),
			Copier:  vals[1].(common.Address),
			Log:     l,
		}, nil
	case ct.Events["TradeExecuted"].ID:
		vals, err := unpackEvent(ct, "TradeExecuted", l.Data)
		if err != nil {
			return nil, err
		}
		return TradeExecuted{
			AgentID: uint64OrZero(vals[0].(*big.Int)),
			User:    vals[1].(common.Address),
			Action:  Action(vals[2].(string)),
			Asset:   vals[3].(string),
			Amount:  units.WeiToETH(vals[4].(*big.Int)),
			Log:     l,
		}, nil
	}
	return nil, fmt.Errorf("%w: topic %s", ErrUnknownEvent, l.Topics[0].Hex())
}

func unpackEvent(parsed abi.ABI, name string, data []byte) ([]interface{}, error) {
	ev := parsed.Events[name]
	vals, err := ev.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	if len(vals) != len(ev.Inputs) {
		return nil, fmt.Errorf("decoding %s: got %d fields, want %d", name, len(vals), len(ev.Inputs))
	}
	return vals, nil
}

// RegisteredAgentID returns the agent ID announced in a registerAgent
// receipt.
func RegisteredAgentID(r *chain.Receipt) (uint64, bool) {
	if r == nil {
		return 0, false
	}
	for _, l := range r.Logs {
		if ev, err := DecodeLog(l); err == nil {
			if reg, ok := ev.(AgentRegistered); ok {
				return reg.AgentID, true
			}
		}
	}
	return 0, false
}
