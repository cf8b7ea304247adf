package view

import (
	"context"

	"github.com/Mohsinsiddi/copytrader/internal/apperr"
	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/shopspring/decimal"
)

// Session is the part of *session.Manager the views use.
type Session interface {
	State() session.State
	Connect(ctx context.Context) (session.State, error)
	Disconnect()
	ClearError()
}

// AgentReader loads the agent collection.
type AgentReader interface {
	LoadAgents(ctx context.Context) ([]contract.Agent, error)
}

// AgentCopier submits copyAgent.
type AgentCopier interface {
	CopyAgent(ctx context.Context, agentID uint64) (*chain.Receipt, error)
	Loading() bool
}

// AgentRegistrar submits registerAgent.
type AgentRegistrar interface {
	RegisterAgent(ctx context.Context, name, strategyHash string, returnPercent decimal.Decimal) (*chain.Receipt, error)
	Loading() bool
}

// TradeReader loads the trade history.
type TradeReader interface {
	LoadTrades(ctx context.Context) ([]contract.Trade, error)
}

// Outcome says how a mutating action ended.
type Outcome int

const (
	// Done means the action was submitted and confirmed.
	Done Outcome = iota
	// Connected means the session was disconnected, a connection was
	// made instead, and the action must be triggered again.
	Connected
	// Failed means the action or the connection failed; see the banner.
	Failed
	// Invalid means the input was rejected before anything was sent.
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Connected:
		return "connected"
	case Invalid:
		return "invalid"
	}
	return "failed"
}

// BannerKind distinguishes error and success banners.
type BannerKind int

const (
	BannerError BannerKind = iota
	BannerSuccess
)

// Banner is a dismissible message.
type Banner struct {
	Kind BannerKind
	Text string
}

// ensureConnected connects when needed. ok is true only when the session
// was already connected; otherwise the caller must stop and report outcome.
func ensureConnected(ctx context.Context, s Session) (ok bool, outcome Outcome, err error) {
	if s.State().Connected {
		return true, Done, nil
	}
	if _, err := s.Connect(ctx); err != nil {
		return false, Failed, err
	}
	return false, Connected, nil
}

// messageFor picks the view-specific text for err.
func messageFor(err error, overrides map[apperr.Kind]string, fallback string) string {
	k := apperr.KindOf(err)
	if m, ok := overrides[k]; ok {
		return m
	}
	if k == apperr.InsufficientFunds {
		return apperr.Message(err, nil)
	}
	return fallback
}
