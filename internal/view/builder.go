package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/apperr"
	"github.com/shopspring/decimal"
)

const (
	builderConnectFailed = "Please connect your wallet to continue."
	builderFailed        = "Failed to register agent. Please try again."
	builderSuccess       = "Agent registered successfully! Check the leaderboard to see your agent."
)

var registerMessages = map[apperr.Kind]string{
	apperr.UserRejected:   "Transaction rejected. Please approve the transaction to register your agent.",
	apperr.NotInitialized: "Smart contracts not loaded. Please reconnect your wallet and try again.",
}

// Form validation errors.
var (
	ErrNameRequired     = errors.New("agent name is required")
	ErrStrategyRequired = errors.New("unknown trading strategy")
	ErrInvalidReturn    = errors.New("12-month return must be a non-negative number")
)

var formMessages = map[error]string{
	ErrNameRequired:     "Agent name is required.",
	ErrStrategyRequired: "Select a trading strategy.",
	ErrInvalidReturn:    "Enter the 12-month return as a non-negative number, e.g. 15.5.",
}

// StrategyOption is one selectable strategy.
type StrategyOption struct {
	Tag   string
	Label string
}

// Strategies lists the selectable strategies in display order.
var Strategies = []StrategyOption{
	{Tag: "sma_crossover", Label: "SMA Crossover"},
	{Tag: "rsi", Label: "RSI Strategy"},
	{Tag: "macd", Label: "MACD Trend Following"},
	{Tag: "mean_reversion", Label: "Mean Reversion"},
}

// StrategyLabel returns the display label for tag, or tag itself.
func StrategyLabel(tag string) string {
	for _, s := range Strategies {
		if s.Tag == tag {
			return s.Label
		}
	}
	return tag
}

// AgentForm is the builder's input.
type AgentForm struct {
	Name     string
	Strategy string
	Return   string
}

// Validate checks f and returns the parsed return percentage.
func (f AgentForm) Validate() (decimal.Decimal, error) {
	if strings.TrimSpace(f.Name) == "" {
		return decimal.Zero, ErrNameRequired
	}
	found := false
	for _, s := range Strategies {
		if s.Tag == f.Strategy {
			found = true
			break
		}
	}
	if !found {
		return decimal.Zero, ErrStrategyRequired
	}
	ret, err := decimal.NewFromString(strings.TrimSpace(f.Return))
	if err != nil || ret.IsNegative() {
		return decimal.Zero, ErrInvalidReturn
	}
	return ret, nil
}

// StrategyHash builds the on-chain strategy reference.
func StrategyHash(tag string, at time.Time) string {
	return fmt.Sprintf("strategy_%s_%d", tag, at.UnixMilli())
}

// BuilderView is a render-ready snapshot.
type BuilderView struct {
	Form       AgentForm
	Submitting bool
	Button     string
	Banner     *Banner
}

// Builder registers a new agent.
type Builder struct {
	sess Session
	reg  AgentRegistrar
	log  *slog.Logger
	now  func() time.Time

	mu         sync.Mutex
	form       AgentForm
	submitting bool
	banner     *Banner
}

// NewBuilder creates an empty builder.
func NewBuilder(sess Session, reg AgentRegistrar, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{sess: sess, reg: reg, log: log, now: time.Now}
}

// SetForm replaces the current input.
func (b *Builder) SetForm(f AgentForm) {
	b.mu.Lock()
	b.form = f
	b.mu.Unlock()
}

// Form returns the current input.
func (b *Builder) Form() AgentForm {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.form
}

// Submit validates the form and registers the agent. While disconnected it
// only connects and reports Connected. The form is cleared on success.
func (b *Builder) Submit(ctx context.Context) (Outcome, error) {
	b.mu.Lock()
	if b.submitting {
		b.mu.Unlock()
		return Failed, apperr.New(apperr.AlreadyProcessing, "register agent")
	}
	b.submitting = true
	form := b.form
	b.banner = nil
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.submitting = false
		b.mu.Unlock()
	}()

	ret, err := form.Validate()
	if err != nil {
		b.setBanner(BannerError, formMessages[err])
		return Invalid, err
	}

	ok, outcome, err := ensureConnected(ctx, b.sess)
	if !ok {
		if err != nil && !apperr.Canceled(err) {
			b.setBanner(BannerError, builderConnectFailed)
		}
		return outcome, err
	}

	hash := StrategyHash(form.Strategy, b.now())
	if _, err := b.reg.RegisterAgent(ctx, strings.TrimSpace(form.Name), hash, ret); err != nil {
		if !apperr.Canceled(err) {
			b.setBanner(BannerError, messageFor(err, registerMessages, builderFailed))
		}
		return Failed, err
	}

	b.mu.Lock()
	b.form = AgentForm{}
	b.banner = &Banner{Kind: BannerSuccess, Text: builderSuccess}
	b.mu.Unlock()
	b.log.Info("agent_registered", "name", form.Name, "strategy", form.Strategy)
	return Done, nil
}

// Dismiss clears the banner.
func (b *Builder) Dismiss() {
	b.mu.Lock()
	b.banner = nil
	b.mu.Unlock()
}

// Snapshot returns the current form state.
func (b *Builder) Snapshot() BuilderView {
	connected := b.sess.State().Connected
	b.mu.Lock()
	defer b.mu.Unlock()
	v := BuilderView{Form: b.form, Submitting: b.submitting, Banner: b.banner}
	switch {
	case !connected:
		v.Button = "Connect Wallet"
	case b.submitting:
		v.Button = "Registering..."
	default:
		v.Button = "Register Agent"
	}
	return v
}

func (b *Builder) setBanner(kind BannerKind, text string) {
	b.mu.Lock()
	b.banner = &Banner{Kind: kind, Text: text}
	b.mu.Unlock()
}
