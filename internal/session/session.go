// Package session owns the wallet connection state shared by every view.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Mohsinsiddi/copytrader/internal/apperr"
	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// State is an immutable snapshot of the connection.
//
// Connected is true exactly when Provider is set and Account is non-zero.
// Signer is nil for watch-only accounts.
type State struct {
	Provider  wallet.Provider
	Signer    wallet.TxSigner
	Account   common.Address
	ChainID   int64
	Connected bool
	LastError string
}

// Client returns the provider's network connection, or nil when disconnected.
func (s State) Client() *chain.EVMClient {
	if s.Provider == nil {
		return nil
	}
	return s.Provider.Client()
}

// CanSign reports whether writes can be submitted.
func (s State) CanSign() bool { return s.Connected && s.Signer != nil }

var connectMessages = map[apperr.Kind]string{
	apperr.UserRejected:      "Connection rejected. Please approve the connection in your wallet to continue.",
	apperr.AlreadyProcessing: "Your wallet is already processing a request. Please check your wallet.",
	apperr.Unknown:           "Failed to connect wallet. Please try again.",
	apperr.RemoteRead:        "Failed to connect wallet. Please try again.",
}

// ConnectMessage returns the text shown for a failed connect.
func ConnectMessage(err error) string {
	return apperr.Message(err, connectMessages)
}

// Manager is the single owner of State. Consumers read snapshots and
// never mutate fields directly.
type Manager struct {
	provider wallet.Provider
	log      *slog.Logger

	mu         sync.RWMutex
	state      State
	connecting bool
	subs       map[int]chan State
	nextSub    int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a disconnected session over p. A nil p models a host
// with no wallet capability: Connect then fails with ClientNotFound.
func NewManager(p wallet.Provider, opts ...Option) *Manager {
	m := &Manager{
		provider: p,
		log:      slog.Default(),
		subs:     make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Provider returns the wallet capability, which may be nil.
func (m *Manager) Provider() wallet.Provider { return m.provider }

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Connected reports whether a wallet is connected.
func (m *Manager) Connected() bool { return m.State().Connected }

// Connecting reports whether a Connect call is in flight.
func (m *Manager) Connecting() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connecting
}

// Connect asks the wallet for an account and populates the session. On
// failure the session is left disconnected with LastError set, and the
// classified error is returned.
func (m *Manager) Connect(ctx context.Context) (State, error) {
	m.update(func(s *State) {
		s.LastError = ""
		m.connecting = true
	})
	defer m.update(func(*State) { m.connecting = false })

	if m.provider == nil {
		return State{}, m.fail(apperr.New(apperr.ClientNotFound, "connect"))
	}

	accounts, err := m.provider.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = errors.New("no accounts authorized")
	}
	var next State
	if err == nil {
		next, err = m.derive(ctx, accounts[0])
	}
	if err != nil {
		if apperr.Canceled(err) {
			return State{}, err
		}
		return State{}, m.fail(apperr.Classify("connect", err, apperr.Unknown))
	}

	m.update(func(s *State) { *s = next })
	m.log.Info("wallet_connected", "account", next.Account.Hex(), "chain_id", next.ChainID)
	return next, nil
}

// Disconnect resets the session to empty. It makes no network calls and is
// idempotent.
func (m *Manager) Disconnect() {
	wasConnected := m.Connected()
	m.update(func(s *State) { *s = State{} })
	if wasConnected {
		m.log.Info("wallet_disconnected")
	}
}

// ClearError drops LastError and nothing else.
func (m *Manager) ClearError() {
	m.update(func(s *State) { s.LastError = "" })
}

// Resync re-derives the session from already-authorized accounts without
// prompting. No authorized accounts is the same as Disconnect.
func (m *Manager) Resync(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	accounts, err := m.provider.Accounts(ctx)
	if err != nil {
		m.log.Warn("session_resync_failed", "err", err)
		return err
	}
	if len(accounts) == 0 {
		m.Disconnect()
		return nil
	}
	next, err := m.derive(ctx, accounts[0])
	if err != nil {
		m.log.Warn("session_resync_failed", "err", err)
		return err
	}
	prev := m.State()
	m.update(func(s *State) { *s = next })
	if prev.Account != next.Account || prev.ChainID != next.ChainID {
		m.log.Info("wallet_resynced", "account", next.Account.Hex(), "chain_id", next.ChainID)
	}
	return nil
}

// Watch resyncs once, then on every account or chain notification until
// ctx is done.
func (m *Manager) Watch(ctx context.Context) {
	if m.provider == nil {
		return
	}
	events, cancel := m.provider.Subscribe()
	defer cancel()

	_ = m.Resync(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == wallet.AccountsChanged && len(ev.Accounts) == 0 {
				m.Disconnect()
				continue
			}
			_ = m.Resync(ctx)
		}
	}
}

// Subscribe delivers a snapshot after every change until cancel is called.
// A slow reader only ever misses intermediate snapshots.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) derive(ctx context.Context, account common.Address) (State, error) {
	chainID, err := m.provider.ChainID(ctx)
	if err != nil {
		return State{}, err
	}
	signer, err := m.provider.Signer(account)
	if err != nil {
		if !errors.Is(err, wallet.ErrWatchOnly) {
			return State{}, err
		}
		signer = nil
	}
	return State{
		Provider:  m.provider,
		Signer:    signer,
		Account:   account,
		ChainID:   chainID,
		Connected: true,
	}, nil
}

func (m *Manager) fail(err error) error {
	msg := ConnectMessage(err)
	m.update(func(s *State) { *s = State{LastError: msg} })
	m.log.Warn("wallet_connect_failed", "kind", apperr.KindOf(err).String(), "err", err)
	return err
}

// update applies fn under the lock and publishes the result.
func (m *Manager) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	snap := m.state
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
	m.mu.Unlock()
}
