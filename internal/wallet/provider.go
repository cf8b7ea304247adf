package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// Provider is the wallet capability a session connects through. A nil
// Provider means no wallet is available at all.
type Provider interface {
	// RequestAccounts asks the user to authorize an account. It may block
	// on an approval prompt.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (int64, error)
	// Client is the network connection owned by the provider.
	Client() *chain.EVMClient
	// Signer returns a transaction signer for account, or ErrWatchOnly.
	Signer(account common.Address) (TxSigner, error)
	// Subscribe delivers account and chain notifications until cancel is called.
	Subscribe() (events <-chan Event, cancel func())
	// Revoke forgets every authorization.
	Revoke(ctx context.Context) error
}

// EventKind names a provider notification.
type EventKind string

const (
	AccountsChanged EventKind = "accountsChanged"
	ChainChanged    EventKind = "chainChanged"
)

// Event is a provider notification.
type Event struct {
	Kind     EventKind
	Accounts []common.Address
	ChainID  int64
}

// ProviderError is an EIP-1193 style error with a numeric code.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string  { return e.Message }
func (e *ProviderError) ErrorCode() int { return e.Code }

// Provider errors.
var (
	ErrRejected      = &ProviderError{Code: 4001, Message: "User rejected the request."}
	ErrRequestActive = &ProviderError{Code: -32002, Message: "Request of type 'eth_requestAccounts' already processing."}
	ErrNoWallet      = &ProviderError{Code: 4100, Message: "No wallet selected."}
)

// ApprovalRequest is shown to the user before an account is authorized.
type ApprovalRequest struct {
	Wallet  *Wallet
	ChainID int64
}

// Approver decides whether an account may be authorized.
type Approver interface {
	Approve(ctx context.Context, req ApprovalRequest) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req ApprovalRequest) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, req ApprovalRequest) (bool, error) {
	return f(ctx, req)
}

// AutoApprove approves every request.
var AutoApprove = ApproverFunc(func(context.Context, ApprovalRequest) (bool, error) { return true, nil })

// KeystoreProvider is a Provider over the local wallets file and keystore.
type KeystoreProvider struct {
	wallets *Manager
	auth    AuthStore
	approve Approver

	mu      sync.Mutex
	client  *chain.EVMClient
	pending bool
	subs    map[int]chan Event
	nextSub int
}

// ProviderOption configures a KeystoreProvider.
type ProviderOption func(*KeystoreProvider)

// WithApprover sets the approval prompt. The default approves everything.
func WithApprover(a Approver) ProviderOption {
	return func(p *KeystoreProvider) { p.approve = a }
}

// WithAuthStore sets where authorizations are remembered.
func WithAuthStore(s AuthStore) ProviderOption {
	return func(p *KeystoreProvider) { p.auth = s }
}

// NewKeystoreProvider creates a provider over wallets talking to client.
func NewKeystoreProvider(wallets *Manager, client *chain.EVMClient, opts ...ProviderOption) *KeystoreProvider {
	p := &KeystoreProvider{
		wallets: wallets,
		client:  client,
		auth:    &MemAuthStore{},
		approve: AutoApprove,
		subs:    make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RequestAccounts returns the authorized accounts, prompting for the default
// wallet when none are authorized yet. Only one prompt may be open at a time.
func (p *KeystoreProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	accounts, err := p.Accounts(ctx)
	if err != nil || len(accounts) > 0 {
		return accounts, err
	}

	p.mu.Lock()
	if p.pending {
		p.mu.Unlock()
		return nil, ErrRequestActive
	}
	p.pending = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.pending = false
		p.mu.Unlock()
	}()

	w := p.wallets.Default()
	if w == nil {
		return nil, ErrNoWallet
	}
	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	ok, err := p.approve.Approve(ctx, ApprovalRequest{Wallet: w, ChainID: chainID})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRejected
	}

	accounts = []common.Address{w.Addr()}
	if err := p.auth.Save(Authorization{Accounts: accounts}); err != nil {
		return nil, fmt.Errorf("saving authorization: %w", err)
	}
	p.emit(Event{Kind: AccountsChanged, Accounts: accounts})
	return accounts, nil
}

// Accounts returns authorized accounts that still exist in the wallets file.
func (p *KeystoreProvider) Accounts(_ context.Context) ([]common.Address, error) {
	a, err := p.auth.Load()
	if err != nil {
		return nil, fmt.Errorf("loading authorization: %w", err)
	}
	out := make([]common.Address, 0, len(a.Accounts))
	for _, acct := range a.Accounts {
		if _, err := p.wallets.GetByAddress(acct); err == nil {
			out = append(out, acct)
		}
	}
	return out, nil
}

// ChainID returns the chain ID of the connected node.
func (p *KeystoreProvider) ChainID(ctx context.Context) (int64, error) {
	return p.Client().ChainID(ctx)
}

// Client returns the current network connection.
func (p *KeystoreProvider) Client() *chain.EVMClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// Signer returns a signer for an account held in the wallets file.
func (p *KeystoreProvider) Signer(account common.Address) (TxSigner, error) {
	w, err := p.wallets.GetByAddress(account)
	if err != nil {
		return nil, err
	}
	return NewSigner(w, p.wallets.Keys())
}

// Revoke forgets every authorized account.
func (p *KeystoreProvider) Revoke(_ context.Context) error {
	if err := p.auth.Save(Authorization{}); err != nil {
		return err
	}
	p.emit(Event{Kind: AccountsChanged})
	return nil
}

// SelectAccount switches the authorized account to the named wallet.
func (p *KeystoreProvider) SelectAccount(name string) error {
	w, err := p.wallets.Get(name)
	if err != nil {
		return err
	}
	accounts := []common.Address{w.Addr()}
	if err := p.auth.Save(Authorization{Accounts: accounts}); err != nil {
		return err
	}
	p.emit(Event{Kind: AccountsChanged, Accounts: accounts})
	return nil
}

// SwitchNetwork points the provider at another node and announces the new
// chain.
func (p *KeystoreProvider) SwitchNetwork(ctx context.Context, client *chain.EVMClient) error {
	id, err := client.ChainID(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	p.emit(Event{Kind: ChainChanged, ChainID: id})
	return nil
}

// Subscribe registers a notification listener.
func (p *KeystoreProvider) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}

// emit fans out ev. Slow listeners miss events rather than block the provider.
func (p *KeystoreProvider) emit(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Watch polls the authorization file and the node's chain ID every interval
// and emits notifications for changes made outside this process, such as
// `copytrader disconnect` in another terminal. It returns when ctx is done.
func (p *KeystoreProvider) Watch(ctx context.Context, interval time.Duration) {
	lastAccounts, _ := p.Accounts(ctx)
	lastChain, _ := p.ChainID(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if accounts, err := p.Accounts(ctx); err == nil && !sameAccounts(accounts, lastAccounts) {
			lastAccounts = accounts
			p.emit(Event{Kind: AccountsChanged, Accounts: accounts})
		}
		if id, err := p.ChainID(ctx); err == nil && id != lastChain {
			lastChain = id
			p.emit(Event{Kind: ChainChanged, ChainID: id})
		}
	}
}

func sameAccounts(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsRejection reports whether err is the user declining a prompt.
func IsRejection(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == ErrRejected.Code
}
