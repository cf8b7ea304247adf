package view

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/wallet"
)

// Revoker forgets wallet authorizations so a later resync stays
// disconnected. *session.Manager's provider satisfies it.
type Revoker interface {
	Revoke(ctx context.Context) error
}

// WalletView is a render-ready snapshot of the connection widget.
type WalletView struct {
	Connected bool
	Account   string
	Network   string
	WatchOnly bool
	Busy      bool
	Button    string
	Error     string
}

// WalletWidget connects and disconnects the session.
type WalletWidget struct {
	sess    Session
	revoker Revoker
	log     *slog.Logger

	mu   sync.Mutex
	busy bool
}

// NewWalletWidget creates a widget. revoker may be nil.
func NewWalletWidget(sess Session, revoker Revoker, log *slog.Logger) *WalletWidget {
	if log == nil {
		log = slog.Default()
	}
	return &WalletWidget{sess: sess, revoker: revoker, log: log}
}

// RevokerFor returns p as a Revoker, or nil when p is nil.
func RevokerFor(p wallet.Provider) Revoker {
	if p == nil {
		return nil
	}
	return p
}

// Connect connects the session. Failures land in the session's LastError.
func (w *WalletWidget) Connect(ctx context.Context) error {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return nil
	}
	w.busy = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.busy = false
		w.mu.Unlock()
	}()

	_, err := w.sess.Connect(ctx)
	return err
}

// Disconnect clears the session and its error, then revokes the
// authorization when a revoker is set.
func (w *WalletWidget) Disconnect(ctx context.Context) error {
	w.sess.Disconnect()
	w.sess.ClearError()
	if w.revoker == nil {
		return nil
	}
	if err := w.revoker.Revoke(ctx); err != nil {
		w.log.Warn("wallet_revoke_failed", "err", err)
		return err
	}
	return nil
}

// Dismiss clears the session error.
func (w *WalletWidget) Dismiss() { w.sess.ClearError() }

// Snapshot renders the current session.
func (w *WalletWidget) Snapshot() WalletView {
	st := w.sess.State()
	w.mu.Lock()
	busy := w.busy
	w.mu.Unlock()

	v := WalletView{Connected: st.Connected, Busy: busy, Error: st.LastError}
	switch {
	case st.Connected:
		v.Account = ShortAddress(st.Account)
		v.Network = networkName(st.ChainID)
		v.WatchOnly = !st.CanSign()
		v.Button = "Disconnect"
	case busy:
		v.Button = "Connecting..."
	default:
		v.Button = "Connect Wallet"
	}
	return v
}

var networks = chain.NewRegistry()

func networkName(chainID int64) string {
	if n, err := networks.GetByChainID(chainID); err == nil {
		return n.DisplayName
	}
	return "Chain " + strconv.FormatInt(chainID, 10)
}
