package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Mohsinsiddi/copytrader/internal/apperr"
	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/config"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/rpc"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/Mohsinsiddi/copytrader/internal/ui"
	"github.com/Mohsinsiddi/copytrader/internal/view"
	"github.com/Mohsinsiddi/copytrader/internal/wallet"
)

// app bundles everything a command needs to talk to the contracts.
type app struct {
	network  *chain.Network
	client   *chain.EVMClient
	wallets  *wallet.Manager
	provider *wallet.KeystoreProvider
	session  *session.Manager
	manifest *contract.Manifest
	binding  *contract.Binding
}

// newApp resolves the network and endpoint, opens the wallets and restores
// any remembered authorization without prompting.
func newApp(ctx context.Context) (*app, error) {
	network, err := resolveNetwork()
	if err != nil {
		return nil, err
	}
	url, err := resolveRPC(ctx, network)
	if err != nil {
		return nil, err
	}
	log.Debug("rpc_selected", "network", network.Name, "url", url)

	wallets, err := newWalletManager()
	if err != nil {
		return nil, err
	}

	client := chain.NewEVMClient(url)
	provider := wallet.NewKeystoreProvider(wallets, client,
		wallet.WithApprover(approver()),
		wallet.WithAuthStore(wallet.NewFileAuthStore(cfg.SessionPath())),
	)
	sess := session.NewManager(provider, session.WithLogger(log))
	if err := sess.Resync(ctx); err != nil {
		log.Debug("session_restore_failed", "err", err)
	}

	manifest := contract.NewManifest(cfg.DeploymentsPath())
	if err := manifest.Load(); err != nil {
		return nil, err
	}
	addrs, err := cfg.Addresses(network.Name, manifest)
	if err != nil {
		return nil, err
	}

	return &app{
		network:  network,
		client:   client,
		wallets:  wallets,
		provider: provider,
		session:  sess,
		manifest: manifest,
		binding: contract.New(sess, addrs,
			contract.WithLogger(log),
			contract.WithReadClient(client),
			contract.WithConfirmTimeout(cfg.ConfirmTimeoutDuration()),
		),
	}, nil
}

// Controllers share the session and binding.

func (a *app) leaderboard() *view.Leaderboard {
	return view.NewLeaderboard(a.session, a.binding, a.binding, log)
}

func (a *app) builder() *view.Builder { return view.NewBuilder(a.session, a.binding, log) }

func (a *app) history() *view.TradeHistory { return view.NewTradeHistory(a.binding, log) }

func (a *app) walletWidget() *view.WalletWidget {
	return view.NewWalletWidget(a.session, view.RevokerFor(a.session.Provider()), log)
}

// requireSigner connects when needed and fails for watch-only accounts.
func (a *app) requireSigner(ctx context.Context) (session.State, error) {
	st := a.session.State()
	if !st.Connected {
		var err error
		if st, err = a.session.Connect(ctx); err != nil {
			return st, errors.New(session.ConnectMessage(err))
		}
	}
	if !st.CanSign() {
		return st, fmt.Errorf("account %s is watch-only and cannot sign transactions\n  Add a signing wallet with: copytrader wallet add <name> --key <private-key>", st.Account.Hex())
	}
	return st, nil
}

func resolveNetwork() (*chain.Network, error) {
	name := networkFlag
	if name == "" {
		name = cfg.DefaultNetwork
	}
	n, err := chain.NewRegistry().GetByName(name)
	if err != nil {
		return nil, fmt.Errorf("unknown network %q (run `copytrader networks` to list supported networks)", name)
	}
	return n, nil
}

// resolveRPC prefers the configured rpc_url, else picks among the network's
// public endpoints with the configured algorithm.
func resolveRPC(ctx context.Context, n *chain.Network) (string, error) {
	if cfg.RPCURL != "" {
		return cfg.RPCURL, nil
	}
	ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	url, err := rpc.Select(ctx, n.RPCs, rpc.ParseAlgorithm(cfg.RPCAlgorithm))
	if err != nil {
		return "", fmt.Errorf("%s: %w", n.DisplayName, err)
	}
	return url, nil
}

// resolveWS returns the websocket endpoint for event streaming, or "".
func resolveWS(n *chain.Network) string {
	if cfg.WSURL != "" {
		return cfg.WSURL
	}
	return n.WSURL
}

// newWalletManager opens the wallets file and the key backend.
func newWalletManager() (*wallet.Manager, error) {
	keys, err := wallet.OpenKeystore(cfg.KeysDir())
	if err != nil {
		return nil, err
	}
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeys(keys),
	), nil
}

func approver() wallet.Approver {
	if yesFlag {
		return wallet.AutoApprove
	}
	return ui.NewPrompter(os.Stdin, os.Stderr).Approver()
}

// errLine renders a command failure. Classified failures print their
// user-facing text.
func errLine(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ui.Err(apperr.Message(err, nil))
	}
	return ui.Err(err.Error())
}
