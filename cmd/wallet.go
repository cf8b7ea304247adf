package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/Mohsinsiddi/copytrader/internal/ui"
	"github.com/Mohsinsiddi/copytrader/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	walletKeyFlag string
	signWallet    string
	verifySig     string
	verifyAddress string
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the wallets copytrader can connect",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a signing wallet (--key) or a watch-only address",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		name := args[0]
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}

		var w *wallet.Wallet
		switch {
		case walletKeyFlag != "":
			if w, err = mgr.AddWithKey(name, walletKeyFlag); err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
		case len(args) == 2:
			if w, err = mgr.AddWatchOnly(name, args[1]); err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(w.Address))))
		default:
			return fmt.Errorf("address required for watch-only wallet\n  Usage: copytrader wallet add <name> <address>\n  Or for signing: copytrader wallet add <name> --key <private-key>")
		}
		if w.IsDefault {
			fmt.Fprintln(out, ui.Hint("This is your only wallet, so it is the default. Connect with: copytrader connect"))
		} else {
			fmt.Fprintln(out, ui.Hint(fmt.Sprintf("Set as default with: copytrader wallet use %s", name)))
		}
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		wallets := mgr.List()
		if len(wallets) == 0 {
			fmt.Fprintln(out, ui.Info("No wallets configured yet."))
			fmt.Fprintln(out, ui.Hint("Add one with: copytrader wallet add myWallet --key <private-key>"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 42},
			{Title: "Type", Width: 11},
			{Title: "Default", Width: 7},
		})
		for _, w := range wallets {
			def := ""
			if w.IsDefault {
				def = "✓"
			}
			t.AddRow(ui.Row{w.Name, w.Address, walletTypeLabel(w.Type), def})
		}
		fmt.Fprint(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		name := args[0]
		if !yesFlag && !ui.NewPrompter(os.Stdin, out).ConfirmDanger(fmt.Sprintf("Remove wallet %q?", name)) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		if err := mgr.Remove(name); err != nil {
			return fmt.Errorf("wallet %q: %w", name, err)
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the default wallet",
	Long: `Set the wallet offered when connecting. If an account is already
connected, the connection switches to this wallet.

Without a name an interactive picker is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}

		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			if name, err = pickWallet(mgr); err != nil || name == "" {
				return err
			}
		}
		if err := mgr.SetDefault(name); err != nil {
			return fmt.Errorf("wallet %q: %w", name, err)
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}

		auth := wallet.NewFileAuthStore(cfg.SessionPath())
		if a, err := auth.Load(); err == nil && len(a.Accounts) > 0 {
			p := wallet.NewKeystoreProvider(mgr, nil, wallet.WithAuthStore(auth))
			if err := p.SelectAccount(name); err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Info("Connected account switched."))
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

var walletSignCmd = &cobra.Command{
	Use:   "sign <message>",
	Short: "Sign a message with EIP-191 (personal_sign)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		w, err := signingWallet(mgr, signWallet)
		if err != nil {
			return err
		}
		signer, err := wallet.NewSigner(w, mgr.Keys())
		if err != nil {
			return err
		}
		sig, err := signer.SignMessage([]byte(args[0]))
		if err != nil {
			return fmt.Errorf("signing failed: %w", err)
		}
		sigHex := "0x" + hex.EncodeToString(sig)
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Message Signed", [][2]string{
			{"Signer", w.Address},
			{"Message", args[0]},
			{"Signature", sigHex},
		}))
		return nil
	},
}

var walletVerifyCmd = &cobra.Command{
	Use:   "verify <message>",
	Short: "Recover the signer of an EIP-191 signature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if verifySig == "" {
			return fmt.Errorf("--sig is required")
		}
		sig, err := hex.DecodeString(strings.TrimPrefix(verifySig, "0x"))
		if err != nil {
			return fmt.Errorf("invalid signature hex: %w", err)
		}
		recovered, err := wallet.VerifyMessage([]byte(args[0]), sig)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		pairs := [][2]string{{"Message", args[0]}, {"Recovered Signer", recovered.Hex()}}
		if verifyAddress != "" {
			if strings.EqualFold(recovered.Hex(), verifyAddress) {
				pairs = append(pairs, [2]string{"Match", ui.Success("signer matches")})
			} else {
				pairs = append(pairs, [2]string{"Expected", verifyAddress}, [2]string{"Match", ui.Err("signer does not match")})
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Signature Verification", pairs))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "private key for a signing wallet (stored in the OS keychain)")
	walletSignCmd.Flags().StringVar(&signWallet, "wallet", "", "wallet name (default: default wallet)")
	walletVerifyCmd.Flags().StringVar(&verifySig, "sig", "", "hex signature (required)")
	walletVerifyCmd.Flags().StringVar(&verifyAddress, "address", "", "expected signer address")
	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletRemoveCmd, walletUseCmd, walletSignCmd, walletVerifyCmd)
}

func walletTypeLabel(t string) string {
	if t == wallet.TypeSigning {
		return "read-write"
	}
	return t
}

func pickWallet(mgr *wallet.Manager) (string, error) {
	var items []ui.PickerItem
	for _, w := range mgr.List() {
		items = append(items, ui.PickerItem{
			Label:   w.Name,
			Detail:  w.Address + "  " + walletTypeLabel(w.Type),
			Value:   w.Name,
			Current: w.IsDefault,
		})
	}
	return ui.Pick("Choose the default wallet", items)
}

// signingWallet returns the named wallet, or the default one, and checks it
// holds a key.
func signingWallet(mgr *wallet.Manager, name string) (*wallet.Wallet, error) {
	var w *wallet.Wallet
	if name == "" {
		if w = mgr.Default(); w == nil {
			return nil, fmt.Errorf("no default wallet; set one with `copytrader wallet use <name>`")
		}
	} else {
		var err error
		if w, err = mgr.Get(name); err != nil {
			return nil, fmt.Errorf("wallet %q not found; run `copytrader wallet list`", name)
		}
	}
	if !w.CanSign() {
		return nil, fmt.Errorf("wallet %q is watch-only and cannot sign\n  To add a signing wallet: copytrader wallet add <name> --key <private-key>", w.Name)
	}
	return w, nil
}
