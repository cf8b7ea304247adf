package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/config"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/deploy"
	"github.com/Mohsinsiddi/copytrader/internal/ui"
	"github.com/spf13/cobra"
)

var (
	deployArtifacts     string
	deployVerify        bool
	deployBuildInfo     string
	deployConfirmations uint64
	deployEnvFile       string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy AgentRegistry and CopyTradeSimulator",
	Long: `Deploy both contracts from Hardhat artifacts with the connected wallet.

The addresses are recorded in deployments.toml for the network and used by
every other command from then on. On public networks the command waits for
confirmations and, with --verify, submits the sources to the explorer.`,
	Example: `  copytrader deploy --network localhost --yes
  copytrader deploy --network base-sepolia --verify --env-file ../frontend/.env`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registryArt, err := contract.LoadArtifact(artifactPath(deployArtifacts, "AgentRegistry"))
		if err != nil {
			return err
		}
		copyArt, err := contract.LoadArtifact(artifactPath(deployArtifacts, "CopyTradeSimulator"))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		st, err := a.requireSigner(ctx)
		if err != nil {
			return err
		}

		confirmations := deployConfirmations
		if !cmd.Flags().Changed("confirmations") && cfg.Confirmations > 0 {
			confirmations = cfg.Confirmations
		}
		out := cmd.OutOrStdout()
		opts := []deploy.Option{
			deploy.WithLogger(log),
			deploy.WithReceiptTimeout(config.TxDeployTimeout),
			deploy.WithConfirmations(confirmations),
			deploy.WithProgress(progressPrinter(out)),
		}
		if deployVerify {
			if a.network.ExplorerAPI == "" {
				return fmt.Errorf("%s has no explorer API to verify against", a.network.DisplayName)
			}
			bi, err := deploy.FindBuildInfo(deployBuildInfo, registryArt.QualifiedName(), copyArt.QualifiedName())
			if err != nil {
				return err
			}
			opts = append(opts, deploy.WithVerification(chain.NewVerifier(a.network.ExplorerAPI, cfg.ExplorerAPIKey), bi))
		}

		fmt.Fprintf(out, "Deploying to %s from %s\n\n", ui.ChainName(a.network.DisplayName), ui.Addr(st.Account.Hex()))
		summary, err := deploy.New(st.Client(), st.Signer, a.network, opts...).DeployAll(ctx, registryArt, copyArt)
		if summary != nil {
			// Mined contracts are recorded even when confirmations time out.
			a.manifest.Put(summary.Deployment())
			if saveErr := a.manifest.Save(); saveErr != nil {
				log.Warn("manifest_save_failed", "err", saveErr)
			}
		}
		if err != nil {
			return err
		}

		if deployEnvFile != "" {
			err := config.UpdateDotEnv(deployEnvFile, map[string]string{
				config.EnvAgentRegistry: summary.AgentRegistry.Address.Hex(),
				config.EnvCopyTrade:     summary.CopyTrade.Address.Hex(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Info("Updated "+deployEnvFile))
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.KeyValueBlock("Deployment", summaryPairs(a.network, summary)))
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Recorded in %s", cfg.DeploymentsPath())))
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployArtifacts, "artifacts", "artifacts/contracts", "Hardhat artifacts directory")
	deployCmd.Flags().BoolVar(&deployVerify, "verify", false, "verify sources on the network's explorer")
	deployCmd.Flags().StringVar(&deployBuildInfo, "build-info", "artifacts/build-info", "Hardhat build-info directory used by --verify")
	deployCmd.Flags().Uint64Var(&deployConfirmations, "confirmations", config.DeployConfirmations, "blocks to wait on public networks")
	deployCmd.Flags().StringVar(&deployEnvFile, "env-file", "", "write the addresses into this .env file")
}

// artifactPath follows Hardhat's layout: <dir>/<Name>.sol/<Name>.json.
func artifactPath(dir, name string) string {
	return filepath.Join(dir, name+".sol", name+".json")
}

func progressPrinter(out io.Writer) func(deploy.Progress) {
	return func(p deploy.Progress) {
		switch p.Stage {
		case deploy.StageDeploying:
			fmt.Fprintln(out, ui.Info("Deploying "+p.Contract+"…"))
		case deploy.StageDeployed:
			fmt.Fprintln(out, ui.Success(p.Contract+" at "+ui.Addr(p.Address.Hex())))
		case deploy.StageConfirming:
			fmt.Fprintln(out, ui.Meta("  waiting for "+p.Contract+" confirmations"))
		case deploy.StageVerifying:
			fmt.Fprintln(out, ui.Meta("  verifying "+p.Contract))
		case deploy.StageVerified:
			fmt.Fprintln(out, ui.Success(p.Contract+" verified"))
		case deploy.StageVerifyFail:
			fmt.Fprintln(out, ui.Warn(fmt.Sprintf("%s not verified: %v", p.Contract, p.Err)))
		}
	}
}

func summaryPairs(n *chain.Network, s *deploy.Summary) [][2]string {
	pairs := [][2]string{
		{"Network", fmt.Sprintf("%s (%d)", n.DisplayName, s.ChainID)},
		{"Deployer", s.Deployer.Hex()},
	}
	for _, r := range []deploy.Result{s.AgentRegistry, s.CopyTrade} {
		pairs = append(pairs,
			[2]string{r.Contract, r.Address.Hex()},
			[2]string{"  tx", r.TxHash.Hex()},
			[2]string{"  gas used", strconv.FormatUint(r.GasUsed, 10)},
		)
		if url := n.AddressURL(r.Address.Hex()); url != "" {
			pairs = append(pairs, [2]string{"  explorer", url})
		}
	}
	return pairs
}
