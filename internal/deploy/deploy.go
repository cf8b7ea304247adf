// Package deploy publishes the agent registry and copy-trade simulator
// contracts and records where they landed.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FallbackGas is used when the node cannot estimate a deployment.
const FallbackGas = 3_000_000

// ErrNoContractAddress is returned when a mined deployment has no address.
var ErrNoContractAddress = errors.New("receipt has no contract address")

// Verifier submits contract sources to a block explorer.
type Verifier interface {
	Verify(ctx context.Context, req chain.VerifyRequest) error
}

// Stage names a step reported to the progress hook.
type Stage string

const (
	StageDeploying  Stage = "deploying"
	StageDeployed   Stage = "deployed"
	StageConfirming Stage = "confirming"
	StageVerifying  Stage = "verifying"
	StageVerified   Stage = "verified"
	StageVerifyFail Stage = "verify_failed"
)

// Progress is one reported step.
type Progress struct {
	Stage    Stage
	Contract string
	Address  common.Address
	Err      error
}

// Result describes one deployed contract.
type Result struct {
	Contract  string
	Address   common.Address
	TxHash    common.Hash
	Block     uint64
	GasUsed   uint64
	Verified  bool
	VerifyErr error

	receipt *chain.Receipt
}

// Summary is the outcome of deploying both contracts.
type Summary struct {
	Network       string
	ChainID       int64
	Deployer      common.Address
	AgentRegistry Result
	CopyTrade     Result
	DeployedAt    time.Time
}

// Deployment converts s into a manifest entry.
func (s *Summary) Deployment() *contract.Deployment {
	return &contract.Deployment{
		Network:       s.Network,
		ChainID:       s.ChainID,
		AgentRegistry: s.AgentRegistry.Address.Hex(),
		CopyTrade:     s.CopyTrade.Address.Hex(),
		Deployer:      s.Deployer.Hex(),
		Block:         s.AgentRegistry.Block,
		Verified:      s.AgentRegistry.Verified && s.CopyTrade.Verified,
		DeployedAt:    s.DeployedAt,
	}
}

// Addresses returns the deployed contract addresses.
func (s *Summary) Addresses() contract.Addresses {
	return contract.Addresses{AgentRegistry: s.AgentRegistry.Address, CopyTrade: s.CopyTrade.Address}
}

// Deployer sends contract-creation transactions from one signer.
type Deployer struct {
	client         *chain.EVMClient
	signer         wallet.TxSigner
	network        *chain.Network
	log            *slog.Logger
	receiptTimeout time.Duration
	confirmations  uint64
	verifier       Verifier
	buildInfo      *BuildInfo
	progress       func(Progress)
	now            func() time.Time
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(d *Deployer) { d.log = l } }

// WithReceiptTimeout bounds the wait for each deployment receipt.
func WithReceiptTimeout(t time.Duration) Option {
	return func(d *Deployer) { d.receiptTimeout = t }
}

// WithConfirmations sets how many blocks to wait on non-local networks.
func WithConfirmations(n uint64) Option { return func(d *Deployer) { d.confirmations = n } }

// WithVerification enables source verification with the given build info.
func WithVerification(v Verifier, bi *BuildInfo) Option {
	return func(d *Deployer) {
		d.verifier = v
		d.buildInfo = bi
	}
}

// WithProgress registers a hook called at every stage.
func WithProgress(fn func(Progress)) Option { return func(d *Deployer) { d.progress = fn } }

// New creates a Deployer for network.
func New(client *chain.EVMClient, signer wallet.TxSigner, network *chain.Network, opts ...Option) *Deployer {
	d := &Deployer{
		client:         client,
		signer:         signer,
		network:        network,
		log:            slog.Default(),
		receiptTimeout: 5 * time.Minute,
		confirmations:  5,
		progress:       func(Progress) {},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DeployAll deploys the registry and then the simulator. On public networks
// it waits for confirmations and verifies sources when enabled; verification
// failures are recorded in the results and never fail the deployment.
func (d *Deployer) DeployAll(ctx context.Context, registry, copyTrade *contract.Artifact) (*Summary, error) {
	chainID, err := d.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain id: %w", err)
	}
	if d.network != nil && d.network.ChainID != 0 && d.network.ChainID != chainID {
		return nil, fmt.Errorf("rpc reports chain %d, expected %s (%d)", chainID, d.network.Name, d.network.ChainID)
	}

	s := &Summary{ChainID: chainID, Deployer: d.signer.Address()}
	if d.network != nil {
		s.Network = d.network.Name
	}

	if s.AgentRegistry, err = d.Deploy(ctx, registry, chainID); err != nil {
		return nil, err
	}
	if s.CopyTrade, err = d.Deploy(ctx, copyTrade, chainID); err != nil {
		return nil, err
	}
	s.DeployedAt = d.now().UTC()

	if d.local() {
		return s, nil
	}

	for _, r := range []*Result{&s.AgentRegistry, &s.CopyTrade} {
		d.progress(Progress{Stage: StageConfirming, Contract: r.Contract, Address: r.Address})
		if err := d.client.WaitForConfirmations(ctx, r.receipt, d.confirmations); err != nil {
			return s, fmt.Errorf("waiting for %s confirmations: %w", r.Contract, err)
		}
	}
	if d.verifier == nil || d.buildInfo == nil {
		return s, nil
	}
	d.verify(ctx, &s.AgentRegistry, registry)
	d.verify(ctx, &s.CopyTrade, copyTrade)
	return s, nil
}

// Deploy sends one contract-creation transaction and waits for its receipt.
func (d *Deployer) Deploy(ctx context.Context, art *contract.Artifact, chainID int64) (Result, error) {
	name := art.ContractName
	res := Result{Contract: name}
	d.progress(Progress{Stage: StageDeploying, Contract: name})

	data, err := art.DeployData()
	if err != nil {
		return res, fmt.Errorf("building %s deploy data: %w", name, err)
	}
	from := d.signer.Address()

	gasPrice, err := d.client.GasPrice(ctx)
	if err != nil {
		return res, fmt.Errorf("fetching gas price: %w", err)
	}
	gas, err := d.client.EstimateGas(ctx, chain.CallMsg{From: from, Data: data})
	if err != nil {
		d.log.Warn("deploy_estimate_failed", "contract", name, "err", err, "fallback_gas", FallbackGas)
		gas = FallbackGas
	}
	nonce, err := d.client.PendingNonce(ctx, from)
	if err != nil {
		return res, fmt.Errorf("fetching nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        nil,
		Value:     big.NewInt(0),
		Data:      data,
	})
	raw, err := d.signer.SignTx(tx, big.NewInt(chainID))
	if err != nil {
		return res, fmt.Errorf("signing %s deployment: %w", name, err)
	}
	hash, err := d.client.SendRawTransaction(ctx, raw)
	if err != nil {
		return res, fmt.Errorf("broadcasting %s deployment: %w", name, err)
	}
	res.TxHash = hash
	d.log.Info("deploy_submitted", "contract", name, "tx", hash.Hex(), "nonce", nonce)

	receipt, err := d.client.WaitForReceipt(ctx, hash, d.receiptTimeout)
	if err != nil {
		return res, fmt.Errorf("deploy tx %s: %w", hash.Hex(), err)
	}
	if receipt.ContractAddress == (common.Address{}) {
		return res, fmt.Errorf("deploy tx %s: %w", hash.Hex(), ErrNoContractAddress)
	}
	res.Address = receipt.ContractAddress
	res.Block = receipt.BlockNumber
	res.GasUsed = receipt.GasUsed
	res.receipt = receipt
	d.log.Info("deploy_confirmed", "contract", name, "address", res.Address.Hex(), "block", res.Block)
	d.progress(Progress{Stage: StageDeployed, Contract: name, Address: res.Address})
	return res, nil
}

func (d *Deployer) verify(ctx context.Context, r *Result, art *contract.Artifact) {
	d.progress(Progress{Stage: StageVerifying, Contract: r.Contract, Address: r.Address})
	req, err := d.buildInfo.Request(r.Address, art.QualifiedName(), "")
	if err == nil {
		err = d.verifier.Verify(ctx, req)
	}
	if err != nil {
		r.VerifyErr = err
		d.log.Warn("verify_failed", "contract", r.Contract, "address", r.Address.Hex(), "err", err)
		d.progress(Progress{Stage: StageVerifyFail, Contract: r.Contract, Address: r.Address, Err: err})
		return
	}
	r.Verified = true
	d.log.Info("verified", "contract", r.Contract, "address", r.Address.Hex())
	d.progress(Progress{Stage: StageVerified, Contract: r.Contract, Address: r.Address})
}

func (d *Deployer) local() bool {
	return d.network == nil || d.network.Local
}
