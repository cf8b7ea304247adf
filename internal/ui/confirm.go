package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/wallet"
)

// ErrNotInteractive is returned when a prompt needs a terminal and has none.
var ErrNotInteractive = errors.New("approval needs an interactive terminal; pass --yes to approve")

// Prompter asks yes/no questions on a pair of streams.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	// Interactive is false when in is not a terminal.
	Interactive bool
}

// NewPrompter creates a prompter. Interactivity is detected from in.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, Interactive: IsTerminal(in)}
}

// Confirm asks a yes/no question. Anything but y/yes is no.
func (p *Prompter) Confirm(prompt string) bool {
	return p.ask(StyleWarning.Render(prompt))
}

// ConfirmDanger is Confirm styled for destructive actions.
func (p *Prompter) ConfirmDanger(prompt string) bool {
	return p.ask(StyleError.Render("⚠ " + prompt))
}

func (p *Prompter) ask(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, _ := p.in.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// Approver returns a wallet approver that asks before authorizing an
// account. Without a terminal it fails with ErrNotInteractive. A context
// cancelled while waiting is reported as such.
func (p *Prompter) Approver() wallet.Approver {
	return wallet.ApproverFunc(func(ctx context.Context, req wallet.ApprovalRequest) (bool, error) {
		if !p.Interactive {
			return false, ErrNotInteractive
		}
		network := fmt.Sprintf("chain %d", req.ChainID)
		if n, err := chain.NewRegistry().GetByChainID(req.ChainID); err == nil {
			network = n.DisplayName
		}
		msg := fmt.Sprintf("Connect wallet %q (%s) on %s?", req.Wallet.Name, req.Wallet.Address, network)

		answer := make(chan bool, 1)
		go func() { answer <- p.Confirm(msg) }()
		select {
		case ok := <-answer:
			return ok, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	})
}
