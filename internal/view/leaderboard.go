package view

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/Mohsinsiddi/copytrader/internal/apperr"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
)

const (
	leaderboardLoadFailed = "Failed to load agents. Please refresh the page and try again."
	leaderboardEmpty      = "No agents registered yet. Be the first to create one!"
	copyConnectFailed     = "Please connect your wallet to copy an agent."
	copyFailed            = "Failed to copy agent. Please try again."
)

var copyMessages = map[apperr.Kind]string{
	apperr.UserRejected:     "Transaction rejected. Please approve the transaction to copy this agent.",
	apperr.NonexistentAgent: "This agent no longer exists. Please refresh the page.",
	apperr.NotInitialized:   "Smart contracts not loaded. Please connect your wallet and try again.",
}

// LeaderboardRow is one rendered agent.
type LeaderboardRow struct {
	Agent    contract.Agent
	Rank     string
	Creator  string
	Return   string
	Copiers  string
	Created  string
	Busy     bool
	Disabled bool
	Button   string
}

// LeaderboardView is a render-ready snapshot.
type LeaderboardView struct {
	Rows    []LeaderboardRow
	Loading bool
	Error   string
	// Empty is set when loading finished with no agents.
	Empty string
}

// Leaderboard lists agents by return and lets the user copy one.
type Leaderboard struct {
	sess   Session
	reader AgentReader
	copier AgentCopier
	log    *slog.Logger

	mu      sync.Mutex
	agents  []contract.Agent
	loading bool
	err     string
	copying map[uint64]bool
	gen     uint64
}

// NewLeaderboard creates a leaderboard in the loading state.
func NewLeaderboard(sess Session, reader AgentReader, copier AgentCopier, log *slog.Logger) *Leaderboard {
	if log == nil {
		log = slog.Default()
	}
	return &Leaderboard{
		sess:    sess,
		reader:  reader,
		copier:  copier,
		log:     log,
		loading: true,
		copying: make(map[uint64]bool),
	}
}

// Load refetches the agents. A result that arrives after a newer Load
// started is discarded.
func (l *Leaderboard) Load(ctx context.Context) error {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.loading = true
	l.err = ""
	l.mu.Unlock()

	agents, err := l.reader.LoadAgents(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return err
	}
	l.loading = false
	if err != nil {
		if !apperr.Canceled(err) {
			l.agents = nil
			l.err = leaderboardLoadFailed
			l.log.Warn("leaderboard_load_failed", "err", err)
		}
		return err
	}
	SortAgents(agents)
	l.agents = agents
	return nil
}

// Copy copies agentID for the connected account and reloads on success.
// While disconnected it only connects and reports Connected.
func (l *Leaderboard) Copy(ctx context.Context, agentID uint64) (Outcome, error) {
	ok, outcome, err := ensureConnected(ctx, l.sess)
	if !ok {
		if err != nil && !apperr.Canceled(err) {
			l.setError(copyConnectFailed)
		}
		return outcome, err
	}

	l.mu.Lock()
	if l.copying[agentID] {
		l.mu.Unlock()
		return Failed, apperr.New(apperr.AlreadyProcessing, "copy agent")
	}
	l.copying[agentID] = true
	l.err = ""
	l.mu.Unlock()

	_, err = l.copier.CopyAgent(ctx, agentID)

	l.mu.Lock()
	delete(l.copying, agentID)
	l.mu.Unlock()

	if err != nil {
		if !apperr.Canceled(err) {
			l.setError(messageFor(err, copyMessages, copyFailed))
		}
		return Failed, err
	}
	_ = l.Load(ctx)
	return Done, nil
}

// Dismiss clears the error banner.
func (l *Leaderboard) Dismiss() { l.setError("") }

// Snapshot returns the current rows in rank order.
func (l *Leaderboard) Snapshot() LeaderboardView {
	busy := l.copier != nil && l.copier.Loading()

	l.mu.Lock()
	defer l.mu.Unlock()
	v := LeaderboardView{Loading: l.loading, Error: l.err}
	if !l.loading && len(l.agents) == 0 {
		v.Empty = leaderboardEmpty
	}
	for i, a := range l.agents {
		rowBusy := l.copying[a.ID]
		button := "Copy Agent"
		if rowBusy {
			button = "Copying..."
		}
		v.Rows = append(v.Rows, LeaderboardRow{
			Agent:    a,
			Rank:     Rank(i),
			Creator:  ShortAddress(a.Creator),
			Return:   FormatReturn(a.ReturnPercent),
			Copiers:  strconv.FormatUint(a.CopierCount, 10),
			Created:  FormatDate(a.CreatedAt),
			Busy:     rowBusy,
			Disabled: busy || rowBusy,
			Button:   button,
		})
	}
	return v
}

func (l *Leaderboard) setError(msg string) {
	l.mu.Lock()
	l.err = msg
	l.mu.Unlock()
}
