package ui

import (
	"context"
	"strings"

	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/Mohsinsiddi/copytrader/internal/view"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Tab is a dashboard page.
type Tab int

const (
	TabLeaderboard Tab = iota
	TabBuilder
	TabHistory
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabLeaderboard:
		return "Leaderboard"
	case TabBuilder:
		return "Create Agent"
	case TabHistory:
		return "Trade History"
	}
	return "?"
}

// Builder focus positions.
const (
	focusName = iota
	focusStrategy
	focusReturn
	focusSubmit
	focusCount
)

// DashboardDeps wires the dashboard to its controllers.
type DashboardDeps struct {
	Leaderboard *view.Leaderboard
	Builder     *view.Builder
	History     *view.TradeHistory
	Wallet      *view.WalletWidget
	// Sessions delivers session snapshots; nil disables live updates.
	Sessions <-chan session.State
	// Events delivers contract events; nil disables auto refresh.
	Events <-chan contract.Event
}

// Messages produced by dashboard commands. gen ties a result to the tab
// visit that started it; results from an older visit are ignored.
type (
	loadedMsg struct {
		gen uint64
		err error
	}
	actionMsg struct {
		gen     uint64
		tab     Tab
		outcome view.Outcome
		err     error
	}
	walletMsg       struct{ err error }
	sessionMsg      session.State
	sessionDoneMsg  struct{}
	dashEventMsg    struct{ ev contract.Event }
	eventsClosedMsg struct{}
)

// DashboardModel is the Bubble Tea model for the interactive dashboard.
type DashboardModel struct {
	deps DashboardDeps
	root context.Context

	tab    Tab
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc

	busy    bool
	spinner spinner.Model

	cursor      int
	inputs      [2]textinput.Model // name, return
	strategyIdx int
	focus       int

	lastAccount string
	quitting    bool
}

// NewDashboard creates the dashboard model. Cancelling ctx cancels every
// in-flight operation.
func NewDashboard(ctx context.Context, deps DashboardDeps) DashboardModel {
	name := textinput.New()
	name.Placeholder = "e.g. Momentum Hunter"
	name.CharLimit = 64
	name.Width = 32
	name.Focus()

	ret := textinput.New()
	ret.Placeholder = "e.g. 15.5"
	ret.CharLimit = 12
	ret.Width = 12

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StyleChain

	m := DashboardModel{
		deps:        deps,
		root:        ctx,
		spinner:     sp,
		inputs:      [2]textinput.Model{name, ret},
		strategyIdx: -1,
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	return m
}

// RunDashboard runs the dashboard full-screen until the user quits.
func RunDashboard(ctx context.Context, deps DashboardDeps) error {
	m := NewDashboard(ctx, deps)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	m.cancel()
	return err
}

func (m DashboardModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.loadCmd(), textinput.Blink}
	if m.deps.Sessions != nil {
		cmds = append(cmds, waitSession(m.deps.Sessions))
	}
	if m.deps.Events != nil {
		cmds = append(cmds, waitDashEvent(m.deps.Events))
	}
	return tea.Batch(cmds...)
}

func waitSession(ch <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return sessionDoneMsg{}
		}
		return sessionMsg(st)
	}
}

func waitDashEvent(ch <-chan contract.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return dashEventMsg{ev: ev}
	}
}

// switchTab cancels whatever the current tab started and loads the next one.
func (m *DashboardModel) switchTab(t Tab) tea.Cmd {
	if t == m.tab {
		return nil
	}
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(m.root)
	m.gen++
	m.tab = t
	m.busy = false
	m.cursor = 0
	return m.loadCmd()
}

// loadCmd refreshes the current tab. The builder has nothing to load.
func (m *DashboardModel) loadCmd() tea.Cmd {
	ctx, gen := m.ctx, m.gen
	switch m.tab {
	case TabLeaderboard:
		lb := m.deps.Leaderboard
		return func() tea.Msg { return loadedMsg{gen: gen, err: lb.Load(ctx)} }
	case TabHistory:
		h := m.deps.History
		return func() tea.Msg { return loadedMsg{gen: gen, err: h.Load(ctx)} }
	}
	return nil
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		return m, nil

	case actionMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.tab == TabBuilder && msg.outcome == view.Done {
			m.inputs[0].SetValue("")
			m.inputs[1].SetValue("")
			m.strategyIdx = -1
		}
		return m, nil

	case walletMsg:
		return m, nil

	case sessionMsg:
		cmds := []tea.Cmd{waitSession(m.deps.Sessions)}
		acct := session.State(msg).Account.Hex()
		if acct != m.lastAccount {
			m.lastAccount = acct
			cmds = append(cmds, m.loadCmd())
		}
		return m, tea.Batch(cmds...)

	case dashEventMsg:
		cmds := []tea.Cmd{waitDashEvent(m.deps.Events)}
		if m.affects(msg.ev) {
			cmds = append(cmds, m.loadCmd())
		}
		return m, tea.Batch(cmds...)
	}

	if m.tab == TabBuilder {
		return m.updateInputs(msg)
	}
	return m, nil
}

// affects reports whether ev changes what the current tab shows.
func (m DashboardModel) affects(ev contract.Event) bool {
	switch ev.(type) {
	case contract.AgentRegistered, contract.AgentCopied:
		return m.tab == TabLeaderboard
	case contract.TradeExecuted:
		return m.tab == TabHistory
	}
	return false
}

func (m DashboardModel) typing() bool {
	return m.tab == TabBuilder && (m.focus == focusName || m.focus == focusReturn)
}

func (m DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c":
		m.quitting = true
		m.cancel()
		return m, tea.Quit
	case "tab":
		return m, m.switchTab((m.tab + 1) % tabCount)
	case "shift+tab":
		return m, m.switchTab((m.tab + tabCount - 1) % tabCount)
	}

	if !m.typing() {
		switch key {
		case "q", "esc":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		case "1", "2", "3":
			return m, m.switchTab(Tab(key[0] - '1'))
		case "c":
			return m, m.toggleWallet()
		case "x":
			m.deps.Wallet.Dismiss()
			m.deps.Leaderboard.Dismiss()
			m.deps.Builder.Dismiss()
			return m, nil
		case "r":
			return m, m.loadCmd()
		}
	}

	switch m.tab {
	case TabLeaderboard:
		return m.leaderboardKey(key)
	case TabBuilder:
		return m.builderKey(msg)
	}
	return m, nil
}

func (m *DashboardModel) toggleWallet() tea.Cmd {
	w, ctx := m.deps.Wallet, m.root
	if w.Snapshot().Connected {
		return func() tea.Msg { return walletMsg{err: w.Disconnect(ctx)} }
	}
	return func() tea.Msg { return walletMsg{err: w.Connect(ctx)} }
}

func (m DashboardModel) leaderboardKey(key string) (tea.Model, tea.Cmd) {
	rows := m.deps.Leaderboard.Snapshot().Rows
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor >= len(rows) || rows[m.cursor].Disabled {
			return m, nil
		}
		id := rows[m.cursor].Agent.ID
		lb, ctx, gen := m.deps.Leaderboard, m.ctx, m.gen
		m.busy = true
		return m, func() tea.Msg {
			out, err := lb.Copy(ctx, id)
			return actionMsg{gen: gen, tab: TabLeaderboard, outcome: out, err: err}
		}
	}
	return m, nil
}

func (m DashboardModel) builderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up":
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, nil
	case "down":
		m.setFocus((m.focus + 1) % focusCount)
		return m, nil
	case "left", "right":
		if m.focus == focusStrategy {
			n := len(view.Strategies)
			if msg.String() == "left" {
				m.strategyIdx = (m.strategyIdx + n - 1) % n
			} else {
				m.strategyIdx = (m.strategyIdx + 1) % n
			}
			m.syncForm()
			return m, nil
		}
	case "enter":
		if m.busy {
			return m, nil
		}
		m.syncForm()
		b, ctx, gen := m.deps.Builder, m.ctx, m.gen
		m.busy = true
		return m, func() tea.Msg {
			out, err := b.Submit(ctx)
			return actionMsg{gen: gen, tab: TabBuilder, outcome: out, err: err}
		}
	}
	return m.updateInputs(msg)
}

func (m *DashboardModel) setFocus(f int) {
	m.focus = f
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	switch f {
	case focusName:
		m.inputs[0].Focus()
	case focusReturn:
		m.inputs[1].Focus()
	}
}

func (m DashboardModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	m.syncForm()
	return m, tea.Batch(cmds...)
}

func (m *DashboardModel) syncForm() {
	tag := ""
	if m.strategyIdx >= 0 && m.strategyIdx < len(view.Strategies) {
		tag = view.Strategies[m.strategyIdx].Tag
	}
	m.deps.Builder.SetForm(view.AgentForm{
		Name:     m.inputs[0].Value(),
		Strategy: tag,
		Return:   m.inputs[1].Value(),
	})
}

func (m DashboardModel) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(Logo())
	sb.WriteString(Wallet(m.deps.Wallet.Snapshot()) + "\n\n")

	var tabs []string
	for t := Tab(0); t < tabCount; t++ {
		if t == m.tab {
			tabs = append(tabs, StyleTabActive.Render(t.String()))
		} else {
			tabs = append(tabs, StyleTab.Render(t.String()))
		}
	}
	sb.WriteString(strings.Join(tabs, " ") + "\n\n")

	switch m.tab {
	case TabLeaderboard:
		sb.WriteString(Leaderboard(m.deps.Leaderboard.Snapshot(), m.cursor))
	case TabBuilder:
		sb.WriteString(Builder(m.deps.Builder.Snapshot(),
			[3]string{m.inputs[0].View(), "", m.inputs[1].View()}, m.strategyIdx, m.focus))
	case TabHistory:
		sb.WriteString(TradeHistory(m.deps.History.Snapshot()))
	}

	sb.WriteString("\n")
	if m.busy {
		sb.WriteString(m.spinner.View() + " " + Meta("waiting for wallet and network…") + "\n")
	}
	sb.WriteString(Meta(m.help()) + "\n")
	return sb.String()
}

func (m DashboardModel) help() string {
	switch m.tab {
	case TabLeaderboard:
		return "[tab] switch  [↑↓] select  [enter] copy  [c] wallet  [r] refresh  [x] dismiss  [q] quit"
	case TabBuilder:
		return "[tab] switch  [↑↓] field  [←→] strategy  [enter] register  [ctrl+c] quit"
	}
	return "[tab] switch  [c] wallet  [r] refresh  [q] quit"
}
