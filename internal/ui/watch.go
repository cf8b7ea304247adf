package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/view"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	// maxEventRows caps the live stream.
	maxEventRows = 200
	spinInterval = 80 * time.Millisecond
)

// EventRow is one decoded contract event prepared for display.
type EventRow struct {
	Kind        string
	Agent       string
	Who         string
	Detail      string
	Block       uint64
	TxHash      string
	ExplorerURL string
}

// NewEventRow describes ev. network may be nil.
func NewEventRow(ev contract.Event, network *chain.Network) EventRow {
	raw := ev.Raw()
	row := EventRow{
		Kind:   ev.EventName(),
		Block:  uint64(raw.BlockNumber),
		TxHash: raw.TxHash.Hex(),
	}
	if network != nil {
		row.ExplorerURL = network.TxURL(row.TxHash)
	}
	switch e := ev.(type) {
	case contract.AgentRegistered:
		row.Agent = fmt.Sprintf("#%d", e.AgentID)
		row.Who = view.ShortAddress(e.Creator)
		row.Detail = e.Name
	case contract.AgentCopied:
		row.Agent = fmt.Sprintf("#%d", e.AgentID)
		row.Who = view.ShortAddress(e.Copier)
	case contract.TradeExecuted:
		row.Agent = fmt.Sprintf("#%d", e.AgentID)
		row.Who = view.ShortAddress(e.User)
		row.Detail = fmt.Sprintf("%s %s (%s)", e.Action, e.Asset, view.FormatAmount(e.Amount))
	}
	return row
}

// String is the plain one-line form used when output is not a terminal.
func (r EventRow) String() string {
	parts := []string{fmt.Sprintf("#%d", r.Block), r.Kind, "agent=" + r.Agent, "by=" + r.Who}
	if r.Detail != "" {
		parts = append(parts, r.Detail)
	}
	parts = append(parts, "tx="+r.TxHash)
	return strings.Join(parts, " ")
}

// EventMsg delivers a decoded event to the model.
type EventMsg struct{ Event contract.Event }

type streamClosedMsg struct{}

type watchTickMsg struct{}

// WaitForEvent returns a command that delivers the next event from ch.
func WaitForEvent(ch <-chan contract.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// WatchModel is the Bubble Tea model for the live contract event stream.
type WatchModel struct {
	Title    string
	Network  *chain.Network
	Rows     []EventRow
	events   <-chan contract.Event
	cursor   int
	frame    int
	closed   bool
	quitting bool
	flash    string
}

// NewWatchModel streams events from ch.
func NewWatchModel(title string, network *chain.Network, ch <-chan contract.Event) WatchModel {
	return WatchModel{Title: title, Network: network, events: ch}
}

func watchSpinTick() tea.Cmd {
	return tea.Tick(spinInterval, func(_ time.Time) tea.Msg { return watchTickMsg{} })
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(watchSpinTick(), WaitForEvent(m.events))
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.flash = ""
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.Rows)-1 {
				m.cursor++
			}
		case "o":
			if m.cursor < len(m.Rows) {
				if url := m.Rows[m.cursor].ExplorerURL; url != "" {
					openBrowser(url)
					m.flash = "Opening in browser…"
				} else {
					m.flash = "No explorer for this network"
				}
			}
		}

	case watchTickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, watchSpinTick()

	case EventMsg:
		m.Rows = append([]EventRow{NewEventRow(msg.Event, m.Network)}, m.Rows...)
		if len(m.Rows) > maxEventRows {
			m.Rows = m.Rows[:maxEventRows]
		}
		return m, WaitForEvent(m.events)

	case streamClosedMsg:
		m.closed = true
	}
	return m, nil
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("👁  "+m.Title) + "\n")
	if m.closed {
		sb.WriteString(Meta("  stream closed") + "\n\n")
	} else {
		sb.WriteString(StyleInfo.Render(spinnerFrames[m.frame]+" listening for contract events…") + "\n\n")
	}

	t := NewTable([]Column{
		{Title: "Block", Width: 9},
		{Title: "Event", Width: 16},
		{Title: "Agent", Width: 6},
		{Title: "By", Width: 13},
		{Title: "Detail", Width: 28},
		{Title: "Tx", Width: 13},
	})
	t.SelIdx = m.cursor
	for _, r := range m.Rows {
		t.AddRow(Row{fmt.Sprintf("#%d", r.Block), r.Kind, r.Agent, r.Who, r.Detail, truncateHash(r.TxHash)})
	}
	if len(m.Rows) == 0 {
		sb.WriteString(Meta("  Waiting for events…") + "\n")
	} else {
		sb.WriteString(t.Render())
	}

	sb.WriteString("\n")
	if m.flash != "" {
		sb.WriteString(StyleSuccess.Render("  ✓ " + m.flash))
	} else {
		sb.WriteString(Meta("[ ↑↓ ] navigate   [ o ] open in explorer   [ q ] quit"))
	}
	sb.WriteString("\n")
	return sb.String()
}

func truncateHash(h string) string {
	if len(h) <= 13 {
		return h
	}
	return h[:8] + "…" + h[len(h)-4:]
}

// openBrowser opens url in the OS default browser.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
