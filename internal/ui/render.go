package ui

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/copytrader/internal/view"
)

// Leaderboard renders a leaderboard snapshot. cursor selects a row, -1 for none.
func Leaderboard(v view.LeaderboardView, cursor int) string {
	var sb strings.Builder
	if v.Error != "" {
		sb.WriteString(Err(v.Error) + "\n\n")
	}
	switch {
	case v.Loading && len(v.Rows) == 0:
		sb.WriteString(Meta("Loading agents...") + "\n")
		return sb.String()
	case v.Empty != "":
		sb.WriteString(Meta(v.Empty) + "\n")
		return sb.String()
	}

	t := NewTable([]Column{
		{Title: "Rank", Width: 5},
		{Title: "Agent", Width: 22},
		{Title: "Creator", Width: 13},
		{Title: "12M Return", Width: 11},
		{Title: "Copiers", Width: 8},
		{Title: "Created", Width: 10},
		{Title: "", Width: 12},
	})
	t.SelIdx = cursor
	for i, r := range v.Rows {
		t.AddRow(Row{r.Rank, r.Agent.Name, r.Creator, r.Return, r.Copiers, r.Created, "[" + r.Button + "]"})
		if r.Disabled {
			t.Dim[i] = true
		}
	}
	sb.WriteString(t.Render())
	return sb.String()
}

// TradeHistory renders a trade history snapshot.
func TradeHistory(v view.HistoryView) string {
	switch {
	case v.Loading && len(v.Rows) == 0:
		return Meta("Loading trades...") + "\n"
	case v.Empty != "":
		return Meta(v.Empty) + "\n"
	}
	t := NewTable([]Column{
		{Title: "Agent", Width: 6},
		{Title: "User", Width: 13},
		{Title: "Action", Width: 6},
		{Title: "Asset", Width: 8},
		{Title: "Amount", Width: 14},
		{Title: "Time", Width: 19},
	})
	for _, r := range v.Rows {
		t.AddRow(Row{r.Agent, r.User, r.Action, r.Asset, r.Amount, r.Time})
	}
	return t.Render()
}

// Builder renders the agent registration form. focus is the index of the
// focused field; the strategy picker is field 1.
func Builder(v view.BuilderView, fields [3]string, strategyIdx, focus int) string {
	var sb strings.Builder
	if b := v.Banner; b != nil {
		if b.Kind == view.BannerSuccess {
			sb.WriteString(Success(b.Text) + "\n\n")
		} else {
			sb.WriteString(Err(b.Text) + "\n\n")
		}
	}

	label := func(i int, s string) string {
		if i == focus {
			return StyleHeader.Render(s)
		}
		return StyleMeta.Render(s)
	}

	sb.WriteString(label(0, "Agent name") + "\n" + fields[0] + "\n\n")

	sb.WriteString(label(1, "Trading strategy") + "\n")
	for i, s := range view.Strategies {
		marker := "  ( ) "
		if i == strategyIdx {
			marker = "  (•) "
		}
		line := marker + s.Label
		if i == strategyIdx && focus == 1 {
			line = StyleSelected.Render(line)
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString(label(2, "12-month return (%)") + "\n" + fields[2] + "\n\n")

	button := "[ " + v.Button + " ]"
	if focus == 3 {
		button = StyleSelected.Render(button)
	} else if v.Submitting {
		button = StyleDim.Render(button)
	}
	sb.WriteString(button + "\n")
	return sb.String()
}

// Wallet renders the connection widget on one line.
func Wallet(v view.WalletView) string {
	var sb strings.Builder
	if v.Connected {
		sb.WriteString(StyleSuccess.Render("●") + " " + Addr(v.Account) + " " + ChainName(v.Network))
		if v.WatchOnly {
			sb.WriteString(" " + StyleWarning.Render("watch-only"))
		}
	} else {
		sb.WriteString(StyleError.Render("○") + " " + Meta("not connected"))
	}
	sb.WriteString("  " + StyleInfo.Render("["+v.Button+"]"))
	if v.Error != "" {
		sb.WriteString("\n" + Err(v.Error) + Meta("  (x to dismiss)"))
	}
	return sb.String()
}

// AgentDetail renders one agent as a key-value block.
func AgentDetail(r view.LeaderboardRow) string {
	a := r.Agent
	return KeyValueBlock(fmt.Sprintf("Agent #%d · %s", a.ID, a.Name), [][2]string{
		{"Creator", a.Creator.Hex()},
		{"Strategy", a.StrategyHash},
		{"12M Return", r.Return},
		{"Copiers", r.Copiers},
		{"Created", r.Created},
	})
}
