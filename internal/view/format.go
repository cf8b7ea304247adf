// Package view holds the presentation controllers shared by the one-shot
// commands and the dashboard. Controllers own only local view state; the
// session and contracts are reached through small interfaces.
package view

import (
	"fmt"
	"sort"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ShortAddress renders 0x1234...abcd.
func ShortAddress(a common.Address) string {
	h := a.Hex()
	return h[:6] + "..." + h[len(h)-4:]
}

// FormatReturn renders a return percentage with sign and two decimals.
func FormatReturn(p decimal.Decimal) string {
	sign := ""
	if !p.IsNegative() {
		sign = "+"
	}
	return sign + p.StringFixed(2) + "%"
}

// FormatAmount renders an ETH amount with four decimals.
func FormatAmount(eth decimal.Decimal) string {
	return eth.StringFixed(4) + " ETH"
}

// FormatDate renders a creation date.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

// FormatTime renders a trade timestamp.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// Rank renders a leaderboard position: medals for the top three.
func Rank(i int) string {
	switch i {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	}
	return fmt.Sprintf("#%d", i+1)
}

// SortAgents orders agents by return, highest first. Ties keep fetch order.
func SortAgents(agents []contract.Agent) {
	sort.SliceStable(agents, func(i, j int) bool {
		return agents[i].ReturnPercent.GreaterThan(agents[j].ReturnPercent)
	})
}

// SortTrades orders trades newest first. Ties keep fetch order.
func SortTrades(trades []contract.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})
}
