package view

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/Mohsinsiddi/copytrader/internal/apperr"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
)

const historyEmpty = "No trades executed yet. Copy an agent to start trading!"

// TradeRow is one rendered trade.
type TradeRow struct {
	Trade  contract.Trade
	Agent  string
	User   string
	Action string
	Asset  string
	Amount string
	Time   string
}

// HistoryView is a render-ready snapshot.
type HistoryView struct {
	Rows    []TradeRow
	Loading bool
	Empty   string
}

// TradeHistory lists simulated trades, newest first. A failed load is
// logged and shows as an empty history.
type TradeHistory struct {
	reader TradeReader
	log    *slog.Logger

	mu      sync.Mutex
	trades  []contract.Trade
	loading bool
	gen     uint64
}

// NewTradeHistory creates a history in the loading state.
func NewTradeHistory(reader TradeReader, log *slog.Logger) *TradeHistory {
	if log == nil {
		log = slog.Default()
	}
	return &TradeHistory{reader: reader, log: log, loading: true}
}

// Load refetches the history.
func (h *TradeHistory) Load(ctx context.Context) error {
	h.mu.Lock()
	h.gen++
	gen := h.gen
	h.loading = true
	h.mu.Unlock()

	trades, err := h.reader.LoadTrades(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	if gen != h.gen {
		return err
	}
	h.loading = false
	if err != nil {
		if !apperr.Canceled(err) {
			h.trades = nil
			h.log.Warn("trade_history_load_failed", "err", err)
		}
		return err
	}
	SortTrades(trades)
	h.trades = trades
	return nil
}

// Snapshot returns the current rows.
func (h *TradeHistory) Snapshot() HistoryView {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := HistoryView{Loading: h.loading}
	if !h.loading && len(h.trades) == 0 {
		v.Empty = historyEmpty
	}
	for _, t := range h.trades {
		v.Rows = append(v.Rows, TradeRow{
			Trade:  t,
			Agent:  "#" + strconv.FormatUint(t.AgentID, 10),
			User:   ShortAddress(t.User),
			Action: string(t.Action),
			Asset:  t.Asset,
			Amount: FormatAmount(t.Amount),
			Time:   FormatTime(t.Timestamp),
		})
	}
	return v
}
