package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(agentID uint64, at int64) contract.Trade {
	return contract.Trade{
		AgentID:   agentID,
		User:      bob,
		Action:    contract.Buy,
		Asset:     "ETH",
		Amount:    decimal.RequireFromString("0.00012"),
		Timestamp: time.Unix(at, 0).UTC(),
	}
}

func TestTradeHistoryNewestFirstStable(t *testing.T) {
	f := &fakeContracts{trades: []contract.Trade{trade(1, 100), trade(2, 300), trade(3, 200), trade(4, 300)}}
	h := NewTradeHistory(f, quietLogger())
	require.NoError(t, h.Load(context.Background()))

	v := h.Snapshot()
	require.Len(t, v.Rows, 4)
	var ids []uint64
	for _, r := range v.Rows {
		ids = append(ids, r.Trade.AgentID)
	}
	assert.Equal(t, []uint64{2, 4, 3, 1}, ids)
	assert.Equal(t, "#2", v.Rows[0].Agent)
	assert.Equal(t, "0.0001 ETH", v.Rows[0].Amount)
	assert.Equal(t, "0x7099...79C8", v.Rows[0].User)
	assert.Equal(t, "BUY", v.Rows[0].Action)
}

func TestTradeHistoryEmptyAndFailure(t *testing.T) {
	f := &fakeContracts{}
	h := NewTradeHistory(f, quietLogger())
	require.NoError(t, h.Load(context.Background()))
	assert.Equal(t, "No trades executed yet. Copy an agent to start trading!", h.Snapshot().Empty)

	f.trades = []contract.Trade{trade(1, 1)}
	require.NoError(t, h.Load(context.Background()))
	f.loadErr = errors.New("rpc down")
	assert.Error(t, h.Load(context.Background()))
	v := h.Snapshot()
	assert.Empty(t, v.Rows, "a failed reload drops stale rows")
	assert.Equal(t, "No trades executed yet. Copy an agent to start trading!", v.Empty)
	assert.False(t, v.Loading)
}

func TestTradeHistoryCancelledReloadKeepsRows(t *testing.T) {
	f := &fakeContracts{trades: []contract.Trade{trade(1, 1)}}
	h := NewTradeHistory(f, quietLogger())
	require.NoError(t, h.Load(context.Background()))

	f.loadErr = context.Canceled
	assert.ErrorIs(t, h.Load(context.Background()), context.Canceled)
	assert.Len(t, h.Snapshot().Rows, 1)
}
