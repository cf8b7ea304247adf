package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// Backfill decodes past events of both contracts from fromBlock (nil means
// genesis) to the latest block, in chain order.
func Backfill(ctx context.Context, client *chain.EVMClient, addrs contract.Addresses, fromBlock *big.Int) ([]contract.Event, error) {
	logs, err := client.GetLogs(ctx, chain.FilterQuery{
		Addresses: []common.Address{addrs.AgentRegistry, addrs.CopyTrade},
		Topics:    [][]common.Hash{contract.EventTopics()},
		FromBlock: fromBlock,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching logs: %w", err)
	}

	out := make([]contract.Event, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		ev, err := contract.DecodeLog(l)
		if errors.Is(err, contract.ErrUnknownEvent) {
			continue
		}
		if err != nil {
			slog.Warn("log_decode_failed", "tx", l.TxHash.Hex(), "err", err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
