// Package events streams AgentRegistered, AgentCopied and TradeExecuted
// notifications from the two contracts.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
)

// Reconnection and heartbeat settings.
const (
	InitialBackoff = 1 * time.Second
	MaxBackoff     = 60 * time.Second
	BackoffFactor  = 2.0
	JitterPercent  = 0.2

	PingInterval = 30 * time.Second
	PongTimeout  = 10 * time.Second
	WriteTimeout = 10 * time.Second
)

// subscribeID is the JSON-RPC id of the eth_subscribe request.
const subscribeID = 1

// Listener holds a websocket eth_subscribe "logs" subscription open and
// forwards decoded events, reconnecting with exponential backoff.
type Listener struct {
	url   string
	addrs contract.Addresses
	log   *slog.Logger

	initialBackoff time.Duration
	backoff        time.Duration

	connMu sync.Mutex
	conn   *websocket.Conn
}

// Option configures a Listener.
type Option func(*Listener)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(ln *Listener) { ln.log = l }
}

// NewListener creates a listener for the contracts at addrs on the node
// behind the websocket url.
func NewListener(url string, addrs contract.Addresses, opts ...Option) *Listener {
	l := &Listener{
		url:            url,
		addrs:          addrs,
		log:            slog.Default(),
		initialBackoff: InitialBackoff,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.backoff = l.initialBackoff
	return l
}

// Run streams events into out until ctx is done. It returns ctx.Err().
func (l *Listener) Run(ctx context.Context, out chan<- contract.Event) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := l.connect(ctx); err != nil {
			l.log.Error("ws_connect_failed", "err", err, "backoff", l.backoff)
			l.closeConnection()
			l.waitBackoff(ctx)
			continue
		}

		if err := l.readLoop(ctx, out); err != nil && ctx.Err() == nil {
			l.log.Warn("ws_read_error", "err", err)
		}
		l.closeConnection()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.waitBackoff(ctx)
	}
}

type rpcMessage struct {
	ID     *int            `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *chain.RPCError `json:"error,omitempty"`
	Params *struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params,omitempty"`
}

// connect dials the node and opens the subscription.
func (l *Listener) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial failed: %w", err)
	}

	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PingInterval + PongTimeout))
	})

	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      subscribeID,
		"method":  "eth_subscribe",
		"params":  []interface{}{"logs", l.filter()},
	}
	if err := l.write(func(c *websocket.Conn) error { return c.WriteJSON(req) }); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(WriteTimeout))
	var ack rpcMessage
	if err := conn.ReadJSON(&ack); err != nil {
		return fmt.Errorf("reading subscribe response: %w", err)
	}
	if ack.Error != nil {
		return fmt.Errorf("subscribe rejected: %w", ack.Error)
	}
	var subID string
	if err := json.Unmarshal(ack.Result, &subID); err != nil {
		return fmt.Errorf("parsing subscription id: %w", err)
	}

	l.backoff = l.initialBackoff
	l.log.Info("ws_subscribed", "endpoint", l.url, "subscription", subID)
	return nil
}

func (l *Listener) filter() map[string]interface{} {
	return map[string]interface{}{
		"address": []common.Address{l.addrs.AgentRegistry, l.addrs.CopyTrade},
		"topics":  [][]common.Hash{contract.EventTopics()},
	}
}

// readLoop forwards notifications until the connection fails or ctx ends.
func (l *Listener) readLoop(ctx context.Context, out chan<- contract.Event) error {
	l.connMu.Lock()
	conn := l.conn
	l.connMu.Unlock()
	if conn == nil {
		return errors.New("connection is nil")
	}

	done := make(chan struct{})
	defer close(done)
	go l.pinger(ctx, done)

	_ = conn.SetReadDeadline(time.Now().Add(PingInterval + PongTimeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}
		ev, err := parseNotification(data)
		if err != nil {
			l.log.Debug("ws_parse_error", "err", err)
			continue
		}
		if ev == nil {
			continue
		}
		select {
		case out <- ev:
			l.log.Debug("event_received", "event", ev.EventName(), "block", uint64(ev.Raw().BlockNumber))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// parseNotification decodes an eth_subscription message. It returns nil,
// nil for messages that carry no event, such as removed logs.
func parseNotification(data []byte) (contract.Event, error) {
	var msg rpcMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	if msg.Method != "eth_subscription" || msg.Params == nil {
		return nil, nil
	}
	var entry chain.LogEntry
	if err := json.Unmarshal(msg.Params.Result, &entry); err != nil {
		return nil, fmt.Errorf("invalid log: %w", err)
	}
	if entry.Removed {
		return nil, nil
	}
	return contract.DecodeLog(entry)
}

// pinger keeps the connection alive and closes it on ctx cancellation so
// the blocked read returns.
func (l *Listener) pinger(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			l.closeConnection()
			return
		case <-ticker.C:
			err := l.write(func(c *websocket.Conn) error {
				return c.WriteMessage(websocket.PingMessage, nil)
			})
			if err != nil {
				l.log.Warn("ws_ping_failed", "err", err)
				l.closeConnection()
				return
			}
		}
	}
}

func (l *Listener) write(fn func(*websocket.Conn) error) error {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn == nil {
		return errors.New("connection is nil")
	}
	_ = l.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return fn(l.conn)
}

func (l *Listener) closeConnection() {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
		l.log.Info("ws_disconnected")
	}
}

// waitBackoff waits for the backoff duration with jitter, then grows it.
func (l *Listener) waitBackoff(ctx context.Context) {
	wait := jittered(l.backoff)
	l.log.Debug("ws_waiting_backoff", "duration", wait)

	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}

	l.backoff = time.Duration(float64(l.backoff) * BackoffFactor)
	if l.backoff > MaxBackoff {
		l.backoff = MaxBackoff
	}
}

func jittered(d time.Duration) time.Duration {
	return d + time.Duration(float64(d)*JitterPercent*(rand.Float64()*2-1))
}
