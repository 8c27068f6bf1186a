package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"PairPulse/internal/domain/models"
	drepo "PairPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a MarketStream backed by the Binance combined trade
// stream. One physical connection multiplexes all symbol subscriptions.
type Client struct {
	websocketURL     string
	symbols          []string
	pingInterval     time.Duration
	handshakeTimeout time.Duration
	metrics          drepo.Metrics

	conn      *websocket.Conn
	connected bool
}

// New creates a new Binance MarketStream for the given symbols.
func New(websocketURL string, symbols []string, pingInterval, handshakeTimeout time.Duration, metrics drepo.Metrics) drepo.MarketStream {
	low := make([]string, len(symbols))
	for i, s := range symbols {
		low[i] = strings.ToLower(s)
	}
	return &Client{
		websocketURL:     websocketURL,
		symbols:          low,
		pingInterval:     pingInterval,
		handshakeTimeout: handshakeTimeout,
		metrics:          metrics,
	}
}

// Connect establishes the WebSocket connection to the combined stream.
func (c *Client) Connect(ctx context.Context) error {
	streams := make([]string, len(c.symbols))
	for i, s := range c.symbols {
		streams[i] = s + "@trade"
	}
	u := fmt.Sprintf("%s?streams=%s", c.websocketURL, strings.Join(streams, "/"))

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = c.handshakeTimeout
	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("binance: connected streams=%s", strings.Join(streams, ","))
	return nil
}

// Subscribe re-issues the trade subscriptions on the open connection.
// The combined-stream URL already carries them, so this is what makes a
// reconnect pick all symbols back up.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("binance not connected")
	}
	params := make([]string, len(c.symbols))
	for i, s := range c.symbols {
		params[i] = s + "@trade"
	}
	msg := map[string]interface{}{"method": "SUBSCRIBE", "params": params, "id": 1}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Printf("binance: subscribed %s", strings.Join(params, ","))
	return nil
}

// Trade payload fields:
//
//	E: event time (ms)  s: symbol  t: trade id  p: price  q: quantity
type wsTrade struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	TradeID   int64  `json:"t"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
}

type wsFrame struct {
	Stream string  `json:"stream"`
	Data   wsTrade `json:"data"`
}

// Read streams Tick events and errors until ctx is cancelled or the
// connection fails. Malformed frames are dropped and counted, never
// surfaced as ticks.
func (c *Client) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("binance conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance read: %w", err)
					return
				}
				tick, ok := c.parse(b)
				if !ok {
					continue
				}
				select {
				case ticks <- tick:
				default:
					c.drop("backpressure", tick.Symbol)
				}
			}
		}
	}()

	return ticks, errs
}

// parse converts one frame into a Tick, rejecting anything that is not a
// complete trade payload.
func (c *Client) parse(b []byte) (*models.Tick, bool) {
	var f wsFrame
	if err := json.Unmarshal(b, &f); err != nil {
		// subscription acks and non-JSON frames land here
		return nil, false
	}
	d := f.Data
	if d.EventType != "trade" {
		return nil, false
	}
	if d.Symbol == "" || d.EventTime <= 0 || d.TradeID <= 0 {
		c.drop("malformed", d.Symbol)
		return nil, false
	}
	// ParseFloat accepts "NaN" and "Inf" spellings, and NaN slips past any
	// comparison, so finiteness is checked explicitly.
	price, err := strconv.ParseFloat(d.Price, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		c.drop("malformed", d.Symbol)
		return nil, false
	}
	qty, err := strconv.ParseFloat(d.Quantity, 64)
	if err != nil || math.IsNaN(qty) || math.IsInf(qty, 0) || qty < 0 {
		c.drop("malformed", d.Symbol)
		return nil, false
	}
	return &models.Tick{
		Symbol:    strings.ToLower(d.Symbol),
		Price:     price,
		Quantity:  qty,
		EventTime: d.EventTime,
		TradeID:   d.TradeID,
	}, true
}

func (c *Client) drop(reason, symbol string) {
	if c.metrics != nil {
		c.metrics.RecordDrop(reason, strings.ToLower(symbol))
	}
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
