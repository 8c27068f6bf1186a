package binance

import (
	"testing"
	"time"
)

type parseMetrics struct {
	drops map[string]int
}

func newParseMetrics() *parseMetrics { return &parseMetrics{drops: make(map[string]int)} }

func (m *parseMetrics) RecordTick(string)               {}
func (m *parseMetrics) RecordDrop(reason, _ string)     { m.drops[reason]++ }
func (m *parseMetrics) RecordReconnect()                {}
func (m *parseMetrics) RecordBarClosed(string)          {}
func (m *parseMetrics) RecordSignal(string, string)     {}
func (m *parseMetrics) RecordLastPrice(string, float64) {}
func (m *parseMetrics) RecordError(string)              {}
func (m *parseMetrics) RecordLatency(string, float64)   {}

func newParseClient(m *parseMetrics) *Client {
	s := New("wss://example/stream", []string{"BTCUSDT", "ethusdt"}, time.Second, time.Second, m)
	return s.(*Client)
}

func TestParseTradeFrame(t *testing.T) {
	c := newParseClient(newParseMetrics())
	raw := []byte(`{"stream":"btcusdt@trade","data":{"e":"trade","E":1717243200123,"s":"BTCUSDT","t":987654,"p":"68123.45","q":"0.0042"}}`)

	tick, ok := c.parse(raw)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if tick.Symbol != "btcusdt" {
		t.Fatalf("symbol = %q, want lowercased", tick.Symbol)
	}
	if tick.Price != 68123.45 || tick.Quantity != 0.0042 {
		t.Fatalf("price/qty = %g/%g", tick.Price, tick.Quantity)
	}
	if tick.TradeID != 987654 || tick.EventTime != 1717243200123 {
		t.Fatalf("id/time = %d/%d", tick.TradeID, tick.EventTime)
	}
}

func TestParseRejectsNonTradeFrames(t *testing.T) {
	m := newParseMetrics()
	c := newParseClient(m)

	// subscription ack, not a trade: dropped silently
	if _, ok := c.parse([]byte(`{"result":null,"id":1}`)); ok {
		t.Fatalf("ack frame parsed as tick")
	}
	if _, ok := c.parse([]byte(`not json`)); ok {
		t.Fatalf("garbage parsed as tick")
	}
	if m.drops["malformed"] != 0 {
		t.Fatalf("non-trade frames should not count as malformed")
	}
}

func TestParseCountsMalformedTrades(t *testing.T) {
	m := newParseMetrics()
	c := newParseClient(m)

	bad := []string{
		`{"stream":"btcusdt@trade","data":{"e":"trade","E":1,"s":"","t":1,"p":"1","q":"1"}}`,
		`{"stream":"btcusdt@trade","data":{"e":"trade","E":0,"s":"BTCUSDT","t":1,"p":"1","q":"1"}}`,
		`{"stream":"btcusdt@trade","data":{"e":"trade","E":1,"s":"BTCUSDT","t":0,"p":"1","q":"1"}}`,
		`{"stream":"btcusdt@trade","data":{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"abc","q":"1"}}`,
		`{"stream":"btcusdt@trade","data":{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"-5","q":"1"}}`,
		`{"stream":"btcusdt@trade","data":{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"1","q":"-1"}}`,
		// ParseFloat accepts these spellings; they must still be rejected
		`{"stream":"btcusdt@trade","data":{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"NaN","q":"1"}}`,
		`{"stream":"btcusdt@trade","data":{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"Inf","q":"1"}}`,
		`{"stream":"btcusdt@trade","data":{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"-Inf","q":"1"}}`,
		`{"stream":"btcusdt@trade","data":{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"1","q":"NaN"}}`,
		`{"stream":"btcusdt@trade","data":{"e":"trade","E":1,"s":"BTCUSDT","t":1,"p":"1","q":"Inf"}}`,
	}
	for i, raw := range bad {
		if _, ok := c.parse([]byte(raw)); ok {
			t.Fatalf("case %d: malformed trade parsed as tick", i)
		}
	}
	if m.drops["malformed"] != len(bad) {
		t.Fatalf("malformed drops = %d, want %d", m.drops["malformed"], len(bad))
	}
}
