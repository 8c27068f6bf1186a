package repository

import (
	"testing"
	"time"

	"PairPulse/internal/domain/models"
)

type dropRecorder struct {
	drops map[string]int
}

func newDropRecorder() *dropRecorder { return &dropRecorder{drops: make(map[string]int)} }

func (r *dropRecorder) RecordTick(string)               {}
func (r *dropRecorder) RecordDrop(reason, _ string)     { r.drops[reason]++ }
func (r *dropRecorder) RecordReconnect()                {}
func (r *dropRecorder) RecordBarClosed(string)          {}
func (r *dropRecorder) RecordSignal(string, string)     {}
func (r *dropRecorder) RecordLastPrice(string, float64) {}
func (r *dropRecorder) RecordError(string)              {}
func (r *dropRecorder) RecordLatency(string, float64)   {}

func tick(symbol string, price, qty float64, at time.Time, id int64) *models.Tick {
	return &models.Tick{
		Symbol:    symbol,
		Price:     price,
		Quantity:  qty,
		EventTime: at.UnixMilli(),
		TradeID:   id,
	}
}

func TestMemoryBarStoreAggregatesOHLCV(t *testing.T) {
	store := NewMemoryBarStore(time.Minute, 10, newDropRecorder())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if closed := store.Ingest(tick("btcusdt", 100, 1, base.Add(1*time.Second), 1)); closed != nil {
		t.Fatalf("first tick closed a bar")
	}
	store.Ingest(tick("btcusdt", 105, 2, base.Add(20*time.Second), 2))
	store.Ingest(tick("btcusdt", 98, 1, base.Add(40*time.Second), 3))
	store.Ingest(tick("btcusdt", 103, 0.5, base.Add(59*time.Second), 4))

	// next interval closes the first bar
	closed := store.Ingest(tick("btcusdt", 104, 1, base.Add(61*time.Second), 5))
	if closed == nil {
		t.Fatalf("expected closed bar on rollover")
	}
	if closed.Open != 100 || closed.High != 105 || closed.Low != 98 || closed.Close != 103 {
		t.Fatalf("ohlc = %g/%g/%g/%g", closed.Open, closed.High, closed.Low, closed.Close)
	}
	if closed.Volume != 4.5 || closed.Ticks != 4 {
		t.Fatalf("volume = %g ticks = %d", closed.Volume, closed.Ticks)
	}
	if !closed.Start.Equal(base) || !closed.End.Equal(base.Add(time.Minute)) {
		t.Fatalf("bar bounds %v - %v", closed.Start, closed.End)
	}
}

func TestMemoryBarStoreGapLeavesNoSyntheticBars(t *testing.T) {
	store := NewMemoryBarStore(time.Minute, 10, newDropRecorder())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store.Ingest(tick("btcusdt", 100, 1, base, 1))
	// silence for three intervals, then one tick
	closed := store.Ingest(tick("btcusdt", 101, 1, base.Add(4*time.Minute), 2))
	if closed == nil {
		t.Fatalf("expected the stale bar to close")
	}
	bars := store.Bars("btcusdt", 100)
	if len(bars) != 1 {
		t.Fatalf("got %d closed bars, want 1 (gaps must stay gaps)", len(bars))
	}
	open, ok := store.Open("btcusdt")
	if !ok || !open.Start.Equal(base.Add(4*time.Minute)) {
		t.Fatalf("open bar start %v", open.Start)
	}
}

func TestMemoryBarStoreDropsLateTicks(t *testing.T) {
	rec := newDropRecorder()
	store := NewMemoryBarStore(time.Minute, 10, rec)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store.Ingest(tick("btcusdt", 100, 1, base.Add(2*time.Minute), 1))
	if closed := store.Ingest(tick("btcusdt", 999, 1, base, 2)); closed != nil {
		t.Fatalf("late tick closed a bar")
	}
	if rec.drops["late"] != 1 {
		t.Fatalf("late drops = %d, want 1", rec.drops["late"])
	}
	open, _ := store.Open("btcusdt")
	if open.Close != 100 || open.Ticks != 1 {
		t.Fatalf("late tick mutated the open bar: %+v", open)
	}
}

func TestMemoryBarStoreRetentionEviction(t *testing.T) {
	store := NewMemoryBarStore(time.Minute, 3, newDropRecorder())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// 6 intervals -> 5 closed bars, ring keeps the last 3
	for i := 0; i < 6; i++ {
		store.Ingest(tick("btcusdt", 100+float64(i), 1, base.Add(time.Duration(i)*time.Minute), int64(i+1)))
	}
	bars := store.Bars("btcusdt", 100)
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	for i, want := range []float64{102, 103, 104} {
		if bars[i].Close != want {
			t.Fatalf("bars[%d].Close = %g, want %g (oldest first)", i, bars[i].Close, want)
		}
	}
	last, ok := store.LastClosed("btcusdt")
	if !ok || last.Close != 104 {
		t.Fatalf("last closed = %+v", last)
	}
}

func TestMemoryBarStoreBarsPartialHistory(t *testing.T) {
	store := NewMemoryBarStore(time.Minute, 100, newDropRecorder())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		store.Ingest(tick("ethusdt", 50, 1, base.Add(time.Duration(i)*time.Minute), int64(i+1)))
	}
	// 3 closed bars; asking for more returns what exists, unpadded
	if got := len(store.Bars("ethusdt", 10)); got != 3 {
		t.Fatalf("got %d bars, want 3", got)
	}
	if got := store.Bars("ethusdt", 2); len(got) != 2 {
		t.Fatalf("got %d bars, want 2", len(got))
	}
	if store.Bars("unknown", 5) != nil {
		t.Fatalf("unknown symbol should return nil")
	}
}
