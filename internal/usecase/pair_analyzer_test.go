package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"PairPulse/internal/domain/models"
	"PairPulse/internal/services/analytics"
)

type ucMetrics struct {
	mu         sync.Mutex
	ticks      int
	drops      map[string]int
	reconnects int
	signals    int
	errors     map[string]int
}

func newUCMetrics() *ucMetrics {
	return &ucMetrics{drops: make(map[string]int), errors: make(map[string]int)}
}

func (m *ucMetrics) RecordTick(string) {
	m.mu.Lock()
	m.ticks++
	m.mu.Unlock()
}

func (m *ucMetrics) RecordDrop(reason, _ string) {
	m.mu.Lock()
	m.drops[reason]++
	m.mu.Unlock()
}

func (m *ucMetrics) RecordReconnect() {
	m.mu.Lock()
	m.reconnects++
	m.mu.Unlock()
}

func (m *ucMetrics) RecordBarClosed(string) {}

func (m *ucMetrics) RecordSignal(string, string) {
	m.mu.Lock()
	m.signals++
	m.mu.Unlock()
}

func (m *ucMetrics) RecordLastPrice(string, float64) {}

func (m *ucMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *ucMetrics) RecordLatency(string, float64) {}

func (m *ucMetrics) dropCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops[reason]
}

func closedBar(symbol string, close float64, start time.Time) models.Bar {
	return models.Bar{
		Symbol: symbol,
		Start:  start,
		End:    start.Add(time.Minute),
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
		Volume: 1,
		Ticks:  1,
	}
}

func newTestAnalyzer(t *testing.T, m *ucMetrics, exportCap int) *PairAnalyzer {
	t.Helper()
	engine, err := analytics.NewPairEngine(analytics.Config{
		SymbolA:         "btcusdt",
		SymbolB:         "ethusdt",
		Window:          30,
		ZscoreThreshold: 1.0,
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return NewPairAnalyzer("btcusdt", "ethusdt", engine, nil, m, exportCap)
}

func TestPairAnalyzerPairsLegsByInterval(t *testing.T) {
	m := newUCMetrics()
	a := newTestAnalyzer(t, m, 100)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a.OnBar(ctx, closedBar("btcusdt", 100, t0))
	if a.State().WindowLen != 0 {
		t.Fatalf("single leg triggered an update")
	}
	a.OnBar(ctx, closedBar("ethusdt", 50, t0))
	st := a.State()
	if st.WindowLen != 1 {
		t.Fatalf("window len = %d after complete pair, want 1", st.WindowLen)
	}
	if !st.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("updated at %v, want bar end", st.UpdatedAt)
	}
	if got := len(a.Records(0)); got != 1 {
		t.Fatalf("records = %d, want 1", got)
	}
	// unknown symbols are ignored outright
	a.OnBar(ctx, closedBar("dogeusdt", 1, t0))
	if got := len(a.Records(0)); got != 1 {
		t.Fatalf("foreign symbol changed records: %d", got)
	}
}

func TestPairAnalyzerDiscardsStalePending(t *testing.T) {
	m := newUCMetrics()
	a := newTestAnalyzer(t, m, 100)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	t2 := t0.Add(2 * time.Minute)

	// t0 completes normally
	a.OnBar(ctx, closedBar("btcusdt", 100, t0))
	a.OnBar(ctx, closedBar("ethusdt", 50, t0))

	// leg B never closes for t1; t2 completing must flush it
	a.OnBar(ctx, closedBar("btcusdt", 101, t1))
	a.OnBar(ctx, closedBar("btcusdt", 102, t2))
	a.OnBar(ctx, closedBar("ethusdt", 51, t2))

	if got := m.dropCount("unpaired"); got != 1 {
		t.Fatalf("unpaired drops = %d, want 1", got)
	}
	if got := len(a.Records(0)); got != 2 {
		t.Fatalf("records = %d, want 2 (t1 must not produce one)", got)
	}
	st := a.State()
	if !st.UpdatedAt.Equal(t2.Add(time.Minute)) {
		t.Fatalf("state updated at %v, want t2 bar end", st.UpdatedAt)
	}
	if a.State().WindowLen != 2 {
		t.Fatalf("window len = %d, want 2", a.State().WindowLen)
	}
}

func TestPairAnalyzerSkippedUpdateLeavesStateAlone(t *testing.T) {
	m := newUCMetrics()
	a := newTestAnalyzer(t, m, 100)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	a.OnBar(ctx, closedBar("btcusdt", 100, t0))
	a.OnBar(ctx, closedBar("ethusdt", 50, t0))
	before := a.State()

	// leg B closed at zero: engine skips, snapshot and records unchanged
	a.OnBar(ctx, closedBar("btcusdt", 101, t1))
	a.OnBar(ctx, closedBar("ethusdt", 0, t1))

	if a.State() != before {
		t.Fatalf("skipped update changed the snapshot")
	}
	if got := len(a.Records(0)); got != 1 {
		t.Fatalf("records = %d, want 1", got)
	}
	m.mu.Lock()
	skips := m.errors["pair_update_skipped"]
	m.mu.Unlock()
	if skips != 1 {
		t.Fatalf("skip counter = %d, want 1", skips)
	}
}

func TestPairAnalyzerRecordRingEviction(t *testing.T) {
	m := newUCMetrics()
	a := newTestAnalyzer(t, m, 3)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ts := t0.Add(time.Duration(i) * time.Minute)
		a.OnBar(ctx, closedBar("btcusdt", 100+float64(i), ts))
		a.OnBar(ctx, closedBar("ethusdt", 50, ts))
	}

	recs := a.Records(0)
	if len(recs) != 3 {
		t.Fatalf("records = %d, want capacity 3", len(recs))
	}
	for i, want := range []float64{102, 103, 104} {
		if recs[i].PriceA != want {
			t.Fatalf("records[%d].PriceA = %g, want %g (oldest first)", i, recs[i].PriceA, want)
		}
	}
	if got := a.Records(2); len(got) != 2 || got[1].PriceA != 104 {
		t.Fatalf("Records(2) = %+v", got)
	}
}

func TestPairAnalyzerRunStopsOnContextCancel(t *testing.T) {
	m := newUCMetrics()
	a := newTestAnalyzer(t, m, 100)
	ctx, cancel := context.WithCancel(context.Background())
	bars := make(chan models.Bar)

	done := make(chan struct{})
	go func() {
		a.Run(ctx, bars)
		close(done)
	}()

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bars <- closedBar("btcusdt", 100, t0)
	bars <- closedBar("ethusdt", 50, t0)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop on cancel")
	}
	if a.State().WindowLen != 1 {
		t.Fatalf("window len = %d, want 1", a.State().WindowLen)
	}
}
