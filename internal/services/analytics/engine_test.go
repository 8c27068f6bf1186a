package analytics

import (
	"math"
	"testing"
	"time"

	"PairPulse/internal/domain/models"
)

func pairBar(symbol string, close float64, start time.Time) models.Bar {
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

func newTestEngine(t *testing.T) *PairEngine {
	t.Helper()
	e, err := NewPairEngine(Config{
		SymbolA:         "btcusdt",
		SymbolB:         "ethusdt",
		Window:          30,
		ZscoreThreshold: 1.0,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestPairEngineConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"window too small", Config{SymbolA: "a", SymbolB: "b", Window: 29, ZscoreThreshold: 2.0}},
		{"window too large", Config{SymbolA: "a", SymbolB: "b", Window: 501, ZscoreThreshold: 2.0}},
		{"threshold too small", Config{SymbolA: "a", SymbolB: "b", Window: 60, ZscoreThreshold: 0.9}},
		{"threshold too large", Config{SymbolA: "a", SymbolB: "b", Window: 60, ZscoreThreshold: 4.1}},
		{"missing symbol", Config{SymbolA: "", SymbolB: "b", Window: 60, ZscoreThreshold: 2.0}},
	}
	for _, tc := range cases {
		if _, err := NewPairEngine(tc.cfg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
	if _, err := NewPairEngine(Config{SymbolA: "a", SymbolB: "b", Window: 30, ZscoreThreshold: 1.0}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestPairEngineNoSignalBeforeWindowFull(t *testing.T) {
	e := newTestEngine(t)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// 10 bars, last one a violent outlier; with an unfilled window the
	// z-score stays undefined so no signal can fire
	for i := 0; i < 10; i++ {
		a := 100.0
		if i == 9 {
			a = 10.0
		}
		ts := start.Add(time.Duration(i) * time.Minute)
		res := e.Update(pairBar("btcusdt", a, ts), pairBar("ethusdt", 50.0, ts))
		if res.State.ZValid {
			t.Fatalf("bar %d: zscore marked valid before window full", i)
		}
		if res.State.Signal != models.SignalFlat {
			t.Fatalf("bar %d: signal %s before window full", i, res.State.Signal)
		}
		if res.Transition {
			t.Fatalf("bar %d: transition before window full", i)
		}
	}
	if e.State().WindowLen != 10 {
		t.Fatalf("window len = %d, want 10", e.State().WindowLen)
	}
}

func TestPairEngineSignalRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bar := func(i int, a float64) (models.Bar, models.Bar) {
		ts := start.Add(time.Duration(i) * time.Minute)
		return pairBar("btcusdt", a, ts), pairBar("ethusdt", 50.0, ts)
	}

	// warmup: closes alternate around 100, spreads stay small
	for i := 0; i < 30; i++ {
		a := 99.0
		if i%2 == 1 {
			a = 101.0
		}
		res := e.Update(bar(i, a))
		if res.Transition {
			t.Fatalf("bar %d: unexpected transition during warmup", i)
		}
		wantValid := i == 29
		if res.State.ZValid != wantValid {
			t.Fatalf("bar %d: zvalid = %v, want %v", i, res.State.ZValid, wantValid)
		}
	}

	// collapse in A drives the spread far below its mean: enter long A
	res := e.Update(bar(30, 90.0))
	if !res.State.ZValid {
		t.Fatalf("expected valid zscore after full window")
	}
	if res.State.Zscore >= -1.0 {
		t.Fatalf("zscore = %g, expected below -1.0", res.State.Zscore)
	}
	if !res.Transition || res.State.Signal != models.SignalLongAShortB {
		t.Fatalf("expected FLAT -> LONG_A_SHORT_B, got %s (transition=%v)", res.State.Signal, res.Transition)
	}

	// spike the other way: the z-score crosses zero, position exits
	res = e.Update(bar(31, 120.0))
	if res.State.Zscore < 0 {
		t.Fatalf("zscore = %g, expected recovery above zero", res.State.Zscore)
	}
	if !res.Transition || res.State.Signal != models.SignalFlat {
		t.Fatalf("expected exit to FLAT, got %s (transition=%v)", res.State.Signal, res.Transition)
	}
}

func TestPairEngineSkipsDegenerateInput(t *testing.T) {
	e := newTestEngine(t)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ts := func(i int) time.Time { return start.Add(time.Duration(i) * time.Minute) }

	e.Update(pairBar("btcusdt", 100, ts(0)), pairBar("ethusdt", 50, ts(0)))
	before := e.State()
	beforeLen := e.window.Len()

	// zero close on leg B
	res := e.Update(pairBar("btcusdt", 101, ts(1)), pairBar("ethusdt", 0, ts(1)))
	if !res.Skipped {
		t.Fatalf("expected skip on zero close_B")
	}
	// non-finite close on leg A
	res = e.Update(pairBar("btcusdt", math.NaN(), ts(2)), pairBar("ethusdt", 50, ts(2)))
	if !res.Skipped {
		t.Fatalf("expected skip on NaN close_A")
	}

	if e.window.Len() != beforeLen {
		t.Fatalf("skipped update grew the window: %d -> %d", beforeLen, e.window.Len())
	}
	after := e.State()
	if after != before {
		t.Fatalf("skipped update changed state: %+v -> %+v", before, after)
	}
}

func TestPairEngineHedgeRatioMedian(t *testing.T) {
	e := newTestEngine(t)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// prices from a known fixture: median ratio settles at 2.0
	pricesA := []float64{100, 101, 99, 102, 98}
	pricesB := []float64{50, 50, 51, 49, 52}
	var last Result
	for i := range pricesA {
		ts := start.Add(time.Duration(i) * time.Minute)
		last = e.Update(pairBar("btcusdt", pricesA[i], ts), pairBar("ethusdt", pricesB[i], ts))
	}
	if last.Skipped {
		t.Fatalf("unexpected skip")
	}
	if last.State.HedgeRatio != 2.0 {
		t.Fatalf("hedge ratio = %g, want 2.0", last.State.HedgeRatio)
	}
	wantSpread := 98.0 - 2.0*52.0
	if math.Abs(last.State.Spread-wantSpread) > 1e-12 {
		t.Fatalf("spread = %g, want %g", last.State.Spread, wantSpread)
	}
}
