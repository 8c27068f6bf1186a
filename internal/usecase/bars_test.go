package usecase

import (
	"testing"
	"time"

	"PairPulse/internal/domain/models"
	domrepo "PairPulse/internal/domain/repository"
)

type fakeBarReader struct {
	lastCount int
	bars      []models.Bar
}

func (r *fakeBarReader) Bars(symbol string, count int) []models.Bar {
	r.lastCount = count
	if count < len(r.bars) {
		return r.bars[len(r.bars)-count:]
	}
	return r.bars
}

func (r *fakeBarReader) LastClosed(symbol string) (models.Bar, bool) {
	if len(r.bars) == 0 {
		return models.Bar{}, false
	}
	return r.bars[len(r.bars)-1], true
}

func TestGetBarsValidation(t *testing.T) {
	reader := &fakeBarReader{}
	uc := NewBarsUseCase(reader, domrepo.Interval1m, []string{"BTCUSDT", "ETHUSDT"})

	if _, err := uc.GetBars("", 10); err == nil {
		t.Fatalf("empty symbol accepted")
	}
	if _, err := uc.GetBars("dogeusdt", 10); err == nil {
		t.Fatalf("symbol outside the configured pair accepted")
	}
	// config casing must not matter
	if _, err := uc.GetBars("BTCUSDT", 10); err != nil {
		t.Fatalf("uppercase symbol rejected: %v", err)
	}
}

func TestGetBarsCountClamping(t *testing.T) {
	reader := &fakeBarReader{}
	uc := NewBarsUseCase(reader, domrepo.Interval1m, []string{"btcusdt", "ethusdt"})

	if _, err := uc.GetBars("btcusdt", 0); err != nil {
		t.Fatalf("get bars: %v", err)
	}
	if reader.lastCount != 100 {
		t.Fatalf("zero count passed %d to store, want default 100", reader.lastCount)
	}

	if _, err := uc.GetBars("btcusdt", 999999); err != nil {
		t.Fatalf("get bars: %v", err)
	}
	if reader.lastCount != 5000 {
		t.Fatalf("oversized count passed %d to store, want cap 5000", reader.lastCount)
	}
}

func TestGetBarsResultShape(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reader := &fakeBarReader{bars: []models.Bar{
		{Symbol: "btcusdt", Start: base, End: base.Add(time.Minute), Close: 100},
		{Symbol: "btcusdt", Start: base.Add(time.Minute), End: base.Add(2 * time.Minute), Close: 101},
	}}
	uc := NewBarsUseCase(reader, domrepo.Interval5m, []string{"btcusdt", "ethusdt"})

	res, err := uc.GetBars("BtcUsdt", 50)
	if err != nil {
		t.Fatalf("get bars: %v", err)
	}
	if res.Symbol != "btcusdt" {
		t.Fatalf("symbol = %q, want normalized lowercase", res.Symbol)
	}
	if res.Interval != "5m" {
		t.Fatalf("interval = %q, want 5m", res.Interval)
	}
	if res.Count != 2 || len(res.Bars) != 2 {
		t.Fatalf("count = %d, bars = %d, want 2 each", res.Count, len(res.Bars))
	}
	if res.Bars[0].Close != 100 || res.Bars[1].Close != 101 {
		t.Fatalf("bars out of order: %+v", res.Bars)
	}
}
