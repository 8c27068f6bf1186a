package usecase

import (
	"testing"
	"time"

	"PairPulse/internal/domain/models"
)

type scriptedRecords struct {
	recs []models.ExportRecord
}

func (s *scriptedRecords) Records(count int) []models.ExportRecord {
	if count > 0 && count < len(s.recs) {
		return s.recs[len(s.recs)-count:]
	}
	return s.recs
}

func btRecord(step int, z, spread float64, valid bool) models.ExportRecord {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return models.ExportRecord{
		Timestamp: base.Add(time.Duration(step) * time.Minute),
		Spread:    spread,
		Zscore:    z,
		ZValid:    valid,
	}
}

func TestBacktestRoundTrips(t *testing.T) {
	src := &scriptedRecords{recs: []models.ExportRecord{
		btRecord(0, 0.1, 0, true),
		btRecord(1, 2.5, 5, true),   // enter short spread
		btRecord(2, 1.5, 3, true),   // hold, spread reverts by 2
		btRecord(3, 0, 2, false),    // stats gap: position marks flat
		btRecord(4, -0.1, 0, true),  // exit short
		btRecord(5, -2.2, -4, true), // enter long spread
		btRecord(6, 0.3, -1, true),  // exit long
	}}
	uc := NewBacktestUseCase(src)

	res, err := uc.Run(2.0, 0.0, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(res.Trades))
	}

	short := res.Trades[0]
	if short.Direction != -1 || short.EntryZ != 2.5 || short.ExitZ != -0.1 {
		t.Fatalf("short trade = %+v", short)
	}
	if short.PnL != 5 {
		t.Fatalf("short trade pnl = %g, want 5 (entry spread 5, exit spread 0)", short.PnL)
	}

	long := res.Trades[1]
	if long.Direction != 1 || long.EntryZ != -2.2 || long.ExitZ != 0.3 {
		t.Fatalf("long trade = %+v", long)
	}
	if long.PnL != 3 {
		t.Fatalf("long trade pnl = %g, want 3", long.PnL)
	}

	// mark-to-market skips the invalid step, so the curve ends at 7, not 8
	if res.Total != 7 {
		t.Fatalf("total pnl = %g, want 7", res.Total)
	}
	if len(res.Equity) != 6 {
		t.Fatalf("equity points = %d, want 6", len(res.Equity))
	}
	if last := res.Equity[len(res.Equity)-1]; last.PnL != res.Total {
		t.Fatalf("equity curve ends at %g, total is %g", last.PnL, res.Total)
	}
}

func TestBacktestRejectsEntryOutOfRange(t *testing.T) {
	uc := NewBacktestUseCase(&scriptedRecords{})
	for _, entry := range []float64{0.5, 0.99, 4.01, 10} {
		if _, err := uc.Run(entry, 0, 0); err == nil {
			t.Fatalf("entry_z %g accepted, want error", entry)
		}
	}
	if _, err := uc.Run(1.0, 0, 0); err != nil {
		t.Fatalf("entry_z 1.0 rejected: %v", err)
	}
	if _, err := uc.Run(4.0, 0, 0); err != nil {
		t.Fatalf("entry_z 4.0 rejected: %v", err)
	}
}

func TestBacktestTooFewRecords(t *testing.T) {
	src := &scriptedRecords{recs: []models.ExportRecord{btRecord(0, 3.0, 5, true)}}
	res, err := NewBacktestUseCase(src).Run(2.0, 0.0, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Trades) != 0 || len(res.Equity) != 0 || res.Total != 0 {
		t.Fatalf("single record produced activity: %+v", res)
	}
}

func TestBacktestIgnoresInvalidZRows(t *testing.T) {
	recs := make([]models.ExportRecord, 0, 10)
	for i := 0; i < 10; i++ {
		recs = append(recs, btRecord(i, 5.0, float64(i), false))
	}
	res, err := NewBacktestUseCase(&scriptedRecords{recs: recs}).Run(2.0, 0.0, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Trades) != 0 || res.Total != 0 {
		t.Fatalf("invalid-z rows traded: %+v", res)
	}
	if len(res.Equity) != 9 {
		t.Fatalf("equity points = %d, want 9", len(res.Equity))
	}
}
