package usecase

import (
	"fmt"

	"PairPulse/internal/domain/models"
)

// RecordSource yields the analytics export sequence, oldest first.
type RecordSource interface {
	Records(count int) []models.ExportRecord
}

// BacktestUseCase replays the recorded spread/z-score sequence through a
// simple mean-reversion strategy: enter short spread at z >= +entry, long
// at z <= -entry, exit when z crosses the exit level. PnL per step is
// direction * spread change, the crudest possible mark-to-market.
type BacktestUseCase struct {
	source RecordSource
}

func NewBacktestUseCase(source RecordSource) *BacktestUseCase {
	return &BacktestUseCase{source: source}
}

// Run backtests over up to count most recent records.
func (uc *BacktestUseCase) Run(entryZ, exitZ float64, count int) (*models.BacktestResult, error) {
	if entryZ < 1.0 || entryZ > 4.0 {
		return nil, fmt.Errorf("entry_z must be in [1.0,4.0], got %g", entryZ)
	}
	recs := uc.source.Records(count)
	res := &models.BacktestResult{
		Trades: []models.BacktestTrade{},
		Equity: make([]models.EquityPoint, 0, len(recs)),
	}
	if len(recs) < 2 {
		return res, nil
	}

	inPosition := false
	direction := 0
	var entry models.ExportRecord
	cum := 0.0
	prevSpread := recs[0].Spread

	for _, r := range recs[1:] {
		if !r.ZValid {
			// no opinion on this step; position marks flat
			prevSpread = r.Spread
			res.Equity = append(res.Equity, models.EquityPoint{Timestamp: r.Timestamp, PnL: cum})
			continue
		}

		if !inPosition {
			if r.Zscore >= entryZ {
				inPosition = true
				direction = -1 // short spread: short A / long B
				entry = r
			} else if r.Zscore <= -entryZ {
				inPosition = true
				direction = 1 // long spread: long A / short B
				entry = r
			}
		} else {
			cum += float64(direction) * (r.Spread - prevSpread)
			exited := (direction == 1 && r.Zscore >= exitZ) || (direction == -1 && r.Zscore <= exitZ)
			if exited {
				res.Trades = append(res.Trades, models.BacktestTrade{
					EntryTime: entry.Timestamp,
					ExitTime:  r.Timestamp,
					Direction: direction,
					EntryZ:    entry.Zscore,
					ExitZ:     r.Zscore,
					PnL:       float64(direction) * (r.Spread - entry.Spread),
				})
				inPosition = false
				direction = 0
			}
		}

		prevSpread = r.Spread
		res.Equity = append(res.Equity, models.EquityPoint{Timestamp: r.Timestamp, PnL: cum})
	}

	res.Total = cum
	return res, nil
}
