package models

import "time"

// Signal is the position suggested by the pair engine.
type Signal string

const (
	SignalFlat        Signal = "FLAT"
	SignalLongAShortB Signal = "LONG_A_SHORT_B"
	SignalShortALongB Signal = "SHORT_A_LONG_B"
)

// PairState is the current statistical snapshot of one symbol pair.
// It is owned by the analytics engine; everyone else reads copies.
type PairState struct {
	SymbolA    string    `json:"symbol_a"`
	SymbolB    string    `json:"symbol_b"`
	HedgeRatio float64   `json:"hedge_ratio"`
	Spread     float64   `json:"spread"`
	Zscore     float64   `json:"zscore"`
	ZValid     bool      `json:"zscore_valid"`
	Signal     Signal    `json:"signal"`
	WindowLen  int       `json:"window_len"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ExportRecord is one flat analytics row per closed bar pair, kept for
// the export/download surface and the backtest.
type ExportRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	PriceA      float64   `json:"price_a"`
	PriceB      float64   `json:"price_b"`
	Spread      float64   `json:"spread"`
	RollingMean float64   `json:"rolling_mean"`
	RollingStd  float64   `json:"rolling_std"`
	Zscore      float64   `json:"zscore"`
	ZValid      bool      `json:"zscore_valid"`
	Signal      Signal    `json:"signal"`
}

// BacktestTrade is one round trip produced by the mean-reversion backtest.
// Direction is +1 for long A / short B, -1 for short A / long B.
type BacktestTrade struct {
	EntryTime time.Time `json:"entry_time"`
	ExitTime  time.Time `json:"exit_time"`
	Direction int       `json:"direction"`
	EntryZ    float64   `json:"entry_z"`
	ExitZ     float64   `json:"exit_z"`
	PnL       float64   `json:"pnl"`
}

// BacktestResult bundles the trade log with the equity curve.
type BacktestResult struct {
	Trades []BacktestTrade `json:"trades"`
	Equity []EquityPoint   `json:"equity"`
	Total  float64         `json:"total_pnl"`
}

type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	PnL       float64   `json:"pnl"`
}
