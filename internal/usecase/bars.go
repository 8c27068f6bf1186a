package usecase

import (
	"fmt"
	"strings"

	"PairPulse/internal/domain/models"
	domrepo "PairPulse/internal/domain/repository"
)

// BarsUseCase provides business logic for querying the rolling store.
type BarsUseCase struct {
	store    domrepo.BarReader
	interval domrepo.Interval
	symbols  map[string]bool
}

func NewBarsUseCase(store domrepo.BarReader, interval domrepo.Interval, symbols []string) *BarsUseCase {
	known := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		known[strings.ToLower(s)] = true
	}
	return &BarsUseCase{store: store, interval: interval, symbols: known}
}

type GetBarsResult struct {
	Symbol   string       `json:"symbol"`
	Interval string       `json:"interval"`
	Count    int          `json:"count"`
	Bars     []models.Bar `json:"bars"`
}

// GetBars returns up to count closed bars for symbol, oldest first. Fewer
// bars than requested is a normal answer while history is still building.
func (uc *BarsUseCase) GetBars(symbol string, count int) (*GetBarsResult, error) {
	symbol = strings.ToLower(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if !uc.symbols[symbol] {
		return nil, fmt.Errorf("unknown symbol: %s", symbol)
	}
	if count <= 0 {
		count = 100
	}
	if count > 5000 {
		count = 5000
	}

	bars := uc.store.Bars(symbol, count)
	return &GetBarsResult{
		Symbol:   symbol,
		Interval: string(uc.interval),
		Count:    len(bars),
		Bars:     bars,
	}, nil
}
