package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PairPulse/internal/domain/models"
	domrepo "PairPulse/internal/domain/repository"
	"PairPulse/pkg/util"
)

// HistoryUseCase queries the durable bar archive. Unlike the rolling store
// it can reach back past the in-memory retention, at the cost of a round
// trip to ClickHouse.
type HistoryUseCase struct {
	archive  domrepo.BarArchive
	interval domrepo.Interval
	symbols  map[string]bool
}

func NewHistoryUseCase(archive domrepo.BarArchive, interval domrepo.Interval, symbols []string) *HistoryUseCase {
	known := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		known[strings.ToLower(s)] = true
	}
	return &HistoryUseCase{archive: archive, interval: interval, symbols: known}
}

// Enabled reports whether an archive backend is configured.
func (uc *HistoryUseCase) Enabled() bool {
	return uc != nil && uc.archive != nil
}

type GetHistoryResult struct {
	Symbol   string       `json:"symbol"`
	Interval string       `json:"interval"`
	From     time.Time    `json:"from"`
	To       time.Time    `json:"to"`
	Count    int          `json:"count"`
	Bars     []models.Bar `json:"bars"`
}

// GetHistory returns archived bars for symbol in [from,to], aligned to the
// configured interval. Empty from/to default to the last 24 hours.
func (uc *HistoryUseCase) GetHistory(ctx context.Context, symbol, fromRaw, toRaw string, limit int) (*GetHistoryResult, error) {
	if !uc.Enabled() {
		return nil, fmt.Errorf("bar archive not configured")
	}
	symbol = strings.ToLower(symbol)
	if !uc.symbols[symbol] {
		return nil, fmt.Errorf("unknown symbol: %s", symbol)
	}
	if limit <= 0 {
		limit = 500
	}

	now := time.Now().UTC()
	to := util.ParseTimeDefault(toRaw, now)
	from := util.ParseTimeDefault(fromRaw, to.Add(-24*time.Hour))
	if !from.Before(to) {
		return nil, fmt.Errorf("from must be before to")
	}
	from, to = util.AlignFromTo(from, to, string(uc.interval))

	bars, err := uc.archive.Query(ctx, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("archive query: %w", err)
	}
	return &GetHistoryResult{
		Symbol:   symbol,
		Interval: string(uc.interval),
		From:     from,
		To:       to,
		Count:    len(bars),
		Bars:     bars,
	}, nil
}
