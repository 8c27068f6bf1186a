package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PairPulse/internal/domain/models"
	domrepo "PairPulse/internal/domain/repository"
)

// ClickHouseBarArchive implements BarArchive on a ClickHouse table.
type ClickHouseBarArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseBarArchive creates ClickHouse-backed bar archival.
func NewClickHouseBarArchive(db *sql.DB, table string) domrepo.BarArchive {
	return &ClickHouseBarArchive{db: db, table: table}
}

func (s *ClickHouseBarArchive) Store(ctx context.Context, b *models.Bar) error {
	q := fmt.Sprintf("INSERT INTO %s (symbol, start, end, open, high, low, close, volume, ticks) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		b.Symbol, b.Start, b.End, b.Open, b.High, b.Low, b.Close, b.Volume, b.Ticks,
	)
	return err
}

func (s *ClickHouseBarArchive) StoreBatch(ctx context.Context, bars []*models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	// Multi-row VALUES insert to reduce round-trips. Chunked at 2000 rows.
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, b := range bars[start:end] {
			if b == nil || b.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Symbol, b.Start, b.End, b.Open, b.High, b.Low, b.Close, b.Volume, b.Ticks)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, start, end, open, high, low, close, volume, ticks) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseBarArchive) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Bar, error) {
	q := fmt.Sprintf("SELECT symbol, start, end, open, high, low, close, volume, ticks FROM %s WHERE symbol = ? AND start >= ? AND start <= ? ORDER BY start ASC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Symbol, &b.Start, &b.End, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Ticks); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *ClickHouseBarArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseBarArchive) Close() error {
	return nil // connection managed by pkg/clickhouse
}
