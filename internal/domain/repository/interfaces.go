package repository

import (
	"context"
	"time"

	"PairPulse/internal/domain/models"
)

// MarketStream is a live trade feed for a fixed set of symbols.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Close() error
	IsConnected() bool
}

// BarReader is the read-only query surface over the rolling store.
// Bars returns up to count closed bars, oldest first, never padded.
type BarReader interface {
	Bars(symbol string, count int) []models.Bar
	LastClosed(symbol string) (models.Bar, bool)
}

// Publisher fans finalized bars and signal transitions out to a broker.
type Publisher interface {
	PublishBar(ctx context.Context, b *models.Bar) error
	PublishSignal(ctx context.Context, st *models.PairState) error
	Close() error
}

// BarArchive is an optional durable sink for closed bars.
type BarArchive interface {
	Store(ctx context.Context, b *models.Bar) error
	StoreBatch(ctx context.Context, bars []*models.Bar) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Bar, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics is the observability surface for the pipeline.
type Metrics interface {
	RecordTick(symbol string)
	RecordDrop(reason, symbol string)
	RecordReconnect()
	RecordBarClosed(symbol string)
	RecordSignal(pair string, signal string)
	RecordLastPrice(symbol string, price float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
