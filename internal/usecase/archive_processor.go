package usecase

import (
	"context"
	"fmt"
	"time"

	"PairPulse/internal/domain/models"
	drepo "PairPulse/internal/domain/repository"
)

// ArchiveProcessor routes closed bars to the configured archival backend.
// The in-memory rolling store stays authoritative either way; the archive is
// a sink, and its failures never stall the analytics path.
type ArchiveProcessor struct {
	pub     drepo.Publisher
	archive drepo.BarArchive
	metrics drepo.Metrics
	backend string
}

// NewArchiveProcessor creates a new ArchiveProcessor instance.
func NewArchiveProcessor(pub drepo.Publisher, archive drepo.BarArchive, metrics drepo.Metrics, backend string) *ArchiveProcessor {
	return &ArchiveProcessor{pub: pub, archive: archive, metrics: metrics, backend: backend}
}

// Process routes a single closed bar to the configured backend.
func (p *ArchiveProcessor) Process(ctx context.Context, b *models.Bar) error {
	if b == nil {
		return fmt.Errorf("bar is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBar(ctx, b)
	case "clickhouse":
		err = p.archive.Store(ctx, b)
	case "none":
		return nil
	default:
		err = fmt.Errorf("unknown archive backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("archive")
		return fmt.Errorf("archive bar: %w", err)
	}

	p.metrics.RecordLatency("archive", time.Since(start).Seconds())
	return nil
}

// ProcessBatch archives multiple bars at once.
func (p *ArchiveProcessor) ProcessBatch(ctx context.Context, bars []*models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		for _, b := range bars {
			if e := p.pub.PublishBar(ctx, b); e != nil {
				err = e
				break
			}
		}
	case "clickhouse":
		err = p.archive.StoreBatch(ctx, bars)
	case "none":
		return nil
	default:
		err = fmt.Errorf("unknown archive backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("archive_batch")
		return fmt.Errorf("archive batch: %w", err)
	}

	p.metrics.RecordLatency("archive_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *ArchiveProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.archive != nil {
		_ = p.archive.Close()
	}
}
