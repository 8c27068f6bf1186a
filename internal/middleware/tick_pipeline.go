package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"PairPulse/internal/domain/models"
	domrepo "PairPulse/internal/domain/repository"
)

// Ingestor resamples accepted ticks into bars and reports the bar, if any,
// that the tick just closed.
type Ingestor interface {
	Ingest(t *models.Tick) (closed *models.Bar)
}

// ArchiveProc is the minimal downstream the pipeline forwards closed bars to.
type ArchiveProc interface {
	Process(ctx context.Context, b *models.Bar) error
}

// TickPipeline sits between the WebSocket stream and the rolling store.
// It validates ticks, enforces per-symbol monotonic trade ids, feeds the
// store, and buffers closed bars for the archive when it is unavailable.
type TickPipeline struct {
	store   Ingestor
	archive ArchiveProc // optional
	metrics domrepo.Metrics

	barCh   chan models.Bar // fan-out to the pair analyzer
	bufSize int
	bufCh   chan *models.Bar
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex

	lastID map[string]int64 // per-symbol last accepted trade id
}

type PipelineOption func(*TickPipeline)

// WithArchive attaches an archival downstream for closed bars.
func WithArchive(a ArchiveProc) PipelineOption {
	return func(p *TickPipeline) { p.archive = a }
}

// WithBufferSize sets the temporary bar buffer size used when the archive
// downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewTickPipeline creates a new pipeline writing into store.
func NewTickPipeline(store Ingestor, metrics domrepo.Metrics, opts ...PipelineOption) *TickPipeline {
	p := &TickPipeline{
		store:   store,
		metrics: metrics,
		barCh:   make(chan models.Bar, 256),
		bufSize: 1000,
		stopCh:  make(chan struct{}),
		lastID:  make(map[string]int64),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Bar, p.bufSize)
	return p
}

// ClosedBars exposes the stream of finalized bars, in close order.
func (p *TickPipeline) ClosedBars() <-chan models.Bar { return p.barCh }

// Start launches background flushing of buffered bars to the archive.
func (p *TickPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	if p.archive == nil {
		return
	}
	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case b := <-p.bufCh:
				if b == nil {
					continue
				}
				if err := p.archive.Process(ctx, b); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- b:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *TickPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and deduplicates one tick, then feeds the rolling store.
// A rejected tick is dropped and counted, never an error for the caller:
// the stream must keep flowing past bad input.
func (p *TickPipeline) Process(ctx context.Context, t *models.Tick) error {
	start := time.Now()
	if reason := validateTick(t); reason != "" {
		sym := ""
		if t != nil {
			sym = t.Symbol
		}
		p.metrics.RecordDrop(reason, sym)
		return nil
	}

	// Per-symbol monotonic ordering: a trade id <= the last accepted one is
	// either a duplicate or hard out-of-order delivery. Both are dropped.
	last, seen := p.lastID[t.Symbol]
	if seen && t.TradeID <= last {
		if t.TradeID == last {
			p.metrics.RecordDrop("duplicate", t.Symbol)
		} else {
			p.metrics.RecordDrop("out_of_order", t.Symbol)
		}
		return nil
	}
	p.lastID[t.Symbol] = t.TradeID

	p.metrics.RecordTick(t.Symbol)
	p.metrics.RecordLastPrice(t.Symbol, t.Price)

	closed := p.store.Ingest(t)
	if closed != nil {
		p.metrics.RecordBarClosed(closed.Symbol)
		select {
		case p.barCh <- *closed:
		default:
			p.metrics.RecordError("pipeline_barch_full")
		}
		if p.archive != nil {
			if err := p.archive.Process(ctx, closed); err != nil {
				p.metrics.RecordError("pipeline_archive")
				select {
				case p.bufCh <- closed:
				default:
					p.metrics.RecordError("pipeline_buffer_full")
				}
				return fmt.Errorf("pipeline archive: %w", err)
			}
		}
	}

	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateTick(t *models.Tick) string {
	if t == nil {
		return "malformed"
	}
	if t.Symbol == "" {
		return "malformed"
	}
	if t.EventTime <= 0 || t.TradeID <= 0 {
		return "malformed"
	}
	// NaN compares false against everything, so non-finite values need their
	// own check before the sign tests mean anything.
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Price <= 0 {
		return "malformed"
	}
	if math.IsNaN(t.Quantity) || math.IsInf(t.Quantity, 0) || t.Quantity < 0 {
		return "malformed"
	}
	return ""
}
