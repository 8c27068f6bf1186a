package usecase

import (
	"context"
	"sync"
	"time"

	"PairPulse/internal/domain/models"
	drepo "PairPulse/internal/domain/repository"
	"PairPulse/internal/services/analytics"
	applogger "PairPulse/pkg/logger"
)

// pendingPair collects the two legs of one interval until both have closed.
type pendingPair struct {
	a, b *models.Bar
}

// PairAnalyzer consumes the stream of closed bars, pairs them by interval
// start, and feeds completed pairs to the engine. An interval whose partner
// leg never closes is discarded once a later interval completes; the engine
// never computes against a stale partner bar.
//
// It is the sole owner of the PairState snapshot and the export record ring;
// all external access goes through copying readers.
type PairAnalyzer struct {
	symbolA string
	symbolB string
	engine  *analytics.PairEngine
	pub     drepo.Publisher // optional, signal transitions
	metrics drepo.Metrics
	log     *applogger.Logger // optional

	mu      sync.RWMutex
	state   models.PairState
	records []models.ExportRecord
	recHead int
	recN    int

	pending map[time.Time]*pendingPair
}

// NewPairAnalyzer creates an analyzer for one configured pair.
func NewPairAnalyzer(symbolA, symbolB string, engine *analytics.PairEngine, pub drepo.Publisher, metrics drepo.Metrics, exportCapacity int) *PairAnalyzer {
	if exportCapacity <= 0 {
		exportCapacity = 10000
	}
	return &PairAnalyzer{
		symbolA: symbolA,
		symbolB: symbolB,
		engine:  engine,
		pub:     pub,
		metrics: metrics,
		state:   engine.State(),
		records: make([]models.ExportRecord, exportCapacity),
		pending: make(map[time.Time]*pendingPair),
	}
}

// SetLogger enables signal transition logging.
func (a *PairAnalyzer) SetLogger(l *applogger.Logger) {
	a.log = l
}

// Run consumes closed bars until ctx is cancelled or the channel closes.
func (a *PairAnalyzer) Run(ctx context.Context, bars <-chan models.Bar) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-bars:
			if !ok {
				return
			}
			a.OnBar(ctx, b)
		}
	}
}

// OnBar folds one closed bar into the pending pairs and runs the engine when
// an interval has both legs.
func (a *PairAnalyzer) OnBar(ctx context.Context, bar models.Bar) {
	var leg **models.Bar
	p := a.pendingFor(bar.Start)
	switch bar.Symbol {
	case a.symbolA:
		leg = &p.a
	case a.symbolB:
		leg = &p.b
	default:
		return
	}
	b := bar
	*leg = &b

	if p.a == nil || p.b == nil {
		return
	}
	delete(a.pending, bar.Start)
	a.discardStale(bar.Start)
	a.update(ctx, *p.a, *p.b)
}

func (a *PairAnalyzer) pendingFor(start time.Time) *pendingPair {
	p, ok := a.pending[start]
	if !ok {
		p = &pendingPair{}
		a.pending[start] = p
	}
	return p
}

// discardStale drops pending intervals older than the one that just
// completed. Their partner bar is not coming; trading gaps stay gaps.
func (a *PairAnalyzer) discardStale(completed time.Time) {
	for start, p := range a.pending {
		if start.Before(completed) {
			if p.a != nil {
				a.metrics.RecordDrop("unpaired", a.symbolA)
			}
			if p.b != nil {
				a.metrics.RecordDrop("unpaired", a.symbolB)
			}
			delete(a.pending, start)
		}
	}
}

func (a *PairAnalyzer) update(ctx context.Context, barA, barB models.Bar) {
	start := time.Now()
	res := a.engine.Update(barA, barB)
	a.metrics.RecordLatency("pair_update", time.Since(start).Seconds())

	if res.Skipped {
		a.metrics.RecordError("pair_update_skipped")
		return
	}

	rec := models.ExportRecord{
		Timestamp:   barA.End,
		PriceA:      barA.Close,
		PriceB:      barB.Close,
		Spread:      res.State.Spread,
		RollingMean: res.RollingMean,
		RollingStd:  res.RollingStd,
		Zscore:      res.State.Zscore,
		ZValid:      res.State.ZValid,
		Signal:      res.State.Signal,
	}

	a.mu.Lock()
	a.state = res.State
	a.pushRecord(rec)
	a.mu.Unlock()

	if res.Transition {
		a.metrics.RecordSignal(a.symbolA+"/"+a.symbolB, string(res.State.Signal))
		if a.log != nil {
			a.log.Info("signal transition",
				applogger.String("pair", a.symbolA+"/"+a.symbolB),
				applogger.String("signal", string(res.State.Signal)),
				applogger.Float64("zscore", res.State.Zscore),
				applogger.Float64("spread", res.State.Spread),
			)
		}
		if a.pub != nil {
			st := res.State
			if err := a.pub.PublishSignal(ctx, &st); err != nil {
				a.metrics.RecordError("publish_signal")
			}
		}
	}
}

// State returns a copy of the current pair state snapshot.
func (a *PairAnalyzer) State() models.PairState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Records returns up to the last count export records, oldest first.
func (a *PairAnalyzer) Records(count int) []models.ExportRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if count <= 0 || count > a.recN {
		count = a.recN
	}
	if count == 0 {
		return nil
	}
	out := make([]models.ExportRecord, count)
	first := (a.recHead + a.recN - count) % len(a.records)
	for i := 0; i < count; i++ {
		out[i] = a.records[(first+i)%len(a.records)]
	}
	return out
}

func (a *PairAnalyzer) pushRecord(r models.ExportRecord) {
	if a.recN < len(a.records) {
		a.records[(a.recHead+a.recN)%len(a.records)] = r
		a.recN++
		return
	}
	a.records[a.recHead] = r
	a.recHead = (a.recHead + 1) % len(a.records)
}
