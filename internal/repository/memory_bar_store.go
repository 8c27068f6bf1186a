package repository

import (
	"sync"
	"time"

	"PairPulse/internal/domain/models"
	domrepo "PairPulse/internal/domain/repository"
)

// symbolState holds the in-progress bar and the ring of closed bars for one
// symbol. The ring is fixed capacity; the oldest bar is evicted on overflow.
type symbolState struct {
	current *models.Bar
	buf     []models.Bar
	head    int // index of the oldest closed bar
	n       int
}

// MemoryBarStore resamples ticks into fixed-interval OHLCV bars and retains
// a bounded closed-bar history per symbol. One writer (the ingestion worker)
// and any number of readers; readers always see fully formed bars.
type MemoryBarStore struct {
	mu        sync.RWMutex
	interval  time.Duration
	retention int
	states    map[string]*symbolState
	metrics   domrepo.Metrics // optional
}

// NewMemoryBarStore creates a store with the given bar interval and per-symbol
// closed-bar retention.
func NewMemoryBarStore(interval time.Duration, retention int, metrics domrepo.Metrics) *MemoryBarStore {
	return &MemoryBarStore{
		interval:  interval,
		retention: retention,
		states:    make(map[string]*symbolState),
		metrics:   metrics,
	}
}

// Ingest folds one tick into the current bar for its symbol, or rolls the
// interval over. Returns the bar that just closed, if any. A tick whose
// event time precedes the open interval is dropped: its bar is already
// immutable.
func (s *MemoryBarStore) Ingest(t *models.Tick) *models.Bar {
	start := t.Time().Truncate(s.interval)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[t.Symbol]
	if !ok {
		st = &symbolState{buf: make([]models.Bar, s.retention)}
		s.states[t.Symbol] = st
	}

	if st.current == nil {
		st.current = s.openBar(t, start)
		return nil
	}

	switch {
	case start.Equal(st.current.Start):
		extendBar(st.current, t)
		return nil
	case start.After(st.current.Start):
		// Interval rolled over; intervals with no ticks simply leave a gap,
		// no synthetic bars are fabricated for them.
		closed := *st.current
		st.push(closed)
		st.current = s.openBar(t, start)
		return &closed
	default:
		if s.metrics != nil {
			s.metrics.RecordDrop("late", t.Symbol)
		}
		return nil
	}
}

// Bars returns up to the last count closed bars for symbol, oldest first.
// Fewer are returned if less history exists; the result is never padded.
func (s *MemoryBarStore) Bars(symbol string, count int) []models.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[symbol]
	if !ok || count <= 0 || st.n == 0 {
		return nil
	}
	if count > st.n {
		count = st.n
	}
	out := make([]models.Bar, count)
	first := (st.head + st.n - count) % len(st.buf)
	for i := 0; i < count; i++ {
		out[i] = st.buf[(first+i)%len(st.buf)]
	}
	return out
}

// LastClosed returns the most recently closed bar for symbol.
func (s *MemoryBarStore) LastClosed(symbol string) (models.Bar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[symbol]
	if !ok || st.n == 0 {
		return models.Bar{}, false
	}
	return st.buf[(st.head+st.n-1)%len(st.buf)], true
}

// Open returns a copy of the currently open (mutable) bar for symbol.
func (s *MemoryBarStore) Open(symbol string) (models.Bar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[symbol]
	if !ok || st.current == nil {
		return models.Bar{}, false
	}
	return *st.current, true
}

func (s *MemoryBarStore) openBar(t *models.Tick, start time.Time) *models.Bar {
	return &models.Bar{
		Symbol: t.Symbol,
		Start:  start,
		End:    start.Add(s.interval),
		Open:   t.Price,
		High:   t.Price,
		Low:    t.Price,
		Close:  t.Price,
		Volume: t.Quantity,
		Ticks:  1,
	}
}

func extendBar(b *models.Bar, t *models.Tick) {
	if t.Price > b.High {
		b.High = t.Price
	}
	if t.Price < b.Low {
		b.Low = t.Price
	}
	b.Close = t.Price
	b.Volume += t.Quantity
	b.Ticks++
}

func (st *symbolState) push(b models.Bar) {
	if st.n < len(st.buf) {
		st.buf[(st.head+st.n)%len(st.buf)] = b
		st.n++
		return
	}
	// ring full: overwrite the oldest
	st.buf[st.head] = b
	st.head = (st.head + 1) % len(st.buf)
}

var _ domrepo.BarReader = (*MemoryBarStore)(nil)
