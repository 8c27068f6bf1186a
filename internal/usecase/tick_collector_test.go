package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"PairPulse/internal/domain/models"
	mid "PairPulse/internal/middleware"
)

// scriptedStream plays back predefined sessions; each session ends with a
// read error, forcing the collector through its reconnect path. When the
// script runs out it blocks until the context is cancelled.
type scriptedStream struct {
	mu        sync.Mutex
	sessions  [][]*models.Tick
	connects  int
	closes    int
	connected bool
}

func (s *scriptedStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	s.connected = true
	return nil
}

func (s *scriptedStream) Subscribe(ctx context.Context) error { return nil }

func (s *scriptedStream) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick)
	errs := make(chan error, 1)

	s.mu.Lock()
	var session []*models.Tick
	replay := len(s.sessions) > 0
	if replay {
		session = s.sessions[0]
		s.sessions = s.sessions[1:]
	}
	s.mu.Unlock()

	go func() {
		if !replay {
			<-ctx.Done()
			return
		}
		for _, t := range session {
			select {
			case ticks <- t:
			case <-ctx.Done():
				return
			}
		}
		errs <- fmt.Errorf("connection reset")
	}()
	return ticks, errs
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.connected = false
	return nil
}

func (s *scriptedStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// memIngestor counts ticks reaching the store.
type memIngestor struct {
	mu    sync.Mutex
	ticks []*models.Tick
}

func (s *memIngestor) Ingest(t *models.Tick) *models.Bar {
	s.mu.Lock()
	s.ticks = append(s.ticks, t)
	s.mu.Unlock()
	return nil
}

func (s *memIngestor) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ticks)
}

func streamTick(id int64, price float64) *models.Tick {
	return &models.Tick{
		Symbol:    "btcusdt",
		Price:     price,
		Quantity:  1,
		EventTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli() + id,
		TradeID:   id,
	}
}

func TestTickCollectorReconnectsAndResumes(t *testing.T) {
	stream := &scriptedStream{
		sessions: [][]*models.Tick{
			{streamTick(1, 100), streamTick(2, 101), streamTick(3, 102)},
			// the feed resends the last trade after reconnecting
			{streamTick(3, 102), streamTick(4, 103), streamTick(5, 104)},
		},
	}
	store := &memIngestor{}
	m := newUCMetrics()
	pipe := mid.NewTickPipeline(store, m)
	c := NewTickCollector(stream, pipe, m, time.Millisecond, 4*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// the third connect only happens after both session errors were
	// consumed, so waiting for it makes every assertion below stable
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stream.mu.Lock()
		connects := stream.connects
		stream.mu.Unlock()
		if connects >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if got := store.count(); got != 5 {
		t.Fatalf("stored %d ticks, want 5", got)
	}
	if got := m.dropCount("duplicate"); got != 1 {
		t.Fatalf("duplicate drops across reconnect = %d, want 1", got)
	}

	m.mu.Lock()
	reconnects := m.reconnects
	m.mu.Unlock()
	if reconnects != 2 {
		t.Fatalf("reconnects = %d, want 2", reconnects)
	}

	stream.mu.Lock()
	connects := stream.connects
	stream.mu.Unlock()
	if connects != 3 {
		t.Fatalf("connects = %d, want 3 (initial + one per session end)", connects)
	}
}

func TestTickCollectorBackoffSurvivesTinyBase(t *testing.T) {
	stream := &scriptedStream{}
	store := &memIngestor{}
	m := newUCMetrics()
	pipe := mid.NewTickPipeline(store, m)
	// a 1ns base makes the jitter window empty on the first attempts
	c := NewTickCollector(stream, pipe, m, time.Nanosecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for attempt := 1; attempt <= 5; attempt++ {
		if !c.sleep(ctx, attempt) {
			t.Fatalf("sleep gave up on attempt %d with a live context", attempt)
		}
	}
}

func TestTickCollectorStopsOnCancelDuringBackoff(t *testing.T) {
	stream := &scriptedStream{
		sessions: [][]*models.Tick{{streamTick(1, 100)}},
	}
	store := &memIngestor{}
	m := newUCMetrics()
	pipe := mid.NewTickPipeline(store, m)
	// long backoff: cancellation must cut the wait short
	c := NewTickCollector(stream, pipe, m, 10*time.Second, 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.count() != 1 {
		t.Fatalf("first session tick never arrived")
	}

	start := time.Now()
	cancel()
	// give the run loop a moment; it must not sit out the 10s backoff
	time.Sleep(50 * time.Millisecond)
	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("shutdown took %v", elapsed)
	}
}
