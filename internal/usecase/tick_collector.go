package usecase

import (
	"context"
	"math/rand"
	"time"

	"PairPulse/internal/domain/models"
	drepo "PairPulse/internal/domain/repository"
	mid "PairPulse/internal/middleware"
)

// TickCollector drives the market stream: it consumes ticks into the
// pipeline and owns the reconnect loop. Ticks missed while the feed is down
// are gone for good; the rolling store just shows a gap for that stretch.
type TickCollector struct {
	stream  drepo.MarketStream
	pipe    *mid.TickPipeline
	metrics drepo.Metrics

	backoffBase time.Duration
	backoffMax  time.Duration
}

// NewTickCollector creates a new TickCollector instance.
func NewTickCollector(stream drepo.MarketStream, pipe *mid.TickPipeline, metrics drepo.Metrics, backoffBase, backoffMax time.Duration) *TickCollector {
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	if backoffMax < backoffBase {
		backoffMax = 30 * time.Second
	}
	return &TickCollector{
		stream:      stream,
		pipe:        pipe,
		metrics:     metrics,
		backoffBase: backoffBase,
		backoffMax:  backoffMax,
	}
}

// IsConnected returns true if the market stream is connected.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects, subscribes, and launches the consume loop. Transient
// connect failures do not surface to the caller; the loop keeps retrying
// under backoff until ctx is cancelled.
func (c *TickCollector) Start(ctx context.Context) error {
	c.pipe.Start(ctx)
	go c.run(ctx)
	return nil
}

func (c *TickCollector) run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.connect(ctx); err != nil {
			attempt++
			c.metrics.RecordError("stream_connect")
			if !c.sleep(ctx, attempt) {
				return
			}
			continue
		}
		attempt = 0

		tickCh, errCh := c.stream.Read(ctx)
		if !c.consume(ctx, tickCh, errCh) {
			return
		}

		// connection lost: back off, then reconnect and resubscribe
		_ = c.stream.Close()
		attempt++
		c.metrics.RecordReconnect()
		if !c.sleep(ctx, attempt) {
			return
		}
	}
}

func (c *TickCollector) connect(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	return c.stream.Subscribe(ctx)
}

// consume pumps ticks into the pipeline until the stream errors out
// (returns true, reconnect wanted) or ctx is cancelled (returns false).
func (c *TickCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream_read")
			}
			return true
		case t, ok := <-tickCh:
			if !ok {
				return true
			}
			if t == nil {
				continue
			}
			_ = c.pipe.Process(ctx, t)
		}
	}
}

// sleep waits out the exponential backoff for the given attempt, with
// jitter, capped at backoffMax. Returns false if ctx was cancelled while
// waiting, so shutdown never blocks on the backoff ceiling.
func (c *TickCollector) sleep(ctx context.Context, attempt int) bool {
	d := c.backoffBase * time.Duration(1<<uint(attempt-1))
	if d > c.backoffMax || d <= 0 {
		d = c.backoffMax
	}
	// jitter up to 50%; Int63n panics on 0, so skip it for tiny backoffs
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int63n(half))
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Stop closes the stream and stops the pipeline.
func (c *TickCollector) Stop() error {
	c.pipe.Stop()
	return c.stream.Close()
}
