package kafka

import (
	"context"
	"fmt"
	"time"

	applogger "PairPulse/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook observes the consumer's handling lifecycle. BeforeHandle may
// rewrite the context, message, or payload; returning an error skips the
// handler and fails the attempt.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook is the default hook.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, km, data, nil
}

func (NoopHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
}

func (NoopHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
}

// HookError wraps an error raised by a hook so callers can tell hook
// failures apart from handler failures.
type HookError struct {
	Stage string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("kafka hook %s: %v", e.Stage, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

type ctxKey int

const startTimeKey ctxKey = 0

// LoggingHook logs handling latency and per-attempt errors through the
// application logger. Slow handling (above slowThreshold) logs at warn.
type LoggingHook struct {
	logger        *applogger.Logger
	slowThreshold time.Duration
}

func NewLoggingHook(l *applogger.Logger, slowThreshold time.Duration) *LoggingHook {
	if slowThreshold <= 0 {
		slowThreshold = time.Second
	}
	return &LoggingHook{logger: l, slowThreshold: slowThreshold}
}

func (h *LoggingHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return context.WithValue(ctx, startTimeKey, time.Now()), km, data, nil
}

func (h *LoggingHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.logger == nil {
		return
	}
	elapsed := h.elapsed(ctx)
	if err != nil {
		h.logger.Error("kafka handle failed",
			applogger.String("topic", topic),
			applogger.Int("partition", km.Partition),
			applogger.Error(err),
		)
		return
	}
	if elapsed > h.slowThreshold {
		h.logger.Warn("kafka handle slow",
			applogger.String("topic", topic),
			applogger.String("elapsed", elapsed.String()),
		)
	}
}

func (h *LoggingHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.logger == nil {
		return
	}
	h.logger.Warn("kafka handle retrying",
		applogger.String("topic", topic),
		applogger.Int("partition", km.Partition),
		applogger.Error(err),
	)
}

func (h *LoggingHook) elapsed(ctx context.Context) time.Duration {
	if start, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}
