package usecase

import (
	"context"
	"encoding/json"
	"time"

	"PairPulse/internal/domain/models"
	domrepo "PairPulse/internal/domain/repository"
	pkgkafka "PairPulse/pkg/kafka"
)

// KafkaBarsHandler drains the bars topic into the durable archive. It is the
// consumer side of archive.type=kafka deployments where a separate process
// owns the ClickHouse write path.
type KafkaBarsHandler struct {
	topic   string
	archive domrepo.BarArchive
	metrics domrepo.Metrics
}

func NewKafkaBarsHandler(topic string, archive domrepo.BarArchive, metrics domrepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, archive: archive, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, start, end, o, h, l, c, v, n}
func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		Start  int64   `json:"start"` // unix ms
		End    int64   `json:"end"`
		Open   float64 `json:"o"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Close  float64 `json:"c"`
		Volume float64 `json:"v"`
		Ticks  int     `json:"n"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	// E2E latency from bar close to archive write (approx)
	h.metrics.RecordLatency("bar_e2e_seconds", time.Since(time.UnixMilli(m.End)).Seconds())

	start := time.Now()
	err := h.archive.Store(ctx, &models.Bar{
		Symbol: m.Symbol,
		Start:  time.UnixMilli(m.Start).UTC(),
		End:    time.UnixMilli(m.End).UTC(),
		Open:   m.Open,
		High:   m.High,
		Low:    m.Low,
		Close:  m.Close,
		Volume: m.Volume,
		Ticks:  m.Ticks,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
