package repository

import (
	"context"

	"PairPulse/internal/domain/models"
	domrepo "PairPulse/internal/domain/repository"
	pkgkafka "PairPulse/pkg/kafka"
)

// KafkaPublisher fans closed bars and signal transitions out over Kafka.
type KafkaPublisher struct {
	producer     *pkgkafka.Producer
	barsTopic    string
	signalsTopic string
}

// NewKafkaPublisher creates a Kafka publisher for both topics.
func NewKafkaPublisher(producer *pkgkafka.Producer, barsTopic, signalsTopic string) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, barsTopic: barsTopic, signalsTopic: signalsTopic}
}

func (p *KafkaPublisher) PublishBar(ctx context.Context, b *models.Bar) error {
	return p.producer.Publish(ctx, p.barsTopic, []byte(b.Symbol), map[string]interface{}{
		"symbol": b.Symbol,
		"start":  b.Start.UnixMilli(),
		"end":    b.End.UnixMilli(),
		"o":      b.Open,
		"h":      b.High,
		"l":      b.Low,
		"c":      b.Close,
		"v":      b.Volume,
		"n":      b.Ticks,
	})
}

func (p *KafkaPublisher) PublishSignal(ctx context.Context, st *models.PairState) error {
	key := []byte(st.SymbolA + "/" + st.SymbolB)
	return p.producer.Publish(ctx, p.signalsTopic, key, map[string]interface{}{
		"symbol_a":    st.SymbolA,
		"symbol_b":    st.SymbolB,
		"signal":      string(st.Signal),
		"zscore":      st.Zscore,
		"spread":      st.Spread,
		"hedge_ratio": st.HedgeRatio,
		"ts":          st.UpdatedAt.UnixMilli(),
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
