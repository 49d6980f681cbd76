package repository

import (
	"context"

	drepo "CoinPull/internal/domain/repository"
)

// EventProducer is implemented by pkg/kafka.Producer.
type EventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaSnapshotPublisher emits one price_snapshot event per fetch, keyed by coin.
type KafkaSnapshotPublisher struct {
	producer EventProducer
	topic    string
}

// NewKafkaSnapshotPublisher creates Kafka publisher.
func NewKafkaSnapshotPublisher(producer EventProducer, topic string) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) PublishSnapshot(ctx context.Context, snap drepo.Snapshot) error {
	return p.producer.Publish(ctx, p.topic, []byte(snap.SeriesID), NewSnapshotEvent(snap))
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ drepo.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)
