package repository

import (
	"context"

	"ShredPull/internal/domain/models"
	"ShredPull/internal/domain/repository"
)

// topicPublisher is the producer surface the publisher needs;
// *pkg/kafka.Producer satisfies it.
type topicPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaSignaturePublisher forwards stamped signatures to a Kafka topic,
// keyed by signature.
type KafkaSignaturePublisher struct {
	producer topicPublisher
	topic    string
}

// NewKafkaSignaturePublisher creates the sink's downstream publisher.
func NewKafkaSignaturePublisher(producer topicPublisher, topic string) repository.SignaturePublisher {
	return &KafkaSignaturePublisher{producer: producer, topic: topic}
}

func (p *KafkaSignaturePublisher) Publish(ctx context.Context, sig models.TimestampedSignature) error {
	return p.producer.Publish(ctx, p.topic, []byte(sig.Signature), sig)
}

func (p *KafkaSignaturePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
