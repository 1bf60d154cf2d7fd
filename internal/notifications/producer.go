package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"voyago/internal/shared/config"

	"github.com/IBM/sarama"
)

// Producer publishes notifications for asynchronous delivery
type Producer interface {
	Publish(ctx context.Context, notification *Notification) error
	Close() error
}

// KafkaProducer publishes notifications to the notification topic
type KafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaProducer(cfg config.KafkaConfig) (Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Timeout = 10 * time.Second
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Printf("Kafka notification producer connected to %v", cfg.Brokers)
	return &KafkaProducer{
		producer: producer,
		topic:    cfg.NotificationTopic,
	}, nil
}

func (p *KafkaProducer) Publish(ctx context.Context, notification *Notification) error {
	payload, err := notification.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(notification.RecipientID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(notification.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	log.Printf("Published %s notification to partition %d offset %d", notification.Type, partition, offset)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}

// DirectProducer bypasses the broker and delivers synchronously. Used
// when Kafka is disabled (local development, tests).
type DirectProducer struct {
	deliverer *Deliverer
}

func NewDirectProducer(deliverer *Deliverer) Producer {
	return &DirectProducer{deliverer: deliverer}
}

func (p *DirectProducer) Publish(ctx context.Context, notification *Notification) error {
	return p.deliverer.Deliver(ctx, notification)
}

func (p *DirectProducer) Close() error {
	return nil
}
