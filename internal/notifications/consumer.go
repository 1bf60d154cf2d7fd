package notifications

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"voyago/internal/shared/config"

	"github.com/IBM/sarama"
)

// Consumer drains the notification topic and delivers emails
type Consumer interface {
	StartWorkers(ctx context.Context, numWorkers int) error
	Stop() error
}

type kafkaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	deliverer     *Deliverer
	topics        []string
	maxRetries    int
	retryBackoff  time.Duration
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func NewKafkaConsumer(cfg config.KafkaConfig, deliverer *Deliverer) (Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = 30 * time.Second
	saramaConfig.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &kafkaConsumer{
		consumerGroup: consumerGroup,
		deliverer:     deliverer,
		topics:        []string{cfg.NotificationTopic},
		maxRetries:    3,
		retryBackoff:  time.Second,
	}, nil
}

func (c *kafkaConsumer) StartWorkers(ctx context.Context, numWorkers int) error {
	ctx, c.cancel = context.WithCancel(ctx)

	go c.handleErrors()

	log.Printf("Starting %d notification workers for topics %v", numWorkers, c.topics)
	for i := 0; i < numWorkers; i++ {
		c.wg.Add(1)
		go func(workerID int) {
			defer c.wg.Done()
			c.runWorker(ctx, workerID)
		}(i)
	}
	return nil
}

func (c *kafkaConsumer) runWorker(ctx context.Context, workerID int) {
	handler := &groupHandler{consumer: c, workerID: workerID}

	for {
		select {
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", workerID)
			return
		default:
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				log.Printf("Notification worker %d consume error: %v", workerID, err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (c *kafkaConsumer) handleErrors() {
	for err := range c.consumerGroup.Errors() {
		log.Printf("Notification consumer group error: %v", err)
	}
}

func (c *kafkaConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	if err := c.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

type groupHandler struct {
	consumer *kafkaConsumer
	workerID int
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			if err := h.processMessage(session.Context(), message); err != nil {
				log.Printf("Notification worker %d failed to process offset %d: %v", h.workerID, message.Offset, err)
			} else {
				session.MarkMessage(message, "")
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *groupHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	notification, err := NotificationFromJSON(message.Value)
	if err != nil {
		// Malformed payloads are dropped, not retried
		log.Printf("Notification worker %d dropping malformed message at offset %d: %v", h.workerID, message.Offset, err)
		return nil
	}

	return h.deliverWithRetry(ctx, notification)
}

func (h *groupHandler) deliverWithRetry(ctx context.Context, notification *Notification) error {
	maxRetries := h.consumer.maxRetries
	backoff := h.consumer.retryBackoff

	for attempt := 0; ; attempt++ {
		err := h.consumer.deliverer.Deliver(ctx, notification)
		if err == nil {
			return nil
		}
		if attempt == maxRetries {
			return fmt.Errorf("delivery failed after %d attempts: %w", maxRetries+1, err)
		}

		delay := backoff * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
