package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"payment-record-service/internal/core/domain"
)

const (
	eventPaymentAccepted = "payment.accepted"
	eventPaymentStopped  = "payment.stopped"
)

// Publisher is the Kafka implementation of the EventPublisher port.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewPublisher creates a producer for payment lifecycle events.
func NewPublisher(bootstrapServers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(bootstrapServers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(10 * time.Second),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	if err := client.Ping(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to kafka: %w", err)
	}

	return &Publisher{
		client: client,
		topic:  topic,
		logger: logger,
	}, nil
}

// PaymentAccepted publishes an event for a newly accepted payment.
func (p *Publisher) PaymentAccepted(ctx context.Context, payment domain.Payment) error {
	return p.publish(ctx, eventPaymentAccepted, payment)
}

// PaymentStopped publishes an event for a soft-deleted payment.
func (p *Publisher) PaymentStopped(ctx context.Context, payment domain.Payment) error {
	return p.publish(ctx, eventPaymentStopped, payment)
}

func (p *Publisher) publish(ctx context.Context, eventType string, payment domain.Payment) error {
	message := map[string]interface{}{
		"event_id":    uuid.New().String(),
		"event_type":  eventType,
		"payment_id":  payment.ID,
		"card_number": payment.CardNumber,
		"amount":      payment.Amount,
		"name":        payment.Name,
		"is_deleted":  payment.IsDeleted,
		"accepted_at": payment.Timestamp.Format(time.RFC3339),
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	record := &kgo.Record{
		Key:   []byte(fmt.Sprintf("%d", payment.ID)),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	p.wg.Add(1)
	// Produce is asynchronous, delivery failures surface in the callback.
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		defer p.wg.Done()
		if err != nil {
			p.logger.Error("failed to deliver event to kafka", "topic", r.Topic, "event_type", eventType, "error", err)
		} else {
			p.logger.Debug("event delivered to kafka", "topic", r.Topic, "partition", r.Partition, "offset", r.Offset)
		}
	})

	return nil
}

// Close waits for in-flight records and stops the producer.
func (p *Publisher) Close() {
	p.logger.Info("waiting for pending kafka deliveries...")
	p.wg.Wait()
	p.client.Close()
	p.logger.Info("kafka client stopped")
}
