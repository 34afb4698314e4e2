package mock

import (
	"context"
	"log/slog"

	"payment-record-service/internal/core/domain"
)

// Publisher is a stand-in for the EventPublisher port, used when Kafka
// is disabled. Events are logged instead of produced.
type Publisher struct {
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{logger: logger}
}

func (p *Publisher) PaymentAccepted(_ context.Context, payment domain.Payment) error {
	p.logger.Debug("payment accepted (events disabled)", "payment_id", payment.ID, "amount", payment.Amount.String())
	return nil
}

func (p *Publisher) PaymentStopped(_ context.Context, payment domain.Payment) error {
	p.logger.Debug("payment stopped (events disabled)", "payment_id", payment.ID)
	return nil
}

func (p *Publisher) Close() {}
