package app

import (
	"context"
	"fmt"
	"log/slog"

	"payment-record-service/internal/core/domain"
	"payment-record-service/internal/core/ports"

	"github.com/shopspring/decimal"
)

// service is the implementation of the PaymentService port.
type service struct {
	repo   ports.PaymentRepository
	events ports.EventPublisher
	clock  ports.Clock
	logger *slog.Logger
}

// NewPaymentService is the constructor of the core service. All
// collaborators come in through interfaces.
func NewPaymentService(repo ports.PaymentRepository, events ports.EventPublisher, clock ports.Clock, logger *slog.Logger) ports.PaymentService {
	return &service{
		repo:   repo,
		events: events,
		clock:  clock,
		logger: logger,
	}
}

// Accept validates the candidate, assigns the acceptance timestamp and
// persists the record. The returned payment carries its store-assigned id.
func (s *service) Accept(ctx context.Context, candidate domain.Payment) (domain.Payment, error) {
	if candidate.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.Payment{}, &domain.ValidationError{Reason: "Payment amount must be positive."}
	}
	if candidate.Name == "" {
		return domain.Payment{}, &domain.ValidationError{Reason: "Payment name is required."}
	}
	if candidate.CardNumber == "" {
		return domain.Payment{}, &domain.ValidationError{Reason: "Card number is required."}
	}

	// The acceptance time is service-assigned, any client value is discarded.
	candidate.ID = 0
	candidate.Timestamp = s.clock.Now()
	candidate.IsDeleted = false

	if err := s.repo.Save(ctx, &candidate); err != nil {
		return domain.Payment{}, domain.ErrStorageUnavailable
	}

	s.publish(ctx, "payment accepted", s.events.PaymentAccepted, candidate)

	return candidate, nil
}

// Stop soft-deletes a payment. Allowed only while the record is younger
// than the stop window and at or below the stop amount limit. The checks
// run inside the repository's stop transaction so concurrent stops on the
// same record cannot both pass.
func (s *service) Stop(ctx context.Context, paymentID int64) (bool, error) {
	stopped, err := s.repo.Stop(ctx, paymentID, func(p domain.Payment) error {
		if p.IsDeleted {
			return &domain.ValidationError{Reason: fmt.Sprintf("Payment with ID %d has already been stopped.", paymentID)}
		}
		if p.Amount.GreaterThan(domain.StopAmountLimit) {
			return &domain.ValidationError{Reason: "Payments over $10,000 cannot be stopped automatically. Please contact customer service."}
		}
		// Strictly before: at exactly StopWindow the payment is no longer stoppable.
		if !s.clock.Now().Add(-domain.StopWindow).Before(p.Timestamp) {
			return &domain.ValidationError{Reason: "Payment cannot be stopped after 15 minutes."}
		}
		return nil
	})
	if err != nil {
		if domain.IsDomainError(err) {
			return false, err
		}
		return false, domain.ErrStorageUnavailable
	}

	s.publish(ctx, "payment stopped", s.events.PaymentStopped, stopped)

	return true, nil
}

// GetByID returns a single payment, deleted or not.
func (s *service) GetByID(ctx context.Context, paymentID int64) (domain.Payment, error) {
	p, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if domain.IsDomainError(err) {
			return domain.Payment{}, err
		}
		return domain.Payment{}, domain.ErrStorageUnavailable
	}
	return p, nil
}

// ListByCard returns every payment for the card, deleted ones included.
// An empty result set is a NotFoundError at this level, presentation is
// the boundary's call.
func (s *service) ListByCard(ctx context.Context, cardNumber string) ([]domain.Payment, error) {
	payments, err := s.repo.FindByCardNumber(ctx, cardNumber, false)
	if err != nil {
		return nil, domain.ErrStorageUnavailable
	}
	if len(payments) == 0 {
		return nil, &domain.NotFoundError{Reason: fmt.Sprintf("No payments found for card number: %s", cardNumber)}
	}
	return payments, nil
}

// ListActiveByCard returns the card's payments with is_deleted = false.
// Same empty-result policy as ListByCard.
func (s *service) ListActiveByCard(ctx context.Context, cardNumber string) ([]domain.Payment, error) {
	payments, err := s.repo.FindByCardNumber(ctx, cardNumber, true)
	if err != nil {
		return nil, domain.ErrStorageUnavailable
	}
	if len(payments) == 0 {
		return nil, &domain.NotFoundError{Reason: fmt.Sprintf("No active payments found for card number: %s", cardNumber)}
	}
	return payments, nil
}

// publish sends a lifecycle event without letting a broker failure fail
// the request. The store already committed, it stays the source of truth.
func (s *service) publish(ctx context.Context, event string, fn func(context.Context, domain.Payment) error, p domain.Payment) {
	if err := fn(ctx, p); err != nil {
		s.logger.Warn("lifecycle event not published", "event", event, "payment_id", p.ID, "error", err)
	}
}
