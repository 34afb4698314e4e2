package ports

import (
	"context"
	"time"

	"payment-record-service/internal/core/domain"
)

// PaymentRepository is an outgoing port. It defines WHAT we need from
// durable storage, not HOW it is provided.
type PaymentRepository interface {
	// Save inserts a new payment and assigns its store identifier.
	Save(ctx context.Context, p *domain.Payment) error
	// FindByID returns the payment or a NotFoundError.
	FindByID(ctx context.Context, id int64) (domain.Payment, error)
	// FindByCardNumber returns all payments for the card, optionally
	// restricted to non-deleted ones. An empty result is not an error
	// at this level.
	FindByCardNumber(ctx context.Context, cardNumber string, activeOnly bool) ([]domain.Payment, error)
	// Stop loads the payment under a write lock, runs check against the
	// current row, and flips is_deleted only when check passes. The
	// read-check-write happens in a single store transaction so two
	// concurrent stops cannot both pass validation.
	Stop(ctx context.Context, id int64, check func(domain.Payment) error) (domain.Payment, error)
}

// EventPublisher is an outgoing port for lifecycle notifications.
// Publishing is best-effort, the store remains the source of truth.
type EventPublisher interface {
	PaymentAccepted(ctx context.Context, p domain.Payment) error
	PaymentStopped(ctx context.Context, p domain.Payment) error
}

// Clock abstracts time so the stop window is testable without real
// time passing.
type Clock interface {
	Now() time.Time
}

// RateLimiterRepository is an outgoing port for request throttling state.
type RateLimiterRepository interface {
	IsAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// PaymentService is the incoming port, how the outside world interacts
// with the payment lifecycle.
type PaymentService interface {
	Accept(ctx context.Context, candidate domain.Payment) (domain.Payment, error)
	Stop(ctx context.Context, paymentID int64) (bool, error)
	GetByID(ctx context.Context, paymentID int64) (domain.Payment, error)
	ListByCard(ctx context.Context, cardNumber string) ([]domain.Payment, error)
	ListActiveByCard(ctx context.Context, cardNumber string) ([]domain.Payment, error)
}
