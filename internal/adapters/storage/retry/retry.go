// Package retry decorates the payment repository with a retry policy for
// transient store failures. Retries live here at the store boundary, the
// core service never retries anything itself.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"payment-record-service/internal/config"
	"payment-record-service/internal/core/domain"
	"payment-record-service/internal/core/ports"
)

// Policy holds the retry parameters for store calls.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// PolicyFromConfig translates the store_retry config section.
func PolicyFromConfig(cfg config.StoreRetryConfig) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     time.Duration(cfg.BackoffMs) * time.Millisecond,
	}
}

// Repository wraps a PaymentRepository, retrying transient failures with
// a constant backoff. Validation and not-found errors are permanent and
// returned immediately.
type Repository struct {
	inner  ports.PaymentRepository
	policy Policy
}

func NewRepository(inner ports.PaymentRepository, policy Policy) *Repository {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Repository{inner: inner, policy: policy}
}

func (r *Repository) Save(ctx context.Context, p *domain.Payment) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, classify(r.inner.Save(ctx, p))
	}, r.options()...)
	return err
}

func (r *Repository) FindByID(ctx context.Context, id int64) (domain.Payment, error) {
	return backoff.Retry(ctx, func() (domain.Payment, error) {
		p, err := r.inner.FindByID(ctx, id)
		return p, classify(err)
	}, r.options()...)
}

func (r *Repository) FindByCardNumber(ctx context.Context, cardNumber string, activeOnly bool) ([]domain.Payment, error) {
	return backoff.Retry(ctx, func() ([]domain.Payment, error) {
		payments, err := r.inner.FindByCardNumber(ctx, cardNumber, activeOnly)
		return payments, classify(err)
	}, r.options()...)
}

func (r *Repository) Stop(ctx context.Context, id int64, check func(domain.Payment) error) (domain.Payment, error) {
	return backoff.Retry(ctx, func() (domain.Payment, error) {
		p, err := r.inner.Stop(ctx, id, check)
		return p, classify(err)
	}, r.options()...)
}

func (r *Repository) options() []backoff.RetryOption {
	return []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(r.policy.Backoff)),
		backoff.WithMaxTries(uint(r.policy.MaxAttempts)),
	}
}

// classify marks domain errors as permanent so only transport-level
// failures are retried.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsDomainError(err) {
		return backoff.Permanent(err)
	}
	return err
}
