package app

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"payment-record-service/internal/core/domain"
	"payment-record-service/internal/core/ports"
)

// memoryRepository is an in-memory PaymentRepository for service tests.
type memoryRepository struct {
	nextID   int64
	payments map[int64]domain.Payment
	saveErr  error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{nextID: 1, payments: make(map[int64]domain.Payment)}
}

func (r *memoryRepository) Save(_ context.Context, p *domain.Payment) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	p.ID = r.nextID
	r.nextID++
	r.payments[p.ID] = *p
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id int64) (domain.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return domain.Payment{}, &domain.NotFoundError{Reason: fmt.Sprintf("Payment with ID %d not found.", id)}
	}
	return p, nil
}

func (r *memoryRepository) FindByCardNumber(_ context.Context, cardNumber string, activeOnly bool) ([]domain.Payment, error) {
	var out []domain.Payment
	for id := int64(1); id < r.nextID; id++ {
		p, ok := r.payments[id]
		if !ok || p.CardNumber != cardNumber {
			continue
		}
		if activeOnly && p.IsDeleted {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepository) Stop(_ context.Context, id int64, check func(domain.Payment) error) (domain.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return domain.Payment{}, &domain.NotFoundError{Reason: fmt.Sprintf("Payment with ID %d not found.", id)}
	}
	if err := check(p); err != nil {
		return domain.Payment{}, err
	}
	p.IsDeleted = true
	r.payments[id] = p
	return p, nil
}

// MockPublisher is a testify mock for the EventPublisher port.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PaymentAccepted(ctx context.Context, p domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPublisher) PaymentStopped(ctx context.Context, p domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// fakeClock hands out a fixed instant so the stop window is deterministic.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestService(repo ports.PaymentRepository, clock ports.Clock) (ports.PaymentService, *MockPublisher) {
	publisher := new(MockPublisher)
	logger := slog.New(slog.DiscardHandler)
	return NewPaymentService(repo, publisher, clock, logger), publisher
}

func acceptPayment(t *testing.T, svc ports.PaymentService, card string, amount int64) domain.Payment {
	t.Helper()
	p, err := svc.Accept(context.Background(), domain.Payment{
		CardNumber: card,
		Amount:     decimal.NewFromInt(amount),
		Name:       "A. Buyer",
	})
	require.NoError(t, err)
	return p
}

func TestAccept_Success(t *testing.T) {
	repo := newMemoryRepository()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, publisher := newTestService(repo, clock)
	publisher.On("PaymentAccepted", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)

	result, err := svc.Accept(context.Background(), domain.Payment{
		CardNumber: "4111111111111111",
		Amount:     decimal.RequireFromString("100.00"),
		Name:       "A. Buyer",
		// Client-supplied values the service must override.
		ID:        99,
		Timestamp: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
		IsDeleted: true,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.ID)
	assert.True(t, result.Amount.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, clock.now, result.Timestamp)
	assert.False(t, result.IsDeleted)
	publisher.AssertExpectations(t)
}

func TestAccept_RejectsNonPositiveAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
	}{
		{"zero amount", decimal.Zero},
		{"negative amount", decimal.NewFromInt(-50)},
		{"missing amount", decimal.Decimal{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepository()
			svc, publisher := newTestService(repo, &fakeClock{now: time.Now()})

			_, err := svc.Accept(context.Background(), domain.Payment{
				CardNumber: "4111111111111111",
				Amount:     tt.amount,
				Name:       "A. Buyer",
			})

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "Payment amount must be positive.", ve.Reason)
			assert.Empty(t, repo.payments, "nothing may be persisted")
			publisher.AssertNotCalled(t, "PaymentAccepted", mock.Anything, mock.Anything)
		})
	}
}

func TestAccept_RejectsMissingNameAndCard(t *testing.T) {
	repo := newMemoryRepository()
	svc, _ := newTestService(repo, &fakeClock{now: time.Now()})

	_, err := svc.Accept(context.Background(), domain.Payment{
		CardNumber: "4111111111111111",
		Amount:     decimal.NewFromInt(10),
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Payment name is required.", ve.Reason)

	_, err = svc.Accept(context.Background(), domain.Payment{
		Amount: decimal.NewFromInt(10),
		Name:   "A. Buyer",
	})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Card number is required.", ve.Reason)
	assert.Empty(t, repo.payments)
}

func TestAccept_StoreFailure(t *testing.T) {
	repo := newMemoryRepository()
	repo.saveErr = fmt.Errorf("connection refused")
	svc, publisher := newTestService(repo, &fakeClock{now: time.Now()})

	_, err := svc.Accept(context.Background(), domain.Payment{
		CardNumber: "4111111111111111",
		Amount:     decimal.NewFromInt(10),
		Name:       "A. Buyer",
	})

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	publisher.AssertNotCalled(t, "PaymentAccepted", mock.Anything, mock.Anything)
}

func TestAccept_PublishFailureDoesNotFailRequest(t *testing.T) {
	repo := newMemoryRepository()
	svc, publisher := newTestService(repo, &fakeClock{now: time.Now()})
	publisher.On("PaymentAccepted", mock.Anything, mock.AnythingOfType("domain.Payment")).
		Return(fmt.Errorf("broker down"))

	result, err := svc.Accept(context.Background(), domain.Payment{
		CardNumber: "4111111111111111",
		Amount:     decimal.NewFromInt(10),
		Name:       "A. Buyer",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.ID)
}

func TestStop_NotFound(t *testing.T) {
	repo := newMemoryRepository()
	svc, _ := newTestService(repo, &fakeClock{now: time.Now()})

	ok, err := svc.Stop(context.Background(), 42)

	assert.False(t, ok)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Payment with ID 42 not found.", nf.Reason)
}

func TestStop_WithinWindow(t *testing.T) {
	repo := newMemoryRepository()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, publisher := newTestService(repo, clock)
	publisher.On("PaymentAccepted", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)
	publisher.On("PaymentStopped", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)

	p := acceptPayment(t, svc, "4111111111111111", 100)

	// 14m59s after acceptance, still inside the window.
	clock.now = clock.now.Add(domain.StopWindow - time.Second)
	ok, err := svc.Stop(context.Background(), p.ID)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, repo.payments[p.ID].IsDeleted)
	publisher.AssertCalled(t, "PaymentStopped", mock.Anything, mock.AnythingOfType("domain.Payment"))
}

func TestStop_SecondStopFails(t *testing.T) {
	repo := newMemoryRepository()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, publisher := newTestService(repo, clock)
	publisher.On("PaymentAccepted", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)
	publisher.On("PaymentStopped", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)

	p := acceptPayment(t, svc, "4111111111111111", 100)

	ok, err := svc.Stop(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// A stopped payment is immutable, the second stop must fail.
	ok, err = svc.Stop(context.Background(), p.ID)
	assert.False(t, ok)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "already been stopped")
	assert.True(t, repo.payments[p.ID].IsDeleted)
}

func TestStop_AmountOverLimit(t *testing.T) {
	repo := newMemoryRepository()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, publisher := newTestService(repo, clock)
	publisher.On("PaymentAccepted", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)

	p := acceptPayment(t, svc, "4111111111111111", 15000)

	ok, err := svc.Stop(context.Background(), p.ID)

	assert.False(t, ok)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Payments over $10,000 cannot be stopped automatically. Please contact customer service.", ve.Reason)
	assert.False(t, repo.payments[p.ID].IsDeleted)
	publisher.AssertNotCalled(t, "PaymentStopped", mock.Anything, mock.Anything)
}

func TestStop_AmountExactlyAtLimitIsAllowed(t *testing.T) {
	repo := newMemoryRepository()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, publisher := newTestService(repo, clock)
	publisher.On("PaymentAccepted", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)
	publisher.On("PaymentStopped", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)

	p := acceptPayment(t, svc, "4111111111111111", 10000)

	ok, err := svc.Stop(context.Background(), p.ID)

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStop_WindowElapsed(t *testing.T) {
	repo := newMemoryRepository()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, publisher := newTestService(repo, clock)
	publisher.On("PaymentAccepted", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)

	p := acceptPayment(t, svc, "4111111111111111", 100)

	clock.now = clock.now.Add(domain.StopWindow + time.Minute)
	ok, err := svc.Stop(context.Background(), p.ID)

	assert.False(t, ok)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Payment cannot be stopped after 15 minutes.", ve.Reason)
	assert.False(t, repo.payments[p.ID].IsDeleted)
}

func TestStop_ExactlyAtWindowBoundaryIsRejected(t *testing.T) {
	repo := newMemoryRepository()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, publisher := newTestService(repo, clock)
	publisher.On("PaymentAccepted", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)

	p := acceptPayment(t, svc, "4111111111111111", 100)

	// now - window == timestamp: strict "before" means no longer stoppable.
	clock.now = clock.now.Add(domain.StopWindow)
	ok, err := svc.Stop(context.Background(), p.ID)

	assert.False(t, ok)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.False(t, repo.payments[p.ID].IsDeleted)
}

func TestGetByID(t *testing.T) {
	repo := newMemoryRepository()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, publisher := newTestService(repo, clock)
	publisher.On("PaymentAccepted", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)

	p := acceptPayment(t, svc, "4111111111111111", 100)

	found, err := svc.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = svc.GetByID(context.Background(), 999)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestListByCard(t *testing.T) {
	repo := newMemoryRepository()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, publisher := newTestService(repo, clock)
	publisher.On("PaymentAccepted", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)
	publisher.On("PaymentStopped", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)

	first := acceptPayment(t, svc, "4111111111111111", 100)
	acceptPayment(t, svc, "4111111111111111", 200)
	acceptPayment(t, svc, "5500000000000004", 300)

	ok, err := svc.Stop(context.Background(), first.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Deleted records stay visible in the full listing.
	all, err := svc.ListByCard(context.Background(), "4111111111111111")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListByCard(context.Background(), "4000000000000000")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "No payments found for card number: 4000000000000000", nf.Reason)
}

func TestListActiveByCard_ExcludesStopped(t *testing.T) {
	repo := newMemoryRepository()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, publisher := newTestService(repo, clock)
	publisher.On("PaymentAccepted", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)
	publisher.On("PaymentStopped", mock.Anything, mock.AnythingOfType("domain.Payment")).Return(nil)

	stoppedPayment := acceptPayment(t, svc, "4111111111111111", 100)
	kept := acceptPayment(t, svc, "4111111111111111", 200)

	ok, err := svc.Stop(context.Background(), stoppedPayment.ID)
	require.NoError(t, err)
	require.True(t, ok)

	active, err := svc.ListActiveByCard(context.Background(), "4111111111111111")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, kept.ID, active[0].ID)

	// Once every payment on the card is stopped, active listing is empty.
	ok, err = svc.Stop(context.Background(), kept.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.ListActiveByCard(context.Background(), "4111111111111111")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "No active payments found for card number: 4111111111111111", nf.Reason)
}
