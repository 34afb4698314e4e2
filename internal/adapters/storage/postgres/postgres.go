package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"payment-record-service/internal/core/domain"
)

// Repository is the PostgreSQL implementation of the PaymentRepository port.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository instance.
// Accepts a DSN (Data Source Name) to connect to.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

const paymentColumns = `id, card_number, amount::text, accepted_at, name, is_deleted`

// Save inserts the payment and fills in its store-assigned identifier.
func (r *Repository) Save(ctx context.Context, p *domain.Payment) error {
	const sql = `
		INSERT INTO payments
		    (card_number, amount, accepted_at, name, is_deleted)
		VALUES
		    ($1, $2::numeric, $3, $4, $5)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, sql,
		p.CardNumber,
		p.Amount.String(),
		p.Timestamp,
		p.Name,
		p.IsDeleted,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}

	return nil
}

// FindByID returns the payment regardless of its deleted state.
func (r *Repository) FindByID(ctx context.Context, id int64) (domain.Payment, error) {
	sql := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(r.pool.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, &domain.NotFoundError{Reason: fmt.Sprintf("Payment with ID %d not found.", id)}
		}
		return domain.Payment{}, fmt.Errorf("failed to find payment %d: %w", id, err)
	}
	return p, nil
}

// FindByCardNumber lists the card's payments in acceptance order.
func (r *Repository) FindByCardNumber(ctx context.Context, cardNumber string, activeOnly bool) ([]domain.Payment, error) {
	sql := `SELECT ` + paymentColumns + ` FROM payments WHERE card_number = $1`
	if activeOnly {
		sql += ` AND is_deleted = FALSE`
	}
	sql += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, sql, cardNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments for card: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payment rows: %w", err)
	}

	return payments, nil
}

// Stop runs the read-check-write as one transaction. The row is locked
// with FOR UPDATE so a concurrent stop waits here and then sees
// is_deleted already set.
func (r *Repository) Stop(ctx context.Context, id int64, check func(domain.Payment) error) (domain.Payment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to begin stop transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	sql := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	p, err := scanPayment(tx.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, &domain.NotFoundError{Reason: fmt.Sprintf("Payment with ID %d not found.", id)}
		}
		return domain.Payment{}, fmt.Errorf("failed to lock payment %d: %w", id, err)
	}

	if err := check(p); err != nil {
		return domain.Payment{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE payments SET is_deleted = TRUE WHERE id = $1`, id); err != nil {
		return domain.Payment{}, fmt.Errorf("failed to stop payment %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Payment{}, fmt.Errorf("failed to commit stop of payment %d: %w", id, err)
	}

	p.IsDeleted = true
	return p, nil
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	var amount string
	if err := row.Scan(&p.ID, &p.CardNumber, &amount, &p.Timestamp, &p.Name, &p.IsDeleted); err != nil {
		return domain.Payment{}, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("invalid amount in store: %w", err)
	}
	p.Amount = parsed

	return p, nil
}
