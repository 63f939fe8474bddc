// internal/infra/database/postgres_payment_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"grant_portal/internal/domain/payment"
)

// Custom errors specific to payment repository
var ErrPaymentNotFound = fmt.Errorf("payment not found")
var ErrDuplicatePayment = fmt.Errorf("duplicate succeeded payment for provider transaction id")

type PostgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

func (r *PostgresPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `INSERT INTO payments (id, user_id, application_id, amount_cents, currency, provider, provider_txn_id, plan_type, status)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
               RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, p.ID, p.UserID, p.ApplicationID, p.AmountCents,
		p.Currency, p.Provider, p.ProviderTxnID, p.PlanType, p.Status).Scan(&p.CreatedAt)
	if err != nil {
		// Partial unique index on (provider_txn_id) WHERE status = 'succeeded'.
		if strings.Contains(err.Error(), "payments_succeeded_txn_unique") {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("error creating payment: %w", err)
	}
	return nil
}

func (r *PostgresPaymentRepository) GetSucceededByProviderTxnID(ctx context.Context, txnID string) (*payment.Payment, error) {
	query := `SELECT id, user_id, application_id, amount_cents, currency, provider, provider_txn_id, plan_type, status, created_at
               FROM payments
               WHERE provider_txn_id = $1 AND status = $2`
	p := payment.Payment{}
	err := r.db.QueryRowContext(ctx, query, txnID, payment.StatusSucceeded).Scan(
		&p.ID, &p.UserID, &p.ApplicationID, &p.AmountCents, &p.Currency,
		&p.Provider, &p.ProviderTxnID, &p.PlanType, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error getting payment by provider transaction id: %w", err)
	}
	return &p, nil
}

func (r *PostgresPaymentRepository) ListByUser(ctx context.Context, userID string) ([]*payment.Payment, error) {
	query := `SELECT id, user_id, application_id, amount_cents, currency, provider, provider_txn_id, plan_type, status, created_at
               FROM payments WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing payments by user: %w", err)
	}
	defer rows.Close()

	payments := make([]*payment.Payment, 0)
	for rows.Next() {
		p := payment.Payment{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.ApplicationID, &p.AmountCents, &p.Currency,
			&p.Provider, &p.ProviderTxnID, &p.PlanType, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning payment row: %w", err)
		}
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment rows: %w", err)
	}
	return payments, nil
}
