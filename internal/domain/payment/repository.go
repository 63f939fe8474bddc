package payment

import "context"

// Repository defines persistence operations for payment mirror rows.
type Repository interface {
	// Create inserts a mirror row. Inserting a second succeeded row for the
	// same provider transaction id fails with a duplicate error the caller
	// is expected to swallow.
	Create(ctx context.Context, p *Payment) error
	// GetSucceededByProviderTxnID returns the succeeded row for a provider
	// transaction id, if one exists. A hit means reconciliation already
	// completed for that transaction.
	GetSucceededByProviderTxnID(ctx context.Context, txnID string) (*Payment, error)
	ListByUser(ctx context.Context, userID string) ([]*Payment, error)
}
