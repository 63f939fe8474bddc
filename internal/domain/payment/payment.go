// internal/domain/payment/payment.go
package payment

import (
	"database/sql"
	"time"
)

// Status of a payment mirror row.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// Payment is an append-only mirror of a completed charge. The authoritative
// record lives with the payment provider; this row exists for idempotency
// checks and audit. For a given ProviderTxnID at most one row has
// status=succeeded.
type Payment struct {
	ID            string
	UserID        string
	ApplicationID sql.NullString // nullable: gift purchases have no application yet
	AmountCents   int64
	Currency      string
	Provider      string
	ProviderTxnID string
	PlanType      string
	Status        Status
	CreatedAt     time.Time
}
