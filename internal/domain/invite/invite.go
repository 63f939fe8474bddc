// internal/domain/invite/invite.go
package invite

import (
	"database/sql"
	"time"
)

// Status of a pending user import. Claimed and cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInvited   Status = "invited"
	StatusClaimed   Status = "claimed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// PendingImport is a not-yet-claimed entitlement from a gift or an
// invitation, keyed by a unique invite token. Corresponds to the
// 'pending_user_imports' table.
type PendingImport struct {
	ID          string
	InviteToken string
	Email       string
	DisplayName string
	PlanType    string
	PaymentID   sql.NullString
	Status      Status
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsExpired applies the lazy-expiry rule: an eagerly written expired status
// and a past expires_at are equivalent signals, readers must honor both.
func (p *PendingImport) IsExpired(now time.Time) bool {
	return p.Status == StatusExpired || (!p.ExpiresAt.IsZero() && now.After(p.ExpiresAt))
}

// IsClaimable reports whether a claim attempt may proceed at all.
func (p *PendingImport) IsClaimable(now time.Time) bool {
	if p.IsExpired(now) {
		return false
	}
	return p.Status == StatusPending || p.Status == StatusInvited
}
