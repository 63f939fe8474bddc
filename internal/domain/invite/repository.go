package invite

import "context"

// Repository defines persistence operations for pending user imports.
//
// Claim is the single authoritative transition to the claimed state: it must
// atomically verify the record is still claimable (pending or invited, not
// past expires_at), grant the entitlement, and flip the status. Callers must
// not perform those as separate steps, or two concurrent claims could both
// grant.
type Repository interface {
	Create(ctx context.Context, p *PendingImport) error
	GetByToken(ctx context.Context, token string) (*PendingImport, error)
	Update(ctx context.Context, p *PendingImport) error
	ListByStatus(ctx context.Context, status Status) ([]*PendingImport, error)
	Claim(ctx context.Context, token, claimantUserID string) (*PendingImport, error)
}
