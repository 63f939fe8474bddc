// internal/domain/identity/identity.go
package identity

import "context"

// Principal is an authenticated portal user as reported by the hosted
// identity provider.
type Principal struct {
	ID          string
	Email       string
	DisplayName string
}

// Verifier turns a bearer credential into a Principal, or fails if the
// caller is not authenticated.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// Directory resolves arbitrary users by id through the identity provider's
// admin API. Used to snapshot recipient details at enrollment time.
type Directory interface {
	UserByID(ctx context.Context, id string) (*Principal, error)
}
