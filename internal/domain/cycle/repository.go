// internal/domain/cycle/repository.go
package cycle

import "context"

// Repository defines persistence operations for grant cycles.
type Repository interface {
	Create(ctx context.Context, c *Cycle) error
	GetByID(ctx context.Context, id int64) (*Cycle, error)
	Update(ctx context.Context, c *Cycle) error
	ListAll(ctx context.Context) ([]*Cycle, error)

	// MostRecentOpen returns the newest cycle (by start date) currently
	// flagged open for submissions.
	MostRecentOpen(ctx context.Context) (*Cycle, error)
	// MostRecent returns the newest cycle by start date regardless of flags.
	MostRecent(ctx context.Context) (*Cycle, error)
}
