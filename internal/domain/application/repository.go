package application

import "context"

// Repository defines the operations for persisting and retrieving applications.
type Repository interface {
	Create(ctx context.Context, app *Application) error
	GetByID(ctx context.Context, id string) (*Application, error)
	Update(ctx context.Context, app *Application) error
	// UpdateStatus transitions only the status column, leaving the form
	// payload untouched.
	UpdateStatus(ctx context.Context, id string, status Status) error
	ListByUser(ctx context.Context, userID string) ([]*Application, error)
}
