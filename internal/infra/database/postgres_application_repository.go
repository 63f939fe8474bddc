// internal/infra/database/postgres_application_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"grant_portal/internal/domain/application"
)

// Custom errors specific to application repository
var ErrApplicationNotFound = fmt.Errorf("application not found")

type PostgresApplicationRepository struct {
	db *sql.DB
}

func NewPostgresApplicationRepository(db *sql.DB) *PostgresApplicationRepository {
	return &PostgresApplicationRepository{db: db}
}

func (r *PostgresApplicationRepository) Create(ctx context.Context, app *application.Application) error {
	query := `INSERT INTO applications (id, user_id, cycle_id, status, form)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, app.ID, app.UserID, app.CycleID, app.Status, app.Form).
		Scan(&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating application: %w", err)
	}
	return nil
}

func (r *PostgresApplicationRepository) GetByID(ctx context.Context, id string) (*application.Application, error) {
	query := `SELECT id, user_id, cycle_id, status, form, created_at, updated_at
               FROM applications WHERE id = $1`
	app := application.Application{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&app.ID, &app.UserID, &app.CycleID, &app.Status, &app.Form, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error getting application by ID: %w", err)
	}
	return &app, nil
}

// Update persists form payload and status edits. The cycle_id column is
// deliberately absent: an application never changes cycle after creation.
func (r *PostgresApplicationRepository) Update(ctx context.Context, app *application.Application) error {
	query := `UPDATE applications
               SET status = $1, form = $2, updated_at = NOW()
               WHERE id = $3
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, app.Status, app.Form, app.ID).Scan(&app.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrApplicationNotFound
		}
		return fmt.Errorf("error updating application: %w", err)
	}
	return nil
}

func (r *PostgresApplicationRepository) UpdateStatus(ctx context.Context, id string, status application.Status) error {
	query := `UPDATE applications SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING id`
	var returned string
	err := r.db.QueryRowContext(ctx, query, status, id).Scan(&returned)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrApplicationNotFound
		}
		return fmt.Errorf("error updating application status: %w", err)
	}
	return nil
}

func (r *PostgresApplicationRepository) ListByUser(ctx context.Context, userID string) ([]*application.Application, error) {
	query := `SELECT id, user_id, cycle_id, status, form, created_at, updated_at
               FROM applications WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing applications by user: %w", err)
	}
	defer rows.Close()

	apps := make([]*application.Application, 0)
	for rows.Next() {
		app := application.Application{}
		if err := rows.Scan(&app.ID, &app.UserID, &app.CycleID, &app.Status, &app.Form, &app.CreatedAt, &app.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning application row: %w", err)
		}
		apps = append(apps, &app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating application rows: %w", err)
	}
	return apps, nil
}
