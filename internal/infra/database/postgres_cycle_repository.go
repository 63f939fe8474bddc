// internal/infra/database/postgres_cycle_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"grant_portal/internal/domain/cycle"
)

// Custom errors specific to cycle repository
var ErrCycleNotFound = fmt.Errorf("grant cycle not found")

type PostgresCycleRepository struct {
	db *sql.DB
}

func NewPostgresCycleRepository(db *sql.DB) *PostgresCycleRepository {
	return &PostgresCycleRepository{db: db}
}

const cycleColumns = `id, name, start_date, end_date, announce_by, is_open_for_submissions, manual_status, created_at, updated_at`

func scanCycle(row interface{ Scan(...any) error }) (*cycle.Cycle, error) {
	c := cycle.Cycle{}
	err := row.Scan(&c.ID, &c.Name, &c.StartDate, &c.EndDate, &c.AnnounceBy,
		&c.IsOpenForSubmissions, &c.ManualStatus, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresCycleRepository) Create(ctx context.Context, c *cycle.Cycle) error {
	query := `INSERT INTO grant_cycles (name, start_date, end_date, announce_by, is_open_for_submissions, manual_status)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, c.Name, c.StartDate, c.EndDate, c.AnnounceBy,
		c.IsOpenForSubmissions, c.ManualStatus).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating grant cycle: %w", err)
	}
	return nil
}

func (r *PostgresCycleRepository) GetByID(ctx context.Context, id int64) (*cycle.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM grant_cycles WHERE id = $1`
	c, err := scanCycle(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("error getting grant cycle by ID: %w", err)
	}
	return c, nil
}

func (r *PostgresCycleRepository) Update(ctx context.Context, c *cycle.Cycle) error {
	query := `UPDATE grant_cycles
               SET name = $1, start_date = $2, end_date = $3, announce_by = $4,
                   is_open_for_submissions = $5, manual_status = $6, updated_at = NOW()
               WHERE id = $7
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, c.Name, c.StartDate, c.EndDate, c.AnnounceBy,
		c.IsOpenForSubmissions, c.ManualStatus, c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrCycleNotFound
		}
		return fmt.Errorf("error updating grant cycle: %w", err)
	}
	return nil
}

func (r *PostgresCycleRepository) ListAll(ctx context.Context) ([]*cycle.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM grant_cycles ORDER BY start_date DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing grant cycles: %w", err)
	}
	defer rows.Close()

	cycles := make([]*cycle.Cycle, 0)
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning grant cycle row: %w", err)
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grant cycle rows: %w", err)
	}
	return cycles, nil
}

func (r *PostgresCycleRepository) MostRecentOpen(ctx context.Context) (*cycle.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM grant_cycles
               WHERE is_open_for_submissions = TRUE
               ORDER BY start_date DESC LIMIT 1`
	c, err := scanCycle(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("error getting most recent open cycle: %w", err)
	}
	return c, nil
}

func (r *PostgresCycleRepository) MostRecent(ctx context.Context) (*cycle.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM grant_cycles ORDER BY start_date DESC LIMIT 1`
	c, err := scanCycle(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("error getting most recent cycle: %w", err)
	}
	return c, nil
}
