// internal/infra/database/postgres_invite_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"grant_portal/internal/domain/invite"

	"github.com/google/uuid"
)

// Custom errors specific to invite repository
var ErrImportNotFound = fmt.Errorf("pending user import not found")
var ErrImportNotClaimable = fmt.Errorf("pending user import is not claimable")

type PostgresInviteRepository struct {
	db *sql.DB
}

func NewPostgresInviteRepository(db *sql.DB) *PostgresInviteRepository {
	return &PostgresInviteRepository{db: db}
}

const importColumns = `id, invite_token, email, display_name, plan_type, payment_id, status, expires_at, created_at, updated_at`

func scanImport(row interface{ Scan(...any) error }) (*invite.PendingImport, error) {
	p := invite.PendingImport{}
	err := row.Scan(&p.ID, &p.InviteToken, &p.Email, &p.DisplayName, &p.PlanType,
		&p.PaymentID, &p.Status, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresInviteRepository) Create(ctx context.Context, p *invite.PendingImport) error {
	query := `INSERT INTO pending_user_imports (id, invite_token, email, display_name, plan_type, payment_id, status, expires_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, p.ID, p.InviteToken, p.Email, p.DisplayName,
		p.PlanType, p.PaymentID, p.Status, p.ExpiresAt).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating pending user import: %w", err)
	}
	return nil
}

func (r *PostgresInviteRepository) GetByToken(ctx context.Context, token string) (*invite.PendingImport, error) {
	query := `SELECT ` + importColumns + ` FROM pending_user_imports WHERE invite_token = $1`
	p, err := scanImport(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrImportNotFound
		}
		return nil, fmt.Errorf("error getting pending user import by token: %w", err)
	}
	return p, nil
}

func (r *PostgresInviteRepository) Update(ctx context.Context, p *invite.PendingImport) error {
	query := `UPDATE pending_user_imports
               SET email = $1, display_name = $2, plan_type = $3, payment_id = $4, status = $5, expires_at = $6, updated_at = NOW()
               WHERE id = $7
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, p.Email, p.DisplayName, p.PlanType, p.PaymentID,
		p.Status, p.ExpiresAt, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrImportNotFound
		}
		return fmt.Errorf("error updating pending user import: %w", err)
	}
	return nil
}

func (r *PostgresInviteRepository) ListByStatus(ctx context.Context, status invite.Status) ([]*invite.PendingImport, error) {
	query := `SELECT ` + importColumns + ` FROM pending_user_imports WHERE status = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("error listing pending user imports: %w", err)
	}
	defer rows.Close()

	imports := make([]*invite.PendingImport, 0)
	for rows.Next() {
		p, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning pending user import row: %w", err)
		}
		imports = append(imports, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending user import rows: %w", err)
	}
	return imports, nil
}

// Claim performs the whole claim transition in one transaction: a guarded
// UPDATE that only matches a still-claimable row, plus insertion of the
// entitlement pass. Two concurrent claims cannot both succeed; the loser's
// UPDATE matches zero rows and reports ErrImportNotClaimable.
func (r *PostgresInviteRepository) Claim(ctx context.Context, token, claimantUserID string) (*invite.PendingImport, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	query := `UPDATE pending_user_imports
               SET status = $1, updated_at = NOW()
               WHERE invite_token = $2
                 AND status IN ($3, $4)
                 AND expires_at > NOW()
               RETURNING ` + importColumns
	p, err := scanImport(txn.QueryRowContext(ctx, query, invite.StatusClaimed, token,
		invite.StatusPending, invite.StatusInvited))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrImportNotClaimable
		}
		return nil, fmt.Errorf("error claiming pending user import: %w", err)
	}

	passQuery := `INSERT INTO entitlement_passes (id, user_id, plan_type, source_import_id)
                   VALUES ($1, $2, $3, $4)`
	if _, err := txn.ExecContext(ctx, passQuery, uuid.NewString(), claimantUserID, p.PlanType, p.ID); err != nil {
		return nil, fmt.Errorf("error issuing entitlement pass for import %s: %w", p.ID, err)
	}

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim transaction: %w", err)
	}
	return p, nil
}
