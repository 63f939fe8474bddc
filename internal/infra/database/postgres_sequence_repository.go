// internal/infra/database/postgres_sequence_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"grant_portal/internal/domain/sequence"
)

// Custom errors specific to sequence repository
var ErrSequenceNotFound = fmt.Errorf("email sequence not found")
var ErrStepNotFound = fmt.Errorf("email sequence step not found")
var ErrEnrollmentNotFound = fmt.Errorf("sequence enrollment not found")
var ErrDuplicateEnrollment = fmt.Errorf("duplicate enrollment (sequence_id, application_id)")

type PostgresSequenceRepository struct {
	db *sql.DB
}

func NewPostgresSequenceRepository(db *sql.DB) *PostgresSequenceRepository {
	return &PostgresSequenceRepository{db: db}
}

// --- Sequence Methods ---

func (r *PostgresSequenceRepository) GetSequenceByID(ctx context.Context, id int64) (*sequence.Sequence, error) {
	query := `SELECT id, name, trigger_type, trigger_status, is_active, created_at, updated_at
               FROM email_sequences WHERE id = $1`
	s := sequence.Sequence{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.TriggerType, &s.TriggerStatus, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSequenceNotFound
		}
		return nil, fmt.Errorf("error getting sequence by ID: %w", err)
	}
	return &s, nil
}

func (r *PostgresSequenceRepository) ListActiveByTrigger(ctx context.Context, trigger sequence.TriggerType, triggerStatus string) ([]*sequence.Sequence, error) {
	query := `SELECT id, name, trigger_type, trigger_status, is_active, created_at, updated_at
               FROM email_sequences
               WHERE is_active = TRUE AND trigger_type = $1`
	args := []any{trigger}
	if trigger == sequence.TriggerStatusChange {
		query += ` AND trigger_status = $2`
		args = append(args, triggerStatus)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing active sequences by trigger: %w", err)
	}
	defer rows.Close()

	sequences := make([]*sequence.Sequence, 0)
	for rows.Next() {
		s := sequence.Sequence{}
		if err := rows.Scan(&s.ID, &s.Name, &s.TriggerType, &s.TriggerStatus, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning sequence row: %w", err)
		}
		sequences = append(sequences, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sequence rows: %w", err)
	}
	return sequences, nil
}

func (r *PostgresSequenceRepository) CreateSequence(ctx context.Context, s *sequence.Sequence) error {
	query := `INSERT INTO email_sequences (name, trigger_type, trigger_status, is_active)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.Name, s.TriggerType, s.TriggerStatus, s.IsActive).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating sequence: %w", err)
	}
	return nil
}

func (r *PostgresSequenceRepository) UpdateSequence(ctx context.Context, s *sequence.Sequence) error {
	query := `UPDATE email_sequences
               SET name = $1, trigger_type = $2, trigger_status = $3, is_active = $4, updated_at = NOW()
               WHERE id = $5
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, s.Name, s.TriggerType, s.TriggerStatus, s.IsActive, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrSequenceNotFound
		}
		return fmt.Errorf("error updating sequence: %w", err)
	}
	return nil
}

// --- Step Methods ---

func (r *PostgresSequenceRepository) ListSteps(ctx context.Context, sequenceID int64) ([]*sequence.Step, error) {
	query := `SELECT id, sequence_id, step_number, delay_days, subject, body_html
               FROM email_sequence_steps
               WHERE sequence_id = $1 ORDER BY step_number`
	rows, err := r.db.QueryContext(ctx, query, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("error listing sequence steps: %w", err)
	}
	defer rows.Close()

	steps := make([]*sequence.Step, 0)
	for rows.Next() {
		st := sequence.Step{}
		if err := rows.Scan(&st.ID, &st.SequenceID, &st.StepNumber, &st.DelayDays, &st.Subject, &st.BodyHTML); err != nil {
			return nil, fmt.Errorf("error scanning sequence step row: %w", err)
		}
		steps = append(steps, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sequence step rows: %w", err)
	}
	return steps, nil
}

func (r *PostgresSequenceRepository) GetStep(ctx context.Context, sequenceID int64, stepNumber int) (*sequence.Step, error) {
	query := `SELECT id, sequence_id, step_number, delay_days, subject, body_html
               FROM email_sequence_steps
               WHERE sequence_id = $1 AND step_number = $2`
	st := sequence.Step{}
	err := r.db.QueryRowContext(ctx, query, sequenceID, stepNumber).Scan(
		&st.ID, &st.SequenceID, &st.StepNumber, &st.DelayDays, &st.Subject, &st.BodyHTML,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStepNotFound
		}
		return nil, fmt.Errorf("error getting sequence step: %w", err)
	}
	return &st, nil
}

func (r *PostgresSequenceRepository) CreateStep(ctx context.Context, st *sequence.Step) error {
	query := `INSERT INTO email_sequence_steps (sequence_id, step_number, delay_days, subject, body_html)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id`
	err := r.db.QueryRowContext(ctx, query, st.SequenceID, st.StepNumber, st.DelayDays, st.Subject, st.BodyHTML).Scan(&st.ID)
	if err != nil {
		return fmt.Errorf("error creating sequence step: %w", err)
	}
	return nil
}

// --- Enrollment Methods ---

const enrollmentColumns = `id, sequence_id, application_id, recipient_email, recipient_name, current_step, status, next_email_due_date, enrolled_date, updated_at`

func scanEnrollment(row interface{ Scan(...any) error }) (*sequence.Enrollment, error) {
	e := sequence.Enrollment{}
	err := row.Scan(&e.ID, &e.SequenceID, &e.ApplicationID, &e.RecipientEmail, &e.RecipientName,
		&e.CurrentStep, &e.Status, &e.NextEmailDueDate, &e.EnrolledDate, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PostgresSequenceRepository) GetEnrollment(ctx context.Context, sequenceID int64, applicationID string) (*sequence.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM email_sequence_enrollments
               WHERE sequence_id = $1 AND application_id = $2`
	e, err := scanEnrollment(r.db.QueryRowContext(ctx, query, sequenceID, applicationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("error getting enrollment: %w", err)
	}
	return e, nil
}

func (r *PostgresSequenceRepository) ListActiveEnrollmentsByApplication(ctx context.Context, applicationID string) ([]*sequence.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM email_sequence_enrollments
               WHERE application_id = $1 AND status = $2 ORDER BY enrolled_date`
	rows, err := r.db.QueryContext(ctx, query, applicationID, sequence.EnrollmentActive)
	if err != nil {
		return nil, fmt.Errorf("error listing active enrollments by application: %w", err)
	}
	defer rows.Close()
	return collectEnrollments(rows)
}

func (r *PostgresSequenceRepository) CreateEnrollment(ctx context.Context, e *sequence.Enrollment) error {
	query := `INSERT INTO email_sequence_enrollments
               (id, sequence_id, application_id, recipient_email, recipient_name, current_step, status, next_email_due_date, enrolled_date)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, e.ID, e.SequenceID, e.ApplicationID, e.RecipientEmail,
		e.RecipientName, e.CurrentStep, e.Status, e.NextEmailDueDate, e.EnrolledDate).Scan(&e.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "enrollment_sequence_application_unique") {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("error creating enrollment: %w", err)
	}
	return nil
}

func (r *PostgresSequenceRepository) UpdateEnrollment(ctx context.Context, e *sequence.Enrollment) error {
	query := `UPDATE email_sequence_enrollments
               SET current_step = $1, status = $2, next_email_due_date = $3, updated_at = NOW()
               WHERE id = $4
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, e.CurrentStep, e.Status, e.NextEmailDueDate, e.ID).Scan(&e.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrEnrollmentNotFound
		}
		return fmt.Errorf("error updating enrollment: %w", err)
	}
	return nil
}

func (r *PostgresSequenceRepository) ListDueEnrollments(ctx context.Context, dueAtOrBefore time.Time) ([]*sequence.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM email_sequence_enrollments
               WHERE status = $1 AND next_email_due_date <= $2
               ORDER BY next_email_due_date ASC` // Process older ones first
	rows, err := r.db.QueryContext(ctx, query, sequence.EnrollmentActive, dueAtOrBefore)
	if err != nil {
		return nil, fmt.Errorf("error listing due enrollments: %w", err)
	}
	defer rows.Close()
	return collectEnrollments(rows)
}

func collectEnrollments(rows *sql.Rows) ([]*sequence.Enrollment, error) {
	enrollments := make([]*sequence.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning enrollment row: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollment rows: %w", err)
	}
	return enrollments, nil
}
