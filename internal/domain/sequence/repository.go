// internal/domain/sequence/repository.go
package sequence

import (
	"context"
	"time"
)

// Repository defines operations for sequences, steps and enrollments.
type Repository interface {
	// Sequence methods
	GetSequenceByID(ctx context.Context, id int64) (*Sequence, error)
	// ListActiveByTrigger returns active sequences matching a trigger. For
	// TriggerStatusChange, triggerStatus must equal the sequence's target
	// status; for other triggers it is ignored.
	ListActiveByTrigger(ctx context.Context, trigger TriggerType, triggerStatus string) ([]*Sequence, error)
	CreateSequence(ctx context.Context, s *Sequence) error
	UpdateSequence(ctx context.Context, s *Sequence) error

	// Step methods
	ListSteps(ctx context.Context, sequenceID int64) ([]*Step, error) // ordered by step_number
	GetStep(ctx context.Context, sequenceID int64, stepNumber int) (*Step, error)
	CreateStep(ctx context.Context, st *Step) error

	// Enrollment methods
	// GetEnrollment looks up by (sequence, application) regardless of status;
	// the pair is unique.
	GetEnrollment(ctx context.Context, sequenceID int64, applicationID string) (*Enrollment, error)
	ListActiveEnrollmentsByApplication(ctx context.Context, applicationID string) ([]*Enrollment, error)
	CreateEnrollment(ctx context.Context, e *Enrollment) error
	UpdateEnrollment(ctx context.Context, e *Enrollment) error
	// ListDueEnrollments fetches active enrollments whose next email is due
	// at or before the given instant.
	ListDueEnrollments(ctx context.Context, dueAtOrBefore time.Time) ([]*Enrollment, error)
}
