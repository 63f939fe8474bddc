// internal/app/dispatch_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"grant_portal/internal/domain/email"
	"grant_portal/internal/domain/sequence"

	"github.com/sirupsen/logrus"
)

// SequenceDispatcher defines the operation the scheduler drives: sending
// drip-sequence emails that have come due.
type SequenceDispatcher interface {
	// ProcessDueEnrollments sends the next step email of every active
	// enrollment whose due date has passed, advances the step pointer and
	// completes enrollments that run out of steps.
	ProcessDueEnrollments(ctx context.Context) error
}

// SequenceDispatchService implements the SequenceDispatcher interface.
type SequenceDispatchService struct {
	seqRepo  sequence.Repository
	mailer   email.Client
	logger   *logrus.Logger
	fromName string
	now      func() time.Time
}

func NewSequenceDispatchService(sr sequence.Repository, mailer email.Client, logger *logrus.Logger, fromName string) *SequenceDispatchService {
	return &SequenceDispatchService{
		seqRepo:  sr,
		mailer:   mailer,
		logger:   logger,
		fromName: fromName,
		now:      time.Now,
	}
}

// ProcessDueEnrollments runs one dispatch pass. A failed send leaves the
// enrollment untouched so the next tick retries it; everything else advances.
func (s *SequenceDispatchService) ProcessDueEnrollments(ctx context.Context) error {
	now := s.now()
	due, err := s.seqRepo.ListDueEnrollments(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list due enrollments: %w", err)
	}
	if len(due) == 0 {
		return nil
	}
	s.logger.Infof("Dispatching %d due sequence enrollment(s)", len(due))

	for _, e := range due {
		if err := s.dispatchOne(ctx, e, now); err != nil {
			s.logger.Errorf("Failed to dispatch enrollment %s (sequence %d): %v", e.ID, e.SequenceID, err)
		}
	}
	return nil
}

func (s *SequenceDispatchService) dispatchOne(ctx context.Context, e *sequence.Enrollment, now time.Time) error {
	steps, err := s.seqRepo.ListSteps(ctx, e.SequenceID)
	if err != nil {
		return fmt.Errorf("failed to list steps: %w", err)
	}

	// CurrentStep is zero-based: it indexes the next unsent step in the
	// ordered step list.
	if e.CurrentStep >= len(steps) {
		s.logger.Warnf("Enrollment %s is past the last step of sequence %d. Completing.", e.ID, e.SequenceID)
		e.Status = sequence.EnrollmentCompleted
		return s.seqRepo.UpdateEnrollment(ctx, e)
	}
	step := steps[e.CurrentStep]

	msg := email.Message{
		To:       e.RecipientEmail,
		Subject:  step.Subject,
		BodyHTML: step.BodyHTML,
		FromName: s.fromName,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		// Leave the enrollment as-is; the due date is still in the past so
		// the next pass picks it up again.
		return fmt.Errorf("failed to send step %d email: %w", step.StepNumber, err)
	}
	s.logger.Infof("Sent step %d of sequence %d to %s (enrollment %s)", step.StepNumber, e.SequenceID, e.RecipientEmail, e.ID)

	e.CurrentStep++
	if e.CurrentStep >= len(steps) {
		e.Status = sequence.EnrollmentCompleted
	} else {
		e.NextEmailDueDate = now.AddDate(0, 0, steps[e.CurrentStep].DelayDays)
	}
	if err := s.seqRepo.UpdateEnrollment(ctx, e); err != nil {
		// The email went out but the advance did not stick; the next pass
		// may resend this step. Accepted: duplicate emails over lost ones.
		return fmt.Errorf("failed to advance enrollment after send: %w", err)
	}
	return nil
}
