// internal/app/enrollment_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"grant_portal/internal/domain/application"
	"grant_portal/internal/domain/cycle"
	"grant_portal/internal/domain/identity"
	"grant_portal/internal/domain/sequence"
	idb "grant_portal/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Enroller translates application lifecycle events into drip-email sequence
// enrollments. All methods are safe to call from flows that must not fail:
// enrollment problems are logged, never escalated past this boundary.
type Enroller interface {
	EnrollOnSubmission(ctx context.Context, app *application.Application)
	EnrollOnStatusChange(ctx context.Context, app *application.Application, newStatus, oldStatus application.Status)
	EnrollOnDraftSave(ctx context.Context, app *application.Application)
	CancelDraftSequences(ctx context.Context, app *application.Application)
}

// EnrollmentService implements the Enroller interface.
type EnrollmentService struct {
	seqRepo   sequence.Repository
	cycleRepo cycle.Repository
	directory identity.Directory
	logger    *logrus.Logger
	refZone   *time.Location
	now       func() time.Time
}

func NewEnrollmentService(
	sr sequence.Repository,
	cr cycle.Repository,
	dir identity.Directory,
	logger *logrus.Logger,
	refZone *time.Location,
) *EnrollmentService {
	return &EnrollmentService{
		seqRepo:   sr,
		cycleRepo: cr,
		directory: dir,
		logger:    logger,
		refZone:   refZone,
		now:       time.Now,
	}
}

// IsCycleOpen reports whether the cycle accepts new enrollments: the open
// flag is set and now falls inside the raw [start, end] submission window.
// Manual status is ignored here on purpose; an admin pinning a cycle closed
// for display does not stop enrollments while the dates still say open.
func (s *EnrollmentService) IsCycleOpen(c *cycle.Cycle) bool {
	return c.IsOpenForSubmissions && cycle.WindowContains(c, s.now(), s.refZone)
}

// CancelDraftSequences cancels every active enrollment of the application
// whose owning sequence is triggered by the draft status. Best-effort
// cleanup: every failure is logged and swallowed.
func (s *EnrollmentService) CancelDraftSequences(ctx context.Context, app *application.Application) {
	enrollments, err := s.seqRepo.ListActiveEnrollmentsByApplication(ctx, app.ID)
	if err != nil {
		s.logger.Errorf("Failed to list active enrollments for application %s: %v", app.ID, err)
		return
	}

	for _, e := range enrollments {
		seq, err := s.seqRepo.GetSequenceByID(ctx, e.SequenceID)
		if err != nil {
			s.logger.Errorf("Failed to load sequence %d for enrollment %s: %v", e.SequenceID, e.ID, err)
			continue
		}
		if seq.TriggerType != sequence.TriggerStatusChange || seq.TriggerStatus.String != string(application.StatusDraft) {
			continue
		}

		e.Status = sequence.EnrollmentCancelled
		if err := s.seqRepo.UpdateEnrollment(ctx, e); err != nil {
			s.logger.Errorf("Failed to cancel draft enrollment %s (sequence %d): %v", e.ID, e.SequenceID, err)
			continue
		}
		s.logger.Infof("Cancelled draft-triggered enrollment %s (sequence %d) for application %s", e.ID, e.SequenceID, app.ID)
	}
}

// EnrollInMatchingSequences enrolls the application into every active
// sequence whose trigger matches. No-op when the owning cycle is not open.
// Enrollment is one-shot per (sequence, application) pair: any existing
// enrollment, whatever its status, blocks a new one.
func (s *EnrollmentService) EnrollInMatchingSequences(ctx context.Context, app *application.Application, trigger sequence.TriggerType, newStatus application.Status) error {
	owningCycle, err := s.cycleRepo.GetByID(ctx, app.CycleID)
	if err != nil {
		return fmt.Errorf("failed to load cycle %d for application %s: %w", app.CycleID, app.ID, err)
	}
	if !s.IsCycleOpen(owningCycle) {
		s.logger.Infof("Cycle %d is not open; skipping sequence enrollment for application %s", owningCycle.ID, app.ID)
		return nil
	}

	matching, err := s.seqRepo.ListActiveByTrigger(ctx, trigger, string(newStatus))
	if err != nil {
		return fmt.Errorf("failed to list active sequences for trigger %s: %w", trigger, err)
	}
	if len(matching) == 0 {
		return nil
	}

	recipient, err := s.directory.UserByID(ctx, app.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient %s for enrollment: %w", app.UserID, err)
	}

	now := s.now()
	for _, seq := range matching {
		_, err := s.seqRepo.GetEnrollment(ctx, seq.ID, app.ID)
		if err == nil {
			s.logger.Infof("Application %s already has an enrollment for sequence %d. Skipping.", app.ID, seq.ID)
			continue
		}
		if err != idb.ErrEnrollmentNotFound {
			s.logger.Errorf("Failed to check existing enrollment for sequence %d, application %s: %v", seq.ID, app.ID, err)
			continue
		}

		steps, err := s.seqRepo.ListSteps(ctx, seq.ID)
		if err != nil {
			s.logger.Errorf("Failed to list steps for sequence %d: %v", seq.ID, err)
			continue
		}
		if len(steps) == 0 {
			s.logger.Warnf("Sequence %d (%s) has no steps and can never fire. Skipping enrollment.", seq.ID, seq.Name)
			continue
		}
		first := steps[0] // repository orders by step_number

		enrollment := &sequence.Enrollment{
			ID:               uuid.NewString(),
			SequenceID:       seq.ID,
			ApplicationID:    app.ID,
			RecipientEmail:   recipient.Email,
			RecipientName:    recipient.DisplayName,
			CurrentStep:      0,
			Status:           sequence.EnrollmentActive,
			NextEmailDueDate: now.AddDate(0, 0, first.DelayDays),
			EnrolledDate:     now,
		}
		if err := s.seqRepo.CreateEnrollment(ctx, enrollment); err != nil {
			if err == idb.ErrDuplicateEnrollment {
				// Lost a race with a concurrent enrollment; the uniqueness
				// rule already holds, nothing to do.
				s.logger.Infof("Enrollment for sequence %d, application %s created concurrently. Skipping.", seq.ID, app.ID)
				continue
			}
			s.logger.Errorf("Failed to create enrollment for sequence %d, application %s: %v", seq.ID, app.ID, err)
			continue
		}
		s.logger.Infof("Enrolled application %s in sequence %d (%s), first email due %s", app.ID, seq.ID, seq.Name, enrollment.NextEmailDueDate.Format(time.RFC3339))
	}
	return nil
}

// EnrollOnSubmission cancels draft-triggered sequences and then enrolls for
// the application_submitted trigger. Ordering matters: a submission must not
// leave a dangling draft sequence active.
func (s *EnrollmentService) EnrollOnSubmission(ctx context.Context, app *application.Application) {
	s.CancelDraftSequences(ctx, app)
	if err := s.EnrollInMatchingSequences(ctx, app, sequence.TriggerApplicationSubmitted, ""); err != nil {
		s.logger.Errorf("Submission enrollment for application %s failed: %v", app.ID, err)
	}
}

// EnrollOnStatusChange enrolls for status_change sequences targeting the new
// status. The draft->submitted transition additionally cancels draft
// sequences first; any other transition leaves them alone.
func (s *EnrollmentService) EnrollOnStatusChange(ctx context.Context, app *application.Application, newStatus, oldStatus application.Status) {
	if oldStatus == application.StatusDraft && newStatus == application.StatusSubmitted {
		s.CancelDraftSequences(ctx, app)
	}
	if err := s.EnrollInMatchingSequences(ctx, app, sequence.TriggerStatusChange, newStatus); err != nil {
		s.logger.Errorf("Status-change enrollment for application %s (-> %s) failed: %v", app.ID, newStatus, err)
	}
}

// EnrollOnDraftSave enrolls for draft-triggered sequences when a draft is
// saved. Only applications literally in draft status qualify, and nothing is
// ever cancelled here.
func (s *EnrollmentService) EnrollOnDraftSave(ctx context.Context, app *application.Application) {
	if app.Status != application.StatusDraft {
		return
	}
	if err := s.EnrollInMatchingSequences(ctx, app, sequence.TriggerStatusChange, application.StatusDraft); err != nil {
		s.logger.Errorf("Draft-save enrollment for application %s failed: %v", app.ID, err)
	}
}
