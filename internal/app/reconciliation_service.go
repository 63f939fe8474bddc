// internal/app/reconciliation_service.go
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"grant_portal/internal/domain/alert"
	"grant_portal/internal/domain/application"
	"grant_portal/internal/domain/cycle"
	"grant_portal/internal/domain/email"
	"grant_portal/internal/domain/identity"
	"grant_portal/internal/domain/payment"
	idb "grant_portal/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RedirectStatusSuccess is the provider's redirect sentinel for a completed
// charge.
const RedirectStatusSuccess = "succeeded"

// User-correctable confirmation errors.
var ErrInvalidConfirmation = fmt.Errorf("invalid confirmation link")
var ErrPaymentNotCompleted = fmt.Errorf("payment not completed")

// Fatal reconciliation errors. Money has moved but the submission could not
// be guaranteed; callers must surface these with an instruction to contact
// support.
var ErrNoCycleFound = fmt.Errorf("payment succeeded but no grant cycle exists")
var ErrApplicationUnrecoverable = fmt.Errorf("payment succeeded but application could not be created")
var ErrPromotionFailed = fmt.Errorf("payment succeeded but application status update failed")

// ReconcileRequest carries everything the controller consumes: the two
// provider redirect parameters, the authenticated user, and the advisory
// client-side recovery hints (which may be empty).
type ReconcileRequest struct {
	TxnID             string
	RedirectStatus    string
	User              *identity.Principal
	ApplicationIDHint string
	PlanTypeHint      string
}

// ReconcileResult is the successful outcome of one reconciliation attempt.
// AlreadyDone marks attempts short-circuited by the idempotency check.
// ClearHints tells the transport layer to drop the client's recovery hints.
type ReconcileResult struct {
	Application *application.Application
	Cycle       *cycle.Cycle
	AlreadyDone bool
	ClearHints  bool
}

// ReconciliationService converts an externally-confirmed payment into exactly
// one submitted application. Every step after the idempotency check is safe
// to re-run: a reload mid-flow either sees the already-done result or re-runs
// steps that are idempotent or additive-but-harmless.
type ReconciliationService struct {
	payRepo   payment.Repository
	appRepo   application.Repository
	cycleRepo cycle.Repository
	enroller  Enroller
	mailer    email.Client
	escalator alert.Notifier // optional, may be nil
	logger    *logrus.Logger
	fromName  string
	refZone   *time.Location
	now       func() time.Time
}

func NewReconciliationService(
	pr payment.Repository,
	ar application.Repository,
	cr cycle.Repository,
	enroller Enroller,
	mailer email.Client,
	escalator alert.Notifier,
	logger *logrus.Logger,
	fromName string,
	refZone *time.Location,
) *ReconciliationService {
	return &ReconciliationService{
		payRepo:   pr,
		appRepo:   ar,
		cycleRepo: cr,
		enroller:  enroller,
		mailer:    mailer,
		escalator: escalator,
		logger:    logger,
		fromName:  fromName,
		refZone:   refZone,
		now:       time.Now,
	}
}

// Reconcile runs the confirmation state machine for one payment redirect.
func (s *ReconciliationService) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResult, error) {
	if req.TxnID == "" {
		return nil, ErrInvalidConfirmation
	}
	if req.RedirectStatus != RedirectStatusSuccess {
		s.logger.Infof("Reconciliation for txn %s rejected: redirect status %q", req.TxnID, req.RedirectStatus)
		return nil, ErrPaymentNotCompleted
	}
	if req.User == nil {
		return nil, ErrInvalidConfirmation
	}
	s.logger.Infof("Reconciling payment txn %s for user %s", req.TxnID, req.User.ID)

	// CHECK_IDEMPOTENCY: a succeeded mirror row for this transaction id is
	// proof a prior attempt completed.
	if existing, err := s.payRepo.GetSucceededByProviderTxnID(ctx, req.TxnID); err == nil {
		return s.alreadyDone(ctx, req, existing)
	} else if err != idb.ErrPaymentNotFound {
		// The check is a best-effort race-reducer, not a lock: on lookup
		// failure we proceed, accepting at-least-once side effects over a
		// possibly lost submission.
		s.logger.Errorf("Idempotency lookup for txn %s failed: %v", req.TxnID, err)
	}

	// RESOLVE_APPLICATION via the advisory hint.
	var app *application.Application
	var owningCycle *cycle.Cycle
	if req.ApplicationIDHint != "" {
		hinted, err := s.appRepo.GetByID(ctx, req.ApplicationIDHint)
		if err != nil {
			s.logger.Warnf("Hinted application %s could not be loaded (%v); entering recovery", req.ApplicationIDHint, err)
		} else {
			c, err := s.cycleRepo.GetByID(ctx, hinted.CycleID)
			if err != nil {
				s.logger.Warnf("Cycle %d for hinted application %s could not be loaded (%v); entering recovery", hinted.CycleID, hinted.ID, err)
			} else {
				app, owningCycle = hinted, c
			}
		}
	}

	// RESOLVE_CYCLE.
	if owningCycle == nil {
		c, err := s.resolveCycle(ctx)
		if err != nil {
			s.escalate(ctx, fmt.Sprintf("Payment %s by %s (%s) succeeded but no grant cycle exists. Manual intervention required.", req.TxnID, req.User.Email, req.User.ID))
			return nil, ErrNoCycleFound
		}
		owningCycle = c
	}

	// RECOVERY: synthesize a submitted application, stamped so support can
	// tell it apart from a normal submission.
	if app == nil {
		synthesized, err := s.synthesizeApplication(ctx, req, owningCycle)
		if err != nil {
			s.logger.Errorf("Application synthesis for txn %s failed: %v", req.TxnID, err)
			s.escalate(ctx, fmt.Sprintf("Payment %s by %s (%s) succeeded but application synthesis failed. Manual intervention required.", req.TxnID, req.User.Email, req.User.ID))
			return nil, ErrApplicationUnrecoverable
		}
		app = synthesized
		s.logger.Infof("Synthesized recovered application %s for txn %s in cycle %d", app.ID, req.TxnID, owningCycle.ID)
	}

	// PROMOTE: draft -> submitted. Any other status is left untouched.
	if app.Status == application.StatusDraft {
		if err := s.appRepo.UpdateStatus(ctx, app.ID, application.StatusSubmitted); err != nil {
			s.logger.Errorf("Failed to promote application %s to submitted: %v", app.ID, err)
			s.escalate(ctx, fmt.Sprintf("Payment %s by %s succeeded but promoting application %s failed. Manual intervention required.", req.TxnID, req.User.Email, app.ID))
			return nil, ErrPromotionFailed
		}
		app.Status = application.StatusSubmitted
		s.logger.Infof("Application %s promoted to submitted", app.ID)
	}

	// RECORD_PAYMENT: best-effort audit mirror. The authoritative record
	// lives with the provider, so failure is logged only.
	s.recordPayment(ctx, req, app)

	// TRIGGER_SEQUENCES: the enroller swallows its own failures.
	s.enroller.EnrollOnSubmission(ctx, app)

	// SEND_CONFIRMATION: best-effort.
	s.sendConfirmation(ctx, req.User, owningCycle)

	return &ReconcileResult{Application: app, Cycle: owningCycle, ClearHints: true}, nil
}

// alreadyDone reports a previously completed reconciliation, reloading the
// linked application and cycle for display.
func (s *ReconciliationService) alreadyDone(ctx context.Context, req ReconcileRequest, existing *payment.Payment) (*ReconcileResult, error) {
	s.logger.Infof("Txn %s already reconciled (payment %s). Reporting done.", req.TxnID, existing.ID)
	res := &ReconcileResult{AlreadyDone: true, ClearHints: true}
	if existing.ApplicationID.Valid {
		if app, err := s.appRepo.GetByID(ctx, existing.ApplicationID.String); err == nil {
			res.Application = app
			if c, err := s.cycleRepo.GetByID(ctx, app.CycleID); err == nil {
				res.Cycle = c
			}
		} else {
			s.logger.Warnf("Application %s linked to payment %s could not be loaded: %v", existing.ApplicationID.String, existing.ID, err)
		}
	}
	return res, nil
}

// resolveCycle prefers the most recent cycle currently open for submissions,
// falling back to the most recent cycle of any status.
func (s *ReconciliationService) resolveCycle(ctx context.Context) (*cycle.Cycle, error) {
	c, err := s.cycleRepo.MostRecentOpen(ctx)
	if err == nil {
		return c, nil
	}
	if err != idb.ErrCycleNotFound {
		s.logger.Errorf("Failed to look up open cycle: %v", err)
	}
	c, err = s.cycleRepo.MostRecent(ctx)
	if err != nil {
		return nil, fmt.Errorf("no cycle could be resolved: %w", err)
	}
	s.logger.Warnf("No cycle open for submissions; falling back to most recent cycle %d", c.ID)
	return c, nil
}

func (s *ReconciliationService) synthesizeApplication(ctx context.Context, req ReconcileRequest, owningCycle *cycle.Cycle) (*application.Application, error) {
	form, err := json.Marshal(map[string]string{application.RecoveredFromKey: req.TxnID})
	if err != nil {
		return nil, fmt.Errorf("failed to build recovery payload: %w", err)
	}
	app := &application.Application{
		ID:      uuid.NewString(),
		UserID:  req.User.ID,
		CycleID: owningCycle.ID,
		Status:  application.StatusSubmitted,
		Form:    form,
	}
	if err := s.appRepo.Create(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *ReconciliationService) recordPayment(ctx context.Context, req ReconcileRequest, app *application.Application) {
	p := &payment.Payment{
		ID:            uuid.NewString(),
		UserID:        req.User.ID,
		ApplicationID: nullString(app.ID),
		AmountCents:   planAmountCents(req.PlanTypeHint),
		Currency:      "usd",
		Provider:      "stripe",
		ProviderTxnID: req.TxnID,
		PlanType:      req.PlanTypeHint,
		Status:        payment.StatusSucceeded,
	}
	if err := s.payRepo.Create(ctx, p); err != nil {
		if err == idb.ErrDuplicatePayment {
			// A concurrent attempt beat us to the mirror row. The unique
			// index turns this duplicate into a swallowed conflict.
			s.logger.Infof("Mirror payment row for txn %s already exists. Skipping.", req.TxnID)
			return
		}
		s.logger.Errorf("Failed to record mirror payment row for txn %s: %v", req.TxnID, err)
		return
	}
	s.logger.Infof("Recorded mirror payment row %s for txn %s", p.ID, req.TxnID)
}

func (s *ReconciliationService) sendConfirmation(ctx context.Context, user *identity.Principal, owningCycle *cycle.Cycle) {
	msg := email.Message{
		To:       user.Email,
		Subject:  fmt.Sprintf("Your application to %s has been received", owningCycle.Name),
		BodyHTML: fmt.Sprintf("<p>Hi %s,</p><p>Thank you! Your payment went through and your application to <strong>%s</strong> has been submitted.</p><p>We will be in touch once review begins.</p>", user.DisplayName, owningCycle.Name),
		FromName: s.fromName,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Errorf("Failed to send confirmation email to %s: %v", user.Email, err)
		return
	}
	s.logger.Infof("Confirmation email sent to %s", user.Email)
}

func (s *ReconciliationService) escalate(ctx context.Context, text string) {
	if s.escalator == nil {
		s.logger.Warn("No escalation channel configured; fatal reconciliation alert logged only.")
		return
	}
	if err := s.escalator.Alert(ctx, text); err != nil {
		s.logger.Errorf("Failed to deliver escalation alert: %v", err)
	}
}
