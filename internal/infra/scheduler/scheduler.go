package scheduler

import (
	"context"
	"time"

	"grant_portal/internal/app" // For SequenceDispatcher interface

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DispatchScheduler periodically runs the due-sequence-email dispatch pass.
// It is the consumer of the next_email_due_date values the enrollment engine
// produces.
type DispatchScheduler struct {
	cronEngine       *cron.Cron
	dispatcher       app.SequenceDispatcher // Using the interface
	logger           *logrus.Logger
	cronSpecDispatch string
}

func NewDispatchScheduler(
	dispatcher app.SequenceDispatcher,
	logger *logrus.Logger,
	cronSpecDispatch string, // e.g., "*/10 * * * *" (every 10 minutes)
) *DispatchScheduler {
	return &DispatchScheduler{
		cronEngine:       cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		dispatcher:       dispatcher,
		logger:           logger,
		cronSpecDispatch: cronSpecDispatch,
	}
}

func (s *DispatchScheduler) Start() {
	s.logger.Info("Starting sequence dispatch scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecDispatch, func() {
		s.logger.Debug("Cron job triggered for due-sequence dispatch.")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute) // Context for the job
		defer cancel()
		if err := s.dispatcher.ProcessDueEnrollments(ctx); err != nil {
			s.logger.Errorf("Error during due-sequence dispatch: %v", err)
		}
	})
	if err != nil {
		s.logger.Fatalf("Could not add sequence dispatch cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Sequence dispatch scheduler started.")
}

func (s *DispatchScheduler) Stop() {
	s.logger.Info("Stopping sequence dispatch scheduler...")
	ctx := s.cronEngine.Stop() // Stops new runs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Sequence dispatch scheduler gracefully stopped.")
}
