// internal/domain/sequence/sequence.go
package sequence

import (
	"database/sql"
	"time"
)

// TriggerType identifies the lifecycle event that enrolls applications into
// a sequence.
type TriggerType string

const (
	TriggerApplicationSubmitted TriggerType = "application_submitted"
	TriggerStatusChange         TriggerType = "status_change"
)

// EnrollmentStatus is the state of one application's run through a sequence.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// Sequence is a drip-email campaign tied to an application lifecycle event.
// Corresponds to the 'email_sequences' table.
type Sequence struct {
	ID            int64
	Name          string
	TriggerType   TriggerType
	TriggerStatus sql.NullString // only meaningful for TriggerStatusChange
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Step is one email within a sequence. StepNumber is unique per sequence and
// DelayDays counts whole calendar days after enrollment (for the first step)
// or after the previous step was sent.
type Step struct {
	ID         int64
	SequenceID int64
	StepNumber int
	DelayDays  int
	Subject    string
	BodyHTML   string
}

// Enrollment joins an application to a sequence instance. Recipient email and
// name are snapshotted at enrollment time and never re-resolved, so a later
// address change does not retarget an in-flight sequence. CurrentStep is
// zero-based: steps 0..CurrentStep-1 have been sent.
type Enrollment struct {
	ID               string
	SequenceID       int64
	ApplicationID    string
	RecipientEmail   string
	RecipientName    string
	CurrentStep      int
	Status           EnrollmentStatus
	NextEmailDueDate time.Time
	EnrolledDate     time.Time
	UpdatedAt        time.Time
}
