// internal/domain/application/application.go
package application

import (
	"encoding/json"
	"time"
)

// Status tracks an application through its lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusAwarded   Status = "awarded"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
)

// RecoveredFromKey marks applications synthesized by payment reconciliation
// when no draft could be resolved. Support uses it to tell recovered
// submissions from normal ones. The value is the provider transaction id.
const RecoveredFromKey = "recovered_from_payment"

// Application is one applicant attempt within a cycle. CycleID never changes
// after creation. Form holds the arbitrary form payload as submitted.
type Application struct {
	ID        string
	UserID    string
	CycleID   int64
	Status    Status
	Form      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRecovered reports whether the application carries the recovery marker.
func (a *Application) IsRecovered() bool {
	if len(a.Form) == 0 {
		return false
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(a.Form, &payload); err != nil {
		return false
	}
	_, ok := payload[RecoveredFromKey]
	return ok
}
