// internal/domain/cycle/cycle.go
package cycle

import (
	"database/sql"
	"time"
)

// Cycle represents a single grant round. Corresponds to the 'grant_cycles'
// table. StartDate, EndDate and AnnounceBy are civil dates interpreted in the
// portal's reference time zone, never in the viewer's local zone.
type Cycle struct {
	ID                   int64
	Name                 string
	StartDate            time.Time
	EndDate              time.Time
	AnnounceBy           time.Time
	IsOpenForSubmissions bool
	ManualStatus         sql.NullString // reviewing | completed | closed; overrides the computed phase
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
