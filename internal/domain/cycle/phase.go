// internal/domain/cycle/phase.go
package cycle

import "time"

// Phase is the derived lifecycle stage of a grant cycle. It is computed on
// demand and never stored; only the manual override is persisted.
type Phase string

const (
	PhaseUpcoming  Phase = "upcoming"
	PhaseOpen      Phase = "open"
	PhaseClosed    Phase = "closed"
	PhaseReviewing Phase = "reviewing"
	PhaseCompleted Phase = "completed"
)

// Manual status values an administrator may pin onto a cycle.
const (
	ManualReviewing = "reviewing"
	ManualCompleted = "completed"
	ManualClosed    = "closed"
)

// ComputePhase derives the phase of a cycle at the instant now, with date
// boundaries evaluated in the reference zone loc. Start dates count from
// 00:00:00 of their civil day, end and announce dates through 23:59:59.
// The function is pure: no clock reads, no store access.
func ComputePhase(c *Cycle, now time.Time, loc *time.Location) (Phase, string) {
	if c.ManualStatus.Valid && c.ManualStatus.String != "" {
		switch c.ManualStatus.String {
		case ManualCompleted:
			return PhaseCompleted, "This cycle is completed. Award decisions have been announced."
		case ManualClosed:
			return PhaseClosed, "This cycle is closed to new submissions."
		case ManualReviewing:
			return PhaseReviewing, "Submissions are being reviewed."
		default:
			// An unrecognized override degrades to reviewing, never to the
			// computed path: a cycle an admin pinned must not reopen by accident.
			return PhaseReviewing, "Submissions are being reviewed."
		}
	}

	if c.StartDate.IsZero() || c.EndDate.IsZero() || c.AnnounceBy.IsZero() {
		// Fail closed: this result feeds the submission gate.
		return PhaseClosed, "This cycle is not yet configured."
	}

	ref := now.In(loc)
	switch {
	case ref.After(endOfDay(c.AnnounceBy, loc)):
		return PhaseCompleted, "This cycle is completed. Award decisions have been announced."
	case ref.After(endOfDay(c.EndDate, loc)):
		return PhaseReviewing, "The submission window has ended. Applications are under review."
	case !ref.Before(startOfDay(c.StartDate, loc)) && c.IsOpenForSubmissions:
		return PhaseOpen, "This cycle is open for submissions."
	case !ref.Before(startOfDay(c.StartDate, loc)):
		return PhaseClosed, "This cycle is not currently accepting submissions."
	default:
		return PhaseUpcoming, "This cycle has not opened yet."
	}
}

// WindowContains reports whether now falls inside [StartDate, EndDate],
// inclusive on both civil-day boundaries. It deliberately ignores
// ManualStatus: enrollment gating cares about literal window membership,
// not the displayed phase.
func WindowContains(c *Cycle, now time.Time, loc *time.Location) bool {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return false
	}
	ref := now.In(loc)
	return !ref.Before(startOfDay(c.StartDate, loc)) && !ref.After(endOfDay(c.EndDate, loc))
}

func startOfDay(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

func endOfDay(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, loc)
}
