package cycle

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func refZone(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func januaryCycle(open bool) *Cycle {
	return &Cycle{
		ID:                   1,
		Name:                 "Winter 2024",
		StartDate:            date(2024, time.January, 1),
		EndDate:              date(2024, time.January, 31),
		AnnounceBy:           date(2024, time.February, 15),
		IsOpenForSubmissions: open,
	}
}

func TestComputePhaseDateBoundaries(t *testing.T) {
	loc := refZone(t)

	tests := []struct {
		name string
		now  time.Time
		open bool
		want Phase
	}{
		{"before start", time.Date(2023, time.December, 20, 12, 0, 0, 0, loc), true, PhaseUpcoming},
		{"mid window open", time.Date(2024, time.January, 15, 12, 0, 0, 0, loc), true, PhaseOpen},
		{"mid window flag off", time.Date(2024, time.January, 15, 12, 0, 0, 0, loc), false, PhaseClosed},
		{"first instant of start day", time.Date(2024, time.January, 1, 0, 0, 0, 0, loc), true, PhaseOpen},
		{"last second of end day", time.Date(2024, time.January, 31, 23, 59, 59, 0, loc), true, PhaseOpen},
		{"day after end", time.Date(2024, time.February, 1, 0, 0, 0, 0, loc), true, PhaseReviewing},
		{"after announce", time.Date(2024, time.March, 1, 12, 0, 0, 0, loc), true, PhaseCompleted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			phase, description := ComputePhase(januaryCycle(tc.open), tc.now, loc)
			assert.Equal(t, tc.want, phase)
			assert.NotEmpty(t, description)
		})
	}
}

func TestComputePhaseManualOverrideWins(t *testing.T) {
	loc := refZone(t)

	// Dates in the far future must not matter once a manual status is set.
	c := &Cycle{
		StartDate:            date(2090, time.January, 1),
		EndDate:              date(2090, time.January, 31),
		AnnounceBy:           date(2090, time.February, 15),
		IsOpenForSubmissions: true,
	}
	now := time.Date(2024, time.January, 15, 12, 0, 0, 0, loc)

	for manual, want := range map[string]Phase{
		ManualReviewing: PhaseReviewing,
		ManualCompleted: PhaseCompleted,
		ManualClosed:    PhaseClosed,
	} {
		c.ManualStatus = sql.NullString{String: manual, Valid: true}
		phase, _ := ComputePhase(c, now, loc)
		assert.Equal(t, want, phase, "manual status %q", manual)
	}
}

func TestComputePhaseUnknownManualDegradesToReviewing(t *testing.T) {
	loc := refZone(t)
	c := januaryCycle(true)
	c.ManualStatus = sql.NullString{String: "paused", Valid: true}

	phase, _ := ComputePhase(c, time.Date(2024, time.January, 15, 12, 0, 0, 0, loc), loc)
	assert.Equal(t, PhaseReviewing, phase, "unknown manual values must not fall through to the computed path")
}

func TestComputePhaseFailsClosedOnMissingDates(t *testing.T) {
	loc := refZone(t)
	c := &Cycle{Name: "unconfigured", IsOpenForSubmissions: true}

	phase, _ := ComputePhase(c, time.Now(), loc)
	assert.Equal(t, PhaseClosed, phase)
}

func TestComputePhaseExactlyOnePhasePerInstant(t *testing.T) {
	loc := refZone(t)
	c := januaryCycle(true)

	// Walk the whole span hour by hour; the phase must follow the total
	// order upcoming -> open -> reviewing -> completed with no regressions.
	order := map[Phase]int{PhaseUpcoming: 0, PhaseOpen: 1, PhaseReviewing: 2, PhaseCompleted: 3}
	prev := -1
	for now := time.Date(2023, time.December, 25, 0, 0, 0, 0, loc); now.Before(time.Date(2024, time.February, 25, 0, 0, 0, 0, loc)); now = now.Add(time.Hour) {
		phase, _ := ComputePhase(c, now, loc)
		rank, ok := order[phase]
		require.True(t, ok, "unexpected phase %q at %s", phase, now)
		require.GreaterOrEqual(t, rank, prev, "phase went backwards at %s", now)
		prev = rank
	}
}

func TestWindowContains(t *testing.T) {
	loc := refZone(t)
	c := januaryCycle(true)

	assert.True(t, WindowContains(c, time.Date(2024, time.January, 1, 0, 0, 0, 0, loc), loc))
	assert.True(t, WindowContains(c, time.Date(2024, time.January, 31, 23, 59, 59, 0, loc), loc))
	assert.False(t, WindowContains(c, time.Date(2023, time.December, 31, 23, 59, 59, 0, loc), loc))
	assert.False(t, WindowContains(c, time.Date(2024, time.February, 1, 0, 0, 0, 0, loc), loc))

	// The window check ignores the manual override entirely.
	c.ManualStatus = sql.NullString{String: ManualClosed, Valid: true}
	assert.True(t, WindowContains(c, time.Date(2024, time.January, 15, 12, 0, 0, 0, loc), loc))
}

func TestWindowContainsFailsClosedOnMissingDates(t *testing.T) {
	loc := refZone(t)
	assert.False(t, WindowContains(&Cycle{}, time.Now(), loc))
}
