package app

import (
	"context"
	"testing"
	"time"

	"grant_portal/internal/domain/identity"
	"grant_portal/internal/domain/invite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type claimFixture struct {
	svc     *ClaimService
	invites *fakeInviteRepo
	user    *identity.Principal
	nowAt   time.Time
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()

	f := &claimFixture{
		user:  &identity.Principal{ID: "user-1", Email: "ada@example.com", DisplayName: "Ada"},
		nowAt: time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
	f.invites = newFakeInviteRepo(func() time.Time { return f.nowAt })
	f.svc = NewClaimService(f.invites, testLogger())
	f.svc.now = func() time.Time { return f.nowAt }
	return f
}

func (f *claimFixture) addImport(t *testing.T, token string, status invite.Status, expiresAt time.Time) *invite.PendingImport {
	t.Helper()
	imp := &invite.PendingImport{
		ID:          "imp-" + token,
		InviteToken: token,
		Email:       f.user.Email,
		DisplayName: f.user.DisplayName,
		PlanType:    "gift",
		Status:      status,
		ExpiresAt:   expiresAt,
	}
	require.NoError(t, f.invites.Create(context.Background(), imp))
	return imp
}

func TestClaimGrantsPendingInvite(t *testing.T) {
	f := newClaimFixture(t)
	f.addImport(t, "tok-1", invite.StatusPending, f.nowAt.Add(24*time.Hour))

	result, err := f.svc.Claim(context.Background(), f.user, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimOutcomeClaimed, result.Outcome)
	assert.Equal(t, invite.StatusClaimed, result.Import.Status)

	stored, err := f.invites.GetByToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, invite.StatusClaimed, stored.Status)
}

func TestClaimGrantsInvitedInvite(t *testing.T) {
	f := newClaimFixture(t)
	f.addImport(t, "tok-1", invite.StatusInvited, f.nowAt.Add(time.Hour))

	result, err := f.svc.Claim(context.Background(), f.user, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimOutcomeClaimed, result.Outcome)
}

func TestClaimUnknownTokenIsNotFound(t *testing.T) {
	f := newClaimFixture(t)
	_, err := f.svc.Claim(context.Background(), f.user, "no-such-token")
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestClaimHonorsBothExpirySignals(t *testing.T) {
	f := newClaimFixture(t)
	// Eagerly marked expired, expires_at still in the future.
	f.addImport(t, "tok-eager", invite.StatusExpired, f.nowAt.Add(time.Hour))
	// Still pending, but expires_at has passed.
	f.addImport(t, "tok-lazy", invite.StatusPending, f.nowAt.Add(-time.Minute))

	for _, token := range []string{"tok-eager", "tok-lazy"} {
		result, err := f.svc.Claim(context.Background(), f.user, token)
		require.NoError(t, err, token)
		assert.Equal(t, ClaimOutcomeExpired, result.Outcome, token)
	}
}

func TestClaimExpiryBoundaryBelongsToExpired(t *testing.T) {
	f := newClaimFixture(t)
	// expires_at exactly equal to now.
	f.addImport(t, "tok-edge", invite.StatusPending, f.nowAt)

	result, err := f.svc.Claim(context.Background(), f.user, "tok-edge")
	require.NoError(t, err)
	assert.Equal(t, ClaimOutcomeExpired, result.Outcome,
		"the repository guard requires expires_at strictly in the future")
}

func TestClaimAlreadyClaimedIsTerminalOutcome(t *testing.T) {
	f := newClaimFixture(t)
	f.addImport(t, "tok-1", invite.StatusClaimed, f.nowAt.Add(time.Hour))

	result, err := f.svc.Claim(context.Background(), f.user, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimOutcomeAlreadyClaimed, result.Outcome)
}

func TestClaimCancelledIsTerminalOutcome(t *testing.T) {
	f := newClaimFixture(t)
	f.addImport(t, "tok-1", invite.StatusCancelled, f.nowAt.Add(time.Hour))

	result, err := f.svc.Claim(context.Background(), f.user, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimOutcomeCancelled, result.Outcome)
}

func TestClaimRefusesMismatchedEmailWithoutTransition(t *testing.T) {
	f := newClaimFixture(t)
	imp := f.addImport(t, "tok-1", invite.StatusPending, f.nowAt.Add(time.Hour))
	imp.Email = "someone.else@example.com"

	result, err := f.svc.Claim(context.Background(), f.user, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimOutcomeEmailMismatch, result.Outcome)

	stored, err := f.invites.GetByToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, invite.StatusPending, stored.Status, "a mismatch must not transition the record")
}

func TestClaimEmailComparisonIsExact(t *testing.T) {
	f := newClaimFixture(t)
	imp := f.addImport(t, "tok-1", invite.StatusPending, f.nowAt.Add(time.Hour))
	imp.Email = "ADA@example.com"

	result, err := f.svc.Claim(context.Background(), f.user, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimOutcomeEmailMismatch, result.Outcome)
}

func TestClaimClassifiesRaceFromFreshRead(t *testing.T) {
	f := newClaimFixture(t)
	imp := f.addImport(t, "tok-1", invite.StatusPending, f.nowAt.Add(time.Hour))

	// A concurrent claim lands between the service's read and its Claim
	// call: the guarded update sees a terminal status and refuses.
	f.invites.beforeClaim = func() { imp.Status = invite.StatusClaimed }

	result, err := f.svc.Claim(context.Background(), f.user, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimOutcomeAlreadyClaimed, result.Outcome)
}
