// internal/app/claim_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"grant_portal/internal/domain/identity"
	"grant_portal/internal/domain/invite"
	idb "grant_portal/internal/infra/database"

	"github.com/sirupsen/logrus"
)

var ErrInviteNotFound = fmt.Errorf("invitation not found")

// ClaimOutcome is the informational result of a claim attempt. Terminal
// states and the email mismatch are outcomes, not errors: the caller shows a
// message and a next step, nothing is retried.
type ClaimOutcome string

const (
	ClaimOutcomeClaimed        ClaimOutcome = "claimed"
	ClaimOutcomeAlreadyClaimed ClaimOutcome = "already_claimed"
	ClaimOutcomeExpired        ClaimOutcome = "expired"
	ClaimOutcomeCancelled      ClaimOutcome = "cancelled"
	ClaimOutcomeEmailMismatch  ClaimOutcome = "email_mismatch"
)

// ClaimResult pairs the outcome with the import record as last observed.
type ClaimResult struct {
	Outcome ClaimOutcome
	Import  *invite.PendingImport
}

// ClaimService walks a pending invitation or gift through its claim
// transition. The actual grant is delegated to the repository's atomic Claim
// operation; this service only validates what can be validated up front and
// classifies the result.
type ClaimService struct {
	inviteRepo invite.Repository
	logger     *logrus.Logger
	now        func() time.Time
}

func NewClaimService(ir invite.Repository, logger *logrus.Logger) *ClaimService {
	return &ClaimService{inviteRepo: ir, logger: logger, now: time.Now}
}

// Claim attempts to claim the import behind token on behalf of user.
func (s *ClaimService) Claim(ctx context.Context, user *identity.Principal, token string) (*ClaimResult, error) {
	imp, err := s.inviteRepo.GetByToken(ctx, token)
	if err != nil {
		if err == idb.ErrImportNotFound {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	// Lazy expiry: an eagerly written expired status and a past expires_at
	// are equivalent.
	if imp.IsExpired(s.now()) {
		return &ClaimResult{Outcome: ClaimOutcomeExpired, Import: imp}, nil
	}
	switch imp.Status {
	case invite.StatusClaimed:
		return &ClaimResult{Outcome: ClaimOutcomeAlreadyClaimed, Import: imp}, nil
	case invite.StatusCancelled:
		return &ClaimResult{Outcome: ClaimOutcomeCancelled, Import: imp}, nil
	}

	// The claimant's email must exactly equal the stored target email.
	// A mismatch is user-correctable (log in with the invited address), not
	// a state transition.
	if user.Email != imp.Email {
		s.logger.Infof("Claim of token %s refused: claimant email does not match invitation", token)
		return &ClaimResult{Outcome: ClaimOutcomeEmailMismatch, Import: imp}, nil
	}

	claimed, err := s.inviteRepo.Claim(ctx, token, user.ID)
	if err != nil {
		if err == idb.ErrImportNotClaimable {
			// Lost a race: someone (or the expiry sweep) transitioned the
			// record between our read and the claim. Classify from a fresh
			// read rather than guessing.
			return s.classifyUnclaimable(ctx, token)
		}
		return nil, fmt.Errorf("failed to claim invitation: %w", err)
	}

	s.logger.Infof("Invitation %s claimed by user %s", claimed.ID, user.ID)
	return &ClaimResult{Outcome: ClaimOutcomeClaimed, Import: claimed}, nil
}

func (s *ClaimService) classifyUnclaimable(ctx context.Context, token string) (*ClaimResult, error) {
	imp, err := s.inviteRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to reload invitation after claim conflict: %w", err)
	}
	switch {
	case imp.Status == invite.StatusClaimed:
		return &ClaimResult{Outcome: ClaimOutcomeAlreadyClaimed, Import: imp}, nil
	case imp.Status == invite.StatusCancelled:
		return &ClaimResult{Outcome: ClaimOutcomeCancelled, Import: imp}, nil
	default:
		return &ClaimResult{Outcome: ClaimOutcomeExpired, Import: imp}, nil
	}
}
