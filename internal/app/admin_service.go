package app

import (
	"context"
	"database/sql"
	"fmt"

	"grant_portal/internal/domain/cycle"
	"grant_portal/internal/domain/identity"
	"grant_portal/internal/domain/invite"
	"grant_portal/internal/domain/sequence"
	idb "grant_portal/internal/infra/database"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrInvalidCycleDates = fmt.Errorf("cycle dates must satisfy start <= end <= announce-by")
var ErrInvalidManualStatus = fmt.Errorf("manual status must be reviewing, completed or closed")

type AdminService struct {
	cycleRepo  cycle.Repository
	seqRepo    sequence.Repository
	inviteRepo invite.Repository
	adminEmail string
}

func NewAdminService(cr cycle.Repository, sr sequence.Repository, ir invite.Repository, adminEmail string) *AdminService {
	return &AdminService{
		cycleRepo:  cr,
		seqRepo:    sr,
		inviteRepo: ir,
		adminEmail: adminEmail,
	}
}

func (s *AdminService) authorize(user *identity.Principal) error {
	if user == nil || user.Email != s.adminEmail {
		return ErrAdminNotAuthorized
	}
	return nil
}

// CreateCycle validates the date invariant and persists a new grant cycle.
func (s *AdminService) CreateCycle(ctx context.Context, user *identity.Principal, c *cycle.Cycle) (*cycle.Cycle, error) {
	if err := s.authorize(user); err != nil {
		return nil, err
	}
	if err := validateCycleDates(c); err != nil {
		return nil, err
	}
	if err := s.cycleRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create cycle in repository: %w", err)
	}
	return c, nil
}

// UpdateCycle re-validates the date invariant before persisting edits.
func (s *AdminService) UpdateCycle(ctx context.Context, user *identity.Principal, c *cycle.Cycle) (*cycle.Cycle, error) {
	if err := s.authorize(user); err != nil {
		return nil, err
	}
	if err := validateCycleDates(c); err != nil {
		return nil, err
	}
	if err := s.cycleRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update cycle in repository: %w", err)
	}
	return c, nil
}

// SetManualStatus pins (or, with an empty value, clears) a cycle's manual
// phase override.
func (s *AdminService) SetManualStatus(ctx context.Context, user *identity.Principal, cycleID int64, manual string) (*cycle.Cycle, error) {
	if err := s.authorize(user); err != nil {
		return nil, err
	}
	switch manual {
	case "", cycle.ManualReviewing, cycle.ManualCompleted, cycle.ManualClosed:
	default:
		return nil, ErrInvalidManualStatus
	}

	c, err := s.cycleRepo.GetByID(ctx, cycleID)
	if err != nil {
		if err == idb.ErrCycleNotFound {
			return nil, idb.ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get cycle for manual status change: %w", err)
	}

	if manual == "" {
		c.ManualStatus = sql.NullString{}
	} else {
		c.ManualStatus = sql.NullString{String: manual, Valid: true}
	}
	if err := s.cycleRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to persist manual status: %w", err)
	}
	return c, nil
}

// SetSequenceActive toggles whether a sequence participates in enrollment
// matching. Existing enrollments are untouched.
func (s *AdminService) SetSequenceActive(ctx context.Context, user *identity.Principal, sequenceID int64, active bool) (*sequence.Sequence, error) {
	if err := s.authorize(user); err != nil {
		return nil, err
	}
	seq, err := s.seqRepo.GetSequenceByID(ctx, sequenceID)
	if err != nil {
		if err == idb.ErrSequenceNotFound {
			return nil, idb.ErrSequenceNotFound
		}
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}
	if seq.IsActive == active {
		return seq, nil
	}
	seq.IsActive = active
	if err := s.seqRepo.UpdateSequence(ctx, seq); err != nil {
		return nil, fmt.Errorf("failed to update sequence active flag: %w", err)
	}
	return seq, nil
}

// ListPendingImports returns unclaimed gift/invitation records for review.
func (s *AdminService) ListPendingImports(ctx context.Context, user *identity.Principal) ([]*invite.PendingImport, error) {
	if err := s.authorize(user); err != nil {
		return nil, err
	}
	imports, err := s.inviteRepo.ListByStatus(ctx, invite.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending imports: %w", err)
	}
	return imports, nil
}

func validateCycleDates(c *cycle.Cycle) error {
	if c.StartDate.IsZero() || c.EndDate.IsZero() || c.AnnounceBy.IsZero() {
		return ErrInvalidCycleDates
	}
	if c.EndDate.Before(c.StartDate) || c.AnnounceBy.Before(c.EndDate) {
		return ErrInvalidCycleDates
	}
	return nil
}
