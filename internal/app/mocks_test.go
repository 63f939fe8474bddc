package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"grant_portal/internal/domain/application"
	"grant_portal/internal/domain/cycle"
	"grant_portal/internal/domain/email"
	"grant_portal/internal/domain/identity"
	"grant_portal/internal/domain/invite"
	"grant_portal/internal/domain/payment"
	"grant_portal/internal/domain/sequence"
	idb "grant_portal/internal/infra/database"
)

// In-memory fakes for the repository and collaborator interfaces. They
// return the same sentinel errors the Postgres implementations do.

type fakeCycleRepo struct {
	cycles map[int64]*cycle.Cycle
	nextID int64
}

func newFakeCycleRepo() *fakeCycleRepo {
	return &fakeCycleRepo{cycles: make(map[int64]*cycle.Cycle), nextID: 1}
}

func (r *fakeCycleRepo) Create(_ context.Context, c *cycle.Cycle) error {
	c.ID = r.nextID
	r.nextID++
	r.cycles[c.ID] = c
	return nil
}

func (r *fakeCycleRepo) GetByID(_ context.Context, id int64) (*cycle.Cycle, error) {
	c, ok := r.cycles[id]
	if !ok {
		return nil, idb.ErrCycleNotFound
	}
	return c, nil
}

func (r *fakeCycleRepo) Update(_ context.Context, c *cycle.Cycle) error {
	if _, ok := r.cycles[c.ID]; !ok {
		return idb.ErrCycleNotFound
	}
	r.cycles[c.ID] = c
	return nil
}

func (r *fakeCycleRepo) ListAll(_ context.Context) ([]*cycle.Cycle, error) {
	return r.sorted(), nil
}

func (r *fakeCycleRepo) MostRecentOpen(_ context.Context) (*cycle.Cycle, error) {
	for _, c := range r.sorted() {
		if c.IsOpenForSubmissions {
			return c, nil
		}
	}
	return nil, idb.ErrCycleNotFound
}

func (r *fakeCycleRepo) MostRecent(_ context.Context) (*cycle.Cycle, error) {
	all := r.sorted()
	if len(all) == 0 {
		return nil, idb.ErrCycleNotFound
	}
	return all[0], nil
}

func (r *fakeCycleRepo) sorted() []*cycle.Cycle {
	all := make([]*cycle.Cycle, 0, len(r.cycles))
	for _, c := range r.cycles {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartDate.After(all[j].StartDate) })
	return all
}

type fakeApplicationRepo struct {
	apps             map[string]*application.Application
	failCreate       bool
	failUpdateStatus bool
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{apps: make(map[string]*application.Application)}
}

func (r *fakeApplicationRepo) Create(_ context.Context, app *application.Application) error {
	if r.failCreate {
		return fmt.Errorf("simulated create failure")
	}
	cp := *app
	r.apps[app.ID] = &cp
	return nil
}

func (r *fakeApplicationRepo) GetByID(_ context.Context, id string) (*application.Application, error) {
	app, ok := r.apps[id]
	if !ok {
		return nil, idb.ErrApplicationNotFound
	}
	cp := *app
	return &cp, nil
}

func (r *fakeApplicationRepo) Update(_ context.Context, app *application.Application) error {
	if _, ok := r.apps[app.ID]; !ok {
		return idb.ErrApplicationNotFound
	}
	cp := *app
	r.apps[app.ID] = &cp
	return nil
}

func (r *fakeApplicationRepo) UpdateStatus(_ context.Context, id string, status application.Status) error {
	if r.failUpdateStatus {
		return fmt.Errorf("simulated status update failure")
	}
	app, ok := r.apps[id]
	if !ok {
		return idb.ErrApplicationNotFound
	}
	app.Status = status
	return nil
}

func (r *fakeApplicationRepo) ListByUser(_ context.Context, userID string) ([]*application.Application, error) {
	out := make([]*application.Application, 0)
	for _, app := range r.apps {
		if app.UserID == userID {
			cp := *app
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakePaymentRepo struct {
	payments   []*payment.Payment
	failCreate bool
	failLookup bool
}

func newFakePaymentRepo() *fakePaymentRepo { return &fakePaymentRepo{} }

func (r *fakePaymentRepo) Create(_ context.Context, p *payment.Payment) error {
	if r.failCreate {
		return fmt.Errorf("simulated payment create failure")
	}
	if p.Status == payment.StatusSucceeded {
		for _, existing := range r.payments {
			if existing.ProviderTxnID == p.ProviderTxnID && existing.Status == payment.StatusSucceeded {
				return idb.ErrDuplicatePayment
			}
		}
	}
	cp := *p
	r.payments = append(r.payments, &cp)
	return nil
}

func (r *fakePaymentRepo) GetSucceededByProviderTxnID(_ context.Context, txnID string) (*payment.Payment, error) {
	if r.failLookup {
		return nil, fmt.Errorf("simulated payment lookup failure")
	}
	for _, p := range r.payments {
		if p.ProviderTxnID == txnID && p.Status == payment.StatusSucceeded {
			cp := *p
			return &cp, nil
		}
	}
	return nil, idb.ErrPaymentNotFound
}

func (r *fakePaymentRepo) ListByUser(_ context.Context, userID string) ([]*payment.Payment, error) {
	out := make([]*payment.Payment, 0)
	for _, p := range r.payments {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type enrollmentKey struct {
	sequenceID    int64
	applicationID string
}

type fakeSequenceRepo struct {
	sequences   map[int64]*sequence.Sequence
	steps       map[int64][]*sequence.Step
	enrollments map[enrollmentKey]*sequence.Enrollment
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{
		sequences:   make(map[int64]*sequence.Sequence),
		steps:       make(map[int64][]*sequence.Step),
		enrollments: make(map[enrollmentKey]*sequence.Enrollment),
	}
}

func (r *fakeSequenceRepo) GetSequenceByID(_ context.Context, id int64) (*sequence.Sequence, error) {
	s, ok := r.sequences[id]
	if !ok {
		return nil, idb.ErrSequenceNotFound
	}
	return s, nil
}

func (r *fakeSequenceRepo) ListActiveByTrigger(_ context.Context, trigger sequence.TriggerType, triggerStatus string) ([]*sequence.Sequence, error) {
	out := make([]*sequence.Sequence, 0)
	for _, s := range r.sequences {
		if !s.IsActive || s.TriggerType != trigger {
			continue
		}
		if trigger == sequence.TriggerStatusChange && s.TriggerStatus.String != triggerStatus {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSequenceRepo) CreateSequence(_ context.Context, s *sequence.Sequence) error {
	r.sequences[s.ID] = s
	return nil
}

func (r *fakeSequenceRepo) UpdateSequence(_ context.Context, s *sequence.Sequence) error {
	if _, ok := r.sequences[s.ID]; !ok {
		return idb.ErrSequenceNotFound
	}
	r.sequences[s.ID] = s
	return nil
}

func (r *fakeSequenceRepo) ListSteps(_ context.Context, sequenceID int64) ([]*sequence.Step, error) {
	steps := append([]*sequence.Step(nil), r.steps[sequenceID]...)
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepNumber < steps[j].StepNumber })
	return steps, nil
}

func (r *fakeSequenceRepo) GetStep(_ context.Context, sequenceID int64, stepNumber int) (*sequence.Step, error) {
	for _, st := range r.steps[sequenceID] {
		if st.StepNumber == stepNumber {
			return st, nil
		}
	}
	return nil, idb.ErrStepNotFound
}

func (r *fakeSequenceRepo) CreateStep(_ context.Context, st *sequence.Step) error {
	r.steps[st.SequenceID] = append(r.steps[st.SequenceID], st)
	return nil
}

func (r *fakeSequenceRepo) GetEnrollment(_ context.Context, sequenceID int64, applicationID string) (*sequence.Enrollment, error) {
	e, ok := r.enrollments[enrollmentKey{sequenceID, applicationID}]
	if !ok {
		return nil, idb.ErrEnrollmentNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeSequenceRepo) ListActiveEnrollmentsByApplication(_ context.Context, applicationID string) ([]*sequence.Enrollment, error) {
	out := make([]*sequence.Enrollment, 0)
	for _, e := range r.enrollments {
		if e.ApplicationID == applicationID && e.Status == sequence.EnrollmentActive {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceID < out[j].SequenceID })
	return out, nil
}

func (r *fakeSequenceRepo) CreateEnrollment(_ context.Context, e *sequence.Enrollment) error {
	key := enrollmentKey{e.SequenceID, e.ApplicationID}
	if _, exists := r.enrollments[key]; exists {
		return idb.ErrDuplicateEnrollment
	}
	cp := *e
	r.enrollments[key] = &cp
	return nil
}

func (r *fakeSequenceRepo) UpdateEnrollment(_ context.Context, e *sequence.Enrollment) error {
	key := enrollmentKey{e.SequenceID, e.ApplicationID}
	if _, ok := r.enrollments[key]; !ok {
		return idb.ErrEnrollmentNotFound
	}
	cp := *e
	r.enrollments[key] = &cp
	return nil
}

func (r *fakeSequenceRepo) ListDueEnrollments(_ context.Context, dueAtOrBefore time.Time) ([]*sequence.Enrollment, error) {
	out := make([]*sequence.Enrollment, 0)
	for _, e := range r.enrollments {
		if e.Status == sequence.EnrollmentActive && !e.NextEmailDueDate.After(dueAtOrBefore) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextEmailDueDate.Before(out[j].NextEmailDueDate) })
	return out, nil
}

type fakeInviteRepo struct {
	byToken map[string]*invite.PendingImport
	now     func() time.Time

	// beforeClaim, when set, runs inside Claim before the guard check so
	// tests can interleave a concurrent transition.
	beforeClaim func()
}

func newFakeInviteRepo(now func() time.Time) *fakeInviteRepo {
	return &fakeInviteRepo{byToken: make(map[string]*invite.PendingImport), now: now}
}

func (r *fakeInviteRepo) Create(_ context.Context, p *invite.PendingImport) error {
	r.byToken[p.InviteToken] = p
	return nil
}

func (r *fakeInviteRepo) GetByToken(_ context.Context, token string) (*invite.PendingImport, error) {
	p, ok := r.byToken[token]
	if !ok {
		return nil, idb.ErrImportNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeInviteRepo) Update(_ context.Context, p *invite.PendingImport) error {
	if _, ok := r.byToken[p.InviteToken]; !ok {
		return idb.ErrImportNotFound
	}
	cp := *p
	r.byToken[p.InviteToken] = &cp
	return nil
}

func (r *fakeInviteRepo) ListByStatus(_ context.Context, status invite.Status) ([]*invite.PendingImport, error) {
	out := make([]*invite.PendingImport, 0)
	for _, p := range r.byToken {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeInviteRepo) Claim(_ context.Context, token, claimantUserID string) (*invite.PendingImport, error) {
	if r.beforeClaim != nil {
		r.beforeClaim()
	}
	p, ok := r.byToken[token]
	if !ok {
		return nil, idb.ErrImportNotClaimable
	}
	claimable := (p.Status == invite.StatusPending || p.Status == invite.StatusInvited) && r.now().Before(p.ExpiresAt)
	if !claimable {
		return nil, idb.ErrImportNotClaimable
	}
	p.Status = invite.StatusClaimed
	cp := *p
	return &cp, nil
}

type fakeDirectory struct {
	users map[string]*identity.Principal
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[string]*identity.Principal)}
}

func (d *fakeDirectory) UserByID(_ context.Context, id string) (*identity.Principal, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}
	return u, nil
}

type fakeMailer struct {
	sent []email.Message
	fail bool
}

func (m *fakeMailer) Send(_ context.Context, msg email.Message) error {
	if m.fail {
		return fmt.Errorf("simulated send failure")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeNotifier struct {
	alerts []string
}

func (n *fakeNotifier) Alert(_ context.Context, text string) error {
	n.alerts = append(n.alerts, text)
	return nil
}

// fakeEnroller records calls so reconciliation tests can assert triggering
// without pulling in the real enrollment engine.
type fakeEnroller struct {
	submissions []string
}

func (e *fakeEnroller) EnrollOnSubmission(_ context.Context, app *application.Application) {
	e.submissions = append(e.submissions, app.ID)
}

func (e *fakeEnroller) EnrollOnStatusChange(_ context.Context, _ *application.Application, _, _ application.Status) {
}

func (e *fakeEnroller) EnrollOnDraftSave(_ context.Context, _ *application.Application) {}

func (e *fakeEnroller) CancelDraftSequences(_ context.Context, _ *application.Application) {}
