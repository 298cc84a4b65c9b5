package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/repository"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/logging"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/metrics"
)

// EventPublisher receives an event for every applied registry call.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// GrantRegistry applies registry calls on behalf of an authenticated
// caller. It validates input, delegates atomic state changes to the store
// and emits a receipt per applied call.
type GrantRegistry struct {
	store   repository.Store
	events  EventPublisher
	policy  domain.TextPolicy
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*GrantRegistry)

func WithEvents(p EventPublisher) Option {
	return func(r *GrantRegistry) { r.events = p }
}

func WithTextPolicy(p domain.TextPolicy) Option {
	return func(r *GrantRegistry) { r.policy = p }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(r *GrantRegistry) { r.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *GrantRegistry) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *GrantRegistry) { r.now = now }
}

func NewGrantRegistry(store repository.Store, opts ...Option) *GrantRegistry {
	r := &GrantRegistry{
		store:  store,
		policy: domain.DefaultTextPolicy(),
		log:    logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateGrant appends a grant funded by funder. The funder need not be the
// caller. Every mutator builds its receipt before touching the store, so a
// returned error always means nothing was written.
func (r *GrantRegistry) CreateGrant(ctx context.Context, caller, funder domain.Identity, amount uint64, info string) (uint64, domain.Receipt, error) {
	start := time.Now()
	id, rcpt, err := r.createGrant(ctx, caller, funder, amount, info)
	r.finish(ctx, domain.OpCreateGrant, rcpt, err, start)
	return id, rcpt, err
}

func (r *GrantRegistry) createGrant(ctx context.Context, caller, funder domain.Identity, amount uint64, info string) (uint64, domain.Receipt, error) {
	caller, err := checkIdentity(caller)
	if err != nil {
		return 0, domain.Receipt{}, err
	}
	if funder, err = checkIdentity(funder); err != nil {
		return 0, domain.Receipt{}, err
	}
	if err := r.policy.CheckInfo(info); err != nil {
		return 0, domain.Receipt{}, err
	}

	now := r.now().UTC()
	args := map[string]any{"funder": funder, "amount": amount, "info": info}
	rcpt, err := domain.NewReceipt(domain.OpCreateGrant, caller, 0, nil, args, now)
	if err != nil {
		return 0, domain.Receipt{}, err
	}

	id, err := r.store.CreateGrant(ctx, domain.NewGrant{Funder: funder, Amount: amount, Info: info, CreatedAt: now})
	if err != nil {
		return 0, domain.Receipt{}, err
	}
	return id, rcpt.Assign(id), nil
}

// RegisterApplication appends a project, not yet accepted, to the grant.
func (r *GrantRegistry) RegisterApplication(ctx context.Context, caller domain.Identity, grantID uint64, applicant domain.Identity, data string) (uint64, domain.Receipt, error) {
	start := time.Now()
	id, rcpt, err := r.registerApplication(ctx, caller, grantID, applicant, data)
	r.finish(ctx, domain.OpRegisterApplication, rcpt, err, start)
	return id, rcpt, err
}

func (r *GrantRegistry) registerApplication(ctx context.Context, caller domain.Identity, grantID uint64, applicant domain.Identity, data string) (uint64, domain.Receipt, error) {
	caller, err := checkIdentity(caller)
	if err != nil {
		return 0, domain.Receipt{}, err
	}
	if applicant, err = checkIdentity(applicant); err != nil {
		return 0, domain.Receipt{}, err
	}
	if err := r.policy.CheckData(data); err != nil {
		return 0, domain.Receipt{}, err
	}

	now := r.now().UTC()
	args := map[string]any{"applicant": applicant, "data": data}
	rcpt, err := domain.NewReceipt(domain.OpRegisterApplication, caller, grantID, nil, args, now)
	if err != nil {
		return 0, domain.Receipt{}, err
	}

	id, err := r.store.RegisterApplication(ctx, grantID, domain.NewProject{Applicant: applicant, Data: data, CreatedAt: now})
	if err != nil {
		return 0, domain.Receipt{}, err
	}
	return id, rcpt.Assign(grantID, id), nil
}

// ApproveApplication accepts every listed project or, when any id is
// unknown, none of them. An empty list is a no-op.
func (r *GrantRegistry) ApproveApplication(ctx context.Context, caller domain.Identity, grantID uint64, projectIDs []uint64) (domain.Receipt, error) {
	start := time.Now()
	rcpt, err := r.setAccepted(ctx, domain.OpApproveApplication, caller, grantID, projectIDs, true)
	r.finish(ctx, domain.OpApproveApplication, rcpt, err, start)
	return rcpt, err
}

// DenyApplication clears the accepted flag of one project, reversing an
// earlier approval if there was one.
func (r *GrantRegistry) DenyApplication(ctx context.Context, caller domain.Identity, grantID, projectID uint64) (domain.Receipt, error) {
	start := time.Now()
	rcpt, err := r.setAccepted(ctx, domain.OpDenyApplication, caller, grantID, []uint64{projectID}, false)
	r.finish(ctx, domain.OpDenyApplication, rcpt, err, start)
	return rcpt, err
}

func (r *GrantRegistry) setAccepted(ctx context.Context, op string, caller domain.Identity, grantID uint64, projectIDs []uint64, accepted bool) (domain.Receipt, error) {
	caller, err := checkIdentity(caller)
	if err != nil {
		return domain.Receipt{}, err
	}
	if projectIDs == nil {
		projectIDs = []uint64{}
	}

	rcpt, err := domain.NewReceipt(op, caller, grantID, projectIDs, nil, r.now().UTC())
	if err != nil {
		return domain.Receipt{}, err
	}
	if err := r.store.SetAccepted(ctx, grantID, projectIDs, accepted); err != nil {
		return domain.Receipt{}, err
	}
	return rcpt, nil
}

// Vote appends a vote cast by the caller.
func (r *GrantRegistry) Vote(ctx context.Context, caller domain.Identity, grantID, projectID uint64, message string) (domain.Receipt, error) {
	start := time.Now()
	rcpt, err := r.vote(ctx, caller, grantID, projectID, message)
	r.finish(ctx, domain.OpVote, rcpt, err, start)
	return rcpt, err
}

func (r *GrantRegistry) vote(ctx context.Context, caller domain.Identity, grantID, projectID uint64, message string) (domain.Receipt, error) {
	caller, err := checkIdentity(caller)
	if err != nil {
		return domain.Receipt{}, err
	}
	if err := r.policy.CheckMessage(message); err != nil {
		return domain.Receipt{}, err
	}

	args := map[string]any{"message": message}
	rcpt, err := domain.NewReceipt(domain.OpVote, caller, grantID, []uint64{projectID}, args, r.now().UTC())
	if err != nil {
		return domain.Receipt{}, err
	}
	if err := r.store.AppendVote(ctx, grantID, projectID, domain.Vote{Voter: caller, Message: message}); err != nil {
		return domain.Receipt{}, err
	}
	return rcpt, nil
}

func (r *GrantRegistry) GrantListLength(ctx context.Context) (uint64, error) {
	return r.store.GrantCount(ctx)
}

func (r *GrantRegistry) ProjectListLength(ctx context.Context, grantID uint64) (uint64, error) {
	return r.store.ProjectCount(ctx, grantID)
}

func (r *GrantRegistry) GetGrant(ctx context.Context, grantID uint64) (*domain.Grant, error) {
	return r.store.GetGrant(ctx, grantID)
}

func (r *GrantRegistry) ListGrants(ctx context.Context, page domain.Page) ([]domain.Grant, error) {
	return r.store.ListGrants(ctx, domain.ClampPage(page))
}

// GetProjectDetail returns the project including its votes.
func (r *GrantRegistry) GetProjectDetail(ctx context.Context, grantID, projectID uint64) (*domain.Project, error) {
	return r.store.GetProject(ctx, grantID, projectID)
}

func (r *GrantRegistry) ListProjects(ctx context.Context, grantID uint64, page domain.Page) ([]domain.Project, error) {
	return r.store.ListProjects(ctx, grantID, domain.ClampPage(page))
}

// GetVote returns the project's votes in the order they were cast.
func (r *GrantRegistry) GetVote(ctx context.Context, grantID, projectID uint64) ([]domain.Vote, error) {
	return r.store.ListVotes(ctx, grantID, projectID)
}

// ProjectCard returns the browsing view of one application.
func (r *GrantRegistry) ProjectCard(ctx context.Context, grantID, projectID uint64) (domain.ProjectCard, error) {
	g, err := r.store.GetGrant(ctx, grantID)
	if err != nil {
		return domain.ProjectCard{}, err
	}
	p, err := r.store.GetProject(ctx, grantID, projectID)
	if err != nil {
		return domain.ProjectCard{}, err
	}
	return domain.BuildCard(g, p), nil
}

// Totals counts grants and projects across all grants. The two counts are
// not read from one snapshot; it is meant for reporting only.
func (r *GrantRegistry) Totals(ctx context.Context) (grants, projects uint64, err error) {
	grants, err = r.store.GrantCount(ctx)
	if err != nil {
		return 0, 0, err
	}
	for id := uint64(0); id < grants; id++ {
		n, err := r.store.ProjectCount(ctx, id)
		if err != nil {
			return 0, 0, fmt.Errorf("count projects of grant %d: %w", id, err)
		}
		projects += n
	}
	return grants, projects, nil
}

// finish records the outcome of a mutation. Events go out only after the
// store committed; a failed publish is logged and does not fail the call.
func (r *GrantRegistry) finish(ctx context.Context, op string, rcpt domain.Receipt, err error, start time.Time) {
	r.metrics.ObserveOperation(op, err, time.Since(start))

	log := logging.FromContext(ctx, r.log).WithField("op", op)
	if err != nil {
		log.WithError(err).Warn("registry call rejected")
		return
	}

	log.WithFields(logrus.Fields{
		"grant_id":    rcpt.GrantID,
		"project_ids": rcpt.ProjectIDs,
		"caller":      rcpt.Caller,
		"tx":          rcpt.TxID,
	}).Info("registry call applied")

	if r.events == nil {
		return
	}
	if perr := r.events.Publish(ctx, domain.Event{Op: op, Receipt: rcpt}); perr != nil {
		log.WithError(perr).Error("failed to publish registry event")
	}
}

func checkIdentity(id domain.Identity) (domain.Identity, error) {
	if id.IsZero() {
		return "", fmt.Errorf("%w: missing", domain.ErrInvalidIdentity)
	}
	return domain.ParseIdentity(id.String())
}
