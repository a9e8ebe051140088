package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/insurer/internal/db"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/pricing"
	"github.com/alexanderramin/insurer/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type registrationService struct {
	policies repository.PolicyRepo
	uow      db.UnitOfWork
	resolver pricing.Resolver
	logger   *zap.Logger
	observer UseCaseObserver
	now      func() time.Time
}

func NewRegistrationService(
	policies repository.PolicyRepo,
	uow db.UnitOfWork,
	resolver pricing.Resolver,
	logger *zap.Logger,
	observers ...UseCaseObserver,
) RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registrationService{
		policies: policies,
		uow:      uow,
		resolver: resolver,
		logger:   logger,
		observer: useCaseObserverOrNoop(observers),
		now:      time.Now,
	}
}

// Register writes the parent policy and its domain record in one
// transaction. Nothing is written when any step fails.
func (s *registrationService) Register(ctx context.Context, req RegistrationRequest) (reg *Registration, err error) {
	ctx, run := startUseCase(ctx, "register-policy")
	defer func() { run.end(ctx, s.observer, err) }()
	run.set("request_id", req.RequestID)
	run.set("domain", string(req.Domain))
	run.set("category", string(req.Category))

	if req.ActorID == "" {
		return nil, domain.NewError(domain.CodeUnauthenticated, "no acting user")
	}
	if req.RequestID == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "request id is required")
	}
	if !req.Domain.Valid() {
		return nil, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("unknown insurance domain %q", req.Domain))
	}
	if req.ClientType == "" {
		req.ClientType = domain.ClientPerson
	}
	if !req.ClientType.Valid() {
		return nil, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("unknown client type %q", req.ClientType))
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var txErr error
		reg, txErr = s.registerTx(ctx, tx, req)
		return txErr
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent confirm of the same draft.
		reg, err = s.replay(ctx, req.RequestID)
	}
	if err != nil {
		return nil, persistenceErr("registering policy", err)
	}
	run.set("policy_number", reg.PolicyNumber)
	run.set("replayed", reg.Replayed)
	return reg, nil
}

func (s *registrationService) registerTx(ctx context.Context, tx db.DBTX, req RegistrationRequest) (*Registration, error) {
	users := repository.NewSQLiteUserRepo(tx)
	plans := repository.NewSQLitePlanRepo(tx)
	policies := repository.NewSQLitePolicyRepo(tx)
	seq := repository.NewSQLitePolicySequenceRepo(tx)

	// 1. Acting user.
	actor, err := users.GetByID(ctx, req.ActorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.NewError(domain.CodeUnauthenticated, "acting user does not exist")
	}
	if err != nil {
		return nil, persistenceErr("reading acting user", err)
	}
	if !actor.Active() {
		return nil, domain.NewError(domain.CodeUnauthenticated, "acting user account is inactive")
	}

	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = actor.ID
	}
	if ownerID != actor.ID {
		if !actor.Role.ActsForClients() {
			return nil, domain.NewError(domain.CodeForbidden, "clients can only register policies for themselves")
		}
		owner, err := users.GetByID(ctx, ownerID)
		if err != nil {
			return nil, notFoundOr("client "+ownerID, err)
		}
		if !owner.Active() {
			return nil, domain.NewError(domain.CodeInvalidInput, "client account is inactive")
		}
	}

	existing, err := policies.GetByRequestID(ctx, req.RequestID)
	if err == nil {
		return replayed(existing), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, persistenceErr("checking request id", err)
	}

	// 2. Plan for the selected category.
	plan, err := plans.GetActiveByCategory(ctx, req.Category)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.NewError(domain.CodeUnknownPlan,
			fmt.Sprintf("no active %s plan; the catalog changed since the quote was made", req.Category))
	}
	if err != nil {
		return nil, persistenceErr("resolving plan", err)
	}

	if err := domain.CheckUnderwriting(req.Domain, req.Underwriting); err != nil {
		return nil, err
	}
	rate, ok := s.resolver.Resolve(req.Domain, req.Underwriting).Value()
	if !ok {
		return nil, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("no multiplier configured for %s", req.Domain))
	}

	// 3. Parent row.
	number, err := seq.NextPolicyNumber(ctx)
	if err != nil {
		return nil, persistenceErr("allocating policy number", err)
	}
	p := &domain.ContractedPolicy{
		ID:           uuid.New().String(),
		PolicyNumber: number,
		OwnerID:      ownerID,
		PlanID:       plan.ID,
		Domain:       req.Domain,
		ClientType:   req.ClientType,
		Premium:      pricing.Premium(plan.BasePrice, rate),
		RequestID:    req.RequestID,
		CreatedByID:  actor.ID,
		CreatedAt:    s.now().UTC(),
	}
	if err := policies.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		return nil, persistenceErr("creating policy", err)
	}

	// 4. Domain record.
	if err := policies.CreateDetails(ctx, p.ID, req.Underwriting); err != nil {
		return nil, persistenceErr(fmt.Sprintf("creating %s details", req.Domain), err)
	}

	return &Registration{PolicyID: p.ID, PolicyNumber: p.PolicyNumber, Premium: p.Premium}, nil
}

func (s *registrationService) replay(ctx context.Context, requestID string) (*Registration, error) {
	existing, err := s.policies.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, persistenceErr("reading registered policy", err)
	}
	return replayed(existing), nil
}

func replayed(p *domain.ContractedPolicy) *Registration {
	return &Registration{PolicyID: p.ID, PolicyNumber: p.PolicyNumber, Premium: p.Premium, Replayed: true}
}

func (s *registrationService) ReconcileOrphans(ctx context.Context, olderThan time.Duration) (removed int, err error) {
	ctx, run := startUseCase(ctx, "reconcile-orphans")
	defer func() { run.end(ctx, s.observer, err) }()

	if olderThan <= 0 {
		return 0, domain.NewError(domain.CodeInvalidInput, "grace period must be positive")
	}
	cutoff := s.now().UTC().Add(-olderThan)
	orphans, err := s.policies.ListOrphans(ctx, cutoff)
	if err != nil {
		return 0, persistenceErr("listing orphaned policies", err)
	}

	for _, p := range orphans {
		if err = s.policies.Delete(ctx, p.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return removed, persistenceErr("deleting orphaned policy", err)
		}
		removed++
		s.logger.Warn("deleted orphaned policy",
			zap.String("policy_id", p.ID),
			zap.Int64("policy_number", p.PolicyNumber),
			zap.String("domain", string(p.Domain)),
			zap.Time("created_at", p.CreatedAt),
		)
	}
	run.set("removed", removed)
	return removed, nil
}
