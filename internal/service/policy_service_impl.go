package service

import (
	"context"
	"sync"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/repository"
	"golang.org/x/sync/errgroup"
)

// subscriptionLookupLimit bounds concurrent store reads per Subscriptions call.
const subscriptionLookupLimit = 4

type policyService struct {
	policies repository.PolicyRepo
	plans    repository.PlanRepo
	payments repository.PaymentRepo
}

func NewPolicyService(policies repository.PolicyRepo, plans repository.PlanRepo, payments repository.PaymentRepo) PolicyService {
	return &policyService{policies: policies, plans: plans, payments: payments}
}

func (s *policyService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.ContractedPolicy, error) {
	policies, err := s.policies.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataUnavailable, "listing policies", err)
	}
	return policies, nil
}

func (s *policyService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.PolicyDetails, error) {
	p, err := s.policies.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr("policy "+id, err)
	}
	if !actor.Role.ActsForClients() && p.OwnerID != actor.ID {
		return nil, domain.NewError(domain.CodeForbidden, "policy belongs to another client")
	}
	plan, err := s.plans.GetByID(ctx, p.PlanID)
	if err != nil {
		return nil, notFoundOr("plan "+p.PlanID, err)
	}
	details, err := s.policies.GetDetails(ctx, p.ID, p.Domain)
	if err != nil {
		// A parent without its domain record is an orphan.
		return nil, notFoundOr(string(p.Domain)+" details of policy "+p.ID, err)
	}
	return &domain.PolicyDetails{Policy: *p, Category: plan.Category, Underwriting: details}, nil
}

// Subscriptions lists the owner's policies with their amount and whether
// they have been paid, reading plans and payments concurrently.
func (s *policyService) Subscriptions(ctx context.Context, ownerID string) ([]domain.Subscription, error) {
	policies, err := s.policies.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataUnavailable, "listing policies", err)
	}

	subs := make([]domain.Subscription, len(policies))
	var (
		mu         sync.Mutex
		categories = make(map[string]domain.PlanCategory)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(subscriptionLookupLimit)
	for i, p := range policies {
		g.Go(func() error {
			mu.Lock()
			cat, known := categories[p.PlanID]
			mu.Unlock()
			if !known {
				plan, err := s.plans.GetByID(gctx, p.PlanID)
				if err != nil {
					return err
				}
				cat = plan.Category
				mu.Lock()
				categories[p.PlanID] = cat
				mu.Unlock()
			}
			paid, err := s.payments.IsPolicyPaid(gctx, p.ID)
			if err != nil {
				return err
			}
			subs[i] = domain.Subscription{
				PolicyID:     p.ID,
				PolicyNumber: p.PolicyNumber,
				Domain:       p.Domain,
				Category:     cat,
				Amount:       p.Premium,
				Paid:         paid,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domain.WrapError(domain.CodeDataUnavailable, "assembling subscriptions", err)
	}
	return subs, nil
}
