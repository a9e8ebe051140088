package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/insurer/internal/db"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/payment"
	"github.com/alexanderramin/insurer/internal/repository"
	"github.com/google/uuid"
)

type paymentService struct {
	coupons  repository.CouponRepo
	policies repository.PolicyRepo
	plans    repository.PlanRepo
	checkout payment.Client
	uow      db.UnitOfWork
	observer UseCaseObserver
	now      func() time.Time
}

func NewPaymentService(
	coupons repository.CouponRepo,
	policies repository.PolicyRepo,
	plans repository.PlanRepo,
	checkout payment.Client,
	uow db.UnitOfWork,
	observers ...UseCaseObserver,
) PaymentService {
	return &paymentService{
		coupons:  coupons,
		policies: policies,
		plans:    plans,
		checkout: checkout,
		uow:      uow,
		observer: useCaseObserverOrNoop(observers),
		now:      time.Now,
	}
}

// Checkout opens a hosted checkout for an unpaid coupon owned by ownerID.
func (s *paymentService) Checkout(ctx context.Context, ownerID, couponCode string) (res *CheckoutResult, err error) {
	ctx, run := startUseCase(ctx, "checkout")
	defer func() { run.end(ctx, s.observer, err) }()
	run.set("coupon", couponCode)

	c, err := s.coupons.GetByCode(ctx, couponCode)
	if err != nil {
		return nil, notFoundOr("coupon "+couponCode, err)
	}
	if c.OwnerID != ownerID {
		return nil, domain.NewError(domain.CodeForbidden, "coupon belongs to another client")
	}
	switch c.Status {
	case domain.CouponPending, domain.CouponProcessing:
	default:
		return nil, domain.NewError(domain.CodeConflict, fmt.Sprintf("coupon %s is %s", c.Code, c.Status))
	}

	req := payment.CheckoutRequest{CouponCode: c.Code, Amount: c.Amount, IssuedAt: s.now().UTC()}
	for _, id := range c.PolicyIDs {
		p, err := s.policies.GetByID(ctx, id)
		if err != nil {
			return nil, notFoundOr("policy "+id, err)
		}
		plan, err := s.plans.GetByID(ctx, p.PlanID)
		if err != nil {
			return nil, notFoundOr("plan "+p.PlanID, err)
		}
		req.Items = append(req.Items, payment.LineItem{
			PolicyID:  p.ID,
			Title:     SubscriptionTitle(plan.Category, p.Domain),
			UnitPrice: p.Premium,
		})
	}

	checkout, err := s.checkout.CreateCheckout(ctx, req)
	if err != nil {
		return nil, domain.WrapError(domain.CodePaymentFailed, "creating checkout", err)
	}
	return &CheckoutResult{Coupon: c, RedirectURL: checkout.RedirectURL}, nil
}

// SubscriptionTitle is the line item label of a policy.
func SubscriptionTitle(category domain.PlanCategory, dom domain.InsuranceDomain) string {
	return fmt.Sprintf("Plan %s (%s)", category, dom)
}

// Confirm fetches an external payment and, once approved, records one
// payment per covered policy and marks the coupon paid. Confirming the same
// external payment again records nothing.
func (s *paymentService) Confirm(ctx context.Context, externalID string) (conf *Confirmation, err error) {
	ctx, run := startUseCase(ctx, "confirm-payment")
	defer func() { run.end(ctx, s.observer, err) }()
	run.set("external_id", externalID)

	ext, err := s.checkout.GetPayment(ctx, externalID)
	if err != nil {
		return nil, domain.WrapError(domain.CodePaymentFailed, "fetching payment", err)
	}
	conf = &Confirmation{ExternalID: ext.ID, Status: ext.Status, CouponCode: ext.CouponCode}
	run.set("status", string(ext.Status))
	if ext.Status != payment.StatusApproved {
		return conf, nil
	}
	if ext.CouponCode == "" {
		return nil, domain.NewError(domain.CodePaymentFailed, "approved payment carries no coupon reference")
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		payments := repository.NewSQLitePaymentRepo(tx)
		coupons := repository.NewSQLiteCouponRepo(tx)
		policies := repository.NewSQLitePolicyRepo(tx)

		seen, err := payments.ExistsForExternalID(ctx, ext.ID)
		if err != nil {
			return persistenceErr("checking payments", err)
		}
		if seen {
			conf.AlreadyRecorded = true
			return nil
		}

		c, err := coupons.GetByCode(ctx, ext.CouponCode)
		if err != nil {
			return notFoundOr("coupon "+ext.CouponCode, err)
		}
		items, err := paidItems(ctx, policies, c, ext)
		if err != nil {
			return err
		}
		paidAt := s.now().UTC()
		for _, item := range items {
			err := payments.Create(ctx, &domain.Payment{
				ID:         uuid.New().String(),
				CouponID:   c.ID,
				PolicyID:   item.PolicyID,
				ExternalID: ext.ID,
				Amount:     item.Amount,
				Method:     domain.MethodExternalPlatform,
				PaidAt:     paidAt,
			})
			if err != nil {
				return persistenceErr("recording payment", err)
			}
			conf.Recorded++
		}
		return persistenceErr("marking coupon paid", coupons.UpdateStatus(ctx, c.ID, domain.CouponPaid))
	})
	if err != nil {
		return nil, err
	}
	run.set("recorded", conf.Recorded)
	return conf, nil
}

// paidItems returns the policies a payment covers. Items read back from the
// checkout metadata must belong to the coupon; without metadata every
// coupon policy is paid at its premium.
func paidItems(ctx context.Context, policies repository.PolicyRepo, c *domain.Coupon, ext *payment.Payment) ([]payment.PaidItem, error) {
	onCoupon := make(map[string]bool, len(c.PolicyIDs))
	for _, id := range c.PolicyIDs {
		onCoupon[id] = true
	}
	if len(ext.Items) > 0 {
		for _, item := range ext.Items {
			if !onCoupon[item.PolicyID] {
				return nil, domain.NewError(domain.CodePaymentFailed,
					fmt.Sprintf("payment covers policy %s which is not on coupon %s", item.PolicyID, c.Code))
			}
		}
		return ext.Items, nil
	}

	items := make([]payment.PaidItem, 0, len(c.PolicyIDs))
	for _, id := range c.PolicyIDs {
		p, err := policies.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, domain.WrapError(domain.CodePaymentFailed, "coupon references a missing policy", err)
			}
			return nil, persistenceErr("reading policy", err)
		}
		items = append(items, payment.PaidItem{PolicyID: p.ID, Amount: p.Premium})
	}
	return items, nil
}
