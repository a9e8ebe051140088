package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/alexanderramin/insurer/internal/db"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/repository"
	"github.com/google/uuid"
)

const (
	couponDueDays      = 15
	couponCodeAttempts = 5
	couponAlphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

type couponService struct {
	coupons  repository.CouponRepo
	uow      db.UnitOfWork
	observer UseCaseObserver
	now      func() time.Time
	suffix   func() string
}

func NewCouponService(coupons repository.CouponRepo, uow db.UnitOfWork, observers ...UseCaseObserver) CouponService {
	return &couponService{
		coupons:  coupons,
		uow:      uow,
		observer: useCaseObserverOrNoop(observers),
		now:      time.Now,
		suffix:   randomSuffix,
	}
}

func randomSuffix() string {
	return string([]byte{couponAlphabet[rand.IntN(len(couponAlphabet))], couponAlphabet[rand.IntN(len(couponAlphabet))]})
}

// CouponCode formats a coupon code as CUP-YYYYMMDD-XX.
func CouponCode(issued time.Time, suffix string) string {
	return fmt.Sprintf("CUP-%s-%s", issued.Format("20060102"), strings.ToUpper(suffix))
}

// Generate issues a monthly coupon covering policyIDs. Every policy must
// belong to ownerID and be unpaid. The amount is the sum of their premiums.
func (s *couponService) Generate(ctx context.Context, ownerID string, policyIDs []string) (c *domain.Coupon, err error) {
	ctx, run := startUseCase(ctx, "generate-coupon")
	defer func() { run.end(ctx, s.observer, err) }()
	run.set("owner_id", ownerID)
	run.set("policies", len(policyIDs))

	if len(policyIDs) == 0 {
		return nil, domain.NewError(domain.CodeInvalidInput, "select at least one policy")
	}
	seen := make(map[string]bool, len(policyIDs))
	for _, id := range policyIDs {
		if seen[id] {
			return nil, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("policy %s listed twice", id))
		}
		seen[id] = true
	}

	issued := s.now().UTC()
	for attempt := 0; attempt < couponCodeAttempts; attempt++ {
		c = &domain.Coupon{
			ID:        uuid.New().String(),
			Code:      CouponCode(issued, s.suffix()),
			OwnerID:   ownerID,
			Period:    domain.PeriodMonthly,
			Status:    domain.CouponProcessing,
			IssueDate: issued,
			DueDate:   issued.AddDate(0, 0, couponDueDays),
			PolicyIDs: policyIDs,
		}
		err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			policies := repository.NewSQLitePolicyRepo(tx)
			payments := repository.NewSQLitePaymentRepo(tx)
			for _, id := range policyIDs {
				p, err := policies.GetByID(ctx, id)
				if err != nil {
					return notFoundOr("policy "+id, err)
				}
				if p.OwnerID != ownerID {
					return domain.NewError(domain.CodeForbidden, fmt.Sprintf("policy %d belongs to another client", p.PolicyNumber))
				}
				paid, err := payments.IsPolicyPaid(ctx, id)
				if err != nil {
					return persistenceErr("checking payments", err)
				}
				if paid {
					return domain.NewError(domain.CodeConflict, fmt.Sprintf("policy %d is already paid", p.PolicyNumber))
				}
				c.Amount += p.Premium
			}
			return repository.NewSQLiteCouponRepo(tx).Create(ctx, c)
		})
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, persistenceErr("creating coupon", err)
	}
	run.set("code", c.Code)
	return c, nil
}

func (s *couponService) Get(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := s.coupons.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, notFoundOr("coupon "+code, err)
	}
	return c, nil
}

func (s *couponService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Coupon, error) {
	coupons, err := s.coupons.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataUnavailable, "listing coupons", err)
	}
	return coupons, nil
}
