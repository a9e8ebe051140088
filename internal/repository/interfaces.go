package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/insurer/internal/domain"
)

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// List returns users ordered by name; an empty role lists every role.
	List(ctx context.Context, role domain.Role) ([]*domain.User, error)
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	CountByRoleAndStatus(ctx context.Context) (map[domain.Role]map[domain.UserStatus]int, error)
}

type AuthEventRepo interface {
	Append(ctx context.Context, e *domain.AuthEvent) error
	ListRecent(ctx context.Context, limit int) ([]domain.AuthEvent, error)
}

type PlanRepo interface {
	Create(ctx context.Context, p *domain.PlanDefinition) error
	GetByID(ctx context.Context, id string) (*domain.PlanDefinition, error)
	GetActiveByCategory(ctx context.Context, category domain.PlanCategory) (*domain.PlanDefinition, error)
	ListActive(ctx context.Context) ([]*domain.PlanDefinition, error)
	ListAll(ctx context.Context) ([]*domain.PlanDefinition, error)
	Update(ctx context.Context, p *domain.PlanDefinition) error
	Delete(ctx context.Context, id string) error
	CountPolicies(ctx context.Context, planID string) (int, error)
}

type PolicySequenceRepo interface {
	NextPolicyNumber(ctx context.Context) (int64, error)
}

type PolicyRepo interface {
	Create(ctx context.Context, p *domain.ContractedPolicy) error
	CreateDetails(ctx context.Context, policyID string, data domain.Underwriting) error
	GetByID(ctx context.Context, id string) (*domain.ContractedPolicy, error)
	GetByRequestID(ctx context.Context, requestID string) (*domain.ContractedPolicy, error)
	GetDetails(ctx context.Context, policyID string, dom domain.InsuranceDomain) (domain.Underwriting, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.ContractedPolicy, error)
	// ListOrphans returns policies created before cutoff that have no
	// domain detail row.
	ListOrphans(ctx context.Context, cutoff time.Time) ([]*domain.ContractedPolicy, error)
	Delete(ctx context.Context, id string) error
}

type CouponRepo interface {
	Create(ctx context.Context, c *domain.Coupon) error
	GetByID(ctx context.Context, id string) (*domain.Coupon, error)
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Coupon, error)
	UpdateStatus(ctx context.Context, id string, status domain.CouponStatus) error
}

type PaymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	ExistsForExternalID(ctx context.Context, externalID string) (bool, error)
	IsPolicyPaid(ctx context.Context, policyID string) (bool, error)
	ListByCoupon(ctx context.Context, couponID string) ([]*domain.Payment, error)
}

type EventRepo interface {
	Create(ctx context.Context, e *domain.PolicyEvent) error
	GetByID(ctx context.Context, id string) (*domain.PolicyEvent, error)
	// List returns events newest first; an empty status lists all.
	List(ctx context.Context, status domain.EventStatus) ([]*domain.PolicyEvent, error)
	ListByPolicy(ctx context.Context, policyID string) ([]*domain.PolicyEvent, error)
	Update(ctx context.Context, e *domain.PolicyEvent) error
}
