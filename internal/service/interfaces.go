package service

import (
	"context"
	"io"
	"time"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/payment"
)

// PlanService is the plan catalog: the read side used for pricing and the
// administrator's write side.
type PlanService interface {
	// ListActivePlans fails with DataUnavailable when the store cannot be read.
	ListActivePlans(ctx context.Context) ([]*domain.PlanDefinition, error)
	// BasePrices fails with EmptyCatalog when no plan is active.
	BasePrices(ctx context.Context) (domain.BasePrices, error)

	ListAll(ctx context.Context) ([]*domain.PlanDefinition, error)
	Get(ctx context.Context, id string) (*domain.PlanDefinition, error)
	Create(ctx context.Context, p *domain.PlanDefinition) error
	Update(ctx context.Context, p *domain.PlanDefinition) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, r io.Reader) (*PlanImportResult, error)
}

// PlanImportResult counts the plans touched by an import.
type PlanImportResult struct {
	Created int
	Updated int
}

// RegistrationRequest is a confirmed quote handed over for persistence.
type RegistrationRequest struct {
	// RequestID identifies the quote draft; registering the same id twice
	// returns the first policy.
	RequestID    string
	ActorID      string
	// OwnerID is the client the policy is registered for. Empty means the
	// acting user.
	OwnerID      string
	Domain       domain.InsuranceDomain
	ClientType   domain.ClientType
	Category     domain.PlanCategory
	Underwriting domain.Underwriting
}

// Registration is the outcome of a successful Register call.
type Registration struct {
	PolicyID     string
	PolicyNumber int64
	Premium      domain.Money
	// Replayed is true when the request id had already been registered.
	Replayed     bool
}

type RegistrationService interface {
	Register(ctx context.Context, req RegistrationRequest) (*Registration, error)
	// ReconcileOrphans deletes parent policies older than olderThan that
	// have no domain detail row, returning how many were removed.
	ReconcileOrphans(ctx context.Context, olderThan time.Duration) (int, error)
}

// NewUser is the input to account registration.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

type UserService interface {
	Register(ctx context.Context, in NewUser) (*domain.User, error)
	Login(ctx context.Context, email, password, host string) (*domain.User, error)
	RecordLogout(ctx context.Context, userID, host string) error
	Get(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, role domain.Role) ([]*domain.User, error)
	SetStatus(ctx context.Context, id string, status domain.UserStatus) error
	Metrics(ctx context.Context) (*domain.UserMetrics, error)
	RecentSessions(ctx context.Context, limit int) ([]domain.AuthEvent, error)
}

type PolicyService interface {
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.ContractedPolicy, error)
	// Get returns the policy with its domain record. Clients may only read
	// their own policies.
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.PolicyDetails, error)
	Subscriptions(ctx context.Context, ownerID string) ([]domain.Subscription, error)
}

type CouponService interface {
	Generate(ctx context.Context, ownerID string, policyIDs []string) (*domain.Coupon, error)
	Get(ctx context.Context, code string) (*domain.Coupon, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Coupon, error)
}

// CheckoutResult is where the payer should be sent to pay a coupon.
type CheckoutResult struct {
	Coupon      *domain.Coupon
	RedirectURL string
}

// Confirmation reports what Confirm did with an external payment.
type Confirmation struct {
	ExternalID      string
	Status          payment.Status
	CouponCode      string
	Recorded        int
	AlreadyRecorded bool
}

type PaymentService interface {
	Checkout(ctx context.Context, ownerID, couponCode string) (*CheckoutResult, error)
	Confirm(ctx context.Context, externalID string) (*Confirmation, error)
}

type EventService interface {
	File(ctx context.Context, actor domain.Actor, policyID string, typ domain.EventType, description string) (*domain.PolicyEvent, error)
	List(ctx context.Context, status domain.EventStatus) ([]*domain.PolicyEvent, error)
	ListByPolicy(ctx context.Context, actor domain.Actor, policyID string) ([]*domain.PolicyEvent, error)
	Advance(ctx context.Context, id string, next domain.EventStatus) (*domain.PolicyEvent, error)
}
