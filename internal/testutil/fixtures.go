package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/google/uuid"
)

var testEmailCounter atomic.Int64

// User options
type UserOption func(*domain.User)

func WithRole(r domain.Role) UserOption {
	return func(u *domain.User) {
		u.Role = r
	}
}

func WithUserStatus(s domain.UserStatus) UserOption {
	return func(u *domain.User) {
		u.Status = s
	}
}

func WithEmail(email string) UserOption {
	return func(u *domain.User) {
		u.Email = email
	}
}

// NewTestUser returns an active client with a unique email.
func NewTestUser(name string, opts ...UserOption) *domain.User {
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        fmt.Sprintf("user%d@example.com", testEmailCounter.Add(1)),
		PasswordHash: "not-a-real-hash",
		Role:         domain.RoleClient,
		Status:       domain.UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Plan options
type PlanOption func(*domain.PlanDefinition)

func WithInactive() PlanOption {
	return func(p *domain.PlanDefinition) {
		p.IsActive = false
	}
}

func WithBenefits(b ...string) PlanOption {
	return func(p *domain.PlanDefinition) {
		p.Benefits = b
	}
}

func WithCoverage(m domain.Money) PlanOption {
	return func(p *domain.PlanDefinition) {
		p.GeneralCoverage = m
	}
}

// NewTestPlan returns an active plan priced in whole currency units.
func NewTestPlan(category domain.PlanCategory, baseUnits int64, opts ...PlanOption) *domain.PlanDefinition {
	now := time.Now().UTC()
	p := &domain.PlanDefinition{
		ID:              uuid.New().String(),
		Category:        category,
		BasePrice:       domain.MoneyFromUnits(baseUnits),
		GeneralCoverage: domain.MoneyFromUnits(baseUnits * 100),
		Benefits:        []string{"24h assistance"},
		Description: domain.PlanDescription{
			Home:    "Home cover",
			Person:  "Life cover",
			Vehicle: "Vehicle cover",
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultCatalog returns the three standard tiers: Basic 500, Elite 1000,
// Premium 1500.
func DefaultCatalog() []*domain.PlanDefinition {
	return []*domain.PlanDefinition{
		NewTestPlan(domain.CategoryBasic, 500),
		NewTestPlan(domain.CategoryElite, 1000),
		NewTestPlan(domain.CategoryPremium, 1500),
	}
}

// Policy options
type PolicyOption func(*domain.ContractedPolicy)

func WithPremium(m domain.Money) PolicyOption {
	return func(p *domain.ContractedPolicy) {
		p.Premium = m
	}
}

func WithCreatedAt(t time.Time) PolicyOption {
	return func(p *domain.ContractedPolicy) {
		p.CreatedAt = t
	}
}

var testPolicyNumber atomic.Int64

// NewTestPolicy returns a parent policy row; callers insert the detail row.
func NewTestPolicy(ownerID, planID string, dom domain.InsuranceDomain, opts ...PolicyOption) *domain.ContractedPolicy {
	p := &domain.ContractedPolicy{
		ID:           uuid.New().String(),
		PolicyNumber: 900000 + testPolicyNumber.Add(1),
		OwnerID:      ownerID,
		PlanID:       planID,
		Domain:       dom,
		ClientType:   domain.ClientPerson,
		Premium:      domain.MoneyFromUnits(1000),
		RequestID:    uuid.New().String(),
		CreatedByID:  ownerID,
		CreatedAt:    time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func ValidHomeData() domain.HomeData {
	return domain.HomeData{
		ConstructionType: domain.ConstructionConcrete,
		BuildingAge:      15,
		City:             "Córdoba",
		Neighborhood:     "Nueva Córdoba",
	}
}

func ValidVehicleData() domain.VehicleData {
	return domain.VehicleData{
		Year:       2020,
		Model:      "Toyota Etios",
		TheftRisk:  domain.TheftRiskMedium,
		Violations: 0,
	}
}

func ValidLifeData() domain.LifeData {
	return domain.LifeData{CertPresented: true, CertData: `{"issuer":"Clinica Central","valid":true}`}
}
