package domain

import (
	"fmt"
	"strings"
)

// InsuranceDomain is one of the three insurable lines of business.
type InsuranceDomain string

const (
	DomainLife    InsuranceDomain = "life"
	DomainHome    InsuranceDomain = "home"
	DomainVehicle InsuranceDomain = "vehicle"
)

// AllDomains lists domains in wizard display order.
func AllDomains() []InsuranceDomain {
	return []InsuranceDomain{DomainLife, DomainHome, DomainVehicle}
}

func (d InsuranceDomain) Valid() bool {
	switch d {
	case DomainLife, DomainHome, DomainVehicle:
		return true
	}
	return false
}

// ParseDomain accepts a domain name in any case.
func ParseDomain(s string) (InsuranceDomain, error) {
	d := InsuranceDomain(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown insurance domain %q (expected life, home or vehicle)", s)
	}
	return d, nil
}

// PlanCategory is a pricing tier, independent of domain.
type PlanCategory string

const (
	CategoryBasic   PlanCategory = "Basic"
	CategoryElite   PlanCategory = "Elite"
	CategoryPremium PlanCategory = "Premium"
)

// AllCategories lists categories from cheapest to most expensive tier.
func AllCategories() []PlanCategory {
	return []PlanCategory{CategoryBasic, CategoryElite, CategoryPremium}
}

func (c PlanCategory) Valid() bool {
	switch c {
	case CategoryBasic, CategoryElite, CategoryPremium:
		return true
	}
	return false
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (PlanCategory, error) {
	for _, c := range AllCategories() {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown plan category %q (expected Basic, Elite or Premium)", s)
}

type ClientType string

const (
	ClientPerson   ClientType = "person"
	ClientBusiness ClientType = "business"
)

func (c ClientType) Valid() bool {
	return c == ClientPerson || c == ClientBusiness
}

type Role string

const (
	RoleClient   Role = "client"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// ActsForClients reports whether the role registers policies on behalf of
// another user.
func (r Role) ActsForClients() bool {
	return r == RoleEmployee || r == RoleAdmin
}

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

type ConstructionType string

const (
	ConstructionBrick    ConstructionType = "brick"
	ConstructionConcrete ConstructionType = "concrete"
	ConstructionWood     ConstructionType = "wood"
	ConstructionMixed    ConstructionType = "mixed"
)

func AllConstructionTypes() []ConstructionType {
	return []ConstructionType{ConstructionBrick, ConstructionConcrete, ConstructionWood, ConstructionMixed}
}

func (c ConstructionType) Valid() bool {
	switch c {
	case ConstructionBrick, ConstructionConcrete, ConstructionWood, ConstructionMixed:
		return true
	}
	return false
}

type TheftRisk string

const (
	TheftRiskLow    TheftRisk = "low"
	TheftRiskMedium TheftRisk = "medium"
	TheftRiskHigh   TheftRisk = "high"
)

func AllTheftRisks() []TheftRisk {
	return []TheftRisk{TheftRiskLow, TheftRiskMedium, TheftRiskHigh}
}

func (r TheftRisk) Valid() bool {
	switch r {
	case TheftRiskLow, TheftRiskMedium, TheftRiskHigh:
		return true
	}
	return false
}

type CouponStatus string

const (
	CouponPending    CouponStatus = "pending"
	CouponProcessing CouponStatus = "processing"
	CouponPaid       CouponStatus = "paid"
	CouponExpired    CouponStatus = "expired"
	CouponCancelled  CouponStatus = "cancelled"
)

type PaymentPeriod string

const (
	PeriodMonthly   PaymentPeriod = "monthly"
	PeriodQuarterly PaymentPeriod = "quarterly"
	PeriodAnnual    PaymentPeriod = "annual"
)

type PaymentMethod string

const (
	MethodDebitCard        PaymentMethod = "debit_card"
	MethodCreditCard       PaymentMethod = "credit_card"
	MethodQRCode           PaymentMethod = "qr_code"
	MethodExternalPlatform PaymentMethod = "external_platform"
	MethodCash             PaymentMethod = "cash"
)

type EventType string

const (
	EventSubscribed EventType = "subscribed"
	EventActivated  EventType = "activated"
	EventSuspended  EventType = "suspended"
	EventReinstated EventType = "reinstated"
	EventCancelled  EventType = "cancelled"
	EventExpired    EventType = "expired"
	EventRenewed    EventType = "renewed"
	EventClaimFiled EventType = "claim_filed"
)

// ValidEventTypes is the canonical set of accepted event type strings.
var ValidEventTypes = map[EventType]bool{
	EventSubscribed: true, EventActivated: true, EventSuspended: true,
	EventReinstated: true, EventCancelled: true, EventExpired: true,
	EventRenewed: true, EventClaimFiled: true,
}

type EventStatus string

const (
	EventStatusPending    EventStatus = "pending"
	EventStatusInProgress EventStatus = "in_progress"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusFailed     EventStatus = "failed"
	EventStatusCancelled  EventStatus = "cancelled"
)

type AuthAction string

const (
	AuthLogin              AuthAction = "login"
	AuthLogout             AuthAction = "logout"
	AuthLoginFailed        AuthAction = "login_failed"
	AuthPasswordReset      AuthAction = "password_reset"
	AuthAccountCreated     AuthAction = "account_created"
	AuthAccountDeactivated AuthAction = "account_deactivated"
	AuthAccountActivated   AuthAction = "account_activated"
)
