package domain

import "time"

// ContractedPolicy is the parent record of a registered policy. Exactly one
// domain detail row shares its ID.
type ContractedPolicy struct {
	ID           string
	PolicyNumber int64
	OwnerID      string
	PlanID       string
	Domain       InsuranceDomain
	ClientType   ClientType
	Premium      Money
	RequestID    string
	CreatedByID  string
	CreatedAt    time.Time
}

// PolicyDetails is a policy together with its domain record and plan.
type PolicyDetails struct {
	Policy       ContractedPolicy
	Category     PlanCategory
	Underwriting Underwriting
}

// Subscription is a policy as seen on the owner's billing page.
type Subscription struct {
	PolicyID     string
	PolicyNumber int64
	Domain       InsuranceDomain
	Category     PlanCategory
	Amount       Money
	Paid         bool
}
