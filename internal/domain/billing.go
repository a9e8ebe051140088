package domain

import "time"

// Coupon is a payable invoice covering one or more policies.
type Coupon struct {
	ID        string
	Code      string
	OwnerID   string
	Amount    Money
	Period    PaymentPeriod
	Status    CouponStatus
	IssueDate time.Time
	DueDate   time.Time
	PolicyIDs []string
}

// Payment records money received against one policy of a coupon.
type Payment struct {
	ID         string
	CouponID   string
	PolicyID   string
	ExternalID string
	Amount     Money
	Method     PaymentMethod
	PaidAt     time.Time
}
