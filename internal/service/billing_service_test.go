package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/payment"
	"github.com/alexanderramin/insurer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCheckout records checkout requests and serves canned payments.
type fakeCheckout struct {
	mu        sync.Mutex
	requests  []payment.CheckoutRequest
	payments  map[string]*payment.Payment
	createErr error
}

func (f *fakeCheckout) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.requests = append(f.requests, req)
	return &payment.Checkout{ID: "pref-1", RedirectURL: "https://checkout.example/pay/" + req.CouponCode}, nil
}

func (f *fakeCheckout) GetPayment(_ context.Context, id string) (*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, payment.ErrRejected
	}
	return p, nil
}

type billingFixture struct {
	st       *testStack
	owner    *domain.User
	catalog  map[domain.PlanCategory]*domain.PlanDefinition
	policies []*domain.ContractedPolicy
	coupons  *couponService
	checkout *fakeCheckout
	payments PaymentService
}

var couponIssued = time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	ctx := context.Background()
	st := newTestStack(t)
	f := &billingFixture{st: st, owner: st.seedUser(t, "Lucia"), catalog: st.seedCatalog(t)}

	for _, tc := range []struct {
		cat     domain.PlanCategory
		dom     domain.InsuranceDomain
		premium int64
	}{
		{domain.CategoryElite, domain.DomainVehicle, 1500},
		{domain.CategoryBasic, domain.DomainHome, 600},
	} {
		p := testutil.NewTestPolicy(f.owner.ID, f.catalog[tc.cat].ID, tc.dom, testutil.WithPremium(domain.MoneyFromUnits(tc.premium)))
		require.NoError(t, st.policies.Create(ctx, p))
		f.policies = append(f.policies, p)
	}

	uow := testutil.NewTestUoW(st.db)
	f.coupons = NewCouponService(st.coupons, uow).(*couponService)
	f.coupons.now = func() time.Time { return couponIssued }
	f.coupons.suffix = func() string { return "a7" }
	f.checkout = &fakeCheckout{payments: make(map[string]*payment.Payment)}
	f.payments = NewPaymentService(st.coupons, st.policies, st.plans, f.checkout, uow)
	return f
}

func (f *billingFixture) policyIDs() []string {
	ids := make([]string, len(f.policies))
	for i, p := range f.policies {
		ids[i] = p.ID
	}
	return ids
}

func TestCouponService_Generate(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)

	c, err := f.coupons.Generate(ctx, f.owner.ID, f.policyIDs())
	require.NoError(t, err)
	assert.Equal(t, "CUP-20250301-A7", c.Code)
	assert.Equal(t, domain.MoneyFromUnits(2100), c.Amount)
	assert.Equal(t, domain.CouponProcessing, c.Status)
	assert.Equal(t, domain.PeriodMonthly, c.Period)
	assert.Equal(t, "2025-03-16", c.DueDate.Format(time.DateOnly))

	got, err := f.coupons.Get(ctx, "cup-20250301-a7")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.ElementsMatch(t, f.policyIDs(), got.PolicyIDs)

	list, err := f.coupons.ListByOwner(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCouponService_CodeCollisionRetries(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)

	_, err := f.coupons.Generate(ctx, f.owner.ID, f.policyIDs()[:1])
	require.NoError(t, err)

	suffixes := []string{"A7", "A7", "B2"}
	f.coupons.suffix = func() string {
		s := suffixes[0]
		suffixes = suffixes[1:]
		return s
	}
	c, err := f.coupons.Generate(ctx, f.owner.ID, f.policyIDs()[1:])
	require.NoError(t, err)
	assert.Equal(t, "CUP-20250301-B2", c.Code)
	assert.Empty(t, suffixes)
}

func TestCouponService_GenerateRejects(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	stranger := f.st.seedUser(t, "Marcos")

	_, err := f.coupons.Generate(ctx, f.owner.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	id := f.policies[0].ID
	_, err = f.coupons.Generate(ctx, f.owner.ID, []string{id, id})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.coupons.Generate(ctx, stranger.ID, []string{id})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.coupons.Generate(ctx, f.owner.ID, []string{"missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 0, f.st.countRows(t, "payment_coupons"))
}

func TestPaymentService_CheckoutAndConfirm(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)

	c, err := f.coupons.Generate(ctx, f.owner.ID, f.policyIDs())
	require.NoError(t, err)

	res, err := f.payments.Checkout(ctx, f.owner.ID, c.Code)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/pay/"+c.Code, res.RedirectURL)

	require.Len(t, f.checkout.requests, 1)
	req := f.checkout.requests[0]
	assert.Equal(t, c.Amount, req.Amount)
	assert.Equal(t, []payment.LineItem{
		{PolicyID: f.policies[0].ID, Title: "Plan Elite (vehicle)", UnitPrice: domain.MoneyFromUnits(1500)},
		{PolicyID: f.policies[1].ID, Title: "Plan Basic (home)", UnitPrice: domain.MoneyFromUnits(600)},
	}, req.Items)

	f.checkout.payments["ext-1"] = &payment.Payment{
		ID:         "ext-1",
		Status:     payment.StatusApproved,
		CouponCode: c.Code,
		Amount:     c.Amount,
	}
	conf, err := f.payments.Confirm(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, 2, conf.Recorded)
	assert.False(t, conf.AlreadyRecorded)

	stored, err := f.st.coupons.GetByCode(ctx, c.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.CouponPaid, stored.Status)

	again, err := f.payments.Confirm(ctx, "ext-1")
	require.NoError(t, err)
	assert.True(t, again.AlreadyRecorded)
	assert.Equal(t, 0, again.Recorded)
	assert.Equal(t, 2, f.st.countRows(t, "payments"))

	_, err = f.payments.Checkout(ctx, f.owner.ID, c.Code)
	assert.ErrorIs(t, err, domain.ErrConflict)

	subs, err := NewPolicyService(f.st.policies, f.st.plans, f.st.payments).Subscriptions(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	for _, s := range subs {
		assert.True(t, s.Paid, s.PolicyID)
	}
}

func TestPaymentService_ConfirmUsesMetadataItems(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)

	c, err := f.coupons.Generate(ctx, f.owner.ID, f.policyIDs())
	require.NoError(t, err)

	f.checkout.payments["ext-2"] = &payment.Payment{
		ID:         "ext-2",
		Status:     payment.StatusApproved,
		CouponCode: c.Code,
		Items:      []payment.PaidItem{{PolicyID: f.policies[1].ID, Amount: domain.MoneyFromUnits(600)}},
	}
	conf, err := f.payments.Confirm(ctx, "ext-2")
	require.NoError(t, err)
	assert.Equal(t, 1, conf.Recorded)

	paid, err := f.st.payments.IsPolicyPaid(ctx, f.policies[1].ID)
	require.NoError(t, err)
	assert.True(t, paid)
	paid, err = f.st.payments.IsPolicyPaid(ctx, f.policies[0].ID)
	require.NoError(t, err)
	assert.False(t, paid)

	f.checkout.payments["ext-3"] = &payment.Payment{
		ID:         "ext-3",
		Status:     payment.StatusApproved,
		CouponCode: c.Code,
		Items:      []payment.PaidItem{{PolicyID: "not-on-coupon", Amount: 1}},
	}
	_, err = f.payments.Confirm(ctx, "ext-3")
	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
}

func TestPaymentService_ConfirmPendingRecordsNothing(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)

	c, err := f.coupons.Generate(ctx, f.owner.ID, f.policyIDs())
	require.NoError(t, err)

	f.checkout.payments["ext-4"] = &payment.Payment{ID: "ext-4", Status: payment.StatusPending, CouponCode: c.Code}
	conf, err := f.payments.Confirm(ctx, "ext-4")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, conf.Status)
	assert.Equal(t, 0, conf.Recorded)
	assert.Equal(t, 0, f.st.countRows(t, "payments"))

	_, err = f.payments.Confirm(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrPaymentFailed)

	f.checkout.payments["ext-5"] = &payment.Payment{ID: "ext-5", Status: payment.StatusApproved}
	_, err = f.payments.Confirm(ctx, "ext-5")
	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
}

func TestPaymentService_CheckoutRejects(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	stranger := f.st.seedUser(t, "Marcos")

	c, err := f.coupons.Generate(ctx, f.owner.ID, f.policyIDs())
	require.NoError(t, err)

	_, err = f.payments.Checkout(ctx, stranger.ID, c.Code)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.payments.Checkout(ctx, f.owner.ID, "CUP-19990101-ZZ")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.checkout.createErr = payment.ErrTimeout
	_, err = f.payments.Checkout(ctx, f.owner.ID, c.Code)
	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
	assert.ErrorIs(t, err, payment.ErrTimeout)
}
