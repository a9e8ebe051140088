package quote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/pricing"
	"github.com/alexanderramin/insurer/internal/service"
	"github.com/alexanderramin/insurer/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCatalog struct {
	mu     sync.Mutex
	prices domain.BasePrices
	err    error
	calls  int
}

func (c *fakeCatalog) BasePrices(context.Context) (domain.BasePrices, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.prices, nil
}

type fakeRegistrar struct {
	mu       sync.Mutex
	requests []service.RegistrationRequest
	err      error
	// entered and release, when set, block Register until release is closed.
	entered chan struct{}
	release chan struct{}
}

func (r *fakeRegistrar) Register(ctx context.Context, req service.RegistrationRequest) (*service.Registration, error) {
	if r.entered != nil {
		close(r.entered)
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.requests = append(r.requests, req)
	return &service.Registration{
		PolicyID:     "policy-" + req.RequestID,
		PolicyNumber: int64(100000 + len(r.requests)),
		Premium:      domain.MoneyFromUnits(1500),
	}, nil
}

type fakeClients map[string]*domain.User

func (c fakeClients) Get(_ context.Context, id string) (*domain.User, error) {
	u, ok := c[id]
	if !ok {
		return nil, domain.NewError(domain.CodeNotFound, "user not found")
	}
	return u, nil
}

func defaultPrices() domain.BasePrices {
	return domain.BasePrices{
		domain.CategoryBasic:   domain.MoneyFromUnits(500),
		domain.CategoryElite:   domain.MoneyFromUnits(1000),
		domain.CategoryPremium: domain.MoneyFromUnits(1500),
	}
}

func defaultResolver(t *testing.T) pricing.Resolver {
	t.Helper()
	r, err := pricing.NewStaticResolver(pricing.DefaultRates())
	require.NoError(t, err)
	return r
}

func newClientSession(t *testing.T, reg *fakeRegistrar) *Session {
	t.Helper()
	s, err := New(context.Background(), Config{
		Catalog:   &fakeCatalog{prices: defaultPrices()},
		Resolver:  defaultResolver(t),
		Registrar: reg,
		Actor:     &domain.Actor{ID: "client-1", Role: domain.RoleClient},
	})
	require.NoError(t, err)
	return s
}

// advanceToReview walks a client session to StepReviewAndConfirm.
func advanceToReview(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.SelectDomain(domain.DomainVehicle))
	require.NoError(t, s.SubmitUnderwritingData(testutil.ValidVehicleData(), domain.ClientPerson))
	require.NoError(t, s.SelectPlan(domain.CategoryElite))
	require.Equal(t, StepReviewAndConfirm, s.Step())
}

func TestSession_ClientFlowVehicleElite(t *testing.T) {
	reg := &fakeRegistrar{}
	s := newClientSession(t, reg)
	assert.Equal(t, FlowClient, s.Flow())
	assert.Equal(t, StepSelectDomain, s.Step())
	assert.Nil(t, s.Quotes())

	require.NoError(t, s.SelectDomain(domain.DomainVehicle))
	assert.Equal(t, StepSupplyUnderwritingData, s.Step())
	assert.Equal(t, []pricing.Quote{
		{Category: domain.CategoryBasic, Base: domain.MoneyFromUnits(500), Premium: domain.MoneyFromUnits(750)},
		{Category: domain.CategoryElite, Base: domain.MoneyFromUnits(1000), Premium: domain.MoneyFromUnits(1500)},
		{Category: domain.CategoryPremium, Base: domain.MoneyFromUnits(1500), Premium: domain.MoneyFromUnits(2250)},
	}, s.Quotes())

	require.NoError(t, s.SubmitUnderwritingData(testutil.ValidVehicleData(), ""))
	require.NoError(t, s.SelectPlan(domain.CategoryElite))

	snap := s.Snapshot()
	assert.Equal(t, StepReviewAndConfirm, snap.Step)
	assert.Equal(t, domain.MoneyFromUnits(1500), snap.Draft.Premium)
	assert.Equal(t, domain.ClientPerson, snap.Draft.ClientType)
	assert.NotEmpty(t, snap.Draft.RequestID)

	got, err := s.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepRegistered, s.Step())
	assert.Equal(t, got.PolicyID, s.Snapshot().Draft.PolicyID)

	require.Len(t, reg.requests, 1)
	req := reg.requests[0]
	assert.Equal(t, "client-1", req.ActorID)
	assert.Empty(t, req.OwnerID)
	assert.Equal(t, domain.DomainVehicle, req.Domain)
	assert.Equal(t, domain.CategoryElite, req.Category)
	assert.Equal(t, snap.Draft.RequestID, req.RequestID)
}

func TestSession_SecondConfirmIsRejected(t *testing.T) {
	reg := &fakeRegistrar{}
	s := newClientSession(t, reg)
	advanceToReview(t, s)

	_, err := s.Confirm(context.Background())
	require.NoError(t, err)
	_, err = s.Confirm(context.Background())
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	assert.ErrorIs(t, s.SelectDomain(domain.DomainHome), domain.ErrAlreadyRegistered)
	assert.ErrorIs(t, s.Back(), domain.ErrAlreadyRegistered)
	assert.Len(t, reg.requests, 1)

	// Reset starts a new draft with a new request id.
	before := s.Snapshot().Draft.RequestID
	require.NoError(t, s.Reset(context.Background()))
	assert.Equal(t, StepSelectDomain, s.Step())
	assert.NotEqual(t, before, s.Snapshot().Draft.RequestID)
	assert.Empty(t, s.Snapshot().Draft.PolicyID)
}

func TestSession_ConfirmFailureKeepsDraft(t *testing.T) {
	reg := &fakeRegistrar{err: domain.WrapError(domain.CodePersistence, "creating policy", errors.New("disk I/O error"))}
	s := newClientSession(t, reg)
	advanceToReview(t, s)
	before := s.Snapshot()

	_, err := s.Confirm(context.Background())
	assert.Same(t, reg.err, err)
	if diff := cmp.Diff(before, s.Snapshot(), cmp.AllowUnexported(pricing.Rate{})); diff != "" {
		t.Errorf("snapshot changed after failed confirm (-before +after):\n%s", diff)
	}

	// Retry succeeds without re-entering anything.
	reg.err = nil
	_, err = s.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.Draft.RequestID, reg.requests[0].RequestID)
}

func TestSession_StepOrderIsEnforced(t *testing.T) {
	s := newClientSession(t, &fakeRegistrar{})

	assert.ErrorIs(t, s.SubmitUnderwritingData(testutil.ValidHomeData(), ""), domain.ErrInvalidTransition)
	assert.ErrorIs(t, s.SelectPlan(domain.CategoryBasic), domain.ErrInvalidTransition)
	_, err := s.Confirm(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.ErrorIs(t, s.SelectClient(context.Background(), "x"), domain.ErrInvalidTransition)
	assert.Equal(t, StepSelectDomain, s.Step())
}

func TestSession_TransitionValidation(t *testing.T) {
	s := newClientSession(t, &fakeRegistrar{})

	assert.ErrorIs(t, s.SelectDomain(""), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.SelectDomain("boat"), domain.ErrInvalidInput)
	assert.Equal(t, StepSelectDomain, s.Step())

	require.NoError(t, s.SelectDomain(domain.DomainHome))
	before := s.Snapshot()

	noCity := testutil.ValidHomeData()
	noCity.City = ""
	assert.ErrorIs(t, s.SubmitUnderwritingData(noCity, ""), domain.ErrInvalidUnderwritingData)
	assert.ErrorIs(t, s.SubmitUnderwritingData(testutil.ValidVehicleData(), ""), domain.ErrInvalidUnderwritingData)
	assert.ErrorIs(t, s.SubmitUnderwritingData(nil, ""), domain.ErrInvalidUnderwritingData)
	home := testutil.ValidHomeData()
	assert.ErrorIs(t, s.SubmitUnderwritingData(&home, ""), domain.ErrInvalidUnderwritingData)
	assert.ErrorIs(t, s.SubmitUnderwritingData(testutil.ValidHomeData(), "charity"), domain.ErrInvalidInput)
	assert.Equal(t, before, s.Snapshot())

	require.NoError(t, s.SubmitUnderwritingData(testutil.ValidHomeData(), domain.ClientBusiness))
	before = s.Snapshot()
	assert.ErrorIs(t, s.SelectPlan("Gold"), domain.ErrUnknownPlan)
	assert.Equal(t, before, s.Snapshot())
}

func TestSession_UnsetMultiplier(t *testing.T) {
	lifeOnly, err := pricing.NewStaticResolver(map[domain.InsuranceDomain]float64{domain.DomainLife: 1})
	require.NoError(t, err)
	s, err := New(context.Background(), Config{
		Catalog:   &fakeCatalog{prices: defaultPrices()},
		Resolver:  lifeOnly,
		Registrar: &fakeRegistrar{},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, s.SelectDomain(domain.DomainHome), domain.ErrInvalidInput)
	assert.Equal(t, StepSelectDomain, s.Step())
	require.NoError(t, s.SelectDomain(domain.DomainLife))
}

func TestSession_RiskAwareResolver(t *testing.T) {
	risky := pricing.ResolverFunc(func(dom domain.InsuranceDomain, data domain.Underwriting) pricing.Rate {
		if v, ok := data.(domain.VehicleData); ok && v.TheftRisk == domain.TheftRiskHigh {
			return pricing.Resolved(2.0)
		}
		return pricing.Resolved(1.5)
	})
	s, err := New(context.Background(), Config{
		Catalog:   &fakeCatalog{prices: defaultPrices()},
		Resolver:  risky,
		Registrar: &fakeRegistrar{},
	})
	require.NoError(t, err)

	require.NoError(t, s.SelectDomain(domain.DomainVehicle))
	data := testutil.ValidVehicleData()
	data.TheftRisk = domain.TheftRiskHigh
	require.NoError(t, s.SubmitUnderwritingData(data, ""))
	require.NoError(t, s.SelectPlan(domain.CategoryElite))
	assert.Equal(t, domain.MoneyFromUnits(2000), s.Snapshot().Draft.Premium)
}

func TestSession_BackPreservesData(t *testing.T) {
	s := newClientSession(t, &fakeRegistrar{})
	advanceToReview(t, s)

	require.NoError(t, s.Back())
	assert.Equal(t, StepSelectPlan, s.Step())
	require.NoError(t, s.Back())
	assert.Equal(t, StepSupplyUnderwritingData, s.Step())
	require.NoError(t, s.Back())
	assert.Equal(t, StepSelectDomain, s.Step())
	require.NoError(t, s.Back())
	assert.Equal(t, StepSelectDomain, s.Step())

	d := s.Snapshot().Draft
	assert.Equal(t, testutil.ValidVehicleData(), d.Underwriting)
	assert.Equal(t, domain.CategoryElite, d.Category)

	// Same domain again keeps the data entered for it.
	require.NoError(t, s.SelectDomain(domain.DomainVehicle))
	assert.Equal(t, testutil.ValidVehicleData(), s.Snapshot().Draft.Underwriting)

	// A different domain drops it.
	require.NoError(t, s.Back())
	require.NoError(t, s.SelectDomain(domain.DomainHome))
	d = s.Snapshot().Draft
	assert.Nil(t, d.Underwriting)
	assert.Zero(t, d.Premium)
	v, _ := d.Rate.Value()
	assert.InDelta(t, 1.2, v, 1e-9)
}

func TestSession_SnapshotIsDetached(t *testing.T) {
	s := newClientSession(t, &fakeRegistrar{})
	advanceToReview(t, s)
	want := s.Snapshot()

	snap := s.Snapshot()
	snap.Prices[domain.CategoryElite] = 1
	snap.Draft.Category = domain.CategoryBasic
	data := snap.Draft.Underwriting.(domain.VehicleData)
	data.Model = "changed"
	snap.Draft.Underwriting = data

	assert.Equal(t, want, s.Snapshot())
}

func TestSession_ResetReloadsCatalog(t *testing.T) {
	catalog := &fakeCatalog{prices: defaultPrices()}
	s, err := New(context.Background(), Config{
		Catalog:   catalog,
		Resolver:  defaultResolver(t),
		Registrar: &fakeRegistrar{},
	})
	require.NoError(t, err)
	require.NoError(t, s.SelectDomain(domain.DomainLife))

	catalog.mu.Lock()
	catalog.prices = domain.BasePrices{domain.CategoryBasic: domain.MoneyFromUnits(450)}
	catalog.mu.Unlock()

	require.NoError(t, s.Reset(context.Background()))
	assert.Equal(t, 2, catalog.calls)
	snap := s.Snapshot()
	assert.Equal(t, StepSelectDomain, snap.Step)
	assert.Equal(t, domain.BasePrices{domain.CategoryBasic: domain.MoneyFromUnits(450)}, snap.Prices)
	assert.Empty(t, snap.Draft.Domain)

	// A failed reload leaves everything in place.
	require.NoError(t, s.SelectDomain(domain.DomainHome))
	before := s.Snapshot()
	catalog.mu.Lock()
	catalog.err = errors.New("connection refused")
	catalog.mu.Unlock()

	err = s.Reset(context.Background())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, before, s.Snapshot())
}

func TestNew_CatalogFailures(t *testing.T) {
	cfg := func(c Catalog) Config {
		return Config{Catalog: c, Resolver: defaultResolver(t), Registrar: &fakeRegistrar{}}
	}

	_, err := New(context.Background(), cfg(&fakeCatalog{prices: domain.BasePrices{}}))
	assert.ErrorIs(t, err, domain.ErrEmptyCatalog)

	_, err = New(context.Background(), cfg(&fakeCatalog{err: domain.ErrEmptyCatalog}))
	assert.ErrorIs(t, err, domain.ErrEmptyCatalog)

	_, err = New(context.Background(), cfg(&fakeCatalog{err: context.DeadlineExceeded}))
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "timed out")

	_, err = New(context.Background(), Config{Catalog: &fakeCatalog{prices: defaultPrices()}})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{
		Catalog:   &fakeCatalog{prices: defaultPrices()},
		Resolver:  defaultResolver(t),
		Registrar: &fakeRegistrar{},
		Actor:     &domain.Actor{ID: "emp", Role: domain.RoleEmployee},
	})
	assert.Error(t, err, "employee flow without a client directory")
}

func TestSession_EmployeeFlow(t *testing.T) {
	clients := fakeClients{
		"c1":    testutil.NewTestUser("Lucia"),
		"gone":  testutil.NewTestUser("Gone", testutil.WithUserStatus(domain.UserInactive)),
		"staff": testutil.NewTestUser("Ana", testutil.WithRole(domain.RoleEmployee)),
	}
	clients["c1"].ID = "c1"
	reg := &fakeRegistrar{}
	s, err := New(context.Background(), Config{
		Catalog:   &fakeCatalog{prices: defaultPrices()},
		Resolver:  defaultResolver(t),
		Registrar: reg,
		Clients:   clients,
		Actor:     &domain.Actor{ID: "emp-1", Role: domain.RoleEmployee},
	})
	require.NoError(t, err)
	assert.Equal(t, FlowEmployee, s.Flow())

	require.NoError(t, s.SelectDomain(domain.DomainHome))
	assert.Equal(t, StepSelectClient, s.Step())

	ctx := context.Background()
	assert.ErrorIs(t, s.SelectClient(ctx, "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, s.SelectClient(ctx, "gone"), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.SelectClient(ctx, "staff"), domain.ErrInvalidInput)
	assert.Equal(t, StepSelectClient, s.Step())

	require.NoError(t, s.SelectClient(ctx, "c1"))
	assert.Equal(t, "Lucia", s.Snapshot().Draft.ClientName)

	// Missing city is rejected locally; the wizard stays put.
	noCity := testutil.ValidHomeData()
	noCity.City = ""
	assert.ErrorIs(t, s.SubmitUnderwritingData(noCity, ""), domain.ErrInvalidUnderwritingData)
	assert.Equal(t, StepSupplyUnderwritingData, s.Step())

	require.NoError(t, s.Back())
	assert.Equal(t, StepSelectClient, s.Step())
	require.NoError(t, s.SelectClient(ctx, "c1"))

	require.NoError(t, s.SubmitUnderwritingData(testutil.ValidHomeData(), domain.ClientBusiness))
	require.NoError(t, s.SelectPlan(domain.CategoryBasic))
	assert.Equal(t, domain.MoneyFromUnits(600), s.Snapshot().Draft.Premium)

	_, err = s.Confirm(ctx)
	require.NoError(t, err)
	require.Len(t, reg.requests, 1)
	assert.Equal(t, "emp-1", reg.requests[0].ActorID)
	assert.Equal(t, "c1", reg.requests[0].OwnerID)
	assert.Equal(t, domain.ClientBusiness, reg.requests[0].ClientType)
}

func TestSession_ConcurrentTransitionIsRejected(t *testing.T) {
	reg := &fakeRegistrar{entered: make(chan struct{}), release: make(chan struct{})}
	s := newClientSession(t, reg)
	advanceToReview(t, s)

	var wg sync.WaitGroup
	var confirmErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, confirmErr = s.Confirm(context.Background())
	}()
	<-reg.entered

	_, err := s.Confirm(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransitionInFlight)
	assert.ErrorIs(t, s.Back(), domain.ErrTransitionInFlight)
	assert.ErrorIs(t, s.Reset(context.Background()), domain.ErrTransitionInFlight)
	// Reads are not blocked by the running transition.
	assert.Equal(t, StepReviewAndConfirm, s.Snapshot().Step)

	close(reg.release)
	wg.Wait()
	require.NoError(t, confirmErr)
	assert.Equal(t, StepRegistered, s.Step())
	assert.Len(t, reg.requests, 1)
}

func TestSession_ConfirmTimesOut(t *testing.T) {
	reg := &fakeRegistrar{entered: make(chan struct{}), release: make(chan struct{})}
	s, err := New(context.Background(), Config{
		Catalog:   &fakeCatalog{prices: defaultPrices()},
		Resolver:  defaultResolver(t),
		Registrar: reg,
		Actor:     &domain.Actor{ID: "client-1", Role: domain.RoleClient},
		Timeout:   20 * time.Millisecond,
	})
	require.NoError(t, err)
	advanceToReview(t, s)

	_, err = s.Confirm(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StepReviewAndConfirm, s.Step())
}

func TestStepNames(t *testing.T) {
	assert.Equal(t, "review-and-confirm", StepReviewAndConfirm.String())
	assert.Equal(t, "unknown", Step(42).String())
	assert.Equal(t, "employee", FlowEmployee.String())
	assert.Len(t, FlowClient.Steps(), 5)
	assert.Len(t, FlowEmployee.Steps(), 6)
}
