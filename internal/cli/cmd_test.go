package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/insurer/internal/auth"
	"github.com/alexanderramin/insurer/internal/cache"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/payment"
	"github.com/alexanderramin/insurer/internal/pricing"
	"github.com/alexanderramin/insurer/internal/repository"
	"github.com/alexanderramin/insurer/internal/service"
	"github.com/alexanderramin/insurer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-horse-1"

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string { return ansi.ReplaceAllString(s, "") }

// fakeCheckout serves canned payments in place of the hosted checkout.
type fakeCheckout struct {
	mu       sync.Mutex
	payments map[string]*payment.Payment
}

func (f *fakeCheckout) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
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

func (f *fakeCheckout) approve(id, coupon string, amount domain.Money) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[id] = &payment.Payment{ID: id, Status: payment.StatusApproved, CouponCode: coupon, Amount: amount}
}

type testEnv struct {
	app      *App
	checkout *fakeCheckout
}

func testApp(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	uow := testutil.NewLoggedTestUoW(t, database)

	users := repository.NewSQLiteUserRepo(database)
	plans := repository.NewSQLitePlanRepo(database)
	policies := repository.NewSQLitePolicyRepo(database)
	coupons := repository.NewSQLiteCouponRepo(database)
	for _, p := range testutil.DefaultCatalog() {
		require.NoError(t, plans.Create(ctx, p))
	}

	resolver, err := pricing.NewStaticResolver(pricing.DefaultRates())
	require.NoError(t, err)
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)
	store := auth.NewFileTokenStore(filepath.Join(t.TempDir(), "session"))
	checkout := &fakeCheckout{payments: map[string]*payment.Payment{}}

	app := &App{
		Users:        service.NewUserService(users, repository.NewSQLiteAuthEventRepo(database), uow, bcrypt.MinCost),
		Plans:        service.NewPlanService(plans, uow, service.PlanCacheConfig{Cache: cache.NewMemory(), TTL: time.Minute}, nil),
		Registration: service.NewRegistrationService(policies, uow, resolver, nil),
		Policies:     service.NewPolicyService(policies, plans, repository.NewSQLitePaymentRepo(database)),
		Coupons:      service.NewCouponService(coupons, uow),
		Payments:     service.NewPaymentService(coupons, policies, plans, checkout, uow),
		Events:       service.NewEventService(repository.NewSQLiteEventRepo(database), policies),
		Auth:         auth.NewProvider(tokens, store, users),
		Resolver:     resolver,
		Timeout:      5 * time.Second,
		OrphanGrace:  5 * time.Minute,
		Host:         "test-host",
	}
	return &testEnv{app: app, checkout: checkout}
}

// executeCmd runs the CLI with args and returns what it printed.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func (e *testEnv) signup(t *testing.T, name, email string, role domain.Role) *domain.User {
	t.Helper()
	u, err := e.app.Users.Register(context.Background(), service.NewUser{
		Name:     name,
		Email:    email,
		Password: testPassword,
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) login(t *testing.T, email string) {
	t.Helper()
	_, err := executeCmd(t, e.app, "login", "--email", email, "--password", testPassword)
	require.NoError(t, err)
}

func (e *testEnv) quoteVehicleElite(t *testing.T) string {
	t.Helper()
	out, err := executeCmd(t, e.app, "quote",
		"--domain", "vehicle", "--plan", "elite",
		"--year", "2020", "--model", "Fiat Cronos", "--theft-risk", "low")
	require.NoError(t, err)
	return stripANSI(out)
}

func (e *testEnv) quoteHomeBasic(t *testing.T) string {
	t.Helper()
	out, err := executeCmd(t, e.app, "quote",
		"--domain", "home", "--plan", "basic",
		"--construction", "concrete", "--building-age", "15",
		"--city", "Córdoba", "--neighborhood", "Centro")
	require.NoError(t, err)
	return stripANSI(out)
}

func TestLoginWhoAmILogout(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)

	out, err := executeCmd(t, env.app, "login", "--email", "LUCIA@example.com", "--password", testPassword)
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "Logged in as Lucia Paz (client)")

	out, err = executeCmd(t, env.app, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "lucia@example.com")

	out, err = executeCmd(t, env.app, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")

	_, err = executeCmd(t, env.app, "whoami")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	out, err = executeCmd(t, env.app, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "No active session.")
}

func TestLogin_WrongPassword(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)

	_, err := executeCmd(t, env.app, "login", "--email", "lucia@example.com", "--password", "not-the-password")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = executeCmd(t, env.app, "whoami")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestLogin_PasswordRequiredOutsideTerminal(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "login", "--email", "lucia@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password is required")
}

func TestRegisterCmd_CreatesClientSession(t *testing.T) {
	env := testApp(t)
	out, err := executeCmd(t, env.app, "register", "--name", "Lucia Paz", "--email", "lucia@example.com", "--password", testPassword)
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "Welcome, Lucia Paz")

	actor, err := env.app.Auth.Require(context.Background(), domain.RoleClient)
	require.NoError(t, err)
	u, err := env.app.Users.Get(context.Background(), actor.ID)
	require.NoError(t, err)
	assert.Equal(t, "lucia@example.com", u.Email)

	_, err = executeCmd(t, env.app, "register", "--name", "Other", "--email", "lucia@example.com", "--password", testPassword)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestQuoteCmd_PreviewNeedsNoLogin(t *testing.T) {
	env := testApp(t)
	out, err := executeCmd(t, env.app, "quote", "--domain", "home", "--preview")
	require.NoError(t, err)
	out = stripANSI(out)
	assert.Contains(t, out, "$600.00")
	assert.Contains(t, out, "$1,200.00")
	assert.Contains(t, out, "$1,800.00")
	assert.Contains(t, out, "multiplier 1.2")
}

func TestQuoteCmd_RejectsUnknownDomain(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "quote", "--domain", "boat", "--preview")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown insurance domain")
}

func TestQuoteCmd_RequiresLogin(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "quote", "--domain", "vehicle", "--plan", "elite")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestQuoteCmd_NonInteractiveNeedsFlags(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)
	env.login(t, "lucia@example.com")

	_, err := executeCmd(t, env.app, "quote")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--domain and --plan are required")

	_, err = executeCmd(t, env.app, "quote", "--domain", "vehicle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be given together")
}

func TestQuoteCmd_ClientRegistersVehiclePolicy(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)
	env.login(t, "lucia@example.com")

	out := env.quoteVehicleElite(t)
	assert.Contains(t, out, "Policy registered")
	assert.Contains(t, out, "#100001")
	assert.Contains(t, out, "$1,500.00")

	out, err := executeCmd(t, env.app, "policy", "list")
	require.NoError(t, err)
	out = stripANSI(out)
	assert.Contains(t, out, "#100001")
	assert.Contains(t, out, "Due")

	out, err = executeCmd(t, env.app, "policy", "show", "#100001")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "Fiat Cronos")
}

func TestQuoteCmd_InvalidDataRegistersNothing(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)
	env.login(t, "lucia@example.com")

	_, err := executeCmd(t, env.app, "quote", "--domain", "home", "--plan", "basic", "--construction", "brick")
	assert.ErrorIs(t, err, domain.ErrInvalidUnderwritingData)

	out, err := executeCmd(t, env.app, "policy", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No policies yet")
}

func TestQuoteCmd_ClientCannotNameAnotherClient(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)
	env.signup(t, "Tomas Vera", "tomas@example.com", domain.RoleClient)
	env.login(t, "lucia@example.com")

	_, err := executeCmd(t, env.app, "quote",
		"--domain", "vehicle", "--plan", "elite", "--client", "tomas@example.com",
		"--year", "2020", "--model", "Fiat Cronos", "--theft-risk", "low")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestQuoteCmd_EmployeeRegistersForClient(t *testing.T) {
	env := testApp(t)
	client := env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)
	env.signup(t, "Ana Ruiz", "ana@example.com", domain.RoleEmployee)
	env.login(t, "ana@example.com")

	_, err := executeCmd(t, env.app, "quote", "--domain", "home", "--plan", "premium")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--client is required")

	out, err := executeCmd(t, env.app, "quote",
		"--domain", "home", "--plan", "premium", "--client", "lucia@example.com", "--client-type", "business",
		"--construction", "concrete", "--building-age", "15", "--city", "Córdoba", "--neighborhood", "Centro")
	require.NoError(t, err)
	out = stripANSI(out)
	assert.Contains(t, out, "$1,800.00")

	subs, err := env.app.Policies.Subscriptions(context.Background(), client.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, domain.MoneyFromUnits(1800), subs[0].Amount)

	out, err = executeCmd(t, env.app, "policy", "list", "--client", "lucia@example.com")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "#100001")
}

func TestPlanCmds_AdminManagesCatalog(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Root", "root@example.com", domain.RoleAdmin)
	env.login(t, "root@example.com")

	_, err := executeCmd(t, env.app, "plan", "add", "--category", "elite", "--base-price", "1200")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = executeCmd(t, env.app, "plan", "deactivate", "elite")
	require.NoError(t, err)

	out, err := executeCmd(t, env.app, "plan", "add",
		"--category", "elite", "--base-price", "1200.50",
		"--benefit", "Roadside assistance", "--benefit", "Replacement car",
		"--desc-vehicle", "Full vehicle cover")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "Created Elite plan")

	out, err = executeCmd(t, env.app, "plan", "list")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "$1,200.50")

	out, err = executeCmd(t, env.app, "plan", "show", "elite")
	require.NoError(t, err)
	out = stripANSI(out)
	assert.Contains(t, out, "Roadside assistance")
	assert.Contains(t, out, "Full vehicle cover")

	out, err = executeCmd(t, env.app, "quote", "--domain", "vehicle", "--preview")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "$1,800.75")
}

func TestPlanCmds_ClientsCannotEdit(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)
	env.login(t, "lucia@example.com")

	out, err := executeCmd(t, env.app, "plan", "list")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "Premium")

	_, err = executeCmd(t, env.app, "plan", "add", "--category", "basic", "--base-price", "10")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = executeCmd(t, env.app, "plan", "list", "--all")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPlanImportCmd(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Root", "root@example.com", domain.RoleAdmin)
	env.login(t, "root@example.com")

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
plans:
  - category: Basic
    base_price: 550
    benefits: ["24h assistance"]
`), 0o600))

	out, err := executeCmd(t, env.app, "plan", "import", path)
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "1 updated")

	prices, err := env.app.Plans.BasePrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.MoneyFromUnits(550), prices[domain.CategoryBasic])

	_, err = executeCmd(t, env.app, "plan", "import", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestCouponAndPaymentFlow(t *testing.T) {
	ctx := context.Background()
	env := testApp(t)
	client := env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)
	env.login(t, "lucia@example.com")
	env.quoteVehicleElite(t)
	env.quoteHomeBasic(t)

	out, err := executeCmd(t, env.app, "coupon", "generate")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "$2,100.00")

	coupons, err := env.app.Coupons.ListByOwner(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	code := coupons[0].Code

	out, err = executeCmd(t, env.app, "pay", "checkout", code)
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "https://checkout.example/pay/"+code)

	env.checkout.approve("PAY-1", code, domain.MoneyFromUnits(2100))
	out, err = executeCmd(t, env.app, "pay", "confirm", "PAY-1")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "Payment PAY-1 recorded for 2 policies")

	out, err = executeCmd(t, env.app, "pay", "confirm", "PAY-1")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "was already recorded")

	out, err = executeCmd(t, env.app, "policy", "list")
	require.NoError(t, err)
	assert.NotContains(t, stripANSI(out), "Due")

	out, err = executeCmd(t, env.app, "coupon", "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "Every policy is paid.")
}

func TestCouponShow_HidesOtherClientsCoupons(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)
	env.signup(t, "Tomas Vera", "tomas@example.com", domain.RoleClient)
	env.login(t, "lucia@example.com")
	env.quoteVehicleElite(t)
	_, err := executeCmd(t, env.app, "coupon", "generate", "100001")
	require.NoError(t, err)

	env.login(t, "tomas@example.com")
	lucia, err := env.app.Users.FindByEmail(context.Background(), "lucia@example.com")
	require.NoError(t, err)
	coupons, err := env.app.Coupons.ListByOwner(context.Background(), lucia.ID)
	require.NoError(t, err)
	require.Len(t, coupons, 1)

	_, err = executeCmd(t, env.app, "coupon", "show", coupons[0].Code)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEventCmds_FileAndAdvance(t *testing.T) {
	ctx := context.Background()
	env := testApp(t)
	env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)
	env.signup(t, "Ana Ruiz", "ana@example.com", domain.RoleEmployee)
	env.login(t, "lucia@example.com")
	env.quoteVehicleElite(t)

	out, err := executeCmd(t, env.app, "event", "file", "100001", "--description", "Windshield broken")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "Filed Claim filed event")

	_, err = executeCmd(t, env.app, "event", "list")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	env.login(t, "ana@example.com")
	out, err = executeCmd(t, env.app, "event", "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "Claim filed")

	events, err := env.app.Events.List(ctx, domain.EventStatusPending)
	require.NoError(t, err)
	require.Len(t, events, 1)

	out, err = executeCmd(t, env.app, "event", "advance", events[0].ID, "in_progress")
	require.NoError(t, err)
	out = stripANSI(out)
	assert.Contains(t, out, "In progress")
	assert.Contains(t, out, "Windshield broken")

	_, err = executeCmd(t, env.app, "event", "advance", events[0].ID, "exploded")
	require.Error(t, err)

	env.login(t, "lucia@example.com")
	out, err = executeCmd(t, env.app, "event", "history", "#100001")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "In progress")
}

func TestUserCmds_AdminManagesAccounts(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Root", "root@example.com", domain.RoleAdmin)
	env.signup(t, "Lucia Paz", "lucia@example.com", domain.RoleClient)
	env.login(t, "root@example.com")

	out, err := executeCmd(t, env.app, "user", "add", "--name", "Ana Ruiz", "--email", "ana@example.com", "--password", testPassword)
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "Created employee account for ana@example.com")

	out, err = executeCmd(t, env.app, "user", "list", "--role", "client")
	require.NoError(t, err)
	out = stripANSI(out)
	assert.Contains(t, out, "lucia@example.com")
	assert.NotContains(t, out, "ana@example.com")

	_, err = executeCmd(t, env.app, "user", "deactivate", "root@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "your own account")

	out, err = executeCmd(t, env.app, "user", "deactivate", "lucia@example.com")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "lucia@example.com is now inactive")

	_, err = executeCmd(t, env.app, "login", "--email", "lucia@example.com", "--password", testPassword)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	env.login(t, "root@example.com")
	out, err = executeCmd(t, env.app, "user", "metrics")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "Inactive")

	out, err = executeCmd(t, env.app, "user", "sessions", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, stripANSI(out), "Login failed")

	_, err = executeCmd(t, env.app, "user", "sessions", "--limit", "0")
	require.Error(t, err)
}

func TestUserCmds_AdminOnly(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Ana Ruiz", "ana@example.com", domain.RoleEmployee)
	env.login(t, "ana@example.com")

	_, err := executeCmd(t, env.app, "user", "list")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = executeCmd(t, env.app, "reconcile")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestReconcileCmd_NothingToRemove(t *testing.T) {
	env := testApp(t)
	env.signup(t, "Root", "root@example.com", domain.RoleAdmin)
	env.login(t, "root@example.com")

	out, err := executeCmd(t, env.app, "reconcile", "--older-than", "1m")
	require.NoError(t, err)
	assert.Contains(t, out, "No orphaned policies found.")
}

func TestFormatError_AddsRetryHint(t *testing.T) {
	retryable := domain.WrapError(domain.CodeDataUnavailable, "loading plan catalog", context.DeadlineExceeded)
	assert.Contains(t, stripANSI(FormatError(retryable)), "Error: loading plan catalog")
	assert.Contains(t, stripANSI(FormatError(retryable)), "try again")
	assert.NotContains(t, stripANSI(FormatError(domain.ErrForbidden)), "try again")
}
