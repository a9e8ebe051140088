package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/pricing"
	"github.com/alexanderramin/insurer/internal/repository"
	"github.com/alexanderramin/insurer/internal/testutil"
	"github.com/stretchr/testify/require"
)

// testStack is an in-memory database with every repository wired to it.
type testStack struct {
	db       *sql.DB
	users    *repository.SQLiteUserRepo
	audit    *repository.SQLiteAuthEventRepo
	plans    *repository.SQLitePlanRepo
	policies *repository.SQLitePolicyRepo
	coupons  *repository.SQLiteCouponRepo
	payments *repository.SQLitePaymentRepo
	events   *repository.SQLiteEventRepo
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	database := testutil.NewTestDB(t)
	return &testStack{
		db:       database,
		users:    repository.NewSQLiteUserRepo(database),
		audit:    repository.NewSQLiteAuthEventRepo(database),
		plans:    repository.NewSQLitePlanRepo(database),
		policies: repository.NewSQLitePolicyRepo(database),
		coupons:  repository.NewSQLiteCouponRepo(database),
		payments: repository.NewSQLitePaymentRepo(database),
		events:   repository.NewSQLiteEventRepo(database),
	}
}

func (s *testStack) seedCatalog(t *testing.T) map[domain.PlanCategory]*domain.PlanDefinition {
	t.Helper()
	out := make(map[domain.PlanCategory]*domain.PlanDefinition)
	for _, p := range testutil.DefaultCatalog() {
		require.NoError(t, s.plans.Create(context.Background(), p))
		out[p.Category] = p
	}
	return out
}

func (s *testStack) seedUser(t *testing.T, name string, opts ...testutil.UserOption) *domain.User {
	t.Helper()
	u := testutil.NewTestUser(name, opts...)
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *testStack) registrationService(t *testing.T) RegistrationService {
	t.Helper()
	resolver, err := pricing.NewStaticResolver(pricing.DefaultRates())
	require.NoError(t, err)
	return NewRegistrationService(s.policies, testutil.NewTestUoW(s.db), resolver, nil)
}

func (s *testStack) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}
