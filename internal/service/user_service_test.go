package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/insurer/internal/auth"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(st *testStack) UserService {
	return NewUserService(st.users, st.audit, testutil.NewTestUoW(st.db), bcrypt.MinCost)
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	st := newTestStack(t)
	svc := newUserService(st)

	u, err := svc.Register(ctx, NewUser{Name: " Lucia Perez ", Email: "Lucia@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Lucia Perez", u.Name)
	assert.Equal(t, "lucia@example.com", u.Email)
	assert.Equal(t, domain.RoleClient, u.Role)
	assert.True(t, auth.CheckPassword(u.PasswordHash, "secret1"))

	logged, err := svc.Login(ctx, "LUCIA@example.com", "secret1", "laptop")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	require.NotNil(t, logged.LastLoginAt)

	stored, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	events, err := svc.RecentSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.AuthLogin, events[0].Action)
	assert.Equal(t, "laptop", events[0].Host)
	assert.Equal(t, domain.AuthAccountCreated, events[1].Action)
}

func TestUserService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	st := newTestStack(t)
	svc := newUserService(st)

	_, err := svc.Register(ctx, NewUser{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	cases := []struct {
		name string
		in   NewUser
		want error
	}{
		{"no name", NewUser{Email: "x@example.com", Password: "secret1"}, domain.ErrInvalidInput},
		{"bad email", NewUser{Name: "X", Email: "not-an-email", Password: "secret1"}, domain.ErrInvalidInput},
		{"short password", NewUser{Name: "X", Email: "x@example.com", Password: "abc"}, domain.ErrInvalidInput},
		{"bad role", NewUser{Name: "X", Email: "x@example.com", Password: "secret1", Role: "root"}, domain.ErrInvalidInput},
		{"duplicate email", NewUser{Name: "Ana 2", Email: "ANA@example.com", Password: "secret1"}, domain.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, 1, st.countRows(t, "users"))
}

func TestUserService_FailedLoginsAreAudited(t *testing.T) {
	ctx := context.Background()
	st := newTestStack(t)
	svc := newUserService(st)

	active, err := svc.Register(ctx, NewUser{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	inactive, err := svc.Register(ctx, NewUser{Name: "Bea", Email: "bea@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, svc.SetStatus(ctx, inactive.ID, domain.UserInactive))

	cases := []struct {
		email, password string
		reason          string
		userID          string
	}{
		{"nobody@example.com", "secret1", "user_not_found", ""},
		{"bea@example.com", "secret1", "account_inactive", inactive.ID},
		{"ana@example.com", "wrong-pass", "invalid_password", active.ID},
	}
	for _, tc := range cases {
		_, err := svc.Login(ctx, tc.email, tc.password, "kiosk")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated, tc.reason)

		events, err := svc.RecentSessions(ctx, 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.AuthLoginFailed, events[0].Action)
		assert.Equal(t, tc.reason, events[0].Reason)
		assert.Equal(t, tc.userID, events[0].UserID)
		assert.Equal(t, tc.email, events[0].Email)
	}
}

func TestUserService_SetStatusAndMetrics(t *testing.T) {
	ctx := context.Background()
	st := newTestStack(t)
	svc := newUserService(st)

	client := st.seedUser(t, "Lucia")
	st.seedUser(t, "Marcos")
	st.seedUser(t, "Ana", testutil.WithRole(domain.RoleEmployee))
	st.seedUser(t, "Root", testutil.WithRole(domain.RoleAdmin))

	require.NoError(t, svc.SetStatus(ctx, client.ID, domain.UserInactive))
	// Unchanged status writes nothing.
	require.NoError(t, svc.SetStatus(ctx, client.ID, domain.UserInactive))
	assert.Equal(t, 1, st.countRows(t, "auth_events"))

	assert.ErrorIs(t, svc.SetStatus(ctx, client.ID, "banned"), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.SetStatus(ctx, "missing", domain.UserActive), domain.ErrNotFound)

	m, err := svc.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.UserMetrics{
		Total:    4,
		Active:   3,
		Inactive: 1,
		ByRole: map[domain.Role]int{
			domain.RoleClient:   1,
			domain.RoleEmployee: 1,
			domain.RoleAdmin:    1,
		},
	}, m)

	clients, err := svc.List(ctx, domain.RoleClient)
	require.NoError(t, err)
	assert.Len(t, clients, 2)
	_, err = svc.List(ctx, "root")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUserService_RecordLogout(t *testing.T) {
	ctx := context.Background()
	st := newTestStack(t)
	svc := newUserService(st)
	u := st.seedUser(t, "Lucia")

	require.NoError(t, svc.RecordLogout(ctx, u.ID, "laptop"))
	events, err := svc.RecentSessions(ctx, 5)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.AuthLogout, events[0].Action)

	assert.ErrorIs(t, svc.RecordLogout(ctx, "missing", "laptop"), domain.ErrNotFound)

	found, err := svc.FindByEmail(ctx, " "+u.Email+" ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}
