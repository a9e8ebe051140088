package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/insurer/internal/auth"
	"github.com/alexanderramin/insurer/internal/db"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/repository"
	"github.com/google/uuid"
)

// Reasons recorded on login_failed audit rows.
const (
	reasonUserNotFound    = "user_not_found"
	reasonAccountInactive = "account_inactive"
	reasonInvalidPassword = "invalid_password"
)

type userService struct {
	users      repository.UserRepo
	audit      repository.AuthEventRepo
	uow        db.UnitOfWork
	bcryptCost int
	observer   UseCaseObserver
}

func NewUserService(
	users repository.UserRepo,
	audit repository.AuthEventRepo,
	uow db.UnitOfWork,
	bcryptCost int,
	observers ...UseCaseObserver,
) UserService {
	return &userService{
		users:      users,
		audit:      audit,
		uow:        uow,
		bcryptCost: bcryptCost,
		observer:   useCaseObserverOrNoop(observers),
	}
}

func (s *userService) Register(ctx context.Context, in NewUser) (u *domain.User, err error) {
	ctx, run := startUseCase(ctx, "register-user")
	defer func() { run.end(ctx, s.observer, err) }()

	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := in.Role
	if role == "" {
		role = domain.RoleClient
	}
	run.set("role", string(role))

	switch {
	case name == "":
		return nil, domain.NewError(domain.CodeInvalidInput, "name is required")
	case !auth.ValidEmail(email):
		return nil, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("%q is not a valid email address", in.Email))
	case !role.Valid():
		return nil, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("unknown role %q", in.Role))
	}
	if err = auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u = &domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := repository.NewSQLiteUserRepo(tx).Create(ctx, u); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return domain.WrapError(domain.CodeConflict, fmt.Sprintf("an account for %s already exists", email), err)
			}
			return persistenceErr("creating user", err)
		}
		return persistenceErr("writing audit log", repository.NewSQLiteAuthEventRepo(tx).Append(ctx, &domain.AuthEvent{
			UserID:    u.ID,
			Email:     u.Email,
			Action:    domain.AuthAccountCreated,
			CreatedAt: now,
		}))
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials and records the attempt either way. Every
// failure surfaces as Unauthenticated with the same message; the audit row
// keeps the real reason.
func (s *userService) Login(ctx context.Context, email, password, host string) (u *domain.User, err error) {
	ctx, run := startUseCase(ctx, "login")
	defer func() { run.end(ctx, s.observer, err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now().UTC()

	u, err = s.users.GetByEmail(ctx, email)
	reason := ""
	switch {
	case errors.Is(err, repository.ErrNotFound):
		reason = reasonUserNotFound
		u = nil
	case err != nil:
		return nil, persistenceErr("reading user", err)
	case !u.Active():
		reason = reasonAccountInactive
	case !auth.CheckPassword(u.PasswordHash, password):
		reason = reasonInvalidPassword
	}

	if reason != "" {
		run.set("reason", reason)
		event := &domain.AuthEvent{Email: email, Action: domain.AuthLoginFailed, Reason: reason, Host: host, CreatedAt: now}
		if u != nil {
			event.UserID = u.ID
		}
		if aerr := s.audit.Append(ctx, event); aerr != nil {
			return nil, persistenceErr("writing audit log", aerr)
		}
		if reason == reasonAccountInactive {
			return nil, domain.NewError(domain.CodeUnauthenticated, "account is inactive")
		}
		return nil, domain.NewError(domain.CodeUnauthenticated, "invalid email or password")
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := repository.NewSQLiteUserRepo(tx).TouchLogin(ctx, u.ID, now); err != nil {
			return persistenceErr("recording login", err)
		}
		return persistenceErr("writing audit log", repository.NewSQLiteAuthEventRepo(tx).Append(ctx, &domain.AuthEvent{
			UserID:    u.ID,
			Email:     u.Email,
			Action:    domain.AuthLogin,
			Host:      host,
			CreatedAt: now,
		}))
	})
	if err != nil {
		return nil, err
	}
	u.LastLoginAt = &now
	return u, nil
}

func (s *userService) RecordLogout(ctx context.Context, userID, host string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFoundOr("user "+userID, err)
	}
	return persistenceErr("writing audit log", s.audit.Append(ctx, &domain.AuthEvent{
		UserID:    u.ID,
		Email:     u.Email,
		Action:    domain.AuthLogout,
		Host:      host,
		CreatedAt: time.Now().UTC(),
	}))
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr("user "+id, err)
	}
	return u, nil
}

func (s *userService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, notFoundOr("user "+email, err)
	}
	return u, nil
}

func (s *userService) List(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	if role != "" && !role.Valid() {
		return nil, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("unknown role %q", role))
	}
	users, err := s.users.List(ctx, role)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataUnavailable, "listing users", err)
	}
	return users, nil
}

func (s *userService) SetStatus(ctx context.Context, id string, status domain.UserStatus) (err error) {
	ctx, run := startUseCase(ctx, "set-user-status")
	defer func() { run.end(ctx, s.observer, err) }()
	run.set("user_id", id)
	run.set("status", string(status))

	var action domain.AuthAction
	switch status {
	case domain.UserActive:
		action = domain.AuthAccountActivated
	case domain.UserInactive:
		action = domain.AuthAccountDeactivated
	default:
		return domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("unknown user status %q", status))
	}

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		users := repository.NewSQLiteUserRepo(tx)
		u, err := users.GetByID(ctx, id)
		if err != nil {
			return notFoundOr("user "+id, err)
		}
		if u.Status == status {
			return nil
		}
		if err := users.UpdateStatus(ctx, id, status); err != nil {
			return persistenceErr("updating user status", err)
		}
		return persistenceErr("writing audit log", repository.NewSQLiteAuthEventRepo(tx).Append(ctx, &domain.AuthEvent{
			UserID:    u.ID,
			Email:     u.Email,
			Action:    action,
			CreatedAt: time.Now().UTC(),
		}))
	})
}

func (s *userService) Metrics(ctx context.Context) (*domain.UserMetrics, error) {
	counts, err := s.users.CountByRoleAndStatus(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataUnavailable, "counting users", err)
	}
	m := &domain.UserMetrics{ByRole: make(map[domain.Role]int)}
	for role, byStatus := range counts {
		for status, n := range byStatus {
			m.Total += n
			switch status {
			case domain.UserActive:
				m.Active += n
				m.ByRole[role] += n
			case domain.UserInactive:
				m.Inactive += n
			}
		}
	}
	return m, nil
}

func (s *userService) RecentSessions(ctx context.Context, limit int) ([]domain.AuthEvent, error) {
	events, err := s.audit.ListRecent(ctx, limit)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataUnavailable, "reading audit log", err)
	}
	return events, nil
}
