package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/repository"
)

// UserLookup is the slice of the user store the provider needs.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Provider answers "who is acting" from the stored session token.
type Provider struct {
	tokens *Tokens
	store  TokenStore
	users  UserLookup
}

func NewProvider(tokens *Tokens, store TokenStore, users UserLookup) *Provider {
	return &Provider{tokens: tokens, store: store, users: users}
}

// CurrentUser returns the acting user, or nil when there is no session, the
// session expired, or the account was removed or deactivated since login.
// The role comes from the stored account, not the token.
func (p *Provider) CurrentUser(ctx context.Context) (*domain.Actor, error) {
	token, err := p.store.Load()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}
	claims, err := p.tokens.Verify(token)
	if errors.Is(err, ErrSessionExpired) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u, err := p.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session user: %w", err)
	}
	if !u.Active() {
		return nil, nil
	}
	return &domain.Actor{ID: u.ID, Role: u.Role}, nil
}

// Require returns the acting user when their role is one of roles. No roles
// means any authenticated user.
func (p *Provider) Require(ctx context.Context, roles ...domain.Role) (*domain.Actor, error) {
	actor, err := p.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, domain.NewError(domain.CodeUnauthenticated, "not logged in (run `insurer login`)")
	}
	if len(roles) > 0 && !slices.Contains(roles, actor.Role) {
		return nil, domain.NewError(domain.CodeForbidden, fmt.Sprintf("%s accounts cannot perform this action", actor.Role))
	}
	return actor, nil
}

// StartSession issues and stores a token for u.
func (p *Provider) StartSession(u *domain.User) error {
	token, err := p.tokens.Issue(u)
	if err != nil {
		return err
	}
	return p.store.Save(token)
}

// EndSession returns the user id of the stored session, if any, and removes
// it. An unreadable or expired token still gets cleared.
func (p *Provider) EndSession() (string, error) {
	token, err := p.store.Load()
	if err != nil {
		return "", err
	}
	var userID string
	if token != "" {
		if claims, verr := p.tokens.Verify(token); verr == nil {
			userID = claims.UserID
		}
	}
	return userID, p.store.Clear()
}
