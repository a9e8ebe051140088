package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "insurer"

// Claims are the validated contents of a session token.
type Claims struct {
	UserID    string
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for u valid for the configured ttl.
func (t *Tokens) Issue(u *domain.User) (string, error) {
	now := t.now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Role: string(u.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of token.
func (t *Tokens) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, domain.NewError(domain.CodeUnauthenticated, "session token is empty")
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if parsed.Subject == "" {
		return Claims{}, domain.NewError(domain.CodeUnauthenticated, "session token has no subject")
	}

	claims := Claims{
		UserID:    parsed.Subject,
		Role:      domain.Role(parsed.Role),
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// ErrSessionExpired is wrapped by Verify's error for a well-formed token past
// its expiry.
var ErrSessionExpired = errors.New("session expired")

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.WrapError(domain.CodeUnauthenticated, "session rejected", ErrSessionExpired)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.WrapError(domain.CodeUnauthenticated, "session token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.WrapError(domain.CodeUnauthenticated, "session token is malformed", err)
	default:
		return domain.WrapError(domain.CodeUnauthenticated, "session token rejected", err)
	}
}
