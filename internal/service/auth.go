// Package service contains the authorization gated resource lifecycle:
// credential verification, privilege checks, files, chat and admin queries.
package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the identity extracted from a verified credential. IsAdmin is the
// claim embedded at issuance and is advisory only, authorization goes through
// PrivilegeGate.
type Principal struct {
	ID        string
	Username  string
	IsAdmin   bool
	ExpiresAt time.Time
}

type claims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Verifier issues and validates HS256 bearer tokens. It holds no state besides
// the secret.
type Verifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a new token for the given user
func (v *Verifier) Issue(userID, username string, isAdmin bool) (string, error) {
	now := v.now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	})

	s, err := t.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token, %w", err)
	}

	return s, nil
}

// Verify parses a raw token string. Missing, malformed, badly signed and
// expired tokens all fail with ErrUnauthenticated.
func (v *Verifier) Verify(raw string) (*Principal, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	var c claims

	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return v.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	if !token.Valid || c.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	return &Principal{
		ID:        c.Subject,
		Username:  c.Username,
		IsAdmin:   c.IsAdmin,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// VerifyHeader extracts the token from an "Authorization: Bearer <token>" header
func (v *Verifier) VerifyHeader(header string) (*Principal, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}

	return v.Verify(strings.TrimSpace(token))
}
