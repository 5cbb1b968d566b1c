package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	v := NewVerifier("test-secret", time.Hour)

	tok, err := v.Issue("u1", "alice", true)
	require.NoError(t, err)

	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.True(t, p.IsAdmin)
	assert.WithinDuration(t, time.Now().Add(time.Hour), p.ExpiresAt, 5*time.Second)

	p, err = v.VerifyHeader("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)

	_, err = v.VerifyHeader("bearer " + tok)
	assert.NoError(t, err)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("test-secret", time.Hour)

	good, err := v.Issue("u1", "alice", false)
	require.NoError(t, err)

	expiredIssuer := NewVerifier("test-secret", time.Hour)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIssuer.Issue("u1", "alice", false)
	require.NoError(t, err)

	foreign, err := NewVerifier("other-secret", time.Hour).Issue("u1", "alice", false)
	require.NoError(t, err)

	hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "u1",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"empty":      "",
		"garbage":    "not.a.token",
		"expired":    expired,
		"wrong key":  foreign,
		"wrong alg":  hs384,
		"no expiry":  noExpiry,
		"no subject": noSubject,
		"tampered":   good + "A",
	}

	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(tok)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestVerifyHeaderRejects(t *testing.T) {
	v := NewVerifier("test-secret", time.Hour)
	tok, err := v.Issue("u1", "alice", false)
	require.NoError(t, err)

	for _, h := range []string{"", "Bearer", "Bearer ", tok, "Basic " + tok} {
		_, err := v.VerifyHeader(h)
		assert.ErrorIs(t, err, ErrUnauthenticated, h)
	}
}
