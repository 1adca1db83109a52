package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

func TestIssueAndVerify(t *testing.T) {
	iss, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	token, exp, err := iss.Issue("alice@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	claims, err = iss.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
}

func TestVerifyRejects(t *testing.T) {
	iss, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.Issue("mallory")
	require.NoError(t, err)

	expired := &Issuer{secret: []byte("secret"), issuer: DefaultIssuer, ttl: time.Minute,
		now: func() time.Time { return time.Now().Add(-time.Hour) }}
	stale, _, err := expired.Issue("bob")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "eve"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"bearer only":  "Bearer ",
		"garbage":      "not-a-jwt",
		"wrong secret": foreign,
		"expired":      stale,
		"alg none":     unsigned,
		"missing sub":  noSubject,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Verify(token)
			require.Error(t, err)
			assert.True(t, errors.IsUnauthorized(err))
		})
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	require.Error(t, err)

	iss, err := NewIssuer("s", 0)
	require.NoError(t, err)
	_, _, err = iss.Issue("")
	assert.True(t, errors.IsValidationError(err))
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	user, ok := UserFromContext(WithUser(context.Background(), "alice"))
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
}

func TestInspect(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	token, exp, err := issuer.Issue("carol")
	require.NoError(t, err)

	other, err := NewIssuer("another-secret", time.Hour)
	require.NoError(t, err)
	_, err = other.Verify(token)
	require.Error(t, err)

	claims, err := Inspect("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "carol", claims.Subject)
	assert.WithinDuration(t, exp, claims.ExpiresAt, time.Second)

	_, err = Inspect("not-a-jwt")
	assert.True(t, errors.IsValidationError(err))
}
