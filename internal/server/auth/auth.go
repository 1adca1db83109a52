// Package auth issues and verifies the HS256 access tokens accepted by the
// dev stream server. The token subject names the user whose stream the
// connection receives.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// DefaultIssuer is the iss claim of issued tokens.
const DefaultIssuer = "sarral-scan"

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Verifier checks a raw token.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Issuer signs and verifies tokens with a shared secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A non-positive ttl selects
// constants.DefaultTokenTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.NewConfigError("auth", "jwt secret not configured", nil)
	}
	if ttl <= 0 {
		ttl = constants.DefaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), issuer: DefaultIssuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for subject.
func (i *Issuer) Issue(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.NewValidationError("subject", subject, "subject is required")
	}
	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    i.issuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, errors.NewAuthenticationError(subject, "jwt", "signing failed", err)
	}
	return signed, expiresAt, nil
}

// Verify parses token, which may carry a "Bearer " prefix.
func (i *Issuer) Verify(token string) (Claims, error) {
	token = credentials.Normalize(token)
	if token == "" {
		return Claims{}, errors.NewAuthenticationError("", "jwt", "token is missing", errors.ErrNoCredential)
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return Claims{}, errors.NewAuthenticationError("", "jwt", "could not validate credentials", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Claims{}, errors.NewAuthenticationError("", "jwt", "token has no subject", nil)
	}

	return claimsOf(claims), nil
}

// Inspect decodes token without checking its signature or expiry. It is
// meant for showing what a stored token contains, never for access checks.
func Inspect(token string) (Claims, error) {
	token = credentials.Normalize(token)
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, errors.NewParseError("jwt", "token", "malformed token", err)
	}
	return claimsOf(claims), nil
}

func claimsOf(claims jwt.RegisteredClaims) Claims {
	out := Claims{Subject: claims.Subject, ID: claims.ID}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out
}

type userKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userKey{}).(string)
	return user, ok && user != ""
}
