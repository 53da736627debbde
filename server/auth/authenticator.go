// Package auth resolves the caller identity of assistant requests from
// HS256 bearer tokens.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// Issuer is the issuer of access tokens minted by coworkr.
	Issuer = "coworkr"
	// DevCallerHeader names the caller directly when no secret is configured.
	DevCallerHeader = "X-Caller-ID"
)

var (
	// ErrMissingToken is returned when the Authorization header is absent.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned for malformed, expired, or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid access token")
)

// Claims are the access token claims. The subject is the caller id, which is
// also the caller's team member id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator validates access tokens.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// NewAuthenticator creates an authenticator. An empty secret puts it in
// development mode, where the caller is taken from DevCallerHeader.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// DevMode reports whether tokens are bypassed.
func (a *Authenticator) DevMode() bool {
	return len(a.secret) == 0
}

// Authenticate returns the caller id carried by an "Authorization: Bearer" header.
func (a *Authenticator) Authenticate(authHeader string) (*Claims, error) {
	token, ok := extractBearer(authHeader)
	if !ok {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, errors.Wrap(ErrInvalidToken, errorText(err))
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.Wrap(ErrInvalidToken, "empty subject")
	}
	return claims, nil
}

// GenerateAccessToken signs a token for caller valid for ttl.
func (a *Authenticator) GenerateAccessToken(caller, name string, ttl time.Duration) (string, error) {
	if a.DevMode() {
		return "", errors.New("no signing secret configured")
	}
	now := a.now()
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   caller,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return signed, nil
}

func extractBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func errorText(err error) string {
	if err == nil {
		return "token not valid"
	}
	return err.Error()
}

type callerKey struct{}

// WithCaller stores the authenticated caller id in ctx.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller id stored by WithCaller.
func CallerFromContext(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(callerKey{}).(string)
	return caller, ok && caller != ""
}
