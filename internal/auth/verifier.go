// Package auth verifies the bearer tokens that guard route generation.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Modes.
const (
	ModeNone = "none"
	ModeHMAC = "hmac"
)

// Roles allowed to generate and clear routes.
const (
	RoleAdmin      = "admin"
	RoleDispatcher = "dispatcher"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("dispatcher or admin role required")
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Principal struct {
	Subject string
	Role    string
}

// CanDispatch reports whether p may change the current route.
func (p Principal) CanDispatch() bool {
	return p.Role == RoleAdmin || p.Role == RoleDispatcher
}

// Verifier validates HS256 tokens. In ModeNone every request is an admin,
// which matches a dashboard run on a trusted network.
type Verifier struct {
	Mode   string
	secret []byte
	now    func() time.Time
}

func NewVerifier(mode, secret string) (*Verifier, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "", ModeNone:
		return &Verifier{Mode: ModeNone, now: time.Now}, nil
	case ModeHMAC:
		if secret == "" {
			return nil, errors.New("auth: hmac mode requires a secret")
		}
		return &Verifier{Mode: ModeHMAC, secret: []byte(secret), now: time.Now}, nil
	}
	return nil, fmt.Errorf("auth: unknown mode %q", mode)
}

// Verify parses a raw token, with or without the "Bearer " prefix.
func (v *Verifier) Verify(token string) (Principal, error) {
	if v == nil || v.Mode == ModeNone {
		return Principal{Subject: "anonymous", Role: RoleAdmin}, nil
	}
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return Principal{}, ErrMissingToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Principal{Subject: claims.Subject, Role: claims.Role}, nil
}

// FromRequest verifies the Authorization header of r.
func (v *Verifier) FromRequest(r *http.Request) (Principal, error) {
	return v.Verify(r.Header.Get("Authorization"))
}

// Issue signs a token for subject and role; used by tooling and tests.
func (v *Verifier) Issue(subject, role string, ttl time.Duration) (string, error) {
	if v == nil || v.Mode != ModeHMAC {
		return "", errors.New("auth: tokens are only issued in hmac mode")
	}
	now := v.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
