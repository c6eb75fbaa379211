package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION TOKENS
// The login stub signs an HS256 token carrying the profile's identity and
// role. Requests are authorised from the claims alone; the profile table is
// only read where the payload needs more than the actor.
// ══════════════════════════════════════════════════════════════════════════════

var (
	errMissingToken = shared.NewDomainError("auth", "Authenticate", shared.ErrUnauthorized, "missing bearer token")
	errInvalidToken = shared.NewDomainError("auth", "Authenticate", shared.ErrUnauthorized, "invalid or expired token")
)

// Claims are the session token claims.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenConfig configures TokenIssuer.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenIssuer creates a new TokenIssuer.
func NewTokenIssuer(config TokenConfig) (*TokenIssuer, error) {
	if len(config.Secret) == 0 {
		return nil, errors.New("auth: token secret is empty")
	}
	if config.TTL <= 0 {
		config.TTL = 12 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "aegis-portal"
	}
	return &TokenIssuer{config: config, now: time.Now}, nil
}

// Issue signs a token for u and returns it with its expiry.
func (t *TokenIssuer) Issue(u *profile.User) (string, time.Time, error) {
	now := t.now().UTC()
	expires := now.Add(t.config.TTL)

	claims := Claims{
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    t.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token and returns the actor it names.
func (t *TokenIssuer) Parse(token string) (profile.Actor, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.config.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return profile.Actor{}, errInvalidToken
	}
	if !claims.VerifyIssuer(t.config.Issuer, true) || claims.Subject == "" {
		return profile.Actor{}, errInvalidToken
	}

	role, err := profile.ParseRole(claims.Role)
	if err != nil {
		return profile.Actor{}, errInvalidToken
	}
	return profile.Actor{ID: claims.Subject, Name: claims.Name, Email: claims.Email, Role: role}, nil
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, error) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errMissingToken
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}
