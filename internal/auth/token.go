package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/auth-service/internal/domain"
)

// Token validation failures. The middleware collapses all three to
// "anonymous"; they are distinguished only for logging and tests.
var (
	ErrMalformed        = errors.New("token malformed")
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
)

// TokenManager issues and validates RS256-signed JWTs.
type TokenManager struct {
	keys   *KeyMaterial
	issuer string
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(keys *KeyMaterial, issuer string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{keys: keys, issuer: issuer, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Claims describes the JWT payload. Scope is the space-joined list of the
// subject's role names at issuance time.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Issue builds and signs a token for the user, valid from now for the
// configured TTL. Role names are sorted before joining so the scope string
// is reproducible for a given role set.
func (tm *TokenManager) Issue(user *domain.User, now time.Time) (string, time.Time, error) {
	if tm.keys == nil || tm.keys.Private == nil {
		return "", time.Time{}, ErrSigningUnavailable
	}

	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Scope: strings.Join(user.RoleNames(), " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(tm.keys.Private)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses the token, verifies its signature against the public key
// and checks expiry against now. A token is expired once now >= exp; there
// is no clock-skew allowance. The operation is pure: it never consults the
// identity store.
func (tm *TokenManager) Validate(tokenStr string, now time.Time) (*Identity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return tm.keys.Public, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSignature
	}

	scopes := make(map[string]struct{})
	for _, scope := range strings.Fields(claims.Scope) {
		scopes[scope] = struct{}{}
	}
	return &Identity{SubjectID: claims.Subject, Scopes: scopes}, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
