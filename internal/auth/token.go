package auth

import (
	"fmt"
	"strings"
	"time"

	stderrors "errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	pkgerrors "github.com/honeynil/auth-service/pkg/errors"
)

// Claims is the payload carried by every access token: the account id,
// the username and the granted authorities, plus the registered claim
// set (jti is used as the revocation key).
type Claims struct {
	AccountID   int32    `json:"id"`
	Name        string   `json:"name"`
	Authorities []string `json:"authorities"`
	jwt.RegisteredClaims
}

// Identifier returns the unique token id used as the revocation key.
func (c *Claims) Identifier() string {
	return c.ID
}

// TokenManager mints and verifies HS256-signed access tokens.
type TokenManager struct {
	secret []byte
	// expireDays is the configured token lifetime. The value is in
	// days but is applied as an hour multiplier (expire * 24), same
	// as the backend this service replaced. Kept verbatim.
	expireDays int
}

func NewTokenManager(secret string, expireDays int) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	if expireDays <= 0 {
		return nil, fmt.Errorf("jwt expire must be positive, got %d", expireDays)
	}
	return &TokenManager{secret: []byte(secret), expireDays: expireDays}, nil
}

// Create signs a token for the given subject with a fresh random id.
func (m *TokenManager) Create(subject string, accountID int32, authorities []string) (string, error) {
	now := time.Now()
	claims := Claims{
		AccountID:   accountID,
		Name:        subject,
		Authorities: authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(m.ExpiresAt(now)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ExpiresAt computes the expiry for a token issued at now.
func (m *TokenManager) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(m.expireDays*24) * time.Hour)
}

// Verify checks structure, signature and expiry of a token string.
// It does not consult the revocation list; that is the caller's job.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithExpirationRequired())

	switch {
	case err == nil:
	case stderrors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, pkgerrors.ErrInvalidSignature
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return nil, pkgerrors.ErrTokenExpired
	default:
		return nil, pkgerrors.ErrTokenMalformed
	}

	// The library already validated exp, but the horizon is re-checked
	// here so a token that expired between parse and use is still
	// rejected.
	if claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		return nil, pkgerrors.ErrTokenExpired
	}
	return claims, nil
}

// ConvertToken strips the "Bearer " prefix from an Authorization header
// value. A missing or differently-schemed header is "no credential",
// not an error.
func ConvertToken(headerToken string) (string, bool) {
	if !strings.HasPrefix(headerToken, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(headerToken, "Bearer "), true
}
