// Package auth issues signed session cookies and keeps the server-side
// session table they point at.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"signups/internal/domain/authsession"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

const issuer = "signups"

// Claims is the signed payload of a session cookie. The JWT ID is the
// server-side session token, so revoking the session revokes the cookie.
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Recovery  bool   `json:"recovery,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates session cookies with HS256.
type JWTManager struct {
	secretKey []byte
}

// NewJWTManager creates a manager with the given signing secret.
func NewJWTManager(secretKey string) *JWTManager {
	return &JWTManager{secretKey: []byte(secretKey)}
}

// Generate signs a cookie value for s. The cookie expires with the session.
func (m *JWTManager) Generate(s authsession.Session) (string, error) {
	claims := &Claims{
		AccountID: s.AccountID,
		Email:     s.Email,
		Recovery:  s.Recovery,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.Token,
			Issuer:    issuer,
			Subject:   s.AccountID,
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			NotBefore: jwt.NewNumericDate(s.CreatedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses a cookie value and returns its claims.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
