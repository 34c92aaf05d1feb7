package token

import (
	"errors"
	"time"

	domain "accounts/backend/internal/domain/identity"
	usecase "accounts/backend/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// Reset tokens carry a fixed one-hour validity.
const resetTokenExpiry = time.Hour

const (
	purposeSession = "session"
	purposeReset   = "reset"
)

// JWTManager issues and validates HS256 JWT tokens.
type JWTManager struct {
	secret        []byte
	sessionExpiry time.Duration
	issuer        string
}

// NewJWTManager constructs a manager with the provided secret and session
// expiry.
func NewJWTManager(secret string, sessionExpiry time.Duration, issuer string) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		sessionExpiry: sessionExpiry,
		issuer:        issuer,
	}
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Claims represents token claims. Purpose distinguishes session tokens from
// reset tokens so the two are not interchangeable.
type Claims struct {
	IdentityID string `json:"uid"`
	Purpose    string `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateSession creates a signed session token containing the identity id.
func (m *JWTManager) GenerateSession(identityID string) (string, error) {
	return m.generate(identityID, purposeSession, m.sessionExpiry)
}

// GenerateReset creates a signed reset token with a fixed one-hour expiry and
// returns that expiry so callers can mirror it in storage.
func (m *JWTManager) GenerateReset(identityID string) (string, time.Time, error) {
	token, err := m.generate(identityID, purposeReset, resetTokenExpiry)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Now().UTC().Add(resetTokenExpiry), nil
}

// ValidateSession checks a session token and returns the identity id.
func (m *JWTManager) ValidateSession(tokenString string) (string, error) {
	return m.validate(tokenString, purposeSession)
}

// ValidateReset checks a reset token and returns the identity id.
func (m *JWTManager) ValidateReset(tokenString string) (string, error) {
	return m.validate(tokenString, purposeReset)
}

func (m *JWTManager) generate(identityID, purpose string, expiry time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		IdentityID: identityID,
		Purpose:    purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *JWTManager) validate(tokenString, purpose string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrBadSignature
		}
		return m.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", domain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", domain.ErrBadSignature
		default:
			return "", domain.ErrTokenMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.IdentityID == "" {
		return "", domain.ErrTokenMalformed
	}
	if claims.Purpose != purpose {
		return "", domain.ErrBadSignature
	}
	return claims.IdentityID, nil
}
