package identity

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrValidation marks malformed or missing caller input.
	ErrValidation = errors.New("invalid input")
	// ErrDuplicateIdentity signals a registration with an email or phone already in use.
	ErrDuplicateIdentity = errors.New("identity already exists")
	// ErrInvalidCredentials indicates a login failure. Deliberately generic:
	// callers must not be able to tell a missing account from a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrForbidden indicates the caller's role does not permit the operation.
	ErrForbidden = errors.New("not authorized")
	// ErrNotFound indicates a missing identity.
	ErrNotFound = errors.New("identity not found")
	// ErrInvalidRole indicates the provided role is outside the closed set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrTokenInvalid means a supplied token cannot be validated.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrTokenExpired means the token signature checked out but it is past expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrBadSignature means the token signature does not verify.
	ErrBadSignature = errors.New("token signature mismatch")
	// ErrTokenMalformed means the token is not parseable at all.
	ErrTokenMalformed = errors.New("token malformed")
)

// Role identifies the privileges assigned to an identity. Only the two
// constants below may ever be persisted.
type Role string

const (
	// RoleUser represents a standard account.
	RoleUser Role = "User"
	// RoleAdmin represents an administrative account.
	RoleAdmin Role = "Admin"
)

// ParseRole validates a raw role string, defaulting empty input to RoleUser.
func ParseRole(raw string) (Role, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RoleUser, nil
	}
	switch Role(trimmed) {
	case RoleUser, RoleAdmin:
		return Role(trimmed), nil
	default:
		return "", ErrInvalidRole
	}
}

// OtpChallenge mirrors a pending one-time code onto the identity record.
type OtpChallenge struct {
	Code      string
	ExpiresAt time.Time
}

// Active reports whether the challenge is still live at the given instant.
// A challenge past its expiry is treated as absent regardless of storage.
func (c *OtpChallenge) Active(now time.Time) bool {
	return c != nil && c.Code != "" && now.Before(c.ExpiresAt)
}

// ResetChallenge mirrors an outstanding password-reset token. The token's own
// signed expiry is authoritative; ExpiresAt must agree with it.
type ResetChallenge struct {
	Token     string
	ExpiresAt time.Time
}

// Active reports whether the reset challenge is still live.
func (c *ResetChallenge) Active(now time.Time) bool {
	return c != nil && c.Token != "" && now.Before(c.ExpiresAt)
}

// Identity models one stored account record.
type Identity struct {
	ID           string
	Role         Role
	Name         string
	Email        string // optional; empty means absent (OTP-only accounts)
	Phone        string
	PasswordHash string // absent for OTP-only accounts; never returned by default reads
	IsOtpLogin   bool
	Otp          *OtpChallenge
	Reset        *ResetChallenge

	// Free-form profile fields carried as-is; no cross-field invariant.
	Pincode        string
	City           string
	State          string
	Address        string
	TownVillage    string
	Landmark       string
	AlternatePhone string

	// CardData is an opaque structured blob; no schema is enforced here.
	CardData map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sanitize returns a copy with secret and transient fields removed.
func (i *Identity) Sanitize() *Identity {
	if i == nil {
		return nil
	}
	clone := *i
	clone.PasswordHash = ""
	clone.Otp = nil
	clone.Reset = nil
	return &clone
}

// phonePattern accepts E.164-shaped numbers with an optional leading plus.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// NormalizeEmail lowercases and trims an email, validating it when present.
// An empty result is legal: OTP-only accounts may have no email.
func NormalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return email, nil
}

// NormalizePhone trims a phone number and validates its shape.
func NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return "", fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if !phonePattern.MatchString(phone) {
		return "", fmt.Errorf("%w: invalid phone number", ErrValidation)
	}
	return phone, nil
}
