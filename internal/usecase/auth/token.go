package auth

import "time"

// TokenManager abstracts issuance and verification of signed tokens.
//
// Session and reset tokens are distinct kinds: a token issued by one Generate
// method must never validate through the other Validate method. Validate
// failures are the typed token errors from the identity domain package so
// callers can distinguish expiry from tampering internally, without leaking
// the distinction past the HTTP boundary.
type TokenManager interface {
	GenerateSession(identityID string) (string, error)
	GenerateReset(identityID string) (token string, expiresAt time.Time, err error)
	ValidateSession(token string) (identityID string, err error)
	ValidateReset(token string) (identityID string, err error)
}
