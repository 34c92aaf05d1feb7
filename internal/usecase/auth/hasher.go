package auth

import (
	"context"
	"time"
)

// PasswordHasher provides the one-way transform for stored credentials.
type PasswordHasher interface {
	// Hash produces a salted digest; the same plaintext yields a different
	// digest on every call. Fails only on internal error.
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext matches digest. A malformed digest is
	// treated as a mismatch, never an error.
	Verify(plaintext, digest string) bool
}

// ChallengeManager abstracts the OTP side channel.
type ChallengeManager interface {
	// Issue generates a fresh code for the phone, replacing any previous one.
	Issue(ctx context.Context, phone string) (code string, expiresAt time.Time, err error)

	// Verify reports whether a live matching code exists and consumes it on
	// success; it cannot report true twice for the same issued code.
	Verify(ctx context.Context, phone, code string) (bool, error)
}
