// Package otp issues and verifies the short-lived numeric codes backing
// OTP-based login.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// DefaultTTL is how long an issued code stays valid. The store expires
// records on its own after this window, independent of reads.
const DefaultTTL = 5 * time.Minute

const codeDigits = 6

// ChallengeStore persists pending codes keyed by phone number. Save must
// expire the record after ttl without any application read, and Take must
// consume a matching record atomically so it cannot succeed twice.
type ChallengeStore interface {
	Save(ctx context.Context, phone, code string, ttl time.Duration) error
	Take(ctx context.Context, phone, code string) (bool, error)
}

// Manager generates and checks one-time codes.
type Manager struct {
	store   ChallengeStore
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewManager constructs a manager over the given store. A non-positive ttl
// falls back to DefaultTTL.
func NewManager(store ChallengeStore, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store:   store,
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Issue generates a fresh numeric code for the phone, replacing any code
// still pending for it, and returns the code with its expiry instant.
func (m *Manager) Issue(ctx context.Context, phone string) (string, time.Time, error) {
	code, err := generateCode()
	if err != nil {
		return "", time.Time{}, err
	}
	if err := m.store.Save(ctx, phone, code, m.ttl); err != nil {
		return "", time.Time{}, err
	}
	return code, m.nowFunc().UTC().Add(m.ttl), nil
}

// Verify reports whether a live matching code exists for the phone and
// consumes it on success.
func (m *Manager) Verify(ctx context.Context, phone, code string) (bool, error) {
	if phone == "" || code == "" {
		return false, nil
	}
	return m.store.Take(ctx, phone, code)
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generating otp code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
