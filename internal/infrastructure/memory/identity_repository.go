// Package memory provides an in-memory identity repository with the same
// semantics as the PostgreSQL implementation. Used by tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	domain "accounts/backend/internal/domain/identity"
)

// IdentityRepository stores identities in process memory.
type IdentityRepository struct {
	mu  sync.RWMutex
	ids map[string]*domain.Identity
}

// NewIdentityRepository constructs an empty repository.
func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{ids: make(map[string]*domain.Identity)}
}

var _ domain.Repository = (*IdentityRepository)(nil)

// Create inserts a new identity. Uniqueness of email and phone is checked
// under the write lock, so a racing duplicate fails for exactly one caller.
func (r *IdentityRepository) Create(_ context.Context, id *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.ids {
		if existing.Phone == id.Phone {
			return domain.ErrDuplicateIdentity
		}
		if id.Email != "" && existing.Email == id.Email {
			return domain.ErrDuplicateIdentity
		}
	}

	clone := *id
	r.ids[id.ID] = &clone
	return nil
}

// FindByID retrieves an identity by id, password hash omitted.
func (r *IdentityRepository) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	existing, ok := r.ids[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return withoutPassword(existing), nil
}

// FindByEmail retrieves an identity by email, password hash omitted.
func (r *IdentityRepository) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, existing := range r.ids {
		if existing.Email != "" && existing.Email == email {
			return withoutPassword(existing), nil
		}
	}
	return nil, domain.ErrNotFound
}

// FindByEmailWithPassword retrieves an identity by email including its
// password hash.
func (r *IdentityRepository) FindByEmailWithPassword(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, existing := range r.ids {
		if existing.Email != "" && existing.Email == email {
			clone := *existing
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

// FindByPhone retrieves an identity by phone, password hash omitted.
func (r *IdentityRepository) FindByPhone(_ context.Context, phone string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, existing := range r.ids {
		if existing.Phone == phone {
			return withoutPassword(existing), nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns identities matching the filter.
func (r *IdentityRepository) List(_ context.Context, filter domain.Filter) ([]*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Identity
	for _, existing := range r.ids {
		if filter.Role != "" && existing.Role != filter.Role {
			continue
		}
		out = append(out, withoutPassword(existing))
	}
	return out, nil
}

// Update writes profile fields of an existing identity.
func (r *IdentityRepository) Update(_ context.Context, id *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.ids[id.ID]
	if !ok {
		return domain.ErrNotFound
	}

	for _, other := range r.ids {
		if other.ID == id.ID {
			continue
		}
		if other.Phone == id.Phone {
			return domain.ErrDuplicateIdentity
		}
		if id.Email != "" && other.Email == id.Email {
			return domain.ErrDuplicateIdentity
		}
	}

	clone := *id
	clone.PasswordHash = existing.PasswordHash
	clone.Otp = existing.Otp
	clone.Reset = existing.Reset
	r.ids[id.ID] = &clone
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *IdentityRepository) UpdatePassword(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.ids[id]
	if !ok {
		return domain.ErrNotFound
	}
	existing.PasswordHash = passwordHash
	existing.UpdatedAt = updatedAt
	return nil
}

// SetOtpChallenge mirrors a pending one-time code onto the identity.
func (r *IdentityRepository) SetOtpChallenge(_ context.Context, id string, challenge domain.OtpChallenge, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.ids[id]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Otp = &challenge
	existing.UpdatedAt = updatedAt
	return nil
}

// ClearOtpChallenge removes the one-time code mirror.
func (r *IdentityRepository) ClearOtpChallenge(_ context.Context, id string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.ids[id]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Otp = nil
	existing.UpdatedAt = updatedAt
	return nil
}

// SetResetChallenge mirrors an outstanding reset token onto the identity.
func (r *IdentityRepository) SetResetChallenge(_ context.Context, id string, challenge domain.ResetChallenge, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.ids[id]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Reset = &challenge
	existing.UpdatedAt = updatedAt
	return nil
}

// ClearResetChallenge removes the reset token mirror.
func (r *IdentityRepository) ClearResetChallenge(_ context.Context, id string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.ids[id]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Reset = nil
	existing.UpdatedAt = updatedAt
	return nil
}

// Delete removes an identity by id.
func (r *IdentityRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.ids, id)
	return nil
}

func withoutPassword(id *domain.Identity) *domain.Identity {
	clone := *id
	clone.PasswordHash = ""
	return &clone
}
