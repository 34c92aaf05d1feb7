package identity

import (
	"context"
	"time"
)

// Repository defines persistence operations for identities.
//
// Default reads omit the password hash; only FindByEmailWithPassword includes
// it. Create must enforce email and phone uniqueness atomically: of two
// concurrent creates with the same email or phone, exactly one may succeed and
// the other must observe ErrDuplicateIdentity.
type Repository interface {
	Create(ctx context.Context, id *Identity) error
	FindByID(ctx context.Context, id string) (*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByEmailWithPassword(ctx context.Context, email string) (*Identity, error)
	FindByPhone(ctx context.Context, phone string) (*Identity, error)
	List(ctx context.Context, filter Filter) ([]*Identity, error)
	Update(ctx context.Context, id *Identity) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	SetOtpChallenge(ctx context.Context, id string, challenge OtpChallenge, updatedAt time.Time) error
	ClearOtpChallenge(ctx context.Context, id string, updatedAt time.Time) error
	SetResetChallenge(ctx context.Context, id string, challenge ResetChallenge, updatedAt time.Time) error
	ClearResetChallenge(ctx context.Context, id string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// Filter narrows identity listings.
type Filter struct {
	Role Role
}
