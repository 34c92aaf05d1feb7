package postgres

import (
	"context"
	"errors"
	"time"

	domain "accounts/backend/internal/domain/identity"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// identityColumns is the default projection; it deliberately omits
// password_hash.
const identityColumns = `
id, role, name, email, phone, is_otp_login,
otp_code, otp_expires_at, reset_token, reset_expires_at,
card_data, pincode, city, state, address, town_village, landmark, alternate_phone,
created_at, updated_at`

// IdentityRepository persists identities in PostgreSQL.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository constructs a repository.
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

var _ domain.Repository = (*IdentityRepository)(nil)

// Create inserts a new identity record. The unique indexes on email and phone
// make the uniqueness check atomic: a race between two creators surfaces as
// ErrDuplicateIdentity to exactly one of them.
func (r *IdentityRepository) Create(ctx context.Context, id *domain.Identity) error {
	const query = `
INSERT INTO identities (
    id, role, name, email, phone, password_hash, is_otp_login,
    card_data, pincode, city, state, address, town_village, landmark, alternate_phone,
    created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
`
	_, err := r.pool.Exec(ctx, query,
		id.ID,
		id.Role,
		id.Name,
		nullIfEmpty(id.Email),
		id.Phone,
		nullIfEmpty(id.PasswordHash),
		id.IsOtpLogin,
		cardDataOrEmpty(id.CardData),
		id.Pincode,
		id.City,
		id.State,
		id.Address,
		id.TownVillage,
		id.Landmark,
		id.AlternatePhone,
		id.CreatedAt,
		id.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateIdentity
		}
		return err
	}
	return nil
}

// FindByID retrieves an identity by id, password hash omitted.
func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return r.scanOne(row)
}

// FindByEmail retrieves an identity by email, password hash omitted.
func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
	return r.scanOne(row)
}

// FindByEmailWithPassword retrieves an identity by email including its
// password hash. Intended only for the login path.
func (r *IdentityRepository) FindByEmailWithPassword(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT password_hash, `+identityColumns+` FROM identities WHERE email = $1`, email)

	var passwordHash *string
	id, err := scanIdentity(row, &passwordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if passwordHash != nil {
		id.PasswordHash = *passwordHash
	}
	return id, nil
}

// FindByPhone retrieves an identity by phone, password hash omitted.
func (r *IdentityRepository) FindByPhone(ctx context.Context, phone string) (*domain.Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE phone = $1`, phone)
	return r.scanOne(row)
}

// List returns identities matching the filter, newest first.
func (r *IdentityRepository) List(ctx context.Context, filter domain.Filter) ([]*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities `
	var args []any
	if filter.Role != "" {
		query += `WHERE role = $1 `
		args = append(args, filter.Role)
	}
	query += `ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []*domain.Identity
	for rows.Next() {
		id, err := scanIdentity(rows, nil)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update writes profile fields of an existing identity. The password hash and
// challenge mirrors have dedicated mutators.
func (r *IdentityRepository) Update(ctx context.Context, id *domain.Identity) error {
	const query = `
UPDATE identities
SET role = $2,
    name = $3,
    email = $4,
    phone = $5,
    is_otp_login = $6,
    card_data = $7,
    pincode = $8,
    city = $9,
    state = $10,
    address = $11,
    town_village = $12,
    landmark = $13,
    alternate_phone = $14,
    updated_at = $15
WHERE id = $1
`
	tag, err := r.pool.Exec(ctx, query,
		id.ID,
		id.Role,
		id.Name,
		nullIfEmpty(id.Email),
		id.Phone,
		id.IsOtpLogin,
		cardDataOrEmpty(id.CardData),
		id.Pincode,
		id.City,
		id.State,
		id.Address,
		id.TownVillage,
		id.Landmark,
		id.AlternatePhone,
		id.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateIdentity
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, passwordHash, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetOtpChallenge mirrors a pending one-time code onto the identity.
func (r *IdentityRepository) SetOtpChallenge(ctx context.Context, id string, challenge domain.OtpChallenge, updatedAt time.Time) error {
	const query = `
UPDATE identities SET otp_code = $2, otp_expires_at = $3, updated_at = $4 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, challenge.Code, challenge.ExpiresAt, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearOtpChallenge removes the one-time code mirror.
func (r *IdentityRepository) ClearOtpChallenge(ctx context.Context, id string, updatedAt time.Time) error {
	const query = `
UPDATE identities SET otp_code = NULL, otp_expires_at = NULL, updated_at = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetResetChallenge mirrors an outstanding reset token onto the identity.
func (r *IdentityRepository) SetResetChallenge(ctx context.Context, id string, challenge domain.ResetChallenge, updatedAt time.Time) error {
	const query = `
UPDATE identities SET reset_token = $2, reset_expires_at = $3, updated_at = $4 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, challenge.Token, challenge.ExpiresAt, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearResetChallenge removes the reset token mirror.
func (r *IdentityRepository) ClearResetChallenge(ctx context.Context, id string, updatedAt time.Time) error {
	const query = `
UPDATE identities SET reset_token = NULL, reset_expires_at = NULL, updated_at = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an identity by id.
func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM identities WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *IdentityRepository) scanOne(row pgx.Row) (*domain.Identity, error) {
	id, err := scanIdentity(row, nil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return id, nil
}

// scanIdentity reads one row in the identityColumns projection. When
// passwordHash is non-nil the row is expected to carry password_hash as its
// leading column.
func scanIdentity(row pgx.Row, passwordHash **string) (*domain.Identity, error) {
	var (
		id             domain.Identity
		email          *string
		otpCode        *string
		otpExpiresAt   *time.Time
		resetToken     *string
		resetExpiresAt *time.Time
	)

	dest := []any{
		&id.ID,
		&id.Role,
		&id.Name,
		&email,
		&id.Phone,
		&id.IsOtpLogin,
		&otpCode,
		&otpExpiresAt,
		&resetToken,
		&resetExpiresAt,
		&id.CardData,
		&id.Pincode,
		&id.City,
		&id.State,
		&id.Address,
		&id.TownVillage,
		&id.Landmark,
		&id.AlternatePhone,
		&id.CreatedAt,
		&id.UpdatedAt,
	}
	if passwordHash != nil {
		dest = append([]any{passwordHash}, dest...)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if email != nil {
		id.Email = *email
	}
	if otpCode != nil && otpExpiresAt != nil {
		id.Otp = &domain.OtpChallenge{Code: *otpCode, ExpiresAt: *otpExpiresAt}
	}
	if resetToken != nil && resetExpiresAt != nil {
		id.Reset = &domain.ResetChallenge{Token: *resetToken, ExpiresAt: *resetExpiresAt}
	}
	return &id, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cardDataOrEmpty(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
