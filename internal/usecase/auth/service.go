package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "accounts/backend/internal/domain/identity"

	"github.com/google/uuid"
)

const minPasswordLength = 6

// Service coordinates account workflows between domain and infrastructure.
type Service struct {
	identities domain.Repository
	hasher     PasswordHasher
	tokens     TokenManager
	challenges ChallengeManager
	nowFunc    func() time.Time
}

// NewService constructs an auth service.
func NewService(identities domain.Repository, hasher PasswordHasher, tokens TokenManager, challenges ChallengeManager) *Service {
	return &Service{
		identities: identities,
		hasher:     hasher,
		tokens:     tokens,
		challenges: challenges,
		nowFunc:    time.Now,
	}
}

// RegisterInput carries the registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
}

// Register creates a new identity and issues a session token.
//
// The caller-supplied role is accepted without a privilege check, matching the
// upstream behaviour this service replaces.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.Identity, string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, "", fmt.Errorf("%w: name is required", domain.ErrValidation)
	}

	email, err := domain.NormalizeEmail(input.Email)
	if err != nil {
		return nil, "", err
	}
	phone, err := domain.NormalizePhone(input.Phone)
	if err != nil {
		return nil, "", err
	}

	password := strings.TrimSpace(input.Password)
	if len(password) < minPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}

	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, "", err
	}

	if email != "" {
		if _, err := s.identities.FindByEmail(ctx, email); err == nil {
			return nil, "", domain.ErrDuplicateIdentity
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, "", err
		}
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	now := s.nowFunc().UTC()
	id := &domain.Identity{
		ID:           uuid.NewString(),
		Role:         role,
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hashed,
		CardData:     map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The store re-checks uniqueness atomically; a racing duplicate or a
	// phone collision surfaces here as ErrDuplicateIdentity.
	if err := s.identities.Create(ctx, id); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GenerateSession(id.ID)
	if err != nil {
		return nil, "", err
	}

	return id.Sanitize(), token, nil
}

// Login validates email/password credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Identity, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, "", domain.ErrInvalidCredentials
	}

	id, err := s.identities.FindByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if id.PasswordHash == "" || !s.hasher.Verify(password, id.PasswordHash) {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateSession(id.ID)
	if err != nil {
		return nil, "", err
	}

	return id.Sanitize(), token, nil
}

// CurrentIdentity resolves the caller's own identity from an already-verified
// session id.
func (s *Service) CurrentIdentity(ctx context.Context, identityID string) (*domain.Identity, error) {
	id, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return id.Sanitize(), nil
}

// ListAll returns every identity. Admin only.
func (s *Service) ListAll(ctx context.Context, callerRole domain.Role) ([]*domain.Identity, error) {
	if callerRole != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	ids, err := s.identities.List(ctx, domain.Filter{})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Identity, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Sanitize())
	}
	return out, nil
}

// VerifySession resolves a bearer session token to its identity. Any token or
// lookup failure collapses to ErrTokenInvalid.
func (s *Service) VerifySession(ctx context.Context, token string) (*domain.Identity, error) {
	identityID, err := s.tokens.ValidateSession(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	id, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}

	return id.Sanitize(), nil
}

// RequestOtp issues a one-time login code for an existing identity and mirrors
// the challenge onto its record. Delivery of the code is not this service's
// job.
func (s *Service) RequestOtp(ctx context.Context, phone string) (string, error) {
	phone, err := domain.NormalizePhone(phone)
	if err != nil {
		return "", err
	}

	id, err := s.identities.FindByPhone(ctx, phone)
	if err != nil {
		return "", err
	}

	code, expiresAt, err := s.challenges.Issue(ctx, phone)
	if err != nil {
		return "", err
	}

	challenge := domain.OtpChallenge{Code: code, ExpiresAt: expiresAt}
	if err := s.identities.SetOtpChallenge(ctx, id.ID, challenge, s.nowFunc().UTC()); err != nil {
		return "", err
	}

	return code, nil
}

// LoginWithOtp consumes a one-time code and issues a session token. An unknown
// phone fails identically to a wrong code.
func (s *Service) LoginWithOtp(ctx context.Context, phone, code string) (*domain.Identity, string, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return nil, "", domain.ErrInvalidCredentials
	}

	ok, err := s.challenges.Verify(ctx, phone, code)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", domain.ErrInvalidCredentials
	}

	id, err := s.identities.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := s.identities.ClearOtpChallenge(ctx, id.ID, s.nowFunc().UTC()); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GenerateSession(id.ID)
	if err != nil {
		return nil, "", err
	}

	return id.Sanitize(), token, nil
}

// RequestPasswordReset issues a signed one-hour reset token and mirrors it on
// the identity. For an unknown email it returns an empty token and no error,
// so callers cannot probe which addresses exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	id, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	token, expiresAt, err := s.tokens.GenerateReset(id.ID)
	if err != nil {
		return "", err
	}

	challenge := domain.ResetChallenge{Token: token, ExpiresAt: expiresAt}
	if err := s.identities.SetResetChallenge(ctx, id.ID, challenge, s.nowFunc().UTC()); err != nil {
		return "", err
	}

	return token, nil
}

// ResetPassword redeems a reset token for exactly one password change. The
// token must carry a valid signature and still match the stored single-use
// mirror.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}

	identityID, err := s.tokens.ValidateReset(token)
	if err != nil {
		return domain.ErrTokenInvalid
	}

	id, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrTokenInvalid
		}
		return err
	}

	now := s.nowFunc().UTC()
	if !id.Reset.Active(now) || id.Reset.Token != token {
		return domain.ErrTokenInvalid
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.identities.UpdatePassword(ctx, id.ID, hashed, now); err != nil {
		return err
	}
	return s.identities.ClearResetChallenge(ctx, id.ID, now)
}
