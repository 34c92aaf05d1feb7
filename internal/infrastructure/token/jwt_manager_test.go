package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "accounts/backend/internal/domain/identity"
)

func TestJWTManagerSessionRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, "accounts-test")

	token, err := m.GenerateSession("identity-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identityID, err := m.ValidateSession(token)
	require.NoError(t, err)
	assert.Equal(t, "identity-1", identityID)
}

func TestJWTManagerResetRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, "accounts-test")

	token, expiresAt, err := m.GenerateReset("identity-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), expiresAt, 5*time.Second)

	identityID, err := m.ValidateReset(token)
	require.NoError(t, err)
	assert.Equal(t, "identity-1", identityID)
}

func TestJWTManagerPurposeSeparation(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, "accounts-test")

	session, err := m.GenerateSession("identity-1")
	require.NoError(t, err)
	reset, _, err := m.GenerateReset("identity-1")
	require.NoError(t, err)

	_, err = m.ValidateReset(session)
	assert.Error(t, err)

	_, err = m.ValidateSession(reset)
	assert.Error(t, err)
}

func TestJWTManagerTypedFailures(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, "accounts-test")

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTManager("test-secret", -time.Minute, "accounts-test")
		token, err := expired.GenerateSession("identity-1")
		require.NoError(t, err)

		_, err = m.ValidateSession(token)
		assert.ErrorIs(t, err, domain.ErrTokenExpired)
	})

	t.Run("bad signature", func(t *testing.T) {
		other := NewJWTManager("other-secret", time.Hour, "accounts-test")
		token, err := other.GenerateSession("identity-1")
		require.NoError(t, err)

		_, err = m.ValidateSession(token)
		assert.ErrorIs(t, err, domain.ErrBadSignature)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := m.ValidateSession("not.a.token")
		assert.ErrorIs(t, err, domain.ErrTokenMalformed)

		_, err = m.ValidateSession("")
		assert.ErrorIs(t, err, domain.ErrTokenMalformed)
	})
}
