package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(4) // min cost keeps the test fast

	t.Run("hashing is salted, verification deterministic", func(t *testing.T) {
		first, err := hasher.Hash("secret1")
		require.NoError(t, err)
		second, err := hasher.Hash("secret1")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.True(t, hasher.Verify("secret1", first))
		assert.True(t, hasher.Verify("secret1", second))
	})

	t.Run("mismatch reports false", func(t *testing.T) {
		digest, err := hasher.Hash("secret1")
		require.NoError(t, err)
		assert.False(t, hasher.Verify("wrong", digest))
	})

	t.Run("malformed digest reports false, not an error", func(t *testing.T) {
		assert.False(t, hasher.Verify("secret1", "not-a-bcrypt-digest"))
		assert.False(t, hasher.Verify("secret1", ""))
	})

	t.Run("out-of-range cost falls back to default", func(t *testing.T) {
		h := NewBcryptHasher(99)
		digest, err := h.Hash("secret1")
		require.NoError(t, err)
		assert.True(t, h.Verify("secret1", digest))
	})
}
