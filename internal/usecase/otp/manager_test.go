package otp_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisinfra "accounts/backend/internal/infrastructure/redis"
	"accounts/backend/internal/usecase/otp"
)

func newTestManager(t *testing.T) (*otp.Manager, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return otp.NewManager(redisinfra.NewChallengeStore(client), otp.DefaultTTL), mr
}

func TestManagerIssueVerifyExactlyOnce(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	code, expiresAt, err := m.Issue(ctx, "+15550001")
	require.NoError(t, err)
	require.Len(t, code, 6)
	assert.Regexp(t, `^[0-9]{6}$`, code)
	assert.WithinDuration(t, time.Now().Add(otp.DefaultTTL), expiresAt, 5*time.Second)

	ok, err := m.Verify(ctx, "+15550001", code)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Verify(ctx, "+15550001", code)
	require.NoError(t, err)
	assert.False(t, ok, "a consumed code must not verify again")
}

func TestManagerVerifyWrongCode(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	code, _, err := m.Issue(ctx, "+15550001")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	ok, err := m.Verify(ctx, "+15550001", wrong)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerVerifyAfterExpiry(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	code, _, err := m.Issue(ctx, "+15550001")
	require.NoError(t, err)

	mr.FastForward(otp.DefaultTTL + time.Second)

	ok, err := m.Verify(ctx, "+15550001", code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerEmptyInputs(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	ok, err := m.Verify(ctx, "", "123456")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.Verify(ctx, "+15550001", "")
	require.NoError(t, err)
	assert.False(t, ok)
}
