package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"accounts/backend/internal/usecase/otp"
)

const challengeKeyPrefix = "otp:v1:"

// takeScript deletes the key only when its value matches the supplied code,
// so a code cannot be consumed twice even under concurrent verifies.
var takeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    redis.call("DEL", KEYS[1])
    return 1
end
return 0
`)

// ChallengeStore keeps pending OTP codes in Redis. The TTL set on write gives
// the background five-minute expiry: records vanish without any application
// read.
type ChallengeStore struct {
	client *redis.Client
}

// NewChallengeStore constructs a store around the given client.
func NewChallengeStore(client *redis.Client) *ChallengeStore {
	return &ChallengeStore{client: client}
}

var _ otp.ChallengeStore = (*ChallengeStore)(nil)

// Save stores the code for the phone, replacing any pending code and
// scheduling expiry after ttl.
func (s *ChallengeStore) Save(ctx context.Context, phone, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, challengeKey(phone), code, ttl).Err(); err != nil {
		return fmt.Errorf("saving otp challenge: %w", err)
	}
	return nil
}

// Take consumes a matching live code, reporting whether one existed.
func (s *ChallengeStore) Take(ctx context.Context, phone, code string) (bool, error) {
	res, err := takeScript.Run(ctx, s.client, []string{challengeKey(phone)}, code).Int()
	if err != nil {
		return false, fmt.Errorf("consuming otp challenge: %w", err)
	}
	return res == 1, nil
}

func challengeKey(phone string) string {
	return challengeKeyPrefix + phone
}
