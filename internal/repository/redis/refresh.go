package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirinyoku/tixhub/internal/repository"
)

// ErrRefreshTokenNotFound matches repository.ErrNotFound.
var ErrRefreshTokenNotFound = fmt.Errorf("refresh token %w", repository.ErrNotFound)

// RefreshTokenStore keeps refresh token hashes with the user they belong to.
// Tokens are single use: Consume deletes the entry it reads.
type RefreshTokenStore struct {
	rdb *redis.Client
}

func NewRefreshTokenStore(rdb *redis.Client) *RefreshTokenStore {
	return &RefreshTokenStore{rdb: rdb}
}

func (s *RefreshTokenStore) Save(ctx context.Context, tokenHash string, userID int64, ttl time.Duration) error {
	const op = "redis.RefreshTokenStore.Save"

	if err := s.rdb.Set(ctx, KeyRefreshToken(tokenHash), strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Consume returns the owner of tokenHash and revokes it.
//
// Returns:
//   - error: ErrRefreshTokenNotFound if the token is unknown, expired or
//     already used.
func (s *RefreshTokenStore) Consume(ctx context.Context, tokenHash string) (int64, error) {
	const op = "redis.RefreshTokenStore.Consume"

	v, err := s.rdb.GetDel(ctx, KeyRefreshToken(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%s: %w", op, ErrRefreshTokenNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: corrupt entry: %w", op, err)
	}

	return id, nil
}

func (s *RefreshTokenStore) Revoke(ctx context.Context, tokenHash string) error {
	return s.rdb.Del(ctx, KeyRefreshToken(tokenHash)).Err()
}
