package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"TaskQuest/storage/redis"
)

const tokenPrefix = "token"

// RefreshTokens 每个账户只保留最近一次签发的 refresh token
// Key: tq:token:refresh:{public_id}
type RefreshTokens struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewRefreshTokens(rdb *goredis.Client, ttl time.Duration) *RefreshTokens {
	return &RefreshTokens{rdb: rdb, ttl: ttl}
}

func (t *RefreshTokens) Set(ctx context.Context, publicID, token string) error {
	return t.rdb.Set(ctx, redis.Key(tokenPrefix, "refresh", publicID), token, t.ttl).Err()
}

// Matches 登出或被新 token 顶替后返回 false
func (t *RefreshTokens) Matches(ctx context.Context, publicID, token string) (bool, error) {
	stored, err := t.rdb.Get(ctx, redis.Key(tokenPrefix, "refresh", publicID)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load refresh token: %w", err)
	}
	return stored == token, nil
}

func (t *RefreshTokens) Delete(ctx context.Context, publicID string) error {
	return t.rdb.Del(ctx, redis.Key(tokenPrefix, "refresh", publicID)).Err()
}
