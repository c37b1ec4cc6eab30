package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/response"
	"TaskQuest/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	KeyPrefix string
	// 时间窗口内最大请求数
	MaxRequests int
	Window      time.Duration
	// 超限后封禁时长，0 表示不封禁
	BlockDuration time.Duration
	// 已登录时按账户限流，否则按 IP
	ByUser bool
}

// DefaultRateLimitConfig 登录后的接口
var DefaultRateLimitConfig = RateLimitConfig{
	KeyPrefix:   "rate:api",
	MaxRequests: 120,
	Window:      time.Minute,
	ByUser:      true,
}

// AuthRateLimitConfig 注册、登录、刷新令牌
var AuthRateLimitConfig = RateLimitConfig{
	KeyPrefix:     "rate:auth",
	MaxRequests:   10,
	Window:        time.Minute,
	BlockDuration: 15 * time.Minute,
}

// RateLimiter 基于 zset 的滑动窗口
type RateLimiter struct {
	rdb    *goredis.Client
	config RateLimitConfig
	now    func() time.Time
}

func NewRateLimiter(rdb *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{rdb: rdb, config: config, now: time.Now}
}

func (rl *RateLimiter) key(c *app.RequestContext) string {
	if rl.config.ByUser {
		if uid, ok := GetUserID(c); ok {
			return redis.Key(rl.config.KeyPrefix, "user", uid)
		}
	}
	return redis.Key(rl.config.KeyPrefix, "ip", c.ClientIP())
}

// Allow 返回是否放行以及窗口内的请求数
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	now := rl.now()
	windowStart := now.Add(-rl.config.Window)

	pipe := rl.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, goredis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window+10*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count := int(card.Val())
	return count <= rl.config.MaxRequests, count, nil
}

func (rl *RateLimiter) blockKey(key string) string {
	return redis.Key(rl.config.KeyPrefix, "block", key)
}

func (rl *RateLimiter) Block(ctx context.Context, key string) error {
	if rl.config.BlockDuration <= 0 {
		return nil
	}
	return rl.rdb.Set(ctx, rl.blockKey(key), "1", rl.config.BlockDuration).Err()
}

func (rl *RateLimiter) IsBlocked(ctx context.Context, key string) (bool, error) {
	if rl.config.BlockDuration <= 0 {
		return false, nil
	}
	n, err := rl.rdb.Exists(ctx, rl.blockKey(key)).Result()
	return n > 0, err
}

// Middleware redis 出错时放行
func (rl *RateLimiter) Middleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		key := rl.key(c)

		blocked, err := rl.IsBlocked(ctx, key)
		if err != nil {
			logger.Logger.Error("Failed to check block status", zap.Error(err))
			c.Next(ctx)
			return
		}
		if blocked {
			response.Error(ctx, c, errors.RateLimited)
			c.Abort()
			return
		}

		allowed, count, err := rl.Allow(ctx, key)
		if err != nil {
			logger.Logger.Error("Failed to check rate limit", zap.Error(err))
			c.Next(ctx)
			return
		}

		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(max(rl.config.MaxRequests-count, 0)))
		c.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(rl.config.Window).Unix(), 10))

		if !allowed {
			if err := rl.Block(ctx, key); err != nil {
				logger.Logger.Error("Failed to block client", zap.Error(err))
			}
			logger.Logger.Warn("Rate limit exceeded", zap.String("key", key), zap.Int("count", count))
			response.Error(ctx, c, errors.RateLimited)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}
