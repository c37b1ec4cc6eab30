package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"TaskQuest/storage/redis"
)

const lockPrefix = "lock"

// 只删除自己持有的锁
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker 基于 SETNX 的分布式锁
type Locker struct {
	rdb *goredis.Client
}

func NewLocker(rdb *goredis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// TryLock 获取成功时返回用于解锁的 token
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, redis.Key(lockPrefix, key), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	if err := unlockScript.Run(ctx, l.rdb, []string{redis.Key(lockPrefix, key)}, token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}
