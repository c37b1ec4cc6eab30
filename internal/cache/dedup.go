package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"TaskQuest/storage/redis"
)

const (
	messageProcessedPrefix = "mq:processed"
	processedTTL           = 24 * time.Hour
)

// MessageDedup 消费端幂等：processing → completed，失败时删除标记允许重投
type MessageDedup struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewMessageDedup(rdb *goredis.Client, ttl time.Duration) *MessageDedup {
	if ttl <= 0 {
		ttl = processedTTL
	}
	return &MessageDedup{rdb: rdb, ttl: ttl}
}

// TryMarkProcessing 首次见到该消息返回 true
func (d *MessageDedup) TryMarkProcessing(ctx context.Context, messageID string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, redis.Key(messageProcessedPrefix, messageID), "processing", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark message %s processing: %w", messageID, err)
	}
	return ok, nil
}

func (d *MessageDedup) MarkProcessed(ctx context.Context, messageID string) error {
	return d.rdb.Set(ctx, redis.Key(messageProcessedPrefix, messageID), "completed", d.ttl).Err()
}

func (d *MessageDedup) Unmark(ctx context.Context, messageID string) error {
	return d.rdb.Del(ctx, redis.Key(messageProcessedPrefix, messageID)).Err()
}
