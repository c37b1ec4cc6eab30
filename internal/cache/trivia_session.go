package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"TaskQuest/storage/redis"
)

const triviaSessionPrefix = "trivia:session"

// 会话用 hash 保存：id 与 graded 单独成字段，判分只改 graded
const (
	sessionFieldID     = "id"
	sessionFieldGraded = "graded"
	sessionFieldData   = "data"
)

// 只有当前题目仍是 ARGV[1] 且状态为 ARGV[2] 时才改成 ARGV[3]
var setGradedScript = goredis.NewScript(`
if redis.call("HGET", KEYS[1], "id") == ARGV[1] and redis.call("HGET", KEYS[1], "graded") == ARGV[2] then
	redis.call("HSET", KEYS[1], "graded", ARGV[3])
	return 1
end
return 0
`)

// PendingQuestion 已下发但尚未（或刚刚）判分的题目
type PendingQuestion struct {
	ID          string    `json:"-"`
	Graded      bool      `json:"-"`
	PresentedAt time.Time `json:"presented_at"`
	Question    string    `json:"question"`
	Correct     string    `json:"correct"`
	Choices     []string  `json:"choices"`
}

// TriviaSessions 每个账户一个 key，过期即回到等待出题状态
type TriviaSessions struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewTriviaSessions(rdb *goredis.Client, ttl time.Duration) *TriviaSessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TriviaSessions{rdb: rdb, ttl: ttl}
}

func triviaSessionKey(accountID int64) string {
	return redis.Key(triviaSessionPrefix, strconv.FormatInt(accountID, 10))
}

func gradedFlag(graded bool) string {
	if graded {
		return "1"
	}
	return "0"
}

// Save 覆盖之前的题目
func (s *TriviaSessions) Save(ctx context.Context, accountID int64, q *PendingQuestion) error {
	if q.ID == "" {
		return fmt.Errorf("pending question has no id")
	}
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal pending question: %w", err)
	}

	key := triviaSessionKey(accountID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			sessionFieldID, q.ID,
			sessionFieldGraded, gradedFlag(q.Graded),
			sessionFieldData, data,
		)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save pending question: %w", err)
	}
	return nil
}

// Load 没有题目时返回 nil, nil
func (s *TriviaSessions) Load(ctx context.Context, accountID int64) (*PendingQuestion, error) {
	fields, err := s.rdb.HGetAll(ctx, triviaSessionKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load pending question: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var q PendingQuestion
	if err := json.Unmarshal([]byte(fields[sessionFieldData]), &q); err != nil {
		return nil, fmt.Errorf("decode pending question: %w", err)
	}
	q.ID = fields[sessionFieldID]
	q.Graded = fields[sessionFieldGraded] == "1"
	return &q, nil
}

// MarkGraded 把题目 questionID 标记为已判分；题目已被替换或已判分时返回 false
func (s *TriviaSessions) MarkGraded(ctx context.Context, accountID int64, questionID string) (bool, error) {
	return s.setGraded(ctx, accountID, questionID, false, true)
}

// Reopen 判分事务失败时撤销标记，题目已被替换则什么也不做
func (s *TriviaSessions) Reopen(ctx context.Context, accountID int64, questionID string) error {
	_, err := s.setGraded(ctx, accountID, questionID, true, false)
	return err
}

func (s *TriviaSessions) setGraded(ctx context.Context, accountID int64, questionID string, from, to bool) (bool, error) {
	n, err := setGradedScript.Run(ctx, s.rdb, []string{triviaSessionKey(accountID)},
		questionID, gradedFlag(from), gradedFlag(to)).Int()
	if err != nil {
		return false, fmt.Errorf("update pending question: %w", err)
	}
	return n == 1, nil
}
