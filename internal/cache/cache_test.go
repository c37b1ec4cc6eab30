package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestTriviaSessions(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	sessions := NewTriviaSessions(rdb, time.Minute)

	q, err := sessions.Load(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, q)

	require.NoError(t, sessions.Save(ctx, 7, &PendingQuestion{
		ID:       "q1",
		Question: "2+2?",
		Correct:  "4",
		Choices:  []string{"3", "4", "5", "22"},
	}))

	q, err = sessions.Load(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "q1", q.ID)
	assert.Equal(t, "4", q.Correct)
	assert.False(t, q.Graded)

	ok, err := sessions.MarkGraded(ctx, 7, "q1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = sessions.MarkGraded(ctx, 7, "q1")
	require.NoError(t, err)
	assert.False(t, ok, "already graded")

	q, err = sessions.Load(ctx, 7)
	require.NoError(t, err)
	assert.True(t, q.Graded)

	require.NoError(t, sessions.Reopen(ctx, 7, "q1"))
	q, err = sessions.Load(ctx, 7)
	require.NoError(t, err)
	assert.False(t, q.Graded)

	mr.FastForward(2 * time.Minute)
	q, err = sessions.Load(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestMarkGradedOnlyTouchesSameQuestion(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	sessions := NewTriviaSessions(rdb, time.Minute)

	ok, err := sessions.MarkGraded(ctx, 7, "q1")
	require.NoError(t, err)
	assert.False(t, ok, "no session")

	require.NoError(t, sessions.Save(ctx, 7, &PendingQuestion{ID: "q1", Question: "old", Correct: "a"}))
	// 判分前已经下发了新题
	require.NoError(t, sessions.Save(ctx, 7, &PendingQuestion{ID: "q2", Question: "new", Correct: "b"}))

	ok, err = sessions.MarkGraded(ctx, 7, "q1")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, sessions.Reopen(ctx, 7, "q1"))

	q, err := sessions.Load(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "q2", q.ID)
	assert.Equal(t, "new", q.Question)
	assert.False(t, q.Graded)

	assert.Error(t, sessions.Save(ctx, 7, &PendingQuestion{Question: "no id"}))
}

func TestLocker(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	locker := NewLocker(rdb)

	token, ok, err := locker.TryLock(ctx, "trivia:1", time.Second*5)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "trivia:1", time.Second*5)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must wait")

	// 旧 token 不能解别人的锁
	require.NoError(t, locker.Unlock(ctx, "trivia:1", "stale"))
	_, ok, _ = locker.TryLock(ctx, "trivia:1", time.Second*5)
	assert.False(t, ok)

	require.NoError(t, locker.Unlock(ctx, "trivia:1", token))
	_, ok, err = locker.TryLock(ctx, "trivia:1", time.Second*5)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(10 * time.Second)
	_, ok, _ = locker.TryLock(ctx, "trivia:1", time.Second*5)
	assert.True(t, ok, "expired lock is free again")
}

func TestMessageDedup(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	dedup := NewMessageDedup(rdb, time.Hour)

	first, err := dedup.TryMarkProcessing(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := dedup.TryMarkProcessing(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, dedup.Unmark(ctx, "job-1"))
	retry, err := dedup.TryMarkProcessing(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, retry)

	require.NoError(t, dedup.MarkProcessed(ctx, "job-1"))
	done, err := dedup.TryMarkProcessing(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestRefreshTokens(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	tokens := NewRefreshTokens(rdb, time.Hour)

	ok, err := tokens.Matches(ctx, "42", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tokens.Set(ctx, "42", "a"))
	ok, _ = tokens.Matches(ctx, "42", "a")
	assert.True(t, ok)

	require.NoError(t, tokens.Set(ctx, "42", "b"))
	ok, _ = tokens.Matches(ctx, "42", "a")
	assert.False(t, ok, "rotated token replaces the old one")

	require.NoError(t, tokens.Delete(ctx, "42"))
	ok, _ = tokens.Matches(ctx, "42", "b")
	assert.False(t, ok)
}
