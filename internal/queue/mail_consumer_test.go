package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskQuest/internal/cache"
	"TaskQuest/pkg/mail"
	"TaskQuest/storage/mq"
)

func newConsumer(t *testing.T) (*MailConsumer, *mail.MockSender, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sender := mail.NewMockSender()
	return NewMailConsumer(sender, cache.NewMessageDedup(rdb, 0), "mock", 0), sender, mr
}

func encode(t *testing.T, job mail.Job) []byte {
	t.Helper()
	body, err := json.Marshal(job)
	require.NoError(t, err)
	return body
}

func TestMailConsumerDeliversOnce(t *testing.T) {
	c, sender, _ := newConsumer(t)
	ctx := context.Background()
	body := encode(t, mail.Job{MessageID: "m-1", To: "alice@example.com", Subject: "hi", Body: "hello"})

	require.NoError(t, c.Handle(ctx, body))
	require.Len(t, sender.Sent(), 1)
	assert.Equal(t, mail.Message{To: "alice@example.com", Subject: "hi", Body: "hello"}, sender.Sent()[0])

	err := c.Handle(ctx, body)
	assert.ErrorIs(t, err, mq.ErrSkipMessage)
	assert.Len(t, sender.Sent(), 1)
}

func TestMailConsumerFailureAllowsRedelivery(t *testing.T) {
	c, sender, _ := newConsumer(t)
	ctx := context.Background()
	body := encode(t, mail.Job{MessageID: "m-2", To: "bob@example.com", Subject: "hi"})

	sender.FailNext = true
	err := c.Handle(ctx, body)
	require.Error(t, err)
	assert.NotErrorIs(t, err, mq.ErrSkipMessage)

	require.NoError(t, c.Handle(ctx, body))
	assert.Len(t, sender.Sent(), 2)
}

func TestMailConsumerSkipsBadMessages(t *testing.T) {
	c, sender, _ := newConsumer(t)
	ctx := context.Background()

	tests := map[string][]byte{
		"not json":     []byte("{oops"),
		"no id":        encode(t, mail.Job{To: "carol@example.com"}),
		"no recipient": encode(t, mail.Job{MessageID: "m-3"}),
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, c.Handle(ctx, body), mq.ErrSkipMessage)
		})
	}
	assert.Empty(t, sender.Sent())
}

func TestMailConsumerDeliversWhenRedisDown(t *testing.T) {
	c, sender, mr := newConsumer(t)
	mr.Close()

	body := encode(t, mail.Job{MessageID: "m-4", To: "dave@example.com"})
	require.NoError(t, c.Handle(context.Background(), body))
	assert.Len(t, sender.Sent(), 1)
}
