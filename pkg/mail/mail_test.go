package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    interface{}
		wantErr bool
	}{
		{name: "default console", opts: Options{}, want: &ConsoleSender{}},
		{name: "sendgrid", opts: Options{Provider: "sendgrid", APIKey: "SG.key"}, want: &SendGridSender{}},
		{name: "sendgrid without key", opts: Options{Provider: "sendgrid"}, wantErr: true},
		{name: "queue without publisher", opts: Options{Provider: "queue"}, wantErr: true},
		{name: "unknown", opts: Options{Provider: "pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestQueueSender(t *testing.T) {
	var (
		gotQueue string
		gotID    string
		gotBody  interface{}
	)
	sender := NewQueueSender(func(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error {
		gotQueue, gotID, gotBody = routingKey, messageID, body
		return nil
	})
	sender.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }

	err := sender.Send(context.Background(), Message{To: "a@example.com", Subject: "hi", Body: "body"})
	require.NoError(t, err)

	assert.Equal(t, QueueName, gotQueue)
	job, ok := gotBody.(Job)
	require.True(t, ok)
	assert.Equal(t, gotID, job.MessageID)
	assert.NotEmpty(t, job.MessageID)
	assert.Equal(t, "a@example.com", job.To)
	assert.Equal(t, "2024-05-01T08:00:00Z", job.QueuedAt)
	assert.Equal(t, Message{To: "a@example.com", Subject: "hi", Body: "body"}, job.Message())
}

func TestQueueSenderPublishError(t *testing.T) {
	boom := errors.New("nacked")
	sender := NewQueueSender(func(context.Context, string, string, string, interface{}) error { return boom })

	err := sender.Send(context.Background(), Message{To: "a@example.com"})
	assert.ErrorIs(t, err, boom)
}

func TestEmptyRecipient(t *testing.T) {
	senders := []Sender{
		NewConsoleSender("bot@example.com"),
		NewQueueSender(func(context.Context, string, string, string, interface{}) error { return nil }),
	}
	for _, s := range senders {
		assert.ErrorIs(t, s.Send(context.Background(), Message{Subject: "x"}), ErrEmptyRecipient)
	}
}

func TestMockSender(t *testing.T) {
	m := NewMockSender()
	m.FailNext = true
	m.FailTo["bad@example.com"] = true

	assert.Error(t, m.Send(context.Background(), Message{To: "a@example.com"}))
	assert.NoError(t, m.Send(context.Background(), Message{To: "a@example.com"}))
	assert.Error(t, m.Send(context.Background(), Message{To: "bad@example.com"}))
	assert.Len(t, m.Sent(), 3)
}
