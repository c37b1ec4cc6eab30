package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PublishFunc 与 mq.PublishJSON 签名一致
type PublishFunc func(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error

// QueueName worker 消费的队列
const QueueName = "mail.outbound"

// QueueSender 把邮件投递到 RabbitMQ，由 worker 实际发送
type QueueSender struct {
	publish PublishFunc
	now     func() time.Time
}

func NewQueueSender(publish PublishFunc) *QueueSender {
	return &QueueSender{publish: publish, now: time.Now}
}

// Send broker 确认后才返回 nil
func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	job := Job{
		MessageID: uuid.NewString(),
		To:        msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		QueuedAt:  s.now().UTC().Format(time.RFC3339),
	}
	if err := s.publish(ctx, "", QueueName, job.MessageID, job); err != nil {
		return fmt.Errorf("enqueue mail %s: %w", job.MessageID, err)
	}
	return nil
}
