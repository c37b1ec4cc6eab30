package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/mail"
	"TaskQuest/pkg/metrics"
	"TaskQuest/storage/mq"
)

const (
	mailConsumerTag   = "mail_outbound_consumer"
	mailPrefetchCount = 10
	defaultMailTimeout = 10 * time.Second
)

// Dedup 消费端幂等标记
type Dedup interface {
	TryMarkProcessing(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string) error
	Unmark(ctx context.Context, messageID string) error
}

// MailConsumer 消费 mail.outbound，交给真正的 Sender 投递
type MailConsumer struct {
	sender   mail.Sender
	dedup    Dedup
	provider string
	timeout  time.Duration
}

// NewMailConsumer provider 只用于日志与指标
func NewMailConsumer(sender mail.Sender, dedup Dedup, provider string, timeout time.Duration) *MailConsumer {
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}
	return &MailConsumer{sender: sender, dedup: dedup, provider: provider, timeout: timeout}
}

// Start 阻塞直到 ctx 结束
func (c *MailConsumer) Start(ctx context.Context) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mail.QueueName,
		ConsumerTag:   mailConsumerTag,
		PrefetchCount: mailPrefetchCount,
		Handler:       c.Handle,
	})
}

// Handle 处理单条消息；返回 mq.ErrSkipMessage 的消息直接 ack
func (c *MailConsumer) Handle(ctx context.Context, body []byte) error {
	var job mail.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: malformed mail job: %v", mq.ErrSkipMessage, err)
	}
	if job.MessageID == "" {
		return fmt.Errorf("%w: mail job without message id", mq.ErrSkipMessage)
	}
	msg := job.Message()
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", mq.ErrSkipMessage, err)
	}

	log := logger.Logger.With(
		zap.String("message_id", job.MessageID),
		zap.String("provider", c.provider),
	)

	first, err := c.dedup.TryMarkProcessing(ctx, job.MessageID)
	if err != nil {
		// redis 不可用时继续投递，可能重复发送
		log.Warn("Failed to check message processed status", zap.Error(err))
	} else if !first {
		log.Info("Message already processed or being processed, skipping")
		return fmt.Errorf("%w: message %s already processed", mq.ErrSkipMessage, job.MessageID)
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err = c.sender.Send(sendCtx, msg)
	cancel()
	metrics.Get().RecordMail(ctx, c.provider, err)

	if err != nil {
		if uerr := c.dedup.Unmark(context.WithoutCancel(ctx), job.MessageID); uerr != nil {
			log.Warn("Failed to unmark message", zap.Error(uerr))
		}
		return fmt.Errorf("deliver mail %s: %w", job.MessageID, err)
	}

	if err := c.dedup.MarkProcessed(ctx, job.MessageID); err != nil {
		log.Warn("Failed to mark message as processed", zap.Error(err))
	}
	log.Info("Mail delivered", zap.String("queued_at", job.QueuedAt))
	return nil
}
