package mq

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"TaskQuest/pkg/logger"
)

// ErrSkipMessage handler 返回它表示消息无需重试（格式错误、重复消息等）
var ErrSkipMessage = errors.New("skip message")

type MessageHandler func(ctx context.Context, body []byte) error

type ConsumeOptions struct {
	Handler       MessageHandler
	Queue         string
	ConsumerTag   string
	PrefetchCount int
}

// Consume 阻塞消费直到 ctx 结束或 channel 关闭
func Consume(ctx context.Context, opts ConsumeOptions) error {
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	msgs, err := ch.Consume(
		opts.Queue,
		opts.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log := logger.Logger.With(
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
	)
	log.Info("Started consuming messages", zap.Int("prefetch_count", opts.PrefetchCount))

	tracer := otel.Tracer("taskquest.rabbitmq")

	for {
		select {
		case <-ctx.Done():
			log.Info("Consumer stopped")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", opts.Queue)
			}

			msgCtx := otel.GetTextMapPropagator().Extract(ctx, HeaderCarrier(msg.Headers))
			msgCtx, span := tracer.Start(msgCtx, "rabbitmq.process "+opts.Queue,
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(attribute.String("messaging.message.id", msg.MessageId)),
			)

			err := opts.Handler(msgCtx, msg.Body)
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, ErrSkipMessage):
				log.Warn("Message skipped", zap.String("message_id", msg.MessageId), zap.Error(err))
				_ = msg.Ack(false)
			default:
				span.RecordError(err)
				// 第一次失败重新入队，再次失败丢弃（如配置了死信队列则进入死信）
				requeue := !msg.Redelivered
				log.Error("Failed to process message",
					zap.String("message_id", msg.MessageId),
					zap.Bool("requeue", requeue),
					zap.Error(err),
				)
				_ = msg.Nack(false, requeue)
			}
			span.End()
		}
	}
}
