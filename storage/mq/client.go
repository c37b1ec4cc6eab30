package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"TaskQuest/config"
	"TaskQuest/pkg/logger"
)

// 队列名
const (
	QueueMailOutbound = "mail.outbound"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

func Init() error {
	connOnce.Do(func() {
		conn, connErr = amqp.Dial(config.Cfg.GetRabbitMQURL())
		if connErr != nil {
			connErr = fmt.Errorf("dial rabbitmq: %w", connErr)
			return
		}

		if connErr = declareTopology(); connErr != nil {
			return
		}

		logger.Logger.Info("RabbitMQ connected",
			zap.String("component", "rabbitmq"),
			zap.String("addr", config.Cfg.RabbitMQAddr),
		)
	})
	return connErr
}

// declareTopology 声明用到的持久化队列，重复声明是幂等的
func declareTopology() error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(QueueMailOutbound, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", QueueMailOutbound, err)
	}
	return nil
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil || conn.IsClosed() {
		return nil
	}

	pubMutex.Lock()
	if publisherCh != nil {
		_ = publisherCh.Close()
		publisherCh = nil
	}
	pubMutex.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
