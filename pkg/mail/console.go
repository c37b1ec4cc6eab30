package mail

import (
	"context"

	"go.uber.org/zap"

	"TaskQuest/pkg/logger"
)

// ConsoleSender 开发环境使用，只打日志
type ConsoleSender struct {
	from string
}

func NewConsoleSender(from string) *ConsoleSender {
	return &ConsoleSender{from: from}
}

func (s *ConsoleSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	logger.Logger.Info("Mail (console)",
		zap.String("from", s.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
