package main

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"TaskQuest/config"
	"TaskQuest/internal/cache"
	"TaskQuest/internal/queue"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/mail"
	"TaskQuest/storage"
	"TaskQuest/storage/redis"
)

func main() {
	if err := config.Validate(); err != nil {
		panic(err)
	}

	if err := logger.Init(); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(storage.Options{Redis: true, MQ: true}); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	// worker 负责真正投递，MAIL_DELIVERY 不能再是 queue
	sender, err := mail.New(mail.Options{
		Provider:    config.Cfg.MailDelivery,
		APIKey:      config.Cfg.SendGridAPIKey,
		FromName:    config.Cfg.MailFromName,
		FromAddress: config.Cfg.MailFromAddress,
	})
	if err != nil {
		logger.Logger.Fatal("Failed to create mail sender", zap.Error(err))
	}

	consumer := queue.NewMailConsumer(sender, cache.NewMessageDedup(redis.Client(), 0), config.Cfg.MailDelivery, config.Cfg.MailTimeout)

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
		zap.String("mail_delivery", config.Cfg.MailDelivery),
	)

	if err := consumer.Start(ctx); err != nil && !stderrors.Is(err, context.Canceled) {
		logger.Logger.Error("Mail consumer stopped", zap.Error(err))
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
