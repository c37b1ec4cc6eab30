package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"TaskQuest/config"
	"TaskQuest/internal/cache"
	"TaskQuest/internal/repository"
	"TaskQuest/internal/schedule"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/mail"
	"TaskQuest/storage"
	"TaskQuest/storage/database"
	"TaskQuest/storage/mq"
	"TaskQuest/storage/redis"
)

const sweepTimeout = 5 * time.Minute

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

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	useQueue := config.Cfg.MailProvider == "queue"
	if err := storage.Init(storage.Options{Database: true, Redis: true, MQ: useQueue}); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	opts := mail.Options{
		Provider:    config.Cfg.MailProvider,
		APIKey:      config.Cfg.SendGridAPIKey,
		FromName:    config.Cfg.MailFromName,
		FromAddress: config.Cfg.MailFromAddress,
	}
	if useQueue {
		opts.Publish = mq.PublishJSON
	}
	sender, err := mail.New(opts)
	if err != nil {
		logger.Logger.Fatal("Failed to create mail sender", zap.Error(err))
	}

	loc, err := config.Cfg.Location()
	if err != nil {
		logger.Logger.Fatal("Invalid timezone", zap.Error(err))
	}

	s := schedule.NewReminderScheduler(repository.NewGormStore(database.DB()), sender, schedule.ReminderOptions{
		Locker:          cache.NewLocker(redis.Client()),
		Location:        loc,
		DispatchTimeout: config.Cfg.MailTimeout,
		Signature:       config.Cfg.MailFromName,
	})

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.String("environment", config.Cfg.Environment),
		zap.String("mail_provider", config.Cfg.MailProvider),
	)

	go runReminderLoop(ctx, s)

	<-ctx.Done()

	logger.Logger.Info("Scheduler service shutting down gracefully")
}

// runReminderLoop 启动时先扫一次，之后按 REMINDER_INTERVAL 周期执行
func runReminderLoop(ctx context.Context, s *schedule.ReminderScheduler) {
	interval := config.Cfg.ReminderInterval
	// development 环境下每 1 分钟执行一次，方便本地调试
	if config.Cfg.IsDevelopment() {
		interval = 1 * time.Minute
		logger.Logger.Info("Reminder sweep running in development mode with 1m interval")
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	runSweep(ctx, s)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runSweep(ctx, s)
		}
	}
}

func runSweep(ctx context.Context, s *schedule.ReminderScheduler) {
	runCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	report, err := s.Sweep(runCtx)
	if err != nil {
		logger.Logger.Error("Reminder sweep run failed", zap.Error(err))
		return
	}
	logger.Logger.Info("Reminder sweep finished",
		zap.Time("started_at", s.LastRun()),
		zap.Int("scanned", report.Scanned),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Bool("skipped", report.Skipped),
	)
}
