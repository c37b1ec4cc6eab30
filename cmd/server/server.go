package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"go.uber.org/zap"

	"TaskQuest/config"
	"TaskQuest/internal/cache"
	"TaskQuest/internal/handler"
	"TaskQuest/internal/middleware"
	"TaskQuest/internal/repository"
	"TaskQuest/internal/router"
	"TaskQuest/internal/service"
	"TaskQuest/pkg/breaker"
	"TaskQuest/pkg/identity"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/otel"
	"TaskQuest/pkg/snowflake"
	"TaskQuest/pkg/token"
	"TaskQuest/pkg/trivia"
	"TaskQuest/storage"
	"TaskQuest/storage/database"
	"TaskQuest/storage/redis"
)

func main() {
	if err := config.Validate(); err != nil {
		panic(err)
	}

	// 日志部分
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

	if config.Cfg.OTelEnabled {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName:  config.Cfg.ServiceName,
			Environment:  config.Cfg.Environment,
			OTLPEndpoint: config.Cfg.OTelEndpoint,
			SampleRatio:  config.Cfg.OTelSampleRatio,
		})
		if err != nil {
			logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	// 邮件由 scheduler 发出，server 不需要 MQ
	if err := storage.Init(storage.Options{Database: true, Redis: true}); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := database.Migrate(database.DB()); err != nil {
		logger.Logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	store := repository.NewGormStore(database.DB())
	if err := database.Seed(ctx, store); err != nil {
		logger.Logger.Fatal("Failed to seed database", zap.Error(err))
	}

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// token 在中间件前初始化，middleware 依赖 token
	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	}

	loc, err := config.Cfg.Location()
	if err != nil {
		logger.Logger.Fatal("Invalid timezone", zap.Error(err))
	}

	opentdb, err := trivia.NewOpenTDB(config.Cfg.TriviaAPIURL, config.Cfg.TriviaTimeout)
	if err != nil {
		logger.Logger.Fatal("Failed to create trivia client", zap.Error(err))
	}
	triviaProvider := trivia.WithBreaker(opentdb, breaker.New("opentdb", 5, 30*time.Second))

	rdb := redis.Client()
	accounts := service.NewAccountService(store, snowflake.NextID)
	unlock := service.NewUnlockService(store)

	mw, err := middleware.Init(accounts, rdb)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	h := handler.New(handler.Deps{
		Accounts: accounts,
		Ledger:   service.NewLedger(store),
		Unlock:   unlock,
		Trivia: service.NewTriviaService(store, unlock,
			cache.NewTriviaSessions(rdb, config.Cfg.TriviaSessionTTL), cache.NewLocker(rdb), triviaProvider, loc),
		Tasks:    service.NewTaskService(store),
		Tags:     service.NewTagService(store),
		Blog:     service.NewBlogService(store),
		Tokens:   token.Default(),
		Refresh:  cache.NewRefreshTokens(rdb, token.Default().RefreshTTL()),
		Identity: identity.NewGoogle(config.Cfg.GoogleClientID, config.Cfg.GoogleClientSecret, config.Cfg.GoogleRedirectURL),
	})

	logger.Logger.Info("Server starting",
		zap.String("service", config.Cfg.ServiceName),
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
		zap.String("timezone", loc.String()),
	)

	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)
	opts := []hzconfig.Option{server.WithHostPorts(addr)}
	var tracing app.HandlerFunc
	if config.Cfg.OTelEnabled {
		var tracerOpt hzconfig.Option
		tracerOpt, tracing = middleware.NewServerTracerConfig()
		opts = append(opts, tracerOpt)
	}
	hz := server.Default(opts...)
	if tracing != nil {
		hz.Use(tracing)
	}

	router.Register(hz.Engine, h, mw)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := hz.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	hz.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
