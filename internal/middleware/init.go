package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"TaskQuest/config"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/token"
)

// Set 路由使用的中间件
type Set struct {
	Auth        app.HandlerFunc
	LoadAccount app.HandlerFunc
	AuthLimit   app.HandlerFunc
	APILimit    app.HandlerFunc
	Recover     app.HandlerFunc
	CORS        app.HandlerFunc
	Metrics     app.HandlerFunc
}

// Init 构造全部中间件；rdb 为 nil 或关闭限流时限流中间件直接放行
func Init(accounts AccountResolver, rdb *goredis.Client) (*Set, error) {
	jwtMW, err := NewJWT(token.Default())
	if err != nil {
		logger.Logger.Error("Failed to initialize auth middleware", zap.Error(err))
		return nil, err
	}

	set := &Set{
		Auth:        jwtMW.MiddlewareFunc(),
		LoadAccount: LoadAccount(accounts),
		Recover: RecoverMiddleware(RecoverConfig{
			StackTraceLevel: "simple",
			ExposeDetails:   !config.Cfg.IsProduction(),
		}),
		CORS:      CORSMiddleware(),
		Metrics:   MetricsMiddleware(),
		AuthLimit: passThrough,
		APILimit:  passThrough,
	}
	if rdb != nil && config.Cfg.RateLimitEnabled {
		set.AuthLimit = NewRateLimiter(rdb, AuthRateLimitConfig).Middleware()
		set.APILimit = NewRateLimiter(rdb, DefaultRateLimitConfig).Middleware()
	}

	logger.Logger.Info("All middlewares initialized successfully",
		zap.Bool("rate_limit", config.Cfg.RateLimitEnabled && rdb != nil),
	)
	return set, nil
}

func passThrough(ctx context.Context, c *app.RequestContext) {
	c.Next(ctx)
}
