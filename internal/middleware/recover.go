package middleware

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/response"
)

// RecoverConfig recover 中间件配置
type RecoverConfig struct {
	// full: 所有 goroutine；simple: 当前调用栈；none
	StackTraceLevel string
	// 非生产环境在响应中带上 panic 信息
	ExposeDetails bool
}

// RecoverMiddleware panic 转为 500 并记录日志
func RecoverMiddleware(config RecoverConfig) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if r := recover(); r != nil {
				handlePanic(ctx, c, r, config)
			}
		}()
		c.Next(ctx)
	}
}

func handlePanic(ctx context.Context, c *app.RequestContext, r interface{}, config RecoverConfig) {
	stack := stackTrace(config.StackTraceLevel)

	fields := []zap.Field{
		zap.String("panic", fmt.Sprintf("%v", r)),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
		zap.String("client_ip", c.ClientIP()),
	}
	if requestID := string(c.GetHeader("X-Request-Id")); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if uid, ok := GetUserID(c); ok {
		fields = append(fields, zap.String("user_id", uid))
	}
	if len(stack) > 0 {
		fields = append(fields, zap.ByteString("stack", stack))
	}
	logger.Logger.Error("Panic recovered", fields...)

	span := trace.SpanFromContext(ctx)
	span.RecordError(fmt.Errorf("panic: %v", r))
	span.SetStatus(codes.Error, "panic")

	var details map[string]interface{}
	if config.ExposeDetails {
		details = map[string]interface{}{"panic": fmt.Sprintf("%v", r)}
		if len(stack) > 0 {
			details["stack"] = string(stack)
		}
	}
	response.ErrorWithDetails(ctx, c, errors.Internal, details)
	c.Abort()
}

func stackTrace(level string) []byte {
	switch level {
	case "full":
		return debug.Stack()
	case "simple":
		var b strings.Builder
		// 跳过 runtime 与 recover 自身
		for i := 4; ; i++ {
			pc, file, line, ok := runtime.Caller(i)
			if !ok {
				break
			}
			if strings.Contains(file, "/runtime/") {
				continue
			}
			name := "?"
			if fn := runtime.FuncForPC(pc); fn != nil {
				name = fn.Name()
			}
			fmt.Fprintf(&b, "  %s:%d\n    %s\n", file, line, name)
		}
		return []byte(b.String())
	default:
		return nil
	}
}
