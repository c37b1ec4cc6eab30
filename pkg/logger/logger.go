package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzap "github.com/hertz-contrib/logger/zap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"TaskQuest/config"
)

var (
	// Logger 在 Init 之前是 no-op，测试无需初始化
	Logger   = zap.NewNop()
	logClose io.Closer
)

// Init 根据配置构建 zap logger，并让 hertz 的 hlog 共用同一个 core
func Init() error {
	level := zap.NewAtomicLevelAt(parseZapLevel(config.Cfg.LoggerLevel))

	ws, err := buildWriteSyncer(config.Cfg.LoggerOutputPath)
	if err != nil {
		return err
	}

	hzLogger := hertzzap.NewLogger(
		hertzzap.WithCoreEnc(buildEncoder()),
		hertzzap.WithCoreWs(ws),
		hertzzap.WithCoreLevel(level),
		hertzzap.WithZapOptions(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
			zap.Fields(zap.String("service", config.Cfg.ServiceName)),
		),
	)
	hlog.SetLogger(hzLogger)
	hlog.SetLevel(toHlogLevel(level.Level()))

	Logger = hzLogger.Logger()
	Logger.Info("Logger initialized",
		zap.String("level", strings.ToUpper(config.Cfg.LoggerLevel)),
		zap.String("format", config.Cfg.LoggerFormat),
		zap.String("environment", config.Cfg.Environment),
	)
	return nil
}

// Named 返回带组件名的子 logger，调用方不要缓存到 Init 之前
func Named(component string) *zap.Logger {
	return Logger.With(zap.String("component", component))
}

func Sync() {
	_ = Logger.Sync()

	if logClose != nil {
		_ = logClose.Close()
		logClose = nil
	}
}

func buildEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if config.Cfg.IsDevelopment() || strings.EqualFold(config.Cfg.LoggerFormat, "text") {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func buildWriteSyncer(path string) (zapcore.WriteSyncer, error) {
	if path == "" || strings.EqualFold(path, "stdout") {
		return zapcore.AddSync(os.Stdout), nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	logClose = file

	return zapcore.AddSync(file), nil
}

func parseZapLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func toHlogLevel(level zapcore.Level) hlog.Level {
	switch level {
	case zapcore.DebugLevel:
		return hlog.LevelDebug
	case zapcore.WarnLevel:
		return hlog.LevelWarn
	case zapcore.ErrorLevel:
		return hlog.LevelError
	default:
		return hlog.LevelInfo
	}
}
