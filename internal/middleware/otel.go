package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"TaskQuest/pkg/logger"
)

// httpMetrics HTTP 服务端指标
type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	respSize metric.Int64Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	m := &httpMetrics{}
	var err error

	if m.requests, err = meter.Int64Counter("http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	); err != nil {
		return nil, err
	}
	if m.respSize, err = meter.Int64Histogram("http.server.response.size",
		metric.WithDescription("HTTP response size"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if m.active, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// toValidUTF8 非法 UTF-8 会让导出失败
func toValidUTF8(val string) string {
	return strings.ToValidUTF8(val, "")
}

// MetricsMiddleware 记录请求指标，并给 hertz tracing 生成的 span 补充账户信息
func MetricsMiddleware() app.HandlerFunc {
	m, err := newHTTPMetrics(otel.Meter("taskquest.http"))
	if err != nil {
		logger.Logger.Warn("HTTP metrics disabled", zap.Error(err))
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}

	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		m.active.Add(ctx, 1)
		defer m.active.Add(ctx, -1)

		c.Next(ctx)

		status := c.Response.StatusCode()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := metric.WithAttributes(
			semconv.HTTPMethod(toValidUTF8(string(c.Method()))),
			semconv.HTTPRoute(toValidUTF8(route)),
			semconv.HTTPStatusCode(status),
		)
		m.requests.Add(ctx, 1, labels)
		m.duration.Record(ctx, time.Since(start).Seconds(), labels)
		if size := int64(len(c.Response.Body())); size > 0 {
			m.respSize.Record(ctx, size, labels)
		}

		span := trace.SpanFromContext(ctx)
		if uid := c.GetString(userIDKey); uid != "" {
			span.SetAttributes(attribute.String("enduser.id", uid))
		}
		if status >= 500 {
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(lastErr)
			}
			span.SetStatus(codes.Error, "HTTP server error")
		}
	}
}

// NewServerTracerConfig hertz server 的 tracing 选项与中间件
func NewServerTracerConfig(opts ...hertztracing.Option) (config.Option, app.HandlerFunc) {
	tracer, cfg := hertztracing.NewServerTracer(opts...)
	return tracer, hertztracing.ServerMiddleware(cfg)
}
