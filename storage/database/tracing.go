package database

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey  = "otel:span"
	startKey = "otel:start"
)

// TracingPlugin 为每条 gorm 语句创建 client span 并记录耗时
type TracingPlugin struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
}

func NewTracingPlugin(serviceName string) *TracingPlugin {
	duration, _ := otel.Meter(serviceName).Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
	)
	return &TracingPlugin{
		tracer:   otel.Tracer(serviceName + ".gorm"),
		duration: duration,
	}
}

func (p *TracingPlugin) Name() string {
	return "taskquest:tracing"
}

func (p *TracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op       string
		before   func(string, func(*gorm.DB)) error
		after    func(string, func(*gorm.DB)) error
		standard string
	}{
		{"select", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "query"},
		{"insert", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "create"},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "update"},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "delete"},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, "row"},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, "raw"},
	}

	for _, h := range hooks {
		if err := h.before("otel:before_"+h.standard, p.before(h.op)); err != nil {
			return err
		}
		if err := h.after("otel:after_"+h.standard, p.after(h.op)); err != nil {
			return err
		}
	}
	return nil
}

func (p *TracingPlugin) before(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx, span := p.tracer.Start(db.Statement.Context, "db."+op,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemPostgreSQL,
				semconv.DBOperation(op),
				attribute.String("db.table", db.Statement.Table),
			),
		)
		db.Statement.Context = ctx
		db.InstanceSet(spanKey, span)
		db.InstanceSet(startKey, time.Now())
	}
}

func (p *TracingPlugin) after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(spanKey)
		if !ok {
			return
		}
		span, ok := v.(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		// 参数不进 span，SQL 本身是占位符形式
		span.SetAttributes(
			semconv.DBStatement(truncate(db.Statement.SQL.String(), 500)),
			attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
		)

		status := "success"
		if err := db.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		if start, ok := db.InstanceGet(startKey); ok && p.duration != nil {
			if t, ok := start.(time.Time); ok {
				p.duration.Record(db.Statement.Context, time.Since(t).Seconds(), metric.WithAttributes(
					attribute.String("db.operation", op),
					attribute.String("db.status", status),
				))
			}
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
