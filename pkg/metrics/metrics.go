package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Domain 业务指标集合
type Domain struct {
	PointsCredited  metric.Int64Counter
	PointsDebited   metric.Int64Counter
	Purchases       metric.Int64Counter
	TriviaAnswers   metric.Int64Counter
	RemindersSent   metric.Int64Counter
	RemindersFailed metric.Int64Counter
	SweepDuration   metric.Float64Histogram
	MailDelivered   metric.Int64Counter
}

var (
	domain *Domain
	once   sync.Once
)

// Get 懒加载指标。在 otel.SetMeterProvider 之前创建的 instrument 会委托给之后设置的 provider
func Get() *Domain {
	once.Do(func() {
		d, err := build(otel.Meter("taskquest"))
		if err != nil {
			d, _ = build(noop.NewMeterProvider().Meter("taskquest"))
		}
		domain = d
	})
	return domain
}

func build(meter metric.Meter) (*Domain, error) {
	d := &Domain{}
	var err error

	if d.PointsCredited, err = meter.Int64Counter("points_credited_total",
		metric.WithDescription("Points credited to accounts"),
		metric.WithUnit("{point}"),
	); err != nil {
		return nil, err
	}

	if d.PointsDebited, err = meter.Int64Counter("points_debited_total",
		metric.WithDescription("Points debited from accounts"),
		metric.WithUnit("{point}"),
	); err != nil {
		return nil, err
	}

	if d.Purchases, err = meter.Int64Counter("feature_purchases_total",
		metric.WithDescription("Feature purchases by outcome"),
		metric.WithUnit("{purchase}"),
	); err != nil {
		return nil, err
	}

	if d.TriviaAnswers, err = meter.Int64Counter("trivia_answers_total",
		metric.WithDescription("Graded trivia answers"),
		metric.WithUnit("{answer}"),
	); err != nil {
		return nil, err
	}

	if d.RemindersSent, err = meter.Int64Counter("reminders_sent_total",
		metric.WithDescription("Task reminders dispatched"),
		metric.WithUnit("{reminder}"),
	); err != nil {
		return nil, err
	}

	if d.RemindersFailed, err = meter.Int64Counter("reminders_failed_total",
		metric.WithDescription("Task reminders that failed to dispatch"),
		metric.WithUnit("{reminder}"),
	); err != nil {
		return nil, err
	}

	if d.SweepDuration, err = meter.Float64Histogram("reminder_sweep_duration_seconds",
		metric.WithDescription("Duration of one reminder sweep"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if d.MailDelivered, err = meter.Int64Counter("mail_delivered_total",
		metric.WithDescription("Outbound mails by provider and status"),
		metric.WithUnit("{mail}"),
	); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Domain) RecordCredit(ctx context.Context, amount int64) {
	d.PointsCredited.Add(ctx, amount)
}

func (d *Domain) RecordDebit(ctx context.Context, amount int64, reason string) {
	d.PointsDebited.Add(ctx, amount, metric.WithAttributes(attribute.String("reason", reason)))
}

func (d *Domain) RecordPurchase(ctx context.Context, featureKey, outcome string) {
	d.Purchases.Add(ctx, 1, metric.WithAttributes(
		attribute.String("feature", featureKey),
		attribute.String("outcome", outcome),
	))
}

func (d *Domain) RecordTriviaAnswer(ctx context.Context, correct bool) {
	d.TriviaAnswers.Add(ctx, 1, metric.WithAttributes(attribute.Bool("correct", correct)))
}

func (d *Domain) RecordReminder(ctx context.Context, window string, err error) {
	attrs := metric.WithAttributes(attribute.String("window", window))
	if err != nil {
		d.RemindersFailed.Add(ctx, 1, attrs)
		return
	}
	d.RemindersSent.Add(ctx, 1, attrs)
}

func (d *Domain) RecordSweep(ctx context.Context, seconds float64) {
	d.SweepDuration.Record(ctx, seconds)
}

func (d *Domain) RecordMail(ctx context.Context, provider string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.MailDelivered.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}
