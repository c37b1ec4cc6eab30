package schedule

// 任务提醒调度器：每次扫描未完成且有截止时间的任务，按 7 天 / 3 天 / 1 天窗口发送一封提醒邮件

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/mail"
	"TaskQuest/pkg/metrics"
)

const (
	sweepLockKey           = "schedule:reminder_sweep"
	sweepLockTTL           = 10 * time.Minute
	defaultDispatchTimeout = 30 * time.Second
	day                    = 24 * time.Hour
)

// Locker 跨进程互斥，未配置时只做进程内防重入
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

type ReminderOptions struct {
	Locker          Locker
	Location        *time.Location
	DispatchTimeout time.Duration
	Signature       string // 邮件落款
}

// SweepReport 一次扫描的结果
type SweepReport struct {
	Scanned int  `json:"scanned"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
	Skipped bool `json:"skipped"`
}

type ReminderScheduler struct {
	store  repository.Store
	sender mail.Sender
	opts   ReminderOptions
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

func NewReminderScheduler(store repository.Store, sender mail.Sender, opts ReminderOptions) *ReminderScheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = defaultDispatchTimeout
	}
	if opts.Signature == "" {
		opts.Signature = "Task Manager Bot"
	}
	return &ReminderScheduler{
		store:  store,
		sender: sender,
		opts:   opts,
		logger: logger.Named("reminder_scheduler"),
		now:    time.Now,
	}
}

// LastRun 最近一次开始扫描的时间
func (s *ReminderScheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Sweep 单个任务发送失败只记录日志，不中断扫描；只有发送成功才设置标记
func (s *ReminderScheduler) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info("Reminder sweep already running, skipping")
		report.Skipped = true
		return report, nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.opts.Locker != nil {
		token, ok, err := s.opts.Locker.TryLock(ctx, sweepLockKey, sweepLockTTL)
		if err != nil {
			return report, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			s.logger.Info("Reminder sweep held by another process, skipping")
			report.Skipped = true
			return report, nil
		}
		defer func() {
			if err := s.opts.Locker.Unlock(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
				s.logger.Warn("Failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	start := s.now()
	s.mu.Lock()
	s.lastRun = start
	s.mu.Unlock()

	// days == 7 需要 due - now < 8 天
	candidates, err := s.store.Tasks().ListReminderCandidates(ctx, model.FeatureTaskReminder, start.Add(8*day))
	if err != nil {
		return report, fmt.Errorf("list reminder candidates: %w", err)
	}
	report.Scanned = len(candidates)

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}

		window, ok := reminderWindow(&c.Task, start)
		if !ok {
			continue
		}

		err := s.dispatch(ctx, c, window)
		metrics.Get().RecordReminder(ctx, window.String(), err)
		if err != nil {
			report.Failed++
			s.logger.Error("Failed to send reminder",
				zap.Int64("task_id", c.Task.ID),
				zap.String("window", window.String()),
				zap.Error(err),
			)
			continue
		}

		if err := s.store.Tasks().MarkReminderSent(ctx, c.Task.ID, window); err != nil {
			// 邮件已发出但标记失败，下次扫描可能重复提醒
			report.Failed++
			s.logger.Error("Failed to mark reminder sent",
				zap.Int64("task_id", c.Task.ID),
				zap.String("window", window.String()),
				zap.Error(err),
			)
			continue
		}
		report.Sent++
	}

	elapsed := s.now().Sub(start)
	metrics.Get().RecordSweep(ctx, elapsed.Seconds())
	s.logger.Info("Reminder sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", elapsed),
	)
	return report, ctx.Err()
}

// reminderWindow 7 天 → 3 天 → 24 小时内，按顺序第一个命中的窗口生效
func reminderWindow(t *model.Task, now time.Time) (model.ReminderWindow, bool) {
	if t.DueAt == nil {
		return 0, false
	}
	left := t.DueAt.Sub(now)
	days := floorDiv(left, day)
	hours := floorDiv(left, time.Hour)

	switch {
	case days == 7 && !t.ReminderSent(model.ReminderWeek):
		return model.ReminderWeek, true
	case days == 3 && !t.ReminderSent(model.ReminderThreeDays):
		return model.ReminderThreeDays, true
	case hours <= 24 && !t.ReminderSent(model.ReminderOneDay):
		return model.ReminderOneDay, true
	default:
		return 0, false
	}
}

func floorDiv(d, unit time.Duration) int64 {
	q := int64(d / unit)
	if d < 0 && d%unit != 0 {
		q--
	}
	return q
}

func (s *ReminderScheduler) dispatch(ctx context.Context, c repository.ReminderCandidate, window model.ReminderWindow) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.DispatchTimeout)
	defer cancel()

	return s.sender.Send(ctx, s.reminderMessage(c, window))
}

func (s *ReminderScheduler) reminderMessage(c repository.ReminderCandidate, window model.ReminderWindow) mail.Message {
	due := c.Task.DueAt.In(s.opts.Location).Format("2006-01-02 15:04")
	return mail.Message{
		To:      c.Email,
		Subject: fmt.Sprintf("Reminder: '%s' is due in %d day(s)", c.Task.Content, int(window)),
		Body: fmt.Sprintf(
			"Hey %s,\n\nThis is a reminder that your task '%s' is due on %s.\n\nKeep using my website!\n\n- %s\n",
			c.Username, c.Task.Content, due, s.opts.Signature,
		),
	}
}
