package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskQuest/internal/cache"
	"TaskQuest/internal/model"
	"TaskQuest/internal/repository/memory"
	"TaskQuest/pkg/mail"
)

var sweepNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	nextID int64
	store  *memory.Store
	sender *mail.MockSender
	sched  *ReminderScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New().WithClock(func() time.Time { return sweepNow.Add(-30 * day) })
	require.NoError(t, store.Features().EnsureSeeded(context.Background(), model.DefaultFeatures))

	sender := mail.NewMockSender()
	sched := NewReminderScheduler(store, sender, ReminderOptions{Location: time.UTC})
	sched.now = func() time.Time { return sweepNow }
	return &fixture{store: store, sender: sender, sched: sched}
}

// account 创建账户；withReminder 为 true 时拥有 task_reminder
func (f *fixture) account(t *testing.T, username, email string, withReminder bool) int64 {
	t.Helper()
	ctx := context.Background()

	f.nextID++
	a := &model.Account{Username: username, PublicID: 9000 + f.nextID}
	if email != "" {
		a.Email = &email
	}
	require.NoError(t, f.store.Accounts().Create(ctx, a))

	if withReminder {
		feature, err := f.store.Features().GetByKey(ctx, model.FeatureTaskReminder)
		require.NoError(t, err)
		require.NoError(t, f.store.Features().Grant(ctx, a.ID, feature.ID, model.UnlockPurchased))
	}
	return a.ID
}

func (f *fixture) task(t *testing.T, accountID int64, content string, due time.Time) *model.Task {
	t.Helper()
	task := &model.Task{AccountID: accountID, Content: content, DueAt: &due}
	require.NoError(t, f.store.Tasks().Create(context.Background(), task))
	return task
}

func (f *fixture) reload(t *testing.T, id int64) *model.Task {
	t.Helper()
	task, err := f.store.Tasks().Get(context.Background(), id)
	require.NoError(t, err)
	return task
}

func TestSweepSevenDaysOnce(t *testing.T) {
	f := newFixture(t)
	owner := f.account(t, "alice", "alice@example.com", true)
	task := f.task(t, owner, "Write report", sweepNow.Add(7*day))
	assert.True(t, f.sched.LastRun().IsZero())

	report, err := f.sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Scanned: 1, Sent: 1}, report)
	assert.True(t, sweepNow.Equal(f.sched.LastRun()))

	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].To)
	assert.Equal(t, "Reminder: 'Write report' is due in 7 day(s)", sent[0].Subject)
	assert.Contains(t, sent[0].Body, "Hey alice,")
	assert.Contains(t, sent[0].Body, "is due on 2024-06-08 09:00.")
	assert.Contains(t, sent[0].Body, "- Task Manager Bot")

	got := f.reload(t, task.ID)
	assert.True(t, got.ReminderSent7)
	assert.False(t, got.ReminderSent3)
	assert.False(t, got.ReminderSent1)

	report, err = f.sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent)
	assert.Len(t, f.sender.Sent(), 1)
}

func TestReminderWindow(t *testing.T) {
	tests := []struct {
		name   string
		left   time.Duration
		sent   func(*model.Task)
		want   model.ReminderWindow
		wantOK bool
	}{
		{name: "seven days", left: 7*day + 3*time.Hour, want: model.ReminderWeek, wantOK: true},
		{name: "seven days already sent", left: 7*day + 3*time.Hour, sent: func(t *model.Task) { t.ReminderSent7 = true }},
		{name: "five days", left: 5 * day},
		{name: "three days", left: 3*day + time.Hour, want: model.ReminderThreeDays, wantOK: true},
		{name: "three days wins over later one day", left: 3 * day, want: model.ReminderThreeDays, wantOK: true},
		{name: "three days sent, not yet one day", left: 3*day + time.Hour, sent: func(t *model.Task) { t.ReminderSent3 = true }},
		{name: "within 24h", left: 20 * time.Hour, want: model.ReminderOneDay, wantOK: true},
		{name: "exactly 24h", left: 24 * time.Hour, want: model.ReminderOneDay, wantOK: true},
		{name: "24h59m floors to 24", left: 24*time.Hour + 59*time.Minute, want: model.ReminderOneDay, wantOK: true},
		{name: "overdue", left: -2 * time.Hour, want: model.ReminderOneDay, wantOK: true},
		{name: "overdue already reminded", left: -2 * time.Hour, sent: func(t *model.Task) { t.ReminderSent1 = true }},
		{name: "two days", left: 2 * day},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := sweepNow.Add(tt.left)
			task := &model.Task{DueAt: &due}
			if tt.sent != nil {
				tt.sent(task)
			}
			got, ok := reminderWindow(task, sweepNow)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSweepThreeDayBeforeOneDay(t *testing.T) {
	f := newFixture(t)
	owner := f.account(t, "bob", "bob@example.com", true)
	task := f.task(t, owner, "Pay rent", sweepNow.Add(3*day+2*time.Hour))

	_, err := f.sched.Sweep(context.Background())
	require.NoError(t, err)

	got := f.reload(t, task.ID)
	assert.True(t, got.ReminderSent3)
	assert.False(t, got.ReminderSent1)
	require.Len(t, f.sender.Sent(), 1)
	assert.Equal(t, "Reminder: 'Pay rent' is due in 3 day(s)", f.sender.Sent()[0].Subject)
}

func TestSweepDispatchFailureLeavesFlags(t *testing.T) {
	f := newFixture(t)
	failing := f.account(t, "carol", "carol@example.com", true)
	healthy := f.account(t, "dave", "dave@example.com", true)
	f.sender.FailTo["carol@example.com"] = true

	broken := f.task(t, failing, "Broken", sweepNow.Add(7*day))
	fine := f.task(t, healthy, "Fine", sweepNow.Add(7*day+time.Minute))

	report, err := f.sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)

	assert.False(t, f.reload(t, broken.ID).ReminderSent7)
	assert.True(t, f.reload(t, fine.ID).ReminderSent7)

	// 下次扫描会重试
	delete(f.sender.FailTo, "carol@example.com")
	report, err = f.sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.True(t, f.reload(t, broken.ID).ReminderSent7)
}

func TestSweepSkipsIneligible(t *testing.T) {
	f := newFixture(t)
	noFeature := f.account(t, "erin", "erin@example.com", false)
	noEmail := f.account(t, "frank", "", true)
	owner := f.account(t, "grace", "grace@example.com", true)

	f.task(t, noFeature, "No feature", sweepNow.Add(7*day))
	f.task(t, noEmail, "No email", sweepNow.Add(7*day))
	done := f.task(t, owner, "Done", sweepNow.Add(7*day))
	_, err := f.store.Tasks().MarkCompleted(context.Background(), done.ID, sweepNow)
	require.NoError(t, err)
	undated := &model.Task{AccountID: owner, Content: "Someday"}
	require.NoError(t, f.store.Tasks().Create(context.Background(), undated))

	report, err := f.sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
	assert.Empty(t, f.sender.Sent())
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	locker := cache.NewLocker(rdb)

	f := newFixture(t)
	f.sched.opts.Locker = locker
	owner := f.account(t, "heidi", "heidi@example.com", true)
	f.task(t, owner, "Locked", sweepNow.Add(7*day))

	_, ok, err := locker.TryLock(context.Background(), sweepLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	report, err := f.sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Empty(t, f.sender.Sent())

	mr.FastForward(2 * time.Minute)
	report, err = f.sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
}
