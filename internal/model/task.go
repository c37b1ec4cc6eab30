package model

import "time"

const TaskContentMaxLen = 200

// ReminderWindow 截止前提醒窗口（天）
type ReminderWindow int

const (
	ReminderWeek      ReminderWindow = 7
	ReminderThreeDays ReminderWindow = 3
	ReminderOneDay    ReminderWindow = 1
)

func (w ReminderWindow) String() string {
	switch w {
	case ReminderWeek:
		return "7d"
	case ReminderThreeDays:
		return "3d"
	case ReminderOneDay:
		return "1d"
	default:
		return "unknown"
	}
}

// Column 对应的标记列
func (w ReminderWindow) Column() string {
	switch w {
	case ReminderWeek:
		return "reminder_sent_7"
	case ReminderThreeDays:
		return "reminder_sent_3"
	default:
		return "reminder_sent_1"
	}
}

// Task 待办任务
type Task struct {
	BaseModel
	AccountID     int64      `gorm:"not null;index:idx_tasks_account_completed" json:"-"`
	Content       string     `gorm:"type:varchar(200);not null" json:"content"`
	DueAt         *time.Time `gorm:"type:timestamptz;index:idx_tasks_due" json:"due_at,omitempty"`
	Completed     bool       `gorm:"not null;default:false;index:idx_tasks_account_completed" json:"completed"`
	CompletedAt   *time.Time `gorm:"type:timestamptz" json:"completed_at,omitempty"`
	ReminderSent7 bool       `gorm:"column:reminder_sent_7;not null;default:false" json:"-"`
	ReminderSent3 bool       `gorm:"column:reminder_sent_3;not null;default:false" json:"-"`
	ReminderSent1 bool       `gorm:"column:reminder_sent_1;not null;default:false" json:"-"`
	Tags          []Tag      `gorm:"many2many:task_tags;" json:"tags"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}

func (t *Task) ReminderSent(w ReminderWindow) bool {
	switch w {
	case ReminderWeek:
		return t.ReminderSent7
	case ReminderThreeDays:
		return t.ReminderSent3
	case ReminderOneDay:
		return t.ReminderSent1
	}
	return false
}

func (t *Task) MarkReminderSent(w ReminderWindow) {
	switch w {
	case ReminderWeek:
		t.ReminderSent7 = true
	case ReminderThreeDays:
		t.ReminderSent3 = true
	case ReminderOneDay:
		t.ReminderSent1 = true
	}
}

// ResetReminders 截止时间变更后重新提醒
func (t *Task) ResetReminders() {
	t.ReminderSent7 = false
	t.ReminderSent3 = false
	t.ReminderSent1 = false
}

// HasTag 任务是否带有该标签
func (t *Task) HasTag(tagID int64) bool {
	for _, tag := range t.Tags {
		if tag.ID == tagID {
			return true
		}
	}
	return false
}
