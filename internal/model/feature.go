package model

import "time"

// 商店功能 key
const (
	FeatureUpdateTask    = "update_task"
	FeatureAddTags       = "add_tags"
	FeatureTaskReminder  = "task_reminder"
	FeatureBlog          = "blog"
	FeatureDarkMode      = "dark_mode"
	FeatureTriviaFreezer = "trivia_freezer"
)

// Feature 商店中可解锁的功能
type Feature struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Key         string `gorm:"uniqueIndex;type:varchar(50);not null" json:"key"`
	Name        string `gorm:"uniqueIndex;type:varchar(50);not null" json:"name"`
	Description string `gorm:"type:varchar(200);not null" json:"description"`
	Cost        int64  `gorm:"not null;check:chk_features_cost_non_negative,cost >= 0" json:"cost"`
	Consumable  bool   `gorm:"not null;default:false" json:"consumable"` // 可重复购买，不记录拥有关系
}

// TableName 指定表名
func (Feature) TableName() string {
	return "features"
}

// DefaultFeatures 初始功能目录，按 key 幂等写入
var DefaultFeatures = []Feature{
	{Key: FeatureUpdateTask, Name: "Update Task", Description: "Unlock the ability to update task names.", Cost: 100},
	{Key: FeatureAddTags, Name: "Tags", Description: "You can add tags to your tasks.", Cost: 250},
	{Key: FeatureTaskReminder, Name: "Task Reminder", Description: "Sends you emails to remind you of tasks.", Cost: 500},
	{Key: FeatureBlog, Name: "Blog", Description: "You can now talk to people!", Cost: 100},
	{Key: FeatureDarkMode, Name: "Dark Mode", Description: "You can now use Dark Mode in dashboard!", Cost: 50},
	{Key: FeatureTriviaFreezer, Name: "Trivia Freezer", Description: "Protects your trivia streak from breaking once.", Cost: 100, Consumable: true},
}

// UnlockSource 功能获得方式
type UnlockSource string

const (
	UnlockPurchased UnlockSource = "purchase"
	UnlockRewarded  UnlockSource = "reward"
)

// AccountFeature 账户拥有的功能，(account_id, feature_id) 唯一
type AccountFeature struct {
	CreatedAt time.Time    `gorm:"not null;default:now()" json:"created_at"`
	Source    UnlockSource `gorm:"type:varchar(16);not null" json:"source"`
	AccountID int64        `gorm:"primaryKey" json:"account_id"`
	FeatureID int64        `gorm:"primaryKey" json:"feature_id"`
}

// TableName 指定表名
func (AccountFeature) TableName() string {
	return "account_features"
}
