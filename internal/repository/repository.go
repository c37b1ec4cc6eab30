package repository

import (
	"context"
	"errors"
	"time"

	"TaskQuest/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store 聚合所有仓储。Transaction 内拿到的 tx Store 与外层实现相同，
// 在 fn 中的写入对同一 tx 的后续读取可见，fn 返回错误则全部回滚
type Store interface {
	Accounts() AccountRepository
	Features() FeatureRepository
	Converters() ConverterRepository
	Tasks() TaskRepository
	Tags() TagRepository
	Trivia() TriviaRepository
	Blog() BlogRepository

	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	Get(ctx context.Context, id int64) (*model.Account, error)
	// GetForUpdate 在事务中加行锁读取
	GetForUpdate(ctx context.Context, id int64) (*model.Account, error)
	GetByPublicID(ctx context.Context, publicID int64) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	UpdateEmail(ctx context.Context, id int64, email string) error

	// AddPoints 返回变动后的余额
	AddPoints(ctx context.Context, id int64, amount int64) (int64, error)
	// DeductPoints 条件扣减：余额不足时 ok=false 且不做任何修改
	DeductPoints(ctx context.Context, id int64, amount int64) (balance int64, ok bool, err error)
	AddFreezers(ctx context.Context, id int64, n int) error
	// ConsumeFreezer 条件扣减一张冻结卡，没有时返回 false
	ConsumeFreezer(ctx context.Context, id int64) (bool, error)

	AppendTransaction(ctx context.Context, tx *model.PointTransaction) error
	ListTransactions(ctx context.Context, accountID int64, limit int) ([]model.PointTransaction, error)
}

type FeatureRepository interface {
	List(ctx context.Context) ([]model.Feature, error)
	Get(ctx context.Context, id int64) (*model.Feature, error)
	GetByKey(ctx context.Context, key string) (*model.Feature, error)
	// EnsureSeeded 按 key 幂等写入，已存在的不覆盖
	EnsureSeeded(ctx context.Context, features []model.Feature) error

	Owned(ctx context.Context, accountID int64) ([]model.Feature, error)
	IsOwned(ctx context.Context, accountID, featureID int64) (bool, error)
	HasKey(ctx context.Context, accountID int64, key string) (bool, error)
	// Grant 已拥有时返回 ErrDuplicate
	Grant(ctx context.Context, accountID, featureID int64, source model.UnlockSource) error
}

type ConverterRepository interface {
	List(ctx context.Context, accountID int64) ([]model.ConverterUnlock, error)
	// Unlock 幂等，已解锁时 created=false
	Unlock(ctx context.Context, accountID int64, converterType string) (created bool, err error)
}

// TaskFilter 任务列表查询条件，零值字段不参与过滤
type TaskFilter struct {
	Completed *bool
	Search    string  // content 大小写不敏感包含
	TagIDs    []int64 // 必须同时带有全部标签
	AccountID int64
}

// ReminderCandidate 提醒扫描的候选任务及其所有者信息
type ReminderCandidate struct {
	Task     model.Task
	Username string
	Email    string
}

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	Get(ctx context.Context, id int64) (*model.Task, error)
	// Save 只写内容与截止时间；完成状态与提醒标记各自按列更新，避免覆盖调度器刚写入的标记
	Save(ctx context.Context, task *model.Task) error
	// MarkCompleted 仅对未完成的任务生效，返回是否发生了变更
	MarkCompleted(ctx context.Context, id int64, at time.Time) (bool, error)
	// ResetReminders 截止时间变更后清空三个提醒标记
	ResetReminders(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	// ListReminderCandidates 未完成、有截止时间、所有者有邮箱并拥有 featureKey 的任务
	ListReminderCandidates(ctx context.Context, featureKey string, dueBefore time.Time) ([]ReminderCandidate, error)
	MarkReminderSent(ctx context.Context, taskID int64, window model.ReminderWindow) error

	AttachTag(ctx context.Context, taskID, tagID int64) error
	DetachTag(ctx context.Context, taskID, tagID int64) error
}

type TagRepository interface {
	// Create 同一账户下重名返回 ErrDuplicate
	Create(ctx context.Context, tag *model.Tag) error
	Get(ctx context.Context, id int64) (*model.Tag, error)
	List(ctx context.Context, accountID int64) ([]model.Tag, error)
	// Delete 同时移除任务上的关联
	Delete(ctx context.Context, id int64) error
}

type TriviaRepository interface {
	GetStreak(ctx context.Context, accountID int64) (*model.TriviaStreak, error)
	GetStreakForUpdate(ctx context.Context, accountID int64) (*model.TriviaStreak, error)
	CreateStreak(ctx context.Context, streak *model.TriviaStreak) error
	SaveStreak(ctx context.Context, streak *model.TriviaStreak) error

	AppendHistory(ctx context.Context, entry *model.TriviaHistory) error
	// ListHistory 最新的在前
	ListHistory(ctx context.Context, accountID int64, limit int) ([]model.TriviaHistory, error)
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

type BlogRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	// ListPosts 最新的在前，带作者与评论
	ListPosts(ctx context.Context, limit int) ([]model.Post, error)
	CreateComment(ctx context.Context, comment *model.Comment) error
}
