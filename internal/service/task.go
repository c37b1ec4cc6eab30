package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/logger"
)

// 完成任务至少经过的小时数才有积分
const minHoursForPoints = 4

type TaskService struct {
	store repository.Store
	now   func() time.Time
}

func NewTaskService(store repository.Store) *TaskService {
	return &TaskService{store: store, now: time.Now}
}

type CreateTaskInput struct {
	DueAt   *time.Time
	Content string
}

// ListTasksInput Archived 为 true 时列出已完成的任务
type ListTasksInput struct {
	Search   string
	TagIDs   []int64
	Archived bool
}

// UpdateTaskInput nil 字段保持不变；ClearDue 移除截止时间
type UpdateTaskInput struct {
	Content  *string
	DueAt    *time.Time
	ClearDue bool
}

type CompleteResult struct {
	Task         *model.Task `json:"task"`
	PointsEarned int64       `json:"points_earned"`
	Balance      int64       `json:"balance"`
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalid("task content is empty")
	}
	if utf8.RuneCountInString(content) > model.TaskContentMaxLen {
		return "", invalid("task content exceeds %d characters", model.TaskContentMaxLen)
	}
	return content, nil
}

func (s *TaskService) Create(ctx context.Context, accountID int64, in CreateTaskInput) (*model.Task, error) {
	content, err := normalizeContent(in.Content)
	if err != nil {
		return nil, err
	}

	task := &model.Task{AccountID: accountID, Content: content, DueAt: in.DueAt}
	if err := s.store.Tasks().Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// owned 读取任务并校验归属
func (s *TaskService) owned(ctx context.Context, repo repository.TaskRepository, accountID, taskID int64) (*model.Task, error) {
	task, err := repo.Get(ctx, taskID)
	if err != nil {
		return nil, notFoundAs(err, errors.TaskNotFound, "load task")
	}
	if task.AccountID != accountID {
		logger.Logger.Warn("Task ownership check failed",
			zap.Int64("account_id", accountID),
			zap.Int64("task_id", taskID),
		)
		return nil, errors.Unauthorized
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, accountID, taskID int64) (*model.Task, error) {
	return s.owned(ctx, s.store.Tasks(), accountID, taskID)
}

// List 默认只列未完成任务；Search 大小写不敏感；TagIDs 需全部命中
func (s *TaskService) List(ctx context.Context, accountID int64, in ListTasksInput) ([]model.Task, error) {
	completed := in.Archived
	filter := repository.TaskFilter{
		AccountID: accountID,
		Completed: &completed,
		Search:    strings.TrimSpace(in.Search),
		TagIDs:    in.TagIDs,
	}
	// 搜索覆盖全部任务
	if filter.Search != "" && !in.Archived {
		filter.Completed = nil
	}
	return s.store.Tasks().List(ctx, filter)
}

// Update 需要 update_task 功能；已完成的任务不可编辑；修改截止时间会重置提醒标记
func (s *TaskService) Update(ctx context.Context, accountID, taskID int64, in UpdateTaskInput) (*model.Task, error) {
	var task *model.Task
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		task, err = s.owned(ctx, tx.Tasks(), accountID, taskID)
		if err != nil {
			return err
		}
		if task.Completed {
			return errors.TaskCompleted
		}
		if err := requireFeature(ctx, tx.Features(), accountID, model.FeatureUpdateTask); err != nil {
			return err
		}

		if in.Content != nil {
			content, err := normalizeContent(*in.Content)
			if err != nil {
				return err
			}
			task.Content = content
		}

		dueChanged := false
		switch {
		case in.ClearDue:
			if task.DueAt != nil {
				task.DueAt = nil
				dueChanged = true
			}
		case in.DueAt != nil:
			if task.DueAt == nil || !task.DueAt.Equal(*in.DueAt) {
				due := *in.DueAt
				task.DueAt = &due
				dueChanged = true
			}
		}

		if err := tx.Tasks().Save(ctx, task); err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		if dueChanged {
			if err := tx.Tasks().ResetReminders(ctx, taskID); err != nil {
				return fmt.Errorf("reset reminders: %w", err)
			}
		}

		task, err = tx.Tasks().Get(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Complete 距创建满 4 小时奖励 floor(小时/2) 分；已完成的任务不重复计分
func (s *TaskService) Complete(ctx context.Context, accountID, taskID int64) (*CompleteResult, error) {
	result := &CompleteResult{}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		task, err := s.owned(ctx, tx.Tasks(), accountID, taskID)
		if err != nil {
			return err
		}
		result.Task = task

		ledger := NewLedger(tx)
		now := s.now()
		changed, err := tx.Tasks().MarkCompleted(ctx, taskID, now)
		if err != nil {
			return fmt.Errorf("complete task: %w", err)
		}
		if !changed {
			result.Balance, err = ledger.Balance(ctx, accountID)
			return err
		}
		task.Completed = true
		task.CompletedAt = &now

		if hours := floorHours(now.Sub(task.CreatedAt)); hours >= minHoursForPoints {
			result.PointsEarned = hours / 2
		}
		result.Balance, err = ledger.Credit(ctx, accountID, result.PointsEarned, model.ReasonTaskCompleted)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *TaskService) Delete(ctx context.Context, accountID, taskID int64) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := s.owned(ctx, tx.Tasks(), accountID, taskID); err != nil {
			return err
		}
		if err := tx.Tasks().Delete(ctx, taskID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}

// AttachTag 任务和标签都必须属于当前账户；重复添加无副作用
func (s *TaskService) AttachTag(ctx context.Context, accountID, taskID, tagID int64) (*model.Task, error) {
	return s.changeTag(ctx, accountID, taskID, tagID, true)
}

func (s *TaskService) DetachTag(ctx context.Context, accountID, taskID, tagID int64) (*model.Task, error) {
	return s.changeTag(ctx, accountID, taskID, tagID, false)
}

func (s *TaskService) changeTag(ctx context.Context, accountID, taskID, tagID int64, attach bool) (*model.Task, error) {
	var task *model.Task
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		task, err = s.owned(ctx, tx.Tasks(), accountID, taskID)
		if err != nil {
			return err
		}
		if _, err := ownedTag(ctx, tx.Tags(), accountID, tagID); err != nil {
			return err
		}

		switch {
		case attach && !task.HasTag(tagID):
			err = tx.Tasks().AttachTag(ctx, taskID, tagID)
		case !attach && task.HasTag(tagID):
			err = tx.Tasks().DetachTag(ctx, taskID, tagID)
		default:
			return nil
		}
		if err != nil && !stderrors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("update task tags: %w", err)
		}

		task, err = tx.Tasks().Get(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}
