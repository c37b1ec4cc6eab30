package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"TaskQuest/internal/model"
)

const taskTagsTable = "task_tags"

type taskRepo struct {
	db *gorm.DB
}

func (r *taskRepo) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Omit("Tags").Create(task).Error
}

func (r *taskRepo) Get(ctx context.Context, id int64) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("Tags").First(&task, id).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *taskRepo) Save(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"content": task.Content,
			"due_at":  task.DueAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepo) MarkCompleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND completed = ?", id, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *taskRepo) ResetReminders(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reminder_sent_7": false,
			"reminder_sent_3": false,
			"reminder_sent_1": false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 软删除任务并移除标签关联
func (r *taskRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Select("Tags").
		Delete(&model.Task{BaseModel: model.BaseModel{ID: id}})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepo) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("account_id = ?", filter.AccountID)

	if filter.Completed != nil {
		q = q.Where("completed = ?", *filter.Completed)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q = q.Where("content ILIKE ?", "%"+escapeLike(s)+"%")
	}
	if ids := uniqueIDs(filter.TagIDs); len(ids) > 0 {
		withAll := r.db.Table(taskTagsTable).
			Select("task_id").
			Where("tag_id IN ?", ids).
			Group("task_id").
			Having("COUNT(DISTINCT tag_id) = ?", len(ids))
		q = q.Where("id IN (?)", withAll)
	}

	var tasks []model.Task
	err := q.Preload("Tags").Order("id ASC").Find(&tasks).Error
	return tasks, err
}

type reminderRow struct {
	model.Task
	OwnerUsername string
	OwnerEmail    string
}

func (r *taskRepo) ListReminderCandidates(ctx context.Context, featureKey string, dueBefore time.Time) ([]ReminderCandidate, error) {
	var rows []reminderRow
	err := r.db.WithContext(ctx).Table("tasks").
		Select("tasks.*, a.username AS owner_username, a.email AS owner_email").
		Joins("JOIN accounts a ON a.id = tasks.account_id AND a.deleted_at IS NULL").
		Joins("JOIN account_features af ON af.account_id = a.id").
		Joins("JOIN features f ON f.id = af.feature_id AND f.key = ?", featureKey).
		Where("tasks.deleted_at IS NULL AND tasks.completed = ?", false).
		Where("tasks.due_at IS NOT NULL AND tasks.due_at <= ?", dueBefore).
		Where("a.email IS NOT NULL AND a.email <> ''").
		Order("tasks.due_at ASC, tasks.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	candidates := make([]ReminderCandidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, ReminderCandidate{
			Task:     row.Task,
			Username: row.OwnerUsername,
			Email:    row.OwnerEmail,
		})
	}
	return candidates, nil
}

func (r *taskRepo) MarkReminderSent(ctx context.Context, taskID int64, window model.ReminderWindow) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", taskID).
		UpdateColumn(window.Column(), true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepo) AttachTag(ctx context.Context, taskID, tagID int64) error {
	return r.db.WithContext(ctx).Table(taskTagsTable).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]interface{}{"task_id": taskID, "tag_id": tagID}).Error
}

func (r *taskRepo) DetachTag(ctx context.Context, taskID, tagID int64) error {
	return r.db.WithContext(ctx).
		Exec("DELETE FROM "+taskTagsTable+" WHERE task_id = ? AND tag_id = ?", taskID, tagID).Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
