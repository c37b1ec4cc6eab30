package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
)

type taskRepo struct{ s *Store }

func (r *taskRepo) Create(ctx context.Context, task *model.Task) error {
	defer r.s.lock()()
	st := r.s.st()

	task.ID = st.nextID()
	task.CreatedAt = r.s.now()
	task.UpdatedAt = task.CreatedAt
	stored := *task
	stored.Tags = nil
	st.tasks[task.ID] = stored
	return nil
}

func (r *taskRepo) Get(ctx context.Context, id int64) (*model.Task, error) {
	defer r.s.lock()()

	t, ok := r.s.st().tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.Tags = r.tagsOf(id)
	return &t, nil
}

// tagsOf 调用方需持有锁
func (r *taskRepo) tagsOf(taskID int64) []model.Tag {
	st := r.s.st()
	var tags []model.Tag
	for key := range st.taskTags {
		if key.taskID != taskID {
			continue
		}
		if tag, ok := st.tags[key.tagID]; ok {
			tags = append(tags, tag)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags
}

func (r *taskRepo) Save(ctx context.Context, task *model.Task) error {
	defer r.s.lock()()
	st := r.s.st()

	existing, ok := st.tasks[task.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Content = task.Content
	existing.DueAt = task.DueAt
	existing.UpdatedAt = r.s.now()
	st.tasks[task.ID] = existing
	return nil
}

func (r *taskRepo) MarkCompleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	defer r.s.lock()()
	st := r.s.st()

	t, ok := st.tasks[id]
	if !ok || t.Completed {
		return false, nil
	}
	t.Completed = true
	t.CompletedAt = &at
	t.UpdatedAt = r.s.now()
	st.tasks[id] = t
	return true, nil
}

func (r *taskRepo) ResetReminders(ctx context.Context, id int64) error {
	defer r.s.lock()()
	st := r.s.st()

	t, ok := st.tasks[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.ResetReminders()
	st.tasks[id] = t
	return nil
}

func (r *taskRepo) Delete(ctx context.Context, id int64) error {
	defer r.s.lock()()
	st := r.s.st()

	if _, ok := st.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(st.tasks, id)
	for key := range st.taskTags {
		if key.taskID == id {
			delete(st.taskTags, key)
		}
	}
	return nil
}

func (r *taskRepo) List(ctx context.Context, filter repository.TaskFilter) ([]model.Task, error) {
	defer r.s.lock()()
	st := r.s.st()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []model.Task
	for _, t := range st.tasks {
		if t.AccountID != filter.AccountID {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Content), search) {
			continue
		}
		if !r.hasAllTags(t.ID, filter.TagIDs) {
			continue
		}
		t.Tags = r.tagsOf(t.ID)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *taskRepo) hasAllTags(taskID int64, tagIDs []int64) bool {
	for _, tagID := range tagIDs {
		if _, ok := r.s.st().taskTags[taskTagKey{taskID, tagID}]; !ok {
			return false
		}
	}
	return true
}

func (r *taskRepo) ListReminderCandidates(ctx context.Context, featureKey string, dueBefore time.Time) ([]repository.ReminderCandidate, error) {
	defer r.s.lock()()
	st := r.s.st()

	var featureID int64 = -1
	for _, f := range st.features {
		if f.Key == featureKey {
			featureID = f.ID
		}
	}

	var out []repository.ReminderCandidate
	for _, t := range st.tasks {
		if t.Completed || t.DueAt == nil || t.DueAt.After(dueBefore) {
			continue
		}
		owner, ok := st.accounts[t.AccountID]
		if !ok || !owner.HasEmail() {
			continue
		}
		if _, owned := st.accountFeatures[accountFeatureKey{owner.ID, featureID}]; !owned {
			continue
		}
		out = append(out, repository.ReminderCandidate{
			Task:     t,
			Username: owner.Username,
			Email:    *owner.Email,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Task.DueAt.Equal(*out[j].Task.DueAt) {
			return out[i].Task.DueAt.Before(*out[j].Task.DueAt)
		}
		return out[i].Task.ID < out[j].Task.ID
	})
	return out, nil
}

func (r *taskRepo) MarkReminderSent(ctx context.Context, taskID int64, window model.ReminderWindow) error {
	defer r.s.lock()()
	st := r.s.st()

	t, ok := st.tasks[taskID]
	if !ok {
		return repository.ErrNotFound
	}
	t.MarkReminderSent(window)
	st.tasks[taskID] = t
	return nil
}

func (r *taskRepo) AttachTag(ctx context.Context, taskID, tagID int64) error {
	defer r.s.lock()()
	r.s.st().taskTags[taskTagKey{taskID, tagID}] = struct{}{}
	return nil
}

func (r *taskRepo) DetachTag(ctx context.Context, taskID, tagID int64) error {
	defer r.s.lock()()
	delete(r.s.st().taskTags, taskTagKey{taskID, tagID})
	return nil
}

type tagRepo struct{ s *Store }

func (r *tagRepo) Create(ctx context.Context, tag *model.Tag) error {
	defer r.s.lock()()
	st := r.s.st()

	for _, t := range st.tags {
		if t.AccountID == tag.AccountID && t.Name == tag.Name {
			return repository.ErrDuplicate
		}
	}
	tag.ID = st.nextID()
	tag.CreatedAt = r.s.now()
	tag.UpdatedAt = tag.CreatedAt
	st.tags[tag.ID] = *tag
	return nil
}

func (r *tagRepo) Get(ctx context.Context, id int64) (*model.Tag, error) {
	defer r.s.lock()()

	t, ok := r.s.st().tags[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *tagRepo) List(ctx context.Context, accountID int64) ([]model.Tag, error) {
	defer r.s.lock()()

	var out []model.Tag
	for _, t := range r.s.st().tags {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *tagRepo) Delete(ctx context.Context, id int64) error {
	defer r.s.lock()()
	st := r.s.st()

	if _, ok := st.tags[id]; !ok {
		return repository.ErrNotFound
	}
	delete(st.tags, id)
	for key := range st.taskTags {
		if key.tagID == id {
			delete(st.taskTags, key)
		}
	}
	return nil
}
