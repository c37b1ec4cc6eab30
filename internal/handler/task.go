package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"TaskQuest/internal/model"
	"TaskQuest/internal/service"
	"TaskQuest/pkg/response"
)

type createTaskRequest struct {
	DueAt   *time.Time `json:"due_at"`
	Content string     `json:"content" validate:"required,notblank"`
}

type updateTaskRequest struct {
	Content  *string    `json:"content" validate:"omitempty,notblank"`
	DueAt    *time.Time `json:"due_at"`
	ClearDue bool       `json:"clear_due"`
}

// ListTasks ?search=&tags=1,2&archived=true
// GET /v1/tasks
func (h *Handler) ListTasks(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}

	archived, _ := strconv.ParseBool(c.DefaultQuery("archived", "false"))
	tasks, err := h.Tasks.List(ctx, accountID, service.ListTasksInput{
		Search:   c.Query("search"),
		TagIDs:   idsQuery(c.Query("tags")),
		Archived: archived,
	})
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, tasks)
}

// CreateTask 创建任务
// POST /v1/tasks
func (h *Handler) CreateTask(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	var req createTaskRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	task, err := h.Tasks.Create(ctx, accountID, service.CreateTaskInput{DueAt: req.DueAt, Content: req.Content})
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Created(ctx, c, task)
}

// GET /v1/tasks/:task_id
func (h *Handler) GetTask(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, c, "task_id")
	if !ok {
		return
	}

	task, err := h.Tasks.Get(ctx, accountID, taskID)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, task)
}

// UpdateTask 修改内容或截止时间，需要 update_task 功能
// PATCH /v1/tasks/:task_id
func (h *Handler) UpdateTask(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, c, "task_id")
	if !ok {
		return
	}
	var req updateTaskRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	task, err := h.Tasks.Update(ctx, accountID, taskID, service.UpdateTaskInput{
		Content:  req.Content,
		DueAt:    req.DueAt,
		ClearDue: req.ClearDue,
	})
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, task)
}

// DELETE /v1/tasks/:task_id
func (h *Handler) DeleteTask(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, c, "task_id")
	if !ok {
		return
	}

	if err := h.Tasks.Delete(ctx, accountID, taskID); err != nil {
		fail(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// CompleteTask 完成任务并结算积分
// POST /v1/tasks/:task_id/complete
func (h *Handler) CompleteTask(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, c, "task_id")
	if !ok {
		return
	}

	result, err := h.Tasks.Complete(ctx, accountID, taskID)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, result)
}

// AttachTag POST /v1/tasks/:task_id/tags/:tag_id
func (h *Handler) AttachTag(ctx context.Context, c *app.RequestContext) {
	h.changeTag(ctx, c, h.Tasks.AttachTag)
}

// DetachTag DELETE /v1/tasks/:task_id/tags/:tag_id
func (h *Handler) DetachTag(ctx context.Context, c *app.RequestContext) {
	h.changeTag(ctx, c, h.Tasks.DetachTag)
}

func (h *Handler) changeTag(ctx context.Context, c *app.RequestContext,
	apply func(ctx context.Context, accountID, taskID, tagID int64) (*model.Task, error),
) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, c, "task_id")
	if !ok {
		return
	}
	tagID, ok := pathID(ctx, c, "tag_id")
	if !ok {
		return
	}

	task, err := apply(ctx, accountID, taskID, tagID)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, task)
}
