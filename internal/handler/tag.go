package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"TaskQuest/pkg/response"
)

type createTagRequest struct {
	Name string `json:"name" validate:"required,notblank"`
}

// GET /v1/tags
func (h *Handler) ListTags(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	tags, err := h.Tags.List(ctx, accountID)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, tags)
}

// CreateTag 需要 add_tags 功能，花费 1 分
// POST /v1/tags
func (h *Handler) CreateTag(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	var req createTagRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	tag, err := h.Tags.Create(ctx, accountID, req.Name)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Created(ctx, c, tag)
}

// DELETE /v1/tags/:tag_id
func (h *Handler) DeleteTag(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	tagID, ok := pathID(ctx, c, "tag_id")
	if !ok {
		return
	}
	if err := h.Tags.Delete(ctx, accountID, tagID); err != nil {
		fail(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}
