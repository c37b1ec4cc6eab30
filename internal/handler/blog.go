package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"TaskQuest/pkg/response"
)

type blogContentRequest struct {
	Content string `json:"content" validate:"required,notblank"`
}

// Feed 最新帖子与评论
// GET /v1/blog
func (h *Handler) Feed(ctx context.Context, c *app.RequestContext) {
	posts, err := h.Blog.Feed(ctx, limitQuery(c))
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, posts)
}

// CreatePost 发帖花费 1 分
// POST /v1/blog
func (h *Handler) CreatePost(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	var req blogContentRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	post, err := h.Blog.CreatePost(ctx, accountID, req.Content)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Created(ctx, c, post)
}

// POST /v1/blog/:post_id/comments
func (h *Handler) CreateComment(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	postID, ok := pathID(ctx, c, "post_id")
	if !ok {
		return
	}
	var req blogContentRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	comment, err := h.Blog.Comment(ctx, accountID, postID, req.Content)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Created(ctx, c, comment)
}
