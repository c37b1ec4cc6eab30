package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"TaskQuest/pkg/response"
)

type triviaAnswerRequest struct {
	Answer string `json:"answer" validate:"required,notblank"`
}

// NextQuestion 拉取一道新题，覆盖未作答的题目
// GET /v1/trivia/question
func (h *Handler) NextQuestion(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	q, err := h.Trivia.NextQuestion(ctx, accountID)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, q)
}

// SubmitAnswer 提交答案
// POST /v1/trivia/answer
func (h *Handler) SubmitAnswer(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	var req triviaAnswerRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	result, err := h.Trivia.SubmitAnswer(ctx, accountID, req.Answer)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, result)
}

// GET /v1/trivia/status
func (h *Handler) TriviaStatus(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	status, err := h.Trivia.Status(ctx, accountID)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, status)
}

// GET /v1/trivia/history
func (h *Handler) TriviaHistory(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	history, err := h.Trivia.History(ctx, accountID, limitQuery(c))
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, history)
}

// Leaderboard 按最长连胜排序
// GET /v1/trivia/leaderboard
func (h *Handler) Leaderboard(ctx context.Context, c *app.RequestContext) {
	board, err := h.Trivia.Leaderboard(ctx, limitQuery(c))
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, board)
}
