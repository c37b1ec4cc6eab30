package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"TaskQuest/internal/service"
	"TaskQuest/pkg/response"
)

// GetProfile 当前账户概览
// GET /v1/me
func (h *Handler) GetProfile(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	profile, err := h.Accounts.Profile(ctx, accountID)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, profile)
}

// UpdateEmail 设置或修改邮箱
// PUT /v1/me/email
func (h *Handler) UpdateEmail(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	var req service.EmailInput
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	account, err := h.Accounts.UpdateEmail(ctx, accountID, req)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, account)
}

// ListTransactions 积分流水
// GET /v1/me/transactions
func (h *Handler) ListTransactions(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	limit := limitQuery(c)
	txs, err := h.Ledger.Transactions(ctx, accountID, limit)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.SuccessWithMeta(ctx, c, txs, map[string]interface{}{"limit": limit})
}
