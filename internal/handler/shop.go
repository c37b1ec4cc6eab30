package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"TaskQuest/internal/model"
	"TaskQuest/pkg/response"
)

// ShopItem 商店条目，Owned 对可消耗品始终为 false
type ShopItem struct {
	model.Feature
	Owned bool `json:"owned"`
}

type converterAnswerRequest struct {
	Answer string `json:"answer" validate:"required"`
}

// ListShop 功能目录
// GET /v1/shop
func (h *Handler) ListShop(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}

	catalog, err := h.Unlock.Catalog(ctx)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	owned, err := h.Unlock.OwnedFeatures(ctx, accountID)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	ownedIDs := make(map[int64]bool, len(owned))
	for _, f := range owned {
		ownedIDs[f.ID] = true
	}

	items := make([]ShopItem, 0, len(catalog))
	for _, f := range catalog {
		items = append(items, ShopItem{Feature: f, Owned: ownedIDs[f.ID]})
	}
	response.Success(ctx, c, items)
}

// Purchase 购买功能
// POST /v1/shop/:feature_id/purchase
func (h *Handler) Purchase(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	featureID, ok := pathID(ctx, c, "feature_id")
	if !ok {
		return
	}

	result, err := h.Unlock.Purchase(ctx, accountID, featureID)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, result)
}

// ListConverters 换算器题目与解锁状态
// GET /v1/converters
func (h *Handler) ListConverters(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	views, err := h.Unlock.ConverterQuestions(ctx, accountID)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, views)
}

// UnlockConverter 回答题目解锁换算器，答错扣 1 分
// POST /v1/converters/:type/unlock
func (h *Handler) UnlockConverter(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	var req converterAnswerRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	converterType := c.Param("type")
	created, err := h.Unlock.UnlockConverter(ctx, accountID, converterType, req.Answer)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, map[string]interface{}{
		"type":           converterType,
		"unlocked":       true,
		"newly_unlocked": created,
	})
}
