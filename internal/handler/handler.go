// Package handler HTTP 接口层：解析请求、调用 service、输出统一响应。
package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"TaskQuest/internal/middleware"
	"TaskQuest/internal/service"
	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/identity"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/response"
	"TaskQuest/pkg/token"
	"TaskQuest/pkg/validate"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RefreshStore 每个账户当前有效的 refresh token
type RefreshStore interface {
	Set(ctx context.Context, publicID, token string) error
	Matches(ctx context.Context, publicID, token string) (bool, error)
	Delete(ctx context.Context, publicID string) error
}

// Deps 由 cmd/server 组装
type Deps struct {
	Accounts *service.AccountService
	Ledger   *service.Ledger
	Unlock   *service.UnlockService
	Trivia   *service.TriviaService
	Tasks    *service.TaskService
	Tags     *service.TagService
	Blog     *service.BlogService
	Tokens   *token.Manager
	Refresh  RefreshStore
	Identity identity.Provider
}

type Handler struct {
	Deps
}

func New(deps Deps) *Handler {
	return &Handler{Deps: deps}
}

// fail 输出错误响应，5xx 记录日志
func fail(ctx context.Context, c *app.RequestContext, err error) {
	if response.StatusOf(err) >= 500 {
		logger.Logger.Error("Request failed",
			zap.String("method", string(c.Method())),
			zap.String("path", string(c.Path())),
			zap.Error(err),
		)
		_ = c.Error(err)
	}
	if details := validate.Details(err); details != nil {
		response.ErrorWithDetails(ctx, c, err, details)
		return
	}
	response.Error(ctx, c, err)
}

// bindJSON 解析请求体并做字段校验
func bindJSON(ctx context.Context, c *app.RequestContext, req interface{}) bool {
	if err := c.BindJSON(req); err != nil {
		response.BindError(ctx, c, err)
		return false
	}
	if err := validate.Struct(req); err != nil {
		fail(ctx, c, err)
		return false
	}
	return true
}

// currentAccount 由 middleware.LoadAccount 写入
func currentAccount(ctx context.Context, c *app.RequestContext) (int64, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return 0, false
	}
	return id, true
}

func pathID(ctx context.Context, c *app.RequestContext, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BindError(ctx, c, errors.InvalidRequest)
		return 0, false
	}
	return id, true
}

// limitQuery ?limit=，缺省 20，上限 100
func limitQuery(c *app.RequestContext) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", ""))
	if err != nil || n <= 0 {
		return defaultPageSize
	}
	return min(n, maxPageSize)
}

// idsQuery 解析逗号分隔的 ID 列表，非法项忽略
func idsQuery(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
