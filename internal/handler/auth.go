package handler

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/sessions"
	"go.uber.org/zap"

	"TaskQuest/internal/model"
	"TaskQuest/internal/service"
	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/identity"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/response"
	"TaskQuest/pkg/token"
)

const oauthStateKey = "oauth_state"

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResult 登录成功的响应
type AuthResult struct {
	Account *model.Account `json:"account"`
	Tokens  token.Pair     `json:"tokens"`
	Created bool           `json:"created,omitempty"`
}

// issue 签发令牌对并记录 refresh token
func (h *Handler) issue(ctx context.Context, account *model.Account) (token.Pair, error) {
	publicID := strconv.FormatInt(account.PublicID, 10)
	pair, err := h.Tokens.IssuePair(publicID)
	if err != nil {
		return token.Pair{}, err
	}
	if err := h.Refresh.Set(ctx, publicID, pair.RefreshToken); err != nil {
		return token.Pair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

// Register 注册
// POST /v1/auth/register
func (h *Handler) Register(ctx context.Context, c *app.RequestContext) {
	var req service.RegisterInput
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	account, err := h.Accounts.Register(ctx, req)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	pair, err := h.issue(ctx, account)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Created(ctx, c, AuthResult{Account: account, Tokens: pair, Created: true})
}

// Login 用户名密码登录
// POST /v1/auth/login
func (h *Handler) Login(ctx context.Context, c *app.RequestContext) {
	var req loginRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	account, err := h.Accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	pair, err := h.issue(ctx, account)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, AuthResult{Account: account, Tokens: pair})
}

// RefreshToken 用 refresh token 换新的令牌对，旧的 refresh token 随即失效
// POST /v1/auth/token/refresh
func (h *Handler) RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req refreshRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	publicID, err := h.Tokens.ParseRefresh(req.RefreshToken)
	if err != nil {
		fail(ctx, c, errors.Unauthorized)
		return
	}
	ok, err := h.Refresh.Matches(ctx, publicID, req.RefreshToken)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	if !ok {
		fail(ctx, c, errors.Unauthorized)
		return
	}

	id, err := strconv.ParseInt(publicID, 10, 64)
	if err != nil {
		fail(ctx, c, errors.Unauthorized)
		return
	}
	account, err := h.Accounts.GetByPublicID(ctx, id)
	if err != nil {
		if stderrors.Is(err, errors.AccountNotFound) {
			err = errors.Unauthorized
		}
		fail(ctx, c, err)
		return
	}

	pair, err := h.issue(ctx, account)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, pair)
}

// Logout 作废 refresh token
// POST /v1/auth/logout
func (h *Handler) Logout(ctx context.Context, c *app.RequestContext) {
	accountID, ok := currentAccount(ctx, c)
	if !ok {
		return
	}
	account, err := h.Accounts.Get(ctx, accountID)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	if err := h.Refresh.Delete(ctx, strconv.FormatInt(account.PublicID, 10)); err != nil {
		fail(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// GoogleStart 跳转到 Google 授权页
// GET /v1/auth/google
func (h *Handler) GoogleStart(ctx context.Context, c *app.RequestContext) {
	state := identity.NewState()
	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		fail(ctx, c, fmt.Errorf("save oauth state: %w", err))
		return
	}
	c.Redirect(http.StatusFound, []byte(h.Identity.AuthCodeURL(state)))
}

// GoogleCallback 校验 state，换取邮箱后登录或创建账户
// GET /v1/auth/google/callback
func (h *Handler) GoogleCallback(ctx context.Context, c *app.RequestContext) {
	session := sessions.Default(c)
	expected, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)
	if err := session.Save(); err != nil {
		logger.Logger.Warn("Failed to clear oauth state", zap.Error(err))
	}

	if expected == "" || c.Query("state") != expected {
		fail(ctx, c, fmt.Errorf("%w: state mismatch", errors.IdentityFailed))
		return
	}
	code := c.Query("code")
	if code == "" {
		fail(ctx, c, fmt.Errorf("%w: missing code", errors.IdentityFailed))
		return
	}

	profile, err := h.Identity.Exchange(ctx, code)
	if err != nil {
		logger.Logger.Warn("Identity exchange failed",
			zap.Bool("configured", !stderrors.Is(err, identity.ErrNotConfigured)),
			zap.Error(err),
		)
		fail(ctx, c, errors.IdentityFailed)
		return
	}

	account, created, err := h.Accounts.LoginWithIdentity(ctx, profile.Email)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	pair, err := h.issue(ctx, account)
	if err != nil {
		fail(ctx, c, err)
		return
	}
	response.Success(ctx, c, AuthResult{Account: account, Tokens: pair, Created: created})
}
