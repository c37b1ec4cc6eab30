package middleware

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"
	"go.uber.org/zap"

	"TaskQuest/internal/model"
	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/response"
	"TaskQuest/pkg/token"
)

const (
	IdentityKey  = token.IdentityKey
	accountIDKey = "account_id"
	userIDKey    = "user_id"
)

// AccountResolver 把 JWT 里的 public_id 换成账户
type AccountResolver interface {
	GetByPublicID(ctx context.Context, publicID int64) (*model.Account, error)
}

// NewJWT 基于 token.Manager 的密钥与有效期构造 hertz jwt 中间件
func NewJWT(m *token.Manager) (*jwt.HertzJWTMiddleware, error) {
	if m == nil {
		return nil, fmt.Errorf("token manager not initialized, call token.Init() first")
	}

	return jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "TaskQuest API",
		Key:         m.Key(),
		Timeout:     m.AccessTTL(),
		MaxRefresh:  m.RefreshTTL(),
		IdentityKey: IdentityKey,
		TimeFunc:    m.TimeFunc(),

		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			// refresh token 不能当 access token 用
			if t, _ := claims["type"].(string); t != "" {
				return nil
			}
			uid, _ := claims[IdentityKey].(string)
			if uid == "" {
				return nil
			}
			return uid
		},
		Authorizator: func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
			_, ok := data.(string)
			return ok
		},
		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			response.Error(ctx, c, errors.Unauthorized)
		},

		TokenLookup:   "header: Authorization, query: token, cookie: jwt",
		TokenHeadName: "Bearer",
	})
}

// LoadAccount 在 jwt 中间件之后解析出内部账户 ID
func LoadAccount(accounts AccountResolver) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		uid, ok := GetUserID(c)
		if !ok {
			response.Error(ctx, c, errors.Unauthorized)
			c.Abort()
			return
		}
		publicID, err := strconv.ParseInt(uid, 10, 64)
		if err != nil {
			response.Error(ctx, c, errors.Unauthorized)
			c.Abort()
			return
		}

		account, err := accounts.GetByPublicID(ctx, publicID)
		if err != nil {
			if !stderrors.Is(err, errors.AccountNotFound) {
				logger.Logger.Error("Failed to resolve account", zap.String("public_id", uid), zap.Error(err))
			}
			response.Error(ctx, c, errors.Unauthorized)
			c.Abort()
			return
		}

		c.Set(accountIDKey, account.ID)
		c.Set(userIDKey, uid)
		c.Next(ctx)
	}
}

// GetUserID 账户 public_id（字符串）
func GetUserID(c *app.RequestContext) (string, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// AccountID LoadAccount 写入的内部账户 ID
func AccountID(c *app.RequestContext) (int64, bool) {
	v, exists := c.Get(accountIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
