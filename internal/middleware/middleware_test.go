package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskQuest/internal/model"
	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/response"
	"TaskQuest/pkg/token"
)

func newEngine() *route.Engine {
	return route.NewEngine(config.NewOptions(nil))
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error.Code
}

type fakeAccounts map[int64]*model.Account

func (f fakeAccounts) GetByPublicID(ctx context.Context, publicID int64) (*model.Account, error) {
	if a, ok := f[publicID]; ok {
		return a, nil
	}
	return nil, errors.AccountNotFound
}

func TestAuthAndLoadAccount(t *testing.T) {
	m := token.NewManager("test-secret", time.Hour, 24*time.Hour)
	jwtMW, err := NewJWT(m)
	require.NoError(t, err)

	accounts := fakeAccounts{42: {BaseModel: model.BaseModel{ID: 7}, PublicID: 42}}
	engine := newEngine()
	engine.GET("/me", jwtMW.MiddlewareFunc(), LoadAccount(accounts), func(ctx context.Context, c *app.RequestContext) {
		id, ok := AccountID(c)
		require.True(t, ok)
		c.String(http.StatusOK, strconv.FormatInt(id, 10))
	})

	pair, err := m.IssuePair("42")
	require.NoError(t, err)
	ghost, err := m.IssuePair("99")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"access token", "Bearer " + pair.AccessToken, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"unknown account", "Bearer " + ghost.AccessToken, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers []ut.Header
			if tt.header != "" {
				headers = append(headers, ut.Header{Key: "Authorization", Value: tt.header})
			}
			resp := ut.PerformRequest(engine, http.MethodGet, "/me", nil, headers...).Result()
			assert.Equal(t, tt.status, resp.StatusCode())
			if tt.status == http.StatusOK {
				assert.Equal(t, "7", string(resp.Body()))
			} else {
				assert.Equal(t, errors.Unauthorized.Code, errorCode(t, resp.Body()))
			}
		})
	}
}

func TestRateLimiterBlocks(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := NewRateLimiter(rdb, RateLimitConfig{
		KeyPrefix:     "rate:test",
		MaxRequests:   2,
		Window:        time.Minute,
		BlockDuration: time.Minute,
	})
	engine := newEngine()
	engine.POST("/login", limiter.Middleware(), func(ctx context.Context, c *app.RequestContext) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		resp := ut.PerformRequest(engine, http.MethodPost, "/login", nil).Result()
		require.Equal(t, http.StatusNoContent, resp.StatusCode())
	}

	resp := ut.PerformRequest(engine, http.MethodPost, "/login", nil).Result()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode())
	assert.Equal(t, errors.RateLimited.Code, errorCode(t, resp.Body()))
	assert.Equal(t, "0", string(resp.Header.Peek("X-RateLimit-Remaining")))

	// 窗口与封禁都过期后恢复
	mr.FastForward(2 * time.Minute)
	limiter.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	resp = ut.PerformRequest(engine, http.MethodPost, "/login", nil).Result()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
}

func TestRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	engine := newEngine()
	engine.GET("/ping", NewRateLimiter(rdb, AuthRateLimitConfig).Middleware(), func(ctx context.Context, c *app.RequestContext) {
		c.Status(http.StatusOK)
	})
	resp := ut.PerformRequest(engine, http.MethodGet, "/ping", nil).Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestRecoverMiddleware(t *testing.T) {
	engine := newEngine()
	engine.Use(RecoverMiddleware(RecoverConfig{StackTraceLevel: "none", ExposeDetails: true}))
	engine.GET("/boom", func(ctx context.Context, c *app.RequestContext) {
		panic("boom")
	})

	resp := ut.PerformRequest(engine, http.MethodGet, "/boom", nil).Result()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())

	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &body))
	assert.Equal(t, errors.Internal.Code, body.Error.Code)
	assert.Equal(t, "boom", body.Error.Details["panic"])
}

func TestCORSPreflight(t *testing.T) {
	engine := newEngine()
	engine.Use(CORSMiddleware("https://app.example.com"))
	engine.OPTIONS("/v1/tasks", func(ctx context.Context, c *app.RequestContext) {
		c.Status(http.StatusOK)
	})

	resp := ut.PerformRequest(engine, http.MethodOptions, "/v1/tasks", nil,
		ut.Header{Key: "Origin", Value: "https://app.example.com"},
	).Result()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	assert.Equal(t, "https://app.example.com", string(resp.Header.Peek("Access-Control-Allow-Origin")))

	resp = ut.PerformRequest(engine, http.MethodOptions, "/v1/tasks", nil,
		ut.Header{Key: "Origin", Value: "https://evil.example.com"},
	).Result()
	assert.Empty(t, string(resp.Header.Peek("Access-Control-Allow-Origin")))
}
