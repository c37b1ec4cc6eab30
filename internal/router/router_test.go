package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/route"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskQuest/internal/cache"
	"TaskQuest/internal/handler"
	"TaskQuest/internal/middleware"
	"TaskQuest/internal/model"
	"TaskQuest/internal/repository/memory"
	"TaskQuest/internal/service"
	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/identity"
	"TaskQuest/pkg/token"
	"TaskQuest/pkg/trivia"
)

type staticQuestion struct{}

func (staticQuestion) Fetch(context.Context) (*trivia.Question, error) {
	return &trivia.Question{Text: "2 + 2?", Correct: "4", Incorrect: []string{"3", "5", "22"}}, nil
}

type apiTest struct {
	t      *testing.T
	engine *route.Engine
	store  *memory.Store
}

func newAPITest(t *testing.T) *apiTest {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	require.NoError(t, store.Features().EnsureSeeded(ctx, model.DefaultFeatures))

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var seq int64
	nextID := func() (int64, error) {
		seq++
		return 5_000 + seq, nil
	}

	tokens := token.NewManager("router-test-secret", time.Hour, 24*time.Hour)
	accounts := service.NewAccountService(store, nextID)
	unlock := service.NewUnlockService(store)

	jwtMW, err := middleware.NewJWT(tokens)
	require.NoError(t, err)
	mw := &middleware.Set{
		Auth:        jwtMW.MiddlewareFunc(),
		LoadAccount: middleware.LoadAccount(accounts),
		AuthLimit:   middleware.NewRateLimiter(rdb, middleware.AuthRateLimitConfig).Middleware(),
		APILimit:    middleware.NewRateLimiter(rdb, middleware.DefaultRateLimitConfig).Middleware(),
		Recover:     middleware.RecoverMiddleware(middleware.RecoverConfig{}),
		CORS:        middleware.CORSMiddleware(),
		Metrics:     middleware.MetricsMiddleware(),
	}

	h := handler.New(handler.Deps{
		Accounts: accounts,
		Ledger:   service.NewLedger(store),
		Unlock:   unlock,
		Trivia: service.NewTriviaService(store, unlock,
			cache.NewTriviaSessions(rdb, time.Hour), cache.NewLocker(rdb), staticQuestion{}, time.UTC),
		Tasks:    service.NewTaskService(store),
		Tags:     service.NewTagService(store),
		Blog:     service.NewBlogService(store),
		Tokens:   tokens,
		Refresh:  cache.NewRefreshTokens(rdb, 24*time.Hour),
		Identity: identity.NewGoogle("", "", "http://localhost/callback"),
	})

	engine := route.NewEngine(config.NewOptions(nil))
	Register(engine, h, mw)
	return &apiTest{t: t, engine: engine, store: store}
}

func (a *apiTest) do(method, path, accessToken string, body interface{}) *protocol.Response {
	a.t.Helper()
	headers := []ut.Header{{Key: "Content-Type", Value: "application/json"}}
	if accessToken != "" {
		headers = append(headers, ut.Header{Key: "Authorization", Value: "Bearer " + accessToken})
	}
	var b *ut.Body
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		b = &ut.Body{Body: bytes.NewReader(raw), Len: len(raw)}
	}
	return ut.PerformRequest(a.engine, method, path, b, headers...).Result()
}

// data 解出 {"data": ...}
func data[T any](t *testing.T, resp *protocol.Response) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body(), &envelope), string(resp.Body()))
	return envelope.Data
}

func errCode(t *testing.T, resp *protocol.Response) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body(), &envelope), string(resp.Body()))
	return envelope.Error.Code
}

func (a *apiTest) register(username string) handler.AuthResult {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": username,
		"password": "hunter22",
	})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode(), string(resp.Body()))
	return data[handler.AuthResult](a.t, resp)
}

func TestAuthFlow(t *testing.T) {
	api := newAPITest(t)
	reg := api.register("alice")
	assert.Equal(t, "alice", reg.Account.Username)

	resp := api.do(http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

	resp = api.do(http.MethodGet, "/v1/me", reg.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	profile := data[service.Profile](t, resp)
	assert.Equal(t, reg.Account.ID, profile.Account.ID)

	resp = api.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.Equal(t, errors.InvalidCredentials.Code, errCode(t, resp))

	resp = api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"username": "alice", "password": "hunter22"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode())

	resp = api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"username": "x", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	// refresh token 轮换后旧的失效
	resp = api.do(http.MethodPost, "/v1/auth/token/refresh", "", map[string]string{"refresh_token": reg.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	pair := data[token.Pair](t, resp)
	assert.NotEqual(t, reg.Tokens.RefreshToken, pair.RefreshToken)

	resp = api.do(http.MethodPost, "/v1/auth/token/refresh", "", map[string]string{"refresh_token": reg.Tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

	resp = api.do(http.MethodPost, "/v1/auth/logout", pair.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	resp = api.do(http.MethodPost, "/v1/auth/token/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestTaskAndShopFlow(t *testing.T) {
	api := newAPITest(t)
	access := api.register("bob").Tokens.AccessToken

	resp := api.do(http.MethodPost, "/v1/tasks", access, map[string]string{"content": "water plants"})
	require.Equal(t, http.StatusCreated, resp.StatusCode(), string(resp.Body()))
	task := data[model.Task](t, resp)

	resp = api.do(http.MethodGet, "/v1/tasks", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Len(t, data[[]model.Task](t, resp), 1)

	resp = api.do(http.MethodPatch, fmt.Sprintf("/v1/tasks/%d", task.ID), access, map[string]string{"content": "water all plants"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	assert.Equal(t, errors.FeatureRequired.Code, errCode(t, resp))

	resp = api.do(http.MethodPost, "/v1/tags", access, map[string]string{"name": "home"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	resp = api.do(http.MethodPost, fmt.Sprintf("/v1/tasks/%d/complete", task.ID), access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	done := data[service.CompleteResult](t, resp)
	assert.True(t, done.Task.Completed)

	resp = api.do(http.MethodGet, "/v1/tasks?archived=true", access, nil)
	assert.Len(t, data[[]model.Task](t, resp), 1)

	resp = api.do(http.MethodGet, "/v1/shop", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	items := data[[]handler.ShopItem](t, resp)
	require.Len(t, items, len(model.DefaultFeatures))

	resp = api.do(http.MethodPost, fmt.Sprintf("/v1/shop/%d/purchase", items[0].ID), access, nil)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode())
	assert.Equal(t, errors.InsufficientFunds.Code, errCode(t, resp))

	other := api.register("carol").Tokens.AccessToken
	resp = api.do(http.MethodGet, fmt.Sprintf("/v1/tasks/%d", task.ID), other, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

	resp = api.do(http.MethodGet, "/v1/tasks/abc", access, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestTriviaFlow(t *testing.T) {
	api := newAPITest(t)
	access := api.register("dave").Tokens.AccessToken

	resp := api.do(http.MethodPost, "/v1/trivia/answer", access, map[string]string{"answer": "4"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, errors.NoPendingQuestion.Code, errCode(t, resp))

	resp = api.do(http.MethodGet, "/v1/trivia/question", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	q := data[service.QuestionView](t, resp)
	assert.Equal(t, "2 + 2?", q.Question)
	assert.Len(t, q.Choices, 4)

	resp = api.do(http.MethodPost, "/v1/trivia/answer", access, map[string]string{"answer": "4"})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	result := data[service.AnswerResult](t, resp)
	assert.True(t, result.Correct)
	assert.Equal(t, int64(1), result.Balance)

	resp = api.do(http.MethodGet, "/v1/trivia/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	board := data[[]model.LeaderboardEntry](t, resp)
	require.Len(t, board, 1)
	assert.Equal(t, "dave", board[0].Username)

	resp = api.do(http.MethodGet, "/v1/converters", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Len(t, data[[]service.ConverterView](t, resp), len(model.ConverterQuestions))

	q0 := model.ConverterQuestions[0]
	resp = api.do(http.MethodPost, "/v1/converters/"+q0.Type+"/unlock", access, map[string]string{"answer": q0.Answer})
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
}
