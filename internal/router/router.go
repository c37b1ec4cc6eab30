package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/hertz-contrib/sessions"
	"github.com/hertz-contrib/sessions/cookie"

	"TaskQuest/config"
	"TaskQuest/internal/handler"
	"TaskQuest/internal/middleware"
)

const sessionName = "taskquest_session"

// Register 注册全部 /v1 路由；server.Hertz 内嵌 route.Engine，测试直接传 route.Engine
func Register(r *route.Engine, h *handler.Handler, mw *middleware.Set) {
	r.Use(mw.Recover)
	r.Use(mw.CORS)
	r.Use(mw.Metrics)

	v1 := r.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth", mw.AuthLimit)
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/token/refresh", h.RefreshToken)
		auth.POST("/logout", mw.Auth, mw.LoadAccount, h.Logout)

		store := cookie.NewStore([]byte(config.Cfg.SessionSecret))
		store.Options(sessions.Options{
			Path:     "/v1/auth/google",
			MaxAge:   600,
			HttpOnly: true,
			Secure:   config.Cfg.IsProduction(),
		})
		google := auth.Group("/google", sessions.New(sessionName, store))
		{
			google.GET("", h.GoogleStart)
			google.GET("/callback", h.GoogleCallback)
		}
	}

	v1.GET("/trivia/leaderboard", h.Leaderboard)
	v1.GET("/blog", h.Feed)

	// 以下需要登录
	authed := v1.Group("", mw.Auth, mw.LoadAccount, mw.APILimit)

	me := authed.Group("/me")
	{
		me.GET("", h.GetProfile)
		me.PUT("/email", h.UpdateEmail)
		me.GET("/transactions", h.ListTransactions)
	}

	shop := authed.Group("/shop")
	{
		shop.GET("", h.ListShop)
		shop.POST("/:feature_id/purchase", h.Purchase)
	}

	converters := authed.Group("/converters")
	{
		converters.GET("", h.ListConverters)
		converters.POST("/:type/unlock", h.UnlockConverter)
	}

	trivia := authed.Group("/trivia")
	{
		trivia.GET("/question", h.NextQuestion)
		trivia.POST("/answer", h.SubmitAnswer)
		trivia.GET("/status", h.TriviaStatus)
		trivia.GET("/history", h.TriviaHistory)
	}

	tasks := authed.Group("/tasks")
	{
		tasks.GET("", h.ListTasks)
		tasks.POST("", h.CreateTask)
		tasks.GET("/:task_id", h.GetTask)
		tasks.PATCH("/:task_id", h.UpdateTask)
		tasks.DELETE("/:task_id", h.DeleteTask)
		tasks.POST("/:task_id/complete", h.CompleteTask)
		tasks.POST("/:task_id/tags/:tag_id", h.AttachTag)
		tasks.DELETE("/:task_id/tags/:tag_id", h.DetachTag)
	}

	tags := authed.Group("/tags")
	{
		tags.GET("", h.ListTags)
		tags.POST("", h.CreateTag)
		tags.DELETE("/:tag_id", h.DeleteTag)
	}

	blog := authed.Group("/blog")
	{
		blog.POST("", h.CreatePost)
		blog.POST("/:post_id/comments", h.CreateComment)
	}

	r.GET("/healthz", func(ctx context.Context, c *app.RequestContext) {
		c.String(consts.StatusOK, "ok")
	})
}
