package router

import (
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/newsdesk/internal/handler"
	"gorm.io/gorm"
)

// Setup 配置 Gin 引擎和路由。
func Setup(gdb *gorm.DB, sessionSecret string, buildMaxAttempts int, logger *slog.Logger) (*gin.Engine, *handler.API) {
	r := gin.Default()

	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("newsdesk_session", store))

	api := handler.NewAPI(gdb, buildMaxAttempts, logger)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/login", api.Login)
	r.POST("/logout", api.Logout)

	auth := r.Group("")
	auth.Use(api.AuthRequired())
	{
		articles := auth.Group("/articles")
		{
			articles.GET("", api.ListArticles)
			articles.POST("", api.CreateArticle)
			articles.GET("/:id", api.GetArticle)
			articles.PUT("/:id", api.UpdateArticle)
			articles.DELETE("/:id", api.DeleteArticle)
			articles.DELETE("/:id/purge", api.PurgeArticle)

			articles.POST("/:id/submit", api.SubmitArticle)
			articles.POST("/:id/request-changes", api.RequestChanges)
			articles.POST("/:id/publish", api.PublishArticle)
			articles.POST("/:id/approval-requests", api.CreateApprovalRequest)
			articles.POST("/:id/recall", api.RecallArticle)
			articles.POST("/:id/restore", api.RestoreArticle)

			articles.GET("/:id/bundle", api.GetBundle)
			articles.GET("/:id/bundle/:kind", api.GetArtifact)
		}

		approvals := auth.Group("/approvals")
		{
			approvals.GET("", api.ListApprovals)
			approvals.POST("/:articleId", api.DecideApproval)
			approvals.DELETE("/:id", api.CancelApproval)
		}

		settings := auth.Group("/settings")
		{
			settings.GET("/workflow", api.GetWorkflowSettings)
			settings.PUT("/workflow", api.UpdateWorkflowSettings)
		}
	}

	return r, api
}
