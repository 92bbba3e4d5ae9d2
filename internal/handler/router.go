package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/melo-app/melo-api/internal/middleware"
	"github.com/melo-app/melo-api/internal/service"
)

// Handlers bundles the handler set mounted by RegisterRoutes.
type Handlers struct {
	Auth        *AuthHandler
	Work        *WorkHandler
	Application *ApplicationHandler
	Completion  *CompletionHandler
	Review      *ReviewHandler
	Report      *ReportHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the API surface under the given prefix.
func RegisterRoutes(router *gin.Engine, prefix string, h Handlers, authService *service.AuthService, metricsEnabled bool) {
	router.GET("/health", h.Metrics.Health)
	router.GET("/ready", h.Metrics.Health)
	if metricsEnabled {
		router.GET("/metrics", h.Metrics.Prometheus)
	}

	api := router.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.GET("/me", middleware.JWT(authService), h.Auth.Me)
	}

	// Signed token downloads carry their own proof of access. The optional
	// JWT only attributes the download when the caller is logged in.
	api.GET("/reports/download/:token", middleware.OptionalJWT(authService), h.Report.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	{
		works := protected.Group("/works")
		{
			works.POST("", h.Work.Publish)
			works.GET("", h.Work.List)
			works.GET("/active", h.Work.Active)
			works.GET("/:id", h.Work.Get)
			works.PUT("/:id", h.Work.Update)
			works.PATCH("/:id/assign", h.Work.Assign)
			works.PATCH("/:id/status", h.Work.SetStatus)
			works.DELETE("/:id", h.Work.Delete)

			works.POST("/:id/applications", h.Application.Apply)
			works.GET("/:id/applications", h.Application.ListForWork)
			works.GET("/:id/applications/check", h.Application.CheckApplied)

			works.POST("/:id/completion-code", h.Completion.GenerateCode)
			works.GET("/:id/completion-code", h.Completion.GetCode)
			works.POST("/:id/complete", h.Completion.Complete)
		}

		applications := protected.Group("/applications")
		{
			applications.PATCH("/:id/status", h.Application.UpdateStatus)
			applications.PATCH("/:id/withdraw", h.Application.Withdraw)
		}

		reviews := protected.Group("/reviews")
		{
			reviews.POST("", h.Review.Record)
			reviews.GET("/authored", h.Review.ListAuthored)
			reviews.GET("/user/:id", h.Review.ListForUser)
			reviews.GET("/work/:id", h.Review.ListForWork)
			reviews.DELETE("/:id", h.Review.Delete)
		}

		protected.GET("/users/:id/rating", h.Review.RatingSummary)
		protected.GET("/reports/works", h.Report.WorkSummary)
	}
}
