package router

import (
	"github.com/gin-gonic/gin"

	"github.com/writervault/backend/internal/config"
	"github.com/writervault/backend/internal/http/handlers"
	"github.com/writervault/backend/internal/http/middleware"
	"github.com/writervault/backend/internal/service"
)

// Handlers собирает все хэндлеры приложения для маршрутизации.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Profile    *handlers.ProfileHandler
	Category   *handlers.CategoryHandler
	Article    *handlers.ArticleHandler
	Collection *handlers.CollectionHandler
	Media      *handlers.MediaHandler
	Admin      *handlers.AdminHandler
	Health     *handlers.HealthHandler
}

// New настраивает gin-движок со всеми маршрутами и middleware.
func New(cfg *config.Config, tokens *service.TokenManager, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.ErrorHandler())

	r.GET("/health", h.Health.Health)

	// Загруженные обложки раздаются как статика.
	r.Static("/media", cfg.MediaStoragePath)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))

	// Ручки аутентификации с собственным жёстким лимитом: подбор паролей
	// и перебор токенов сброса дороже всего именно здесь.
	auth := api.Group("/auth")
	auth.Use(middleware.RateLimitMiddleware(cfg.AuthRateLimit, cfg.RateLimitPeriod))
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", h.Auth.Logout)
		auth.POST("/forgot-password", h.Auth.ForgotPassword)
		auth.POST("/verify-reset-token", h.Auth.VerifyResetToken)
		auth.POST("/reset-password", h.Auth.ResetPassword)
	}

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(tokens))
	{
		authed.POST("/auth/change-password", h.Auth.ChangePassword)
		authed.GET("/auth/sessions", h.Auth.ListSessions)
		authed.DELETE("/auth/sessions/:id", h.Auth.DeleteSession)
		authed.POST("/auth/sessions/revoke-others", h.Auth.DeleteOtherSessions)

		authed.GET("/profile", h.Profile.Me)
		authed.PATCH("/profile", h.Profile.Update)

		authed.POST("/articles", h.Article.Create)
		authed.PATCH("/articles/:id", h.Article.Update)
		authed.DELETE("/articles/:id", h.Article.Delete)
		authed.POST("/articles/:id/publish", h.Article.Publish)
		authed.POST("/articles/:id/unpublish", h.Article.Unpublish)
		authed.POST("/articles/:id/archive", h.Article.Archive)

		authed.POST("/collections", h.Collection.Create)
		authed.PATCH("/collections/:id", h.Collection.Update)
		authed.DELETE("/collections/:id", h.Collection.Delete)
		authed.POST("/collections/:id/articles", h.Collection.AddArticle)
		authed.DELETE("/collections/:id/articles/:articleId", h.Collection.RemoveArticle)

		authed.POST("/media/covers", h.Media.UploadCover)
	}

	// Публичное чтение: анонимам видно только опубликованное,
	// владельцы и администраторы видят свои черновики.
	public := api.Group("")
	public.Use(middleware.OptionalAuthMiddleware(tokens))
	{
		public.GET("/categories", h.Category.List)
		public.GET("/categories/tree", h.Category.Tree)
		public.GET("/categories/slug/:slug", h.Category.GetBySlug)
		public.GET("/categories/:id", h.Category.Get)
		public.GET("/categories/:id/path", h.Category.Path)

		public.GET("/articles", h.Article.List)
		public.GET("/articles/slug/:slug", h.Article.GetBySlug)
		public.GET("/articles/:id", h.Article.Get)
		public.GET("/tags", h.Article.ListTags)

		public.GET("/collections", h.Collection.List)
		public.GET("/collections/slug/:slug", h.Collection.GetBySlug)
		public.GET("/collections/:id", h.Collection.Get)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokens), middleware.RequireAdmin())
	{
		admin.POST("/categories", h.Category.Create)
		admin.PATCH("/categories/:id", h.Category.Update)
		admin.POST("/categories/:id/move", h.Category.Move)
		admin.DELETE("/categories/:id", h.Category.Delete)
		admin.POST("/categories/bulk-active", h.Category.BulkSetActive)
		admin.GET("/categories/stats", h.Category.Stats)

		admin.GET("/stats", h.Admin.Stats)

		admin.GET("/users", h.Admin.ListUsers)
		admin.GET("/users/:id", h.Admin.GetUser)
		admin.POST("/users/:id/active", h.Admin.SetUserActive)
		admin.POST("/users/:id/role", h.Admin.SetUserRole)
	}

	return r
}
