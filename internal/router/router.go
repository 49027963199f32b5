package router

import (
	"fmt"

	"github.com/truckdock/internal/cache"
	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/http/handlers/api"
	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if cfg.Import.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = cfg.Import.MaxUploadBytes
	}

	h := api.New(c)
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", cache.Prefix()),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.login_rate_limited",
	}
	guestRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:guest", cache.Prefix()),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/ws", h.ServeRealtime)

	apiGroup := r.Group("/api")
	{
		// 公开接口
		authPublic := apiGroup.Group("/auth")
		{
			authPublic.POST("/login", RateLimitMiddleware(cache.Client(), loginRule, KeyByIPAndField("username")), h.Login)
			authPublic.POST("/guest-login", RateLimitMiddleware(cache.Client(), guestRule, KeyByIP), h.GuestLogin)
			authPublic.GET("/captcha", h.GetCaptcha)
		}

		// 鉴权接口（JWT + 角色 RBAC）
		protected := apiGroup.Group("")
		protected.Use(JWTAuthMiddleware(c.AuthService), RBACMiddleware(c.AuthzService))
		{
			protected.GET("/auth/me", h.GetMe)
			protected.POST("/auth/register", h.Register)

			protected.GET("/users", h.ListUsers)
			protected.DELETE("/users/:id", h.DeleteUser)

			protected.GET("/authz/roles", h.ListRolePolicies)
			protected.POST("/authz/roles/:role/policies", h.GrantRolePolicy)

			protected.GET("/stats", h.GetStats)
			protected.GET("/imports", h.ListImportLogs)

			trucks := protected.Group("/trucks")
			{
				trucks.GET("", h.ListTrucks)
				trucks.POST("", h.CreateTruck)
				trucks.GET("/template", h.DownloadTemplate)
				trucks.GET("/export", h.ExportTrucks)
				trucks.GET("/duplicate-stats", h.GetDuplicateStats)
				trucks.GET("/check-duplicates", h.CheckDuplicates)
				trucks.POST("/import/preview", h.PreviewImport)
				trucks.POST("/import/confirm", h.ConfirmImport)
				trucks.DELETE("/import/sessions/:id", h.CancelImport)
				trucks.GET("/:id", h.GetTruck)
				trucks.PUT("/:id", h.UpdateTruck)
				trucks.DELETE("/:id", h.DeleteTruck)
				trucks.PATCH("/:id/status", h.UpdateTruckStatus)
			}
		}
	}

	return r
}
