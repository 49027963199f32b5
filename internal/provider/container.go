package provider

import (
	"net/http"
	"time"

	"github.com/truckdock/internal/authz"
	"github.com/truckdock/internal/cache"
	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/models"
	"github.com/truckdock/internal/notifier"
	"github.com/truckdock/internal/queue"
	"github.com/truckdock/internal/repository"
	"github.com/truckdock/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Hub         *notifier.Hub

	// Repositories
	UserRepo      repository.UserRepository
	TruckRepo     repository.TruckRepository
	ImportLogRepo repository.ImportLogRepository

	// Services
	AuthzService   *authz.Service
	AuthService    *service.AuthService
	UserService    *service.UserService
	CaptchaService *service.CaptchaService
	TruckService   *service.TruckService
	ImportService  *service.ImportService
	ImportSessions service.ImportSessionStore
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端（未启用时为空客户端，导入记录同步落库）
	queueClient := queue.NewClient(&cfg.Queue)

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Hub:         newHub(cfg.WebSocket, cfg.CORS),
	}

	c.initRepositories()
	c.initServices()

	return c
}

func newHub(ws config.WebSocketConfig, cors config.CORSConfig) *notifier.Hub {
	return notifier.NewHub(notifier.HubOptions{
		SendBuffer:   ws.SendBuffer,
		WriteTimeout: time.Duration(ws.WriteTimeoutSeconds) * time.Second,
		PongTimeout:  time.Duration(ws.PongTimeoutSeconds) * time.Second,
		CheckOrigin:  originChecker(cors.AllowedOrigins),
	})
}

// originChecker 按 CORS 白名单校验 WebSocket Origin，空 Origin 视为非浏览器客户端
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.TruckRepo = repository.NewTruckRepository(db)
	c.ImportLogRepo = repository.NewImportLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.UserRepo)
	c.UserService = service.NewUserService(c.UserRepo, c.AuthService)
	c.TruckService = service.NewTruckService(c.TruckRepo, c.Hub)
	c.ImportSessions = service.NewImportSessionStore(c.Config.Import.SessionStore, c.Config.Import.SessionTTL())
	c.ImportService = service.NewImportService(
		c.TruckRepo,
		c.ImportLogRepo,
		c.ImportSessions,
		c.Hub,
		c.QueueClient,
		c.Config.Import,
	)
}
