package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/truckdock/internal/app"
	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiGreen     = "\033[32m"
	ansiBlue      = "\033[34m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	var (
		mode        string
		migrateOnly bool
	)
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.BoolVar(&migrateOnly, "migrate", false, "仅执行数据库迁移后退出")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := app.ValidateMode(mode); err != nil {
		stdLog.Fatalf("启动参数错误: %v", err)
	}
	if err := initDatabase(cfg); err != nil {
		stdLog.Fatalf("%v", err)
	}
	if migrateOnly {
		logger.Infow("migrate_done", "driver", cfg.Database.Driver)
		logger.Sync()
		return
	}

	if mode != app.ModeWorker {
		printStartupBanner()
		checkJWTSecret(cfg, stdLog)
		ensureBootstrapAdmin(cfg, stdLog)
	}
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		logger.Sync()
		stdLog.Fatalf("服务运行失败: %v", err)
	}
	logger.Sync()
}

func initDatabase(cfg *config.Config) error {
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// checkJWTSecret release 模式拒绝弱密钥
func checkJWTSecret(cfg *config.Config, stdLog *log.Logger) {
	if !isWeakSecret(cfg.JWT.SecretKey) {
		return
	}
	if cfg.Server.Mode == "release" {
		stdLog.Fatalf("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
	}
	stdLog.Printf("警告: JWT secret 过弱或仍为默认值，建议在生产环境中更换")
}

// ensureBootstrapAdmin 创建默认管理员（BOOTSTRAP_ADMIN_USERNAME / BOOTSTRAP_ADMIN_PASSWORD 可覆盖）
func ensureBootstrapAdmin(cfg *config.Config, stdLog *log.Logger) {
	if cfg.Server.Mode == "release" && cfg.Bootstrap.AdminPassword == "" {
		stdLog.Printf("警告: 未设置 BOOTSTRAP_ADMIN_PASSWORD，已跳过默认管理员初始化")
		return
	}
	if err := models.InitDefaultAdmin(cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
		stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiBrightMag + "╔════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║              TruckDock API 启动中                  ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + "  _____                _    ____             _    " + ansiReset)
	fmt.Println(ansiCyan + " |_   _| __ _   _  ___| | _|  _ \\  ___   ___| | __" + ansiReset)
	fmt.Println(ansiCyan + "   | || '__| | | |/ __| |/ / | | |/ _ \\ / __| |/ /" + ansiReset)
	fmt.Println(ansiCyan + "   | || |  | |_| | (__|   <| |_| | (_) | (__|   < " + ansiReset)
	fmt.Println(ansiCyan + "   |_||_|   \\__,_|\\___|_|\\_\\____/ \\___/ \\___|_|\\_\\" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "Truck logistics records · monthly Excel reconciliation" + ansiReset)
	fmt.Println(ansiBlue + "• API:       /api" + ansiReset)
	fmt.Println(ansiBlue + "• Realtime:  /ws" + ansiReset)
	fmt.Println(ansiBlue + "• Health:    /health" + ansiReset)
	fmt.Println(ansiDim + "----------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
