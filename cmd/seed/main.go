package main

import (
	"context"
	"errors"
	"time"

	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/models"
	"github.com/truckdock/internal/notifier"
	"github.com/truckdock/internal/repository"
	"github.com/truckdock/internal/service"
)

type demoUser struct {
	Username string
	Password string
	Role     string
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	userRepo := repository.NewUserRepository(models.DB)
	authService := service.NewAuthService(cfg, userRepo)
	userService := service.NewUserService(userRepo, authService)

	// 演示账号
	users := []demoUser{
		{Username: "manager", Password: "manager123", Role: constants.RoleAdmin},
		{Username: "user", Password: "user123", Role: constants.RoleUser},
		{Username: "viewer", Password: "viewer123", Role: constants.RoleViewer},
	}
	var owner *models.User
	for _, item := range users {
		user, err := userService.Register(service.RegisterInput{Username: item.Username, Password: item.Password, Role: item.Role})
		switch {
		case errors.Is(err, service.ErrUsernameExists):
			stdLog.Printf("User already exists: %s", item.Username)
			user, _ = userRepo.GetByUsername(item.Username)
		case err != nil:
			stdLog.Printf("Failed to create user %s: %v", item.Username, err)
			continue
		default:
			stdLog.Printf("Created user: %s (%s)", item.Username, item.Role)
		}
		if owner == nil && user != nil {
			owner = user
		}
	}
	if owner == nil {
		stdLog.Fatalf("No seed owner available")
	}

	// 本月示例数据，经对账引擎写入，重复执行只会更新
	now := time.Now().UTC()
	templates := []service.MonthlyTemplate{
		seedTemplate(now, "Terminal A", "SHP-1001", "D01", "Bangkok-Chonburi", "08:00", "09:30", "Finished"),
		seedTemplate(now, "Terminal A", "SHP-1002", "D02", "Bangkok-Rayong", "10:00", "11:15", "On Process"),
		seedTemplate(now, "Terminal B", "SHP-2001", "D01", "Ayutthaya-Saraburi", "13:00", "14:45", "Delay"),
	}

	sessions := service.NewMemoryImportSessionStore(cfg.Import.SessionTTL())
	importService := service.NewImportService(
		repository.NewTruckRepository(models.DB),
		repository.NewImportLogRepository(models.DB),
		sessions,
		notifier.Nop{},
		nil,
		cfg.Import,
	)
	ctx := context.Background()
	sessionID, err := sessions.Create(ctx, &service.ImportSession{
		OwnerID:   owner.ID,
		OwnerName: owner.Username,
		Filename:  "seed",
		Templates: templates,
		CreatedAt: now,
	})
	if err != nil {
		stdLog.Fatalf("Failed to create seed session: %v", err)
	}
	result, err := importService.Confirm(ctx, sessionID, &service.Principal{UserID: owner.ID, Username: owner.Username, Role: owner.Role})
	if err != nil {
		stdLog.Fatalf("Failed to seed trucks: %v", err)
	}
	stdLog.Printf("Seeded trucks: created=%d updated=%d failed=%d", result.Created, result.Updated, result.Failed)
	logger.Sync()
}

func seedTemplate(now time.Time, terminal, shippingNo, dockCode, route, start, end, status string) service.MonthlyTemplate {
	return service.MonthlyTemplate{
		Year:              now.Year(),
		Month:             int(now.Month()),
		Terminal:          terminal,
		ShippingNo:        shippingNo,
		DockCode:          dockCode,
		TruckRoute:        route,
		PreparationStart:  &start,
		PreparationEnd:    &end,
		StatusPreparation: status,
		StatusLoading:     constants.TruckStatusOnProcess,
		PreviewDays:       service.DaysInMonth(now.Year(), int(now.Month())),
	}
}
