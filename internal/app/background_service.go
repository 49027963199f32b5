package app

import (
	"context"
	"errors"
	"time"

	"github.com/truckdock/internal/cache"
	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/notifier"
	"github.com/truckdock/internal/provider"
	"github.com/truckdock/internal/worker"
)

// ResourceService 持有共享连接，最后停止时关闭队列客户端与 Redis
type ResourceService struct {
	container *provider.Container
}

// NewResourceService 创建共享资源服务
func NewResourceService(container *provider.Container) *ResourceService {
	return &ResourceService{container: container}
}

// Name 服务名称
func (s *ResourceService) Name() string {
	return "resources"
}

// Start 阻塞到 ctx 结束
func (s *ResourceService) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Stop 关闭队列客户端与 Redis 连接
func (s *ResourceService) Stop(ctx context.Context) error {
	var errs []error
	if s != nil && s.container != nil {
		errs = append(errs, s.container.QueueClient.Close())
	}
	errs = append(errs, cache.Close())
	return errors.Join(errs...)
}

// HubService WebSocket 推送中心生命周期封装
type HubService struct {
	hub *notifier.Hub
}

// NewHubService 创建推送中心服务
func NewHubService(hub *notifier.Hub) *HubService {
	return &HubService{hub: hub}
}

// Name 服务名称
func (s *HubService) Name() string {
	return "notifier_hub"
}

// Start 启动服务
func (s *HubService) Start(ctx context.Context) error {
	if s == nil || s.hub == nil {
		return errors.New("notifier hub not initialized")
	}
	return s.hub.Run(ctx)
}

// Stop 停止服务并断开所有连接
func (s *HubService) Stop(ctx context.Context) error {
	if s == nil || s.hub == nil {
		return nil
	}
	s.hub.Close()
	return nil
}

// ImportSessionSweeper 过期导入会话清理接口
type ImportSessionSweeper interface {
	PurgeExpiredSessions(ctx context.Context) (int, error)
	worker.ImportLogCleaner
}

// SweeperService 定期清理过期导入会话；队列关闭时同时负责导入记录保留期清理
type SweeperService struct {
	sweeper       ImportSessionSweeper
	interval      time.Duration
	retentionDays int
	stop          chan struct{}
}

// NewSweeperService 创建清理服务，retentionDays 为 0 时不清理导入记录
func NewSweeperService(sweeper ImportSessionSweeper, interval time.Duration, retentionDays int) *SweeperService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweeperService{
		sweeper:       sweeper,
		interval:      interval,
		retentionDays: retentionDays,
		stop:          make(chan struct{}),
	}
}

// Name 服务名称
func (s *SweeperService) Name() string {
	return "import_session_sweeper"
}

// Start 启动服务
func (s *SweeperService) Start(ctx context.Context) error {
	if s == nil || s.sweeper == nil {
		return errors.New("import session sweeper not initialized")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if s.retentionDays > 0 {
		go worker.RunImportLogRetention(ctx, s.sweeper, s.retentionDays, time.Hour)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := s.sweeper.PurgeExpiredSessions(ctx)
			if err != nil {
				logger.Warnw("import_session_sweep_failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debugw("import_session_sweep", "removed", removed)
			}
		}
	}
}

// Stop 停止服务
func (s *SweeperService) Stop(ctx context.Context) error {
	if s == nil || s.stop == nil {
		return nil
	}
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return nil
}
