package worker

import (
	"context"
	"errors"
	"time"

	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/queue"

	"github.com/hibiken/asynq"
)

const importLogRetentionInterval = time.Hour

// Service 导入记录消费者与保留期清理
type Service struct {
	server        *asynq.Server
	mux           *asynq.ServeMux
	cleaner       ImportLogCleaner
	retentionDays int
}

// NewService 创建消费者服务；队列未启用时返回错误
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue, logger.S(), asynq.ErrorHandlerFunc(logTaskFailure))
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	svc := &Service{
		server:        asynq.NewServer(opt, serverCfg),
		mux:           mux,
		retentionDays: cfg.ImportLog.RetentionDays,
	}
	if consumer.Container != nil && consumer.ImportService != nil {
		svc.cleaner = consumer.ImportService
	}
	return svc, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费者并阻塞到 ctx 结束；信号由 Runner 统一处理
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	if s.cleaner != nil && s.retentionDays > 0 {
		go RunImportLogRetention(ctx, s.cleaner, s.retentionDays, importLogRetentionInterval)
	}
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务结束后关闭
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}

func logTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	logger.Warnw("worker_task_failed",
		"task", task.Type(),
		"retried", retried,
		"max_retry", maxRetry,
		"error", err,
	)
}

// ImportLogCleaner 导入记录清理接口
type ImportLogCleaner interface {
	CleanupImportLogs(retentionDays int) (int64, error)
}

// RunImportLogRetention 启动时清理一次，之后按间隔清理，直到 ctx 结束
func RunImportLogRetention(ctx context.Context, cleaner ImportLogCleaner, retentionDays int, interval time.Duration) {
	if cleaner == nil || retentionDays <= 0 {
		return
	}
	if interval <= 0 {
		interval = importLogRetentionInterval
	}
	runOnce := func() {
		removed, err := cleaner.CleanupImportLogs(retentionDays)
		if err != nil {
			logger.Warnw("worker_import_log_cleanup_failed", "error", err)
			return
		}
		if removed > 0 {
			logger.Infow("worker_import_log_cleanup", "removed", removed, "retention_days", retentionDays)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
