package app

import (
	"errors"

	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/provider"
	"github.com/truckdock/internal/router"
	"github.com/truckdock/internal/worker"
)

// BuildRunner 按启动模式组装服务；注册顺序决定逆序停止顺序，HTTP 最后注册以便最先停止接收请求
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := ValidateMode(mode); err != nil {
		return nil, err
	}

	container := provider.NewContainer(cfg)
	services := []Service{NewResourceService(container)}

	serveAPI := mode == ModeAll || mode == ModeAPI
	if serveAPI {
		// 队列关闭时由 API 侧负责导入记录保留期清理
		retentionDays := 0
		if !container.QueueClient.Enabled() {
			retentionDays = cfg.ImportLog.RetentionDays
		}
		services = append(services,
			NewHubService(container.Hub),
			NewSweeperService(container.ImportService, cfg.Import.SweepInterval(), retentionDays),
		)
	}

	if mode == ModeWorker || (mode == ModeAll && cfg.Queue.Enabled) {
		workerService, err := worker.NewService(cfg, worker.NewConsumer(container))
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	} else if mode == ModeAll {
		logger.Warnw("app_worker_skipped", "reason", "queue disabled")
	}

	if serveAPI {
		services = append(services, NewHTTPService(cfg.Server, router.SetupRouter(cfg, container)))
	}
	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	opts.Logger.Infow("app_start", "mode", opts.Mode, "services", runner.Names())
	return RunWithOptions(runner, opts)
}
