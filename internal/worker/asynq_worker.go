package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/provider"
	"github.com/truckdock/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskImportLogRecord, c.handleImportLogRecord)
}

func (c *Consumer) handleImportLogRecord(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_import_log_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ImportLogRecordPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_import_log_unmarshal_failed", "error", err)
		// 载荷无法解码时重试无意义
		return fmt.Errorf("decode import log payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.OwnerID == "" || payload.Status == "" {
		logger.Debugw("worker_import_log_skip_invalid_payload", "session_id", payload.SessionID)
		return nil
	}
	if c.Container == nil || c.ImportService == nil {
		logger.Warnw("worker_import_log_skip_service_nil", "session_id", payload.SessionID)
		return nil
	}
	if err := c.ImportService.RecordImportLog(payload); err != nil {
		logger.Warnw("worker_import_log_record_failed",
			"session_id", payload.SessionID,
			"owner_id", payload.OwnerID,
			"error", err,
		)
		return err
	}
	return nil
}
