package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	importLogMaxRetry = 5
	importLogTimeout  = 30 * time.Second
	// 同一导入会话的记录任务在该窗口内去重
	importLogUniqueTTL = 24 * time.Hour
)

// ErrDisabled 队列未启用
var ErrDisabled = errors.New("queue disabled")

// Client 导入记录任务生产者
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient 创建队列客户端；未启用时返回可安全调用的空客户端
func NewClient(cfg *config.QueueConfig) *Client {
	if cfg == nil || !cfg.Enabled {
		return &Client{queue: constants.QueueImports}
	}
	return &Client{
		client: asynq.NewClient(redisOpt(cfg)),
		queue:  constants.QueueImports,
	}
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueImportLogRecord 推送导入记录落库任务，同一会话重复推送视为成功
func (c *Client) EnqueueImportLogRecord(payload ImportLogRecordPayload) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	task, err := NewImportLogRecordTask(payload)
	if err != nil {
		return err
	}
	opts := []asynq.Option{
		asynq.Queue(c.queue),
		asynq.MaxRetry(importLogMaxRetry),
		asynq.Timeout(importLogTimeout),
	}
	if payload.SessionID != "" {
		opts = append(opts, asynq.Unique(importLogUniqueTTL), asynq.TaskID(TaskImportLogRecord+":"+payload.SessionID))
	}
	_, err = c.client.Enqueue(task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// BuildServerConfig 生成消费者配置；logger 与 errorHandler 可为空
func BuildServerConfig(cfg *config.QueueConfig, logger asynq.Logger, errorHandler asynq.ErrorHandler) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 5
	queues := map[string]int{constants.QueueImports: 1}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			queues = cfg.Queues
		}
	}
	return redisOpt(cfg), asynq.Config{
		Concurrency:     concurrency,
		Queues:          queues,
		Logger:          logger,
		ErrorHandler:    errorHandler,
		ShutdownTimeout: 10 * time.Second,
	}
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
