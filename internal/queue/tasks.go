package queue

import (
	"encoding/json"

	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/models"

	"github.com/hibiken/asynq"
)

const (
	// TaskImportLogRecord 导入记录落库任务
	TaskImportLogRecord = constants.TaskImportLogRecord
)

// ImportLogRecordPayload 导入记录任务载荷
type ImportLogRecordPayload struct {
	SessionID      string                   `json:"session_id"`
	OwnerID        string                   `json:"owner_id"`
	OwnerName      string                   `json:"owner_name"`
	Filename       string                   `json:"filename"`
	TotalTemplates int                      `json:"total_templates"`
	Imported       int                      `json:"imported"`
	Created        int                      `json:"created"`
	Updated        int                      `json:"updated"`
	Failed         int                      `json:"failed"`
	FailedDetails  models.ImportFailureList `json:"failed_details"`
	Status         string                   `json:"status"`
	FinishedAt     int64                    `json:"finished_at"`
}

// NewImportLogRecordTask 创建导入记录任务
func NewImportLogRecordTask(payload ImportLogRecordPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskImportLogRecord, body), nil
}
