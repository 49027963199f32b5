package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ImportFailure 导入失败明细（Day 为空表示整个模板失败）
type ImportFailure struct {
	Template   int    `json:"template"`
	Day        *int   `json:"day,omitempty"`
	ShippingNo string `json:"shipping_no"`
	Error      string `json:"error"`
}

// ImportFailureList 失败明细列表，以 JSON 存储
type ImportFailureList []ImportFailure

// Value 实现 driver.Valuer 接口
func (l ImportFailureList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口
func (l *ImportFailureList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = ImportFailureList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported import failure list type %T", value)
	}
}

// ImportLog 月度模板导入记录表
type ImportLog struct {
	ID             uint              `gorm:"primarykey" json:"id"`                       // 主键
	SessionID      string            `gorm:"type:varchar(64);index" json:"session_id"`   // 导入会话
	OwnerID        string            `gorm:"type:varchar(36);index;not null" json:"owner_id"`
	OwnerName      string            `gorm:"type:varchar(100)" json:"owner_name"`
	Filename       string            `gorm:"type:varchar(255)" json:"filename"`          // 上传文件名
	TotalTemplates int               `gorm:"not null;default:0" json:"total_templates"`  // 模板数量
	Imported       int               `gorm:"not null;default:0" json:"imported"`         // 成功写入天数
	Created        int               `gorm:"not null;default:0" json:"created"`          // 新建数
	Updated        int               `gorm:"not null;default:0" json:"updated"`          // 更新数
	Failed         int               `gorm:"not null;default:0" json:"failed"`           // 失败数
	FailedDetails  ImportFailureList `gorm:"type:text" json:"failed_details"`            // 失败明细
	Status         string            `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt      time.Time         `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ImportLog) TableName() string {
	return "import_logs"
}
