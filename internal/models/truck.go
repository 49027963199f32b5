package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Truck 车辆作业记录表（created_at 的日期部分即业务日期）
type Truck struct {
	ID                string     `gorm:"primarykey;type:varchar(36)" json:"id"`                                                                                     // 主键（UUID）
	Terminal          string     `gorm:"type:varchar(50);not null;index:idx_truck_terminal_created,priority:1" json:"terminal"`                                  // 码头
	ShippingNo        string     `gorm:"type:varchar(100);not null;index:idx_truck_shipping_created,priority:1" json:"shipping_no"`                              // 运单号
	DockCode          string     `gorm:"type:varchar(50);not null" json:"dock_code"`                                                                             // 月台编码
	TruckRoute        string     `gorm:"type:varchar(100);not null" json:"truck_route"`                                                                          // 路线
	PreparationStart  *string    `gorm:"type:varchar(5)" json:"preparation_start"`                                                                               // 备货开始 HH:MM
	PreparationEnd    *string    `gorm:"type:varchar(5)" json:"preparation_end"`                                                                                 // 备货结束 HH:MM
	LoadingStart      *string    `gorm:"type:varchar(5)" json:"loading_start"`                                                                                   // 装车开始 HH:MM
	LoadingEnd        *string    `gorm:"type:varchar(5)" json:"loading_end"`                                                                                     // 装车结束 HH:MM
	StatusPreparation string     `gorm:"type:varchar(20);not null;default:'On Process';index:idx_truck_status_created,priority:1" json:"status_preparation"` // 备货状态
	StatusLoading     string     `gorm:"type:varchar(20);not null;default:'On Process';index:idx_truck_status_created,priority:2" json:"status_loading"`     // 装车状态
	CreatedAt         time.Time  `gorm:"autoCreateTime:false;not null;index:idx_truck_terminal_created,priority:2;index:idx_truck_shipping_created,priority:2;index:idx_truck_status_created,priority:3" json:"created_at"`
	UpdatedAt         *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"` // 最后更新时间（新建时为空）
}

// TableName 指定表名
func (Truck) TableName() string {
	return "trucks"
}

// BeforeCreate 未指定主键时生成 UUID
func (m *Truck) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
