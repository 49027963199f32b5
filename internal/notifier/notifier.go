package notifier

import (
	"time"

	"github.com/truckdock/internal/models"
)

// Event 推送给订阅端的变更事件
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Notifier 变更事件广播接口（尽力投递，失败不影响写入）
type Notifier interface {
	Broadcast(event Event) error
}

// Nop 不做任何投递的 Notifier
type Nop struct{}

// Broadcast 丢弃事件
func (Nop) Broadcast(Event) error { return nil }

// TruckPayload 事件中的车辆记录，时间字段为 RFC 3339 字符串
type TruckPayload struct {
	ID                string  `json:"id"`
	Terminal          string  `json:"terminal"`
	ShippingNo        string  `json:"shipping_no"`
	DockCode          string  `json:"dock_code"`
	TruckRoute        string  `json:"truck_route"`
	PreparationStart  *string `json:"preparation_start"`
	PreparationEnd    *string `json:"preparation_end"`
	LoadingStart      *string `json:"loading_start"`
	LoadingEnd        *string `json:"loading_end"`
	StatusPreparation string  `json:"status_preparation"`
	StatusLoading     string  `json:"status_loading"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         *string `json:"updated_at"`
}

// NewTruckPayload 由车辆记录构建事件载荷
func NewTruckPayload(truck *models.Truck) TruckPayload {
	payload := TruckPayload{
		ID:                truck.ID,
		Terminal:          truck.Terminal,
		ShippingNo:        truck.ShippingNo,
		DockCode:          truck.DockCode,
		TruckRoute:        truck.TruckRoute,
		PreparationStart:  truck.PreparationStart,
		PreparationEnd:    truck.PreparationEnd,
		LoadingStart:      truck.LoadingStart,
		LoadingEnd:        truck.LoadingEnd,
		StatusPreparation: truck.StatusPreparation,
		StatusLoading:     truck.StatusLoading,
		CreatedAt:         truck.CreatedAt.UTC().Format(time.RFC3339),
	}
	if truck.UpdatedAt != nil {
		updated := truck.UpdatedAt.UTC().Format(time.RFC3339)
		payload.UpdatedAt = &updated
	}
	return payload
}

// NewTruckEvent 构建携带完整记录的事件
func NewTruckEvent(eventType string, truck *models.Truck) Event {
	return Event{Type: eventType, Data: NewTruckPayload(truck)}
}
