package service

import (
	"strings"
	"time"

	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/models"
	"github.com/truckdock/internal/notifier"
	"github.com/truckdock/internal/repository"
)

// TruckService 车辆记录服务
type TruckService struct {
	truckRepo repository.TruckRepository
	notifier  notifier.Notifier
	now       func() time.Time
}

// NewTruckService 创建车辆记录服务
func NewTruckService(truckRepo repository.TruckRepository, n notifier.Notifier) *TruckService {
	if n == nil {
		n = notifier.Nop{}
	}
	return &TruckService{truckRepo: truckRepo, notifier: n, now: time.Now}
}

// TruckQuery 列表/导出/统计的查询参数（日期为 YYYY-MM-DD，date_to 含当天）
type TruckQuery struct {
	Page              int
	PageSize          int
	Terminal          string
	StatusPreparation string
	StatusLoading     string
	DateFrom          string
	DateTo            string
	Search            string
}

// CreateTruckInput 新建记录参数
type CreateTruckInput struct {
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
	Date              string  `json:"date"` // 业务日期，空则为今天
}

// UpdateTruckInput 部分更新参数，nil 表示不修改
type UpdateTruckInput struct {
	Terminal          *string `json:"terminal"`
	ShippingNo        *string `json:"shipping_no"`
	DockCode          *string `json:"dock_code"`
	TruckRoute        *string `json:"truck_route"`
	PreparationStart  *string `json:"preparation_start"`
	PreparationEnd    *string `json:"preparation_end"`
	LoadingStart      *string `json:"loading_start"`
	LoadingEnd        *string `json:"loading_end"`
	StatusPreparation *string `json:"status_preparation"`
	StatusLoading     *string `json:"status_loading"`
}

// TruckStats 看板统计
type TruckStats struct {
	TotalTrucks      int64            `json:"total_trucks"`
	PreparationStats map[string]int64 `json:"preparation_stats"`
	LoadingStats     map[string]int64 `json:"loading_stats"`
	TerminalStats    map[string]int64 `json:"terminal_stats"`
}

// DockCodeCount 重复月台编码
type DockCodeCount struct {
	DockCode string `json:"dock_code"`
	Count    int64  `json:"count"`
}

// ShippingNoCount 重复运单号
type ShippingNoCount struct {
	ShippingNo string `json:"shipping_no"`
	Count      int64  `json:"count"`
}

// DuplicateStats 重复数据统计（允许重复，仅供观察）
type DuplicateStats struct {
	TotalRecords         int64             `json:"total_records"`
	DuplicateDockCodes   []DockCodeCount   `json:"duplicate_dock_codes"`
	DuplicateShippingNos []ShippingNoCount `json:"duplicate_shipping_nos"`
}

// DuplicateCheckInput 业务键检查参数
type DuplicateCheckInput struct {
	Date       string `json:"date" form:"date"`
	Terminal   string `json:"terminal" form:"terminal"`
	ShippingNo string `json:"shipping_no" form:"shipping_no"`
	DockCode   string `json:"dock_code" form:"dock_code"`
	TruckRoute string `json:"truck_route" form:"truck_route"`
}

// DuplicateCheckRecord 命中记录摘要
type DuplicateCheckRecord struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// DuplicateCheckResult 业务键检查结果：导入时将更新还是新建
type DuplicateCheckResult struct {
	Exists             bool                  `json:"exists"`
	Action             string                `json:"action"`
	Record             *DuplicateCheckRecord `json:"record"`
	MatchingConditions DuplicateCheckInput   `json:"matching_conditions"`
}

// 检查动作
const (
	DuplicateActionUpdate    = "update"
	DuplicateActionCreateNew = "create_new"
)

// ParseBusinessDate 解析 YYYY-MM-DD 为 UTC 零点
func ParseBusinessDate(raw string) (time.Time, error) {
	parsed, err := time.ParseInLocation(constants.DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return parsed, nil
}

// BuildListFilter 将查询参数转换为仓库过滤条件
func (q TruckQuery) BuildListFilter() (repository.TruckListFilter, error) {
	filter := repository.TruckListFilter{
		Page:              q.Page,
		PageSize:          q.PageSize,
		Terminal:          strings.TrimSpace(q.Terminal),
		StatusPreparation: strings.TrimSpace(q.StatusPreparation),
		StatusLoading:     strings.TrimSpace(q.StatusLoading),
		Search:            strings.TrimSpace(q.Search),
	}
	if raw := strings.TrimSpace(q.DateFrom); raw != "" {
		from, err := ParseBusinessDate(raw)
		if err != nil {
			return filter, &DateFieldError{Field: "date_from", Value: raw}
		}
		filter.CreatedFrom = &from
	}
	if raw := strings.TrimSpace(q.DateTo); raw != "" {
		to, err := ParseBusinessDate(raw)
		if err != nil {
			return filter, &DateFieldError{Field: "date_to", Value: raw}
		}
		before := to.AddDate(0, 0, 1)
		filter.CreatedBefore = &before
	}
	return filter, nil
}

// List 分页查询
func (s *TruckService) List(query TruckQuery) ([]models.Truck, int64, error) {
	filter, err := query.BuildListFilter()
	if err != nil {
		return nil, 0, err
	}
	return s.truckRepo.List(filter)
}

// ListAll 不分页查询（导出）
func (s *TruckService) ListAll(query TruckQuery) ([]models.Truck, error) {
	filter, err := query.BuildListFilter()
	if err != nil {
		return nil, err
	}
	return s.truckRepo.ListAll(filter)
}

// Get 获取单条记录
func (s *TruckService) Get(id string) (*models.Truck, error) {
	truck, err := s.truckRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if truck == nil {
		return nil, ErrTruckNotFound
	}
	return truck, nil
}

// Create 新建记录并广播 truck_created
func (s *TruckService) Create(input CreateTruckInput) (*models.Truck, error) {
	truck := &models.Truck{
		Terminal:   strings.TrimSpace(input.Terminal),
		ShippingNo: strings.TrimSpace(input.ShippingNo),
		DockCode:   strings.TrimSpace(input.DockCode),
		TruckRoute: strings.TrimSpace(input.TruckRoute),
	}
	if truck.Terminal == "" || truck.ShippingNo == "" || truck.DockCode == "" || truck.TruckRoute == "" {
		return nil, ErrTruckRequiredFields
	}

	createdAt := s.now().UTC()
	if raw := strings.TrimSpace(input.Date); raw != "" {
		date, err := ParseBusinessDate(raw)
		if err != nil {
			return nil, err
		}
		createdAt = date
	}
	truck.CreatedAt = createdAt

	var err error
	if truck.PreparationStart, err = ParseStrictTime(input.PreparationStart); err != nil {
		return nil, err
	}
	if truck.PreparationEnd, err = ParseStrictTime(input.PreparationEnd); err != nil {
		return nil, err
	}
	if truck.LoadingStart, err = ParseStrictTime(input.LoadingStart); err != nil {
		return nil, err
	}
	if truck.LoadingEnd, err = ParseStrictTime(input.LoadingEnd); err != nil {
		return nil, err
	}
	if truck.StatusPreparation, err = resolveStatus(input.StatusPreparation); err != nil {
		return nil, err
	}
	if truck.StatusLoading, err = resolveStatus(input.StatusLoading); err != nil {
		return nil, err
	}

	if err := s.truckRepo.Create(truck); err != nil {
		return nil, err
	}
	logger.Infow("truck_created", "truck_id", truck.ID, "shipping_no", truck.ShippingNo)
	broadcastSafely(s.notifier, notifier.NewTruckEvent(constants.EventTruckCreated, truck))
	return truck, nil
}

// Update 部分更新并广播 truck_updated
func (s *TruckService) Update(id string, input UpdateTruckInput) (*models.Truck, error) {
	truck, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	keys := []struct {
		value  *string
		target *string
	}{
		{input.Terminal, &truck.Terminal},
		{input.ShippingNo, &truck.ShippingNo},
		{input.DockCode, &truck.DockCode},
		{input.TruckRoute, &truck.TruckRoute},
	}
	for _, key := range keys {
		if key.value == nil {
			continue
		}
		trimmed := strings.TrimSpace(*key.value)
		if trimmed == "" {
			return nil, ErrTruckRequiredFields
		}
		*key.target = trimmed
	}

	times := []struct {
		value  *string
		target **string
	}{
		{input.PreparationStart, &truck.PreparationStart},
		{input.PreparationEnd, &truck.PreparationEnd},
		{input.LoadingStart, &truck.LoadingStart},
		{input.LoadingEnd, &truck.LoadingEnd},
	}
	for _, field := range times {
		if field.value == nil {
			continue
		}
		normalized, err := ParseStrictTime(field.value)
		if err != nil {
			return nil, err
		}
		*field.target = normalized
	}

	if input.StatusPreparation != nil {
		if !IsValidStatus(*input.StatusPreparation) {
			return nil, ErrInvalidStatus
		}
		truck.StatusPreparation = *input.StatusPreparation
	}
	if input.StatusLoading != nil {
		if !IsValidStatus(*input.StatusLoading) {
			return nil, ErrInvalidStatus
		}
		truck.StatusLoading = *input.StatusLoading
	}

	now := s.now().UTC()
	truck.UpdatedAt = &now
	if err := s.truckRepo.Update(truck); err != nil {
		return nil, err
	}
	broadcastSafely(s.notifier, notifier.NewTruckEvent(constants.EventTruckUpdated, truck))
	return truck, nil
}

// UpdateStatus 更新备货或装车状态并广播 status_updated
func (s *TruckService) UpdateStatus(id, statusType, status string) (*models.Truck, error) {
	statusType = strings.ToLower(strings.TrimSpace(statusType))
	if statusType != constants.StatusTypePreparation && statusType != constants.StatusTypeLoading {
		return nil, ErrInvalidStatusType
	}
	if !IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	truck, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if statusType == constants.StatusTypePreparation {
		truck.StatusPreparation = status
	} else {
		truck.StatusLoading = status
	}
	now := s.now().UTC()
	truck.UpdatedAt = &now
	if err := s.truckRepo.Update(truck); err != nil {
		return nil, err
	}
	broadcastSafely(s.notifier, notifier.NewTruckEvent(constants.EventStatusUpdated, truck))
	return truck, nil
}

// Delete 删除记录并广播 truck_deleted
func (s *TruckService) Delete(id string) error {
	truck, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.truckRepo.Delete(truck.ID); err != nil {
		return err
	}
	logger.Infow("truck_deleted", "truck_id", truck.ID)
	broadcastSafely(s.notifier, notifier.Event{
		Type: constants.EventTruckDeleted,
		Data: map[string]string{"id": truck.ID},
	})
	return nil
}

// Stats 按状态与码头统计
func (s *TruckService) Stats(query TruckQuery) (*TruckStats, error) {
	filter, err := query.BuildListFilter()
	if err != nil {
		return nil, err
	}
	total, err := s.truckRepo.Count(filter)
	if err != nil {
		return nil, err
	}
	stats := &TruckStats{
		TotalTrucks:      total,
		PreparationStats: emptyStatusStats(),
		LoadingStats:     emptyStatusStats(),
		TerminalStats:    map[string]int64{},
	}
	groups := []struct {
		column string
		target map[string]int64
		strict bool
	}{
		{"status_preparation", stats.PreparationStats, true},
		{"status_loading", stats.LoadingStats, true},
		{"terminal", stats.TerminalStats, false},
	}
	for _, group := range groups {
		rows, err := s.truckRepo.CountByColumn(group.column, filter)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			key := row.Value
			if group.strict {
				if _, ok := group.target[key]; !ok {
					continue
				}
			} else if strings.TrimSpace(key) == "" {
				key = "Unknown"
			}
			group.target[key] += row.Total
		}
	}
	return stats, nil
}

// DuplicateStats 统计重复的月台编码与运单号
func (s *TruckService) DuplicateStats() (*DuplicateStats, error) {
	total, err := s.truckRepo.Count(repository.TruckListFilter{})
	if err != nil {
		return nil, err
	}
	dockRows, err := s.truckRepo.DuplicateGroups("dock_code")
	if err != nil {
		return nil, err
	}
	shippingRows, err := s.truckRepo.DuplicateGroups("shipping_no")
	if err != nil {
		return nil, err
	}
	result := &DuplicateStats{
		TotalRecords:         total,
		DuplicateDockCodes:   make([]DockCodeCount, 0, len(dockRows)),
		DuplicateShippingNos: make([]ShippingNoCount, 0, len(shippingRows)),
	}
	for _, row := range dockRows {
		result.DuplicateDockCodes = append(result.DuplicateDockCodes, DockCodeCount{DockCode: row.Value, Count: row.Total})
	}
	for _, row := range shippingRows {
		result.DuplicateShippingNos = append(result.DuplicateShippingNos, ShippingNoCount{ShippingNo: row.Value, Count: row.Total})
	}
	return result, nil
}

// CheckDuplicate 判断该业务键在导入时会更新还是新建
func (s *TruckService) CheckDuplicate(input DuplicateCheckInput) (*DuplicateCheckResult, error) {
	date, err := ParseBusinessDate(input.Date)
	if err != nil {
		return nil, err
	}
	existing, err := s.truckRepo.FindByBusinessKey(repository.TruckBusinessKey{
		Date:       date,
		Terminal:   input.Terminal,
		ShippingNo: input.ShippingNo,
		DockCode:   input.DockCode,
		TruckRoute: input.TruckRoute,
	})
	if err != nil {
		return nil, err
	}
	result := &DuplicateCheckResult{
		Action:             DuplicateActionCreateNew,
		MatchingConditions: input,
	}
	if existing != nil {
		result.Exists = true
		result.Action = DuplicateActionUpdate
		payload := notifier.NewTruckPayload(existing)
		result.Record = &DuplicateCheckRecord{
			ID:        payload.ID,
			CreatedAt: payload.CreatedAt,
			UpdatedAt: payload.UpdatedAt,
		}
	}
	return result, nil
}

// resolveStatus 空值取默认 On Process，其余必须为合法状态
func resolveStatus(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return constants.TruckStatusOnProcess, nil
	}
	if !IsValidStatus(raw) {
		return "", ErrInvalidStatus
	}
	return raw, nil
}

func emptyStatusStats() map[string]int64 {
	stats := make(map[string]int64, len(constants.TruckStatuses))
	for _, status := range constants.TruckStatuses {
		stats[status] = 0
	}
	return stats
}
