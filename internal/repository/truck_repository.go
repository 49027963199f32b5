package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/truckdock/internal/models"

	"gorm.io/gorm"
)

// TruckRepository 车辆记录数据访问接口
type TruckRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) TruckRepository

	GetByID(id string) (*models.Truck, error)
	FindByBusinessKey(key TruckBusinessKey) (*models.Truck, error)
	Create(truck *models.Truck) error
	Update(truck *models.Truck) error
	Delete(id string) error
	List(filter TruckListFilter) ([]models.Truck, int64, error)
	ListAll(filter TruckListFilter) ([]models.Truck, error)
	Count(filter TruckListFilter) (int64, error)
	CountByColumn(column string, filter TruckListFilter) ([]TruckCountRow, error)
	DuplicateGroups(column string) ([]TruckCountRow, error)
}

// TruckCountRow 分组计数原始行
type TruckCountRow struct {
	Value string
	Total int64
}

// 允许分组统计的列
var truckGroupableColumns = map[string]struct{}{
	"terminal":           {},
	"shipping_no":        {},
	"dock_code":          {},
	"truck_route":        {},
	"status_preparation": {},
	"status_loading":     {},
}

// GormTruckRepository GORM 实现
type GormTruckRepository struct {
	db *gorm.DB
}

// NewTruckRepository 创建车辆记录仓库
func NewTruckRepository(db *gorm.DB) *GormTruckRepository {
	return &GormTruckRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTruckRepository) WithTx(tx *gorm.DB) TruckRepository {
	if tx == nil {
		return r
	}
	return &GormTruckRepository{db: tx}
}

// Transaction 执行事务
func (r *GormTruckRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 根据 ID 获取记录
func (r *GormTruckRepository) GetByID(id string) (*models.Truck, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var truck models.Truck
	if err := r.db.Where("id = ?", id).First(&truck).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &truck, nil
}

// FindByBusinessKey 按业务日期与四个键字段精确查找，多条命中时取最早创建的一条
func (r *GormTruckRepository) FindByBusinessKey(key TruckBusinessKey) (*models.Truck, error) {
	y, m, d := key.Date.UTC().Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	// 未命中是常态，用 Find 避免 gorm 记录 record not found
	var trucks []models.Truck
	err := r.db.
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Where("terminal = ? AND shipping_no = ? AND dock_code = ? AND truck_route = ?",
			key.Terminal, key.ShippingNo, key.DockCode, key.TruckRoute).
		Order("created_at asc, id asc").
		Limit(1).
		Find(&trucks).Error
	if err != nil {
		return nil, err
	}
	if len(trucks) == 0 {
		return nil, nil
	}
	return &trucks[0], nil
}

// Create 创建记录
func (r *GormTruckRepository) Create(truck *models.Truck) error {
	return r.db.Create(truck).Error
}

// Update 保存记录
func (r *GormTruckRepository) Update(truck *models.Truck) error {
	return r.db.Save(truck).Error
}

// Delete 删除记录
func (r *GormTruckRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.Truck{}).Error
}

// List 分页查询，按创建时间倒序
func (r *GormTruckRepository) List(filter TruckListFilter) ([]models.Truck, int64, error) {
	query := r.applyFilter(r.db.Model(&models.Truck{}), filter)

	return findPage[models.Truck](query, filter.Page, filter.PageSize, "created_at DESC, id DESC")
}

// ListAll 不分页查询（导出使用）
func (r *GormTruckRepository) ListAll(filter TruckListFilter) ([]models.Truck, error) {
	var trucks []models.Truck
	query := r.applyFilter(r.db.Model(&models.Truck{}), filter)
	if err := query.Order("created_at DESC, id DESC").Find(&trucks).Error; err != nil {
		return nil, err
	}
	return trucks, nil
}

// Count 按过滤条件计数
func (r *GormTruckRepository) Count(filter TruckListFilter) (int64, error) {
	var total int64
	if err := r.applyFilter(r.db.Model(&models.Truck{}), filter).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountByColumn 按指定列分组计数
func (r *GormTruckRepository) CountByColumn(column string, filter TruckListFilter) ([]TruckCountRow, error) {
	if _, ok := truckGroupableColumns[column]; !ok {
		return nil, fmt.Errorf("unsupported group column: %s", column)
	}
	var rows []TruckCountRow
	err := r.applyFilter(r.db.Model(&models.Truck{}), filter).
		Select(fmt.Sprintf("%s as value, COUNT(*) as total", column)).
		Group(column).
		Order("value asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DuplicateGroups 返回指定列中出现次数大于 1 的分组
func (r *GormTruckRepository) DuplicateGroups(column string) ([]TruckCountRow, error) {
	if _, ok := truckGroupableColumns[column]; !ok {
		return nil, fmt.Errorf("unsupported group column: %s", column)
	}
	var rows []TruckCountRow
	err := r.db.Model(&models.Truck{}).
		Select(fmt.Sprintf("%s as value, COUNT(*) as total", column)).
		Group(column).
		Having("COUNT(*) > 1").
		Order("total desc, value asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormTruckRepository) applyFilter(query *gorm.DB, filter TruckListFilter) *gorm.DB {
	if terminal := strings.TrimSpace(filter.Terminal); terminal != "" {
		query = query.Where("terminal = ?", terminal)
	}
	if status := strings.TrimSpace(filter.StatusPreparation); status != "" {
		query = query.Where("status_preparation = ?", status)
	}
	if status := strings.TrimSpace(filter.StatusLoading); status != "" {
		query = query.Where("status_loading = ?", status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", filter.CreatedBefore.UTC())
	}
	return whereContains(query, filter.Search, "shipping_no", "dock_code")
}
