package repository

import (
	"strings"
	"time"

	"github.com/truckdock/internal/models"

	"gorm.io/gorm"
)

// ImportLogRepository 导入记录数据访问接口
type ImportLogRepository interface {
	Create(log *models.ImportLog) error
	List(filter ImportLogListFilter) ([]models.ImportLog, int64, error)
	DeleteBefore(cutoff time.Time) (int64, error)
}

// GormImportLogRepository GORM 实现
type GormImportLogRepository struct {
	db *gorm.DB
}

// NewImportLogRepository 创建导入记录仓库
func NewImportLogRepository(db *gorm.DB) *GormImportLogRepository {
	return &GormImportLogRepository{db: db}
}

// Create 写入导入记录
func (r *GormImportLogRepository) Create(log *models.ImportLog) error {
	return r.db.Create(log).Error
}

// List 分页查询导入记录
func (r *GormImportLogRepository) List(filter ImportLogListFilter) ([]models.ImportLog, int64, error) {
	query := r.db.Model(&models.ImportLog{})
	if ownerID := strings.TrimSpace(filter.OwnerID); ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	return findPage[models.ImportLog](query, filter.Page, filter.PageSize, "created_at DESC, id DESC")
}

// DeleteBefore 删除早于截止时间的导入记录
func (r *GormImportLogRepository) DeleteBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&models.ImportLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
