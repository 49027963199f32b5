package repository

import "gorm.io/gorm"

// findPage 统计总数后按 order 取第 page 页；pageSize <= 0 时返回全部
func findPage[T any](query *gorm.DB, page, pageSize int, order string) ([]T, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := make([]T, 0)
	if total == 0 {
		return items, 0, nil
	}
	if pageSize > 0 {
		page = max(page, 1)
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}
	if err := query.Order(order).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
