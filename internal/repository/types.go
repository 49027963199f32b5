package repository

import "time"

// TruckListFilter 查询车辆记录列表的过滤条件
type TruckListFilter struct {
	Page              int
	PageSize          int
	Terminal          string
	StatusPreparation string
	StatusLoading     string
	Search            string     // 运单号 / 月台编码模糊搜索
	CreatedFrom       *time.Time // 含
	CreatedBefore     *time.Time // 不含
}

// TruckBusinessKey 业务键（日期 + 四个字符串字段须完全一致）
type TruckBusinessKey struct {
	Date       time.Time
	Terminal   string
	ShippingNo string
	DockCode   string
	TruckRoute string
}

// UserListFilter 查询账号列表的过滤条件
type UserListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Role     string
}

// ImportLogListFilter 查询导入记录列表的过滤条件
type ImportLogListFilter struct {
	Page     int
	PageSize int
	OwnerID  string
	Status   string
}
