package constants

// 用户角色常量（权限由低到高）
const (
	RoleViewer = "viewer"
	RoleUser   = "user"
	RoleAdmin  = "admin"
)

// 角色层级，数值越大权限越高
var RoleLevels = map[string]int{
	RoleViewer: 0,
	RoleUser:   1,
	RoleAdmin:  2,
}

// 游客身份常量
const (
	GuestUserID   = "guest"
	GuestUsername = "Guest Viewer"
	GuestSubject  = "guest_viewer"
)

// 车辆作业状态常量
const (
	TruckStatusOnProcess = "On Process"
	TruckStatusDelay     = "Delay"
	TruckStatusFinished  = "Finished"
)

// TruckStatuses 合法作业状态（按展示顺序）
var TruckStatuses = []string{TruckStatusOnProcess, TruckStatusDelay, TruckStatusFinished}

// 状态更新类型常量
const (
	StatusTypePreparation = "preparation"
	StatusTypeLoading     = "loading"
)

// 变更事件类型常量
const (
	EventTruckCreated  = "truck_created"
	EventTruckUpdated  = "truck_updated"
	EventTruckDeleted  = "truck_deleted"
	EventStatusUpdated = "status_updated"
)

// 导入会话存储类型常量
const (
	ImportSessionStoreAuto   = "auto"
	ImportSessionStoreMemory = "memory"
	ImportSessionStoreRedis  = "redis"
)

// 导入日志状态常量
const (
	ImportLogStatusCompleted = "completed"
	ImportLogStatusPartial   = "partial"
	ImportLogStatusFailed    = "failed"
)

// 队列常量
const (
	QueueImports        = "imports"
	TaskImportLogRecord = "import_log:record"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "td"
)

// 站点语言常量
const (
	LocaleEnUS = "en-US"
	LocaleZhCN = "zh-CN"
	LocaleThTH = "th-TH"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleEnUS, LocaleZhCN, LocaleThTH}

// 业务日期格式
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)
