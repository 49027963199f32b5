package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 系统账号表
type User struct {
	ID                 string     `gorm:"primarykey;type:varchar(36)" json:"id"`                        // 主键（UUID）
	Username           string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`       // 登录名
	PasswordHash       string     `gorm:"not null" json:"-"`                                            // 密码哈希（不返回给前端）
	Role               string     `gorm:"type:varchar(20);not null;default:'viewer';index" json:"role"` // 角色 viewer/user/admin
	TokenVersion       uint64     `gorm:"not null;default:0" json:"-"`                                  // Token 版本（用于全量失效）
	TokenInvalidBefore *time.Time `gorm:"index" json:"-"`                                               // 该时间点前签发的 Token 失效
	LastLoginAt        *time.Time `json:"last_login_at"`                                                // 最后登录时间
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 未指定主键时生成 UUID
func (m *User) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
