package models

import (
	"strings"

	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

// InitDefaultAdmin 系统中没有管理员时创建一个；同名账号已存在则直接提升为管理员并保留原密码
func InitDefaultAdmin(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		username = defaultAdminUsername
	}
	usedDefault := password == ""
	if usedDefault {
		password = defaultAdminPassword
	}

	var action string
	err := DB.Transaction(func(tx *gorm.DB) error {
		var admins int64
		if err := tx.Model(&User{}).Where("role = ?", constants.RoleAdmin).Count(&admins).Error; err != nil {
			return err
		}
		if admins > 0 {
			return nil
		}

		var existing User
		if err := tx.Where("username = ?", username).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if existing.ID != "" {
			action = "promoted"
			return tx.Model(&existing).Update("role", constants.RoleAdmin).Error
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		action = "created"
		return tx.Create(&User{Username: username, PasswordHash: string(hash), Role: constants.RoleAdmin}).Error
	})
	if err != nil || action == "" {
		return err
	}

	logger.Warnw("default_admin_"+action, "username", username, "default_password", usedDefault && action == "created")
	if usedDefault && action == "created" {
		logger.Warnw("default_admin_password_change_required", "username", username)
	}
	return nil
}
