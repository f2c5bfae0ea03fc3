package models

import (
	"errors"
	"strings"

	"github.com/prepvio/prepvio-api/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultAdminPassword = "admin123"

// InitDefaultAdmin 首次启动时创建超级管理员
// 已存在管理员时只保证指定账号拥有 superadmin 角色
func InitDefaultAdmin(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		username = "admin"
	}

	var existing Admin
	err := DB.Where("username = ?", username).First(&existing).Error
	if err == nil {
		if existing.Role != AdminRoleSuperAdmin || !existing.IsSuper {
			if err := DB.Model(&existing).Updates(map[string]interface{}{
				"role":     AdminRoleSuperAdmin,
				"is_super": true,
			}).Error; err != nil {
				logger.Warnw("ensure_default_admin_super_failed", "username", username, "error", err)
			}
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var count int64
	if err := DB.Model(&Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		password = defaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
		Role:         AdminRoleSuperAdmin,
		IsSuper:      true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if password == defaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username)
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	}
	return nil
}
