package repository

import (
	"errors"

	"github.com/prepvio/prepvio-api/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 管理员账号读取，供鉴权中间件与启动时角色同步使用
type AdminRepository interface {
	GetByID(id uint) (*models.Admin, error)
	List() ([]models.Admin, error)
}

// UserRepository 兑换用户读取，供鉴权中间件校验账号状态
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
}

type GormAdminRepository struct {
	db *gorm.DB
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// findByID 按主键读取，记录不存在时返回 nil
func findByID[T any](db *gorm.DB, id uint) (*T, error) {
	var row T
	err := db.First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	return findByID[models.Admin](r.db, id)
}

// List 仅取角色同步所需字段
func (r *GormAdminRepository) List() ([]models.Admin, error) {
	var admins []models.Admin
	if err := r.db.Select("id", "username", "role", "is_super").Order("id").Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}

func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	return findByID[models.User](r.db, id)
}
