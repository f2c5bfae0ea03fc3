package models

import (
	"time"

	"gorm.io/gorm"
)

// 批次状态
const (
	PromoCodeBatchStatusPending   = "pending"
	PromoCodeBatchStatusCompleted = "completed"
	PromoCodeBatchStatusFailed    = "failed"
)

// PromoCodeBatch 优惠码生成批次
type PromoCodeBatch struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                   // 主键
	BatchNo   string         `gorm:"type:varchar(48);uniqueIndex;not null" json:"batch_no"`  // 批次号（ULID）
	Prefix    string         `gorm:"type:varchar(32);not null;default:''" json:"prefix"`     // 码前缀
	Quantity  int            `gorm:"not null;default:0" json:"quantity"`                     // 计划生成数量
	Created   int            `gorm:"not null;default:0" json:"created"`                      // 实际生成数量
	Status    string         `gorm:"type:varchar(20);not null;index" json:"status"`          // 状态（pending/completed/failed）
	Template  JSON           `gorm:"type:json" json:"template"`                              // 码模板参数
	Error     string         `gorm:"type:text" json:"error,omitempty"`                       // 失败原因
	CreatedBy string         `gorm:"type:varchar(64);not null;default:''" json:"created_by"` // 创建人
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                                // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                         // 软删除时间
}

// TableName 指定表名
func (PromoCodeBatch) TableName() string {
	return "promo_code_batches"
}
