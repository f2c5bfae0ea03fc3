package models

import "time"

// PromoCodeUsage 优惠码使用记录（只追加，不软删除）
type PromoCodeUsage struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                          // 主键
	PromoCodeID     uint      `gorm:"index:idx_promo_usage_code_user;not null" json:"promo_code_id"` // 优惠码ID
	UserID          uint      `gorm:"index:idx_promo_usage_code_user;not null" json:"user_id"`       // 用户ID
	OrderID         string    `gorm:"type:varchar(64);not null;default:''" json:"order_id"`          // 订单号
	DiscountApplied Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_applied"` // 实际优惠金额
	UsedAt          time.Time `gorm:"index;not null" json:"used_at"`                                 // 使用时间
}

// TableName 指定表名
func (PromoCodeUsage) TableName() string {
	return "promo_code_usages"
}
