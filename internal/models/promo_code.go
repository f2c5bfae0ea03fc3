package models

import (
	"time"

	"github.com/prepvio/prepvio-api/internal/promo"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 套餐标识
const (
	PlanMonthly  = "monthly"
	PlanPremium  = "premium"
	PlanYearly   = "yearly"
	PlanLifetime = "lifetime"
)

// KnownPlans 可配置的套餐集合
var KnownPlans = []string{PlanMonthly, PlanPremium, PlanYearly, PlanLifetime}

// PromoCode 优惠码
type PromoCode struct {
	ID                uint             `gorm:"primarykey" json:"id"`                                                        // 主键
	Code              string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`                           // 优惠码（大写）
	Description       string           `gorm:"type:varchar(500);not null;default:''" json:"description"`                    // 描述
	DiscountType      string           `gorm:"type:varchar(20);not null" json:"discount_type"`                              // 折扣类型（percentage/fixed/fixed_price）
	DiscountValue     decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"discount_value"`                           // 折扣数值
	MaxDiscount       *Money           `gorm:"type:decimal(20,2)" json:"max_discount"`                                      // 最大优惠金额（仅百分比，空表示不封顶）
	MinPurchaseAmount Money            `gorm:"type:decimal(20,2);not null;default:0" json:"min_purchase_amount"`            // 使用门槛
	ApplicablePlans   StringList       `gorm:"type:text" json:"applicable_plans"`                                           // 适用套餐（空表示全部）
	UsageLimit        *int             `json:"usage_limit"`                                                                 // 总使用上限（空表示不限制）
	UsageCount        int              `gorm:"not null;default:0" json:"usage_count"`                                       // 已使用次数
	PerUserLimit      int              `gorm:"not null;default:1" json:"per_user_limit"`                                    // 每人使用上限
	Active            bool             `gorm:"not null;index" json:"active"`                                                // 是否启用
	ValidFrom         *time.Time       `gorm:"index" json:"valid_from"`                                                     // 生效时间
	ValidUntil        *time.Time       `gorm:"index" json:"valid_until"`                                                    // 失效时间（空表示永久）
	CreatedBy         string           `gorm:"type:varchar(64);not null;default:''" json:"created_by"`                      // 创建人
	BatchNo           string           `gorm:"type:varchar(48);index" json:"batch_no,omitempty"`                            // 生成批次号
	Version           uint64           `gorm:"not null;default:0" json:"version"`                                           // 乐观锁版本号
	UsedBy            []PromoCodeUsage `gorm:"foreignKey:PromoCodeID;constraint:OnDelete:CASCADE" json:"used_by,omitempty"` // 使用记录
	CreatedAt         time.Time        `gorm:"index" json:"created_at"`                                                     // 创建时间
	UpdatedAt         time.Time        `gorm:"index" json:"updated_at"`                                                     // 更新时间
	DeletedAt         gorm.DeletedAt   `gorm:"index" json:"-"`                                                              // 软删除时间
}

// TableName 指定表名
func (PromoCode) TableName() string {
	return "promo_codes"
}

// Snapshot 转换为评估用的只读快照
func (p *PromoCode) Snapshot() promo.Snapshot {
	usages := make([]promo.Usage, 0, len(p.UsedBy))
	for _, usage := range p.UsedBy {
		usages = append(usages, promo.Usage{
			UserID:          usage.UserID,
			OrderID:         usage.OrderID,
			DiscountApplied: usage.DiscountApplied.Decimal,
			UsedAt:          usage.UsedAt,
		})
	}
	plans := make([]string, len(p.ApplicablePlans))
	copy(plans, p.ApplicablePlans)
	var usageLimit *int
	if p.UsageLimit != nil {
		limit := *p.UsageLimit
		usageLimit = &limit
	}
	return promo.Snapshot{
		ID:                p.ID,
		Code:              p.Code,
		DiscountType:      promo.DiscountType(p.DiscountType),
		DiscountValue:     p.DiscountValue,
		MaxDiscount:       p.MaxDiscount.DecimalPtr(),
		MinPurchaseAmount: p.MinPurchaseAmount.Decimal,
		ApplicablePlans:   plans,
		UsageLimit:        usageLimit,
		UsageCount:        p.UsageCount,
		PerUserLimit:      p.PerUserLimit,
		UsedBy:            usages,
		Active:            p.Active,
		ValidFrom:         p.ValidFrom,
		ValidUntil:        p.ValidUntil,
		Version:           p.Version,
	}
}

// State 优惠码当前状态，用于统计
func (p *PromoCode) State(now time.Time) string {
	switch promo.CheckValidity(p.Snapshot(), now) {
	case promo.ReasonNone:
		return "valid"
	case promo.ReasonInactive:
		return "inactive"
	case promo.ReasonNotYetValid:
		return "scheduled"
	case promo.ReasonExpired:
		return "expired"
	default:
		return "exhausted"
	}
}
