package promo

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType 折扣类型
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"  // 按比例折扣
	DiscountTypeFixed      DiscountType = "fixed"       // 固定金额立减
	DiscountTypeFixedPrice DiscountType = "fixed_price" // 一口价（discountValue 为目标售价）
)

// Valid 判断折扣类型是否受支持
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixed, DiscountTypeFixedPrice:
		return true
	default:
		return false
	}
}

// ParseDiscountType 归一化折扣类型字符串
func ParseDiscountType(raw string) (DiscountType, bool) {
	t := DiscountType(strings.ToLower(strings.TrimSpace(raw)))
	return t, t.Valid()
}

// Reason 拒绝原因，原样透出给调用方
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonInactive             Reason = "inactive"
	ReasonNotYetValid          Reason = "not-yet-valid"
	ReasonExpired              Reason = "expired"
	ReasonUsageLimitReached    Reason = "usage-limit-reached"
	ReasonAlreadyUsed          Reason = "already-used"
	ReasonNotApplicablePlan    Reason = "not-applicable-plan"
	ReasonBelowMinimumPurchase Reason = "below-minimum-purchase"
	ReasonCommitConflict       Reason = "commit-conflict"
	ReasonRecordNotFound       Reason = "record-not-found"
	ReasonDataIntegrityFault   Reason = "data-integrity-fault"
)

// Retryable 仅提交冲突属于可重试的瞬时错误
func (r Reason) Retryable() bool {
	return r == ReasonCommitConflict
}

// ErrUnknownDiscountType 记录中出现了未知折扣类型（数据完整性错误，不可重试）
var ErrUnknownDiscountType = errors.New("promo: unknown discount type")

// Usage 单次使用记录
type Usage struct {
	UserID          uint
	OrderID         string
	DiscountApplied decimal.Decimal
	UsedAt          time.Time
}

// Snapshot 优惠码的只读快照
// 评估逻辑只依赖快照本身，与持久化表示解耦
type Snapshot struct {
	ID                uint
	Code              string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscount       *decimal.Decimal
	MinPurchaseAmount decimal.Decimal
	ApplicablePlans   []string
	UsageLimit        *int
	UsageCount        int
	PerUserLimit      int
	UsedBy            []Usage
	Active            bool
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	Version           uint64
}

// UsesBy 统计指定用户的历史使用次数
func (s Snapshot) UsesBy(userID uint) int {
	count := 0
	for _, usage := range s.UsedBy {
		if usage.UserID == userID {
			count++
		}
	}
	return count
}

// Decision 评估结果：可用时带折扣金额，否则带拒绝原因
type Decision struct {
	Eligible bool
	Discount decimal.Decimal
	Reason   Reason
}

// Reject 构造拒绝结果
func Reject(reason Reason) Decision {
	return Decision{Reason: reason, Discount: decimal.Zero}
}

// NormalizeCode 优惠码统一去空格并转大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
