package promo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CheckValidity 判断优惠码本身是否可用（与用户、订单无关）
// 顺序固定：启用状态 -> 生效时间 -> 失效时间 -> 总次数上限，遇到第一个失败即返回
func CheckValidity(s Snapshot, now time.Time) Reason {
	if !s.Active {
		return ReasonInactive
	}
	if s.ValidFrom != nil && now.Before(*s.ValidFrom) {
		return ReasonNotYetValid
	}
	if s.ValidUntil != nil && now.After(*s.ValidUntil) {
		return ReasonExpired
	}
	if s.UsageLimit != nil && s.UsageCount >= *s.UsageLimit {
		return ReasonUsageLimitReached
	}
	return ReasonNone
}

// CheckUserEligibility 判断用户是否还能使用该优惠码
func CheckUserEligibility(s Snapshot, userID uint) Reason {
	if s.UsesBy(userID) >= s.PerUserLimit {
		return ReasonAlreadyUsed
	}
	return ReasonNone
}

// CheckPlan 判断优惠码是否适用于目标套餐，空集合表示全部适用
func CheckPlan(s Snapshot, planID string) Reason {
	if len(s.ApplicablePlans) == 0 {
		return ReasonNone
	}
	for _, plan := range s.ApplicablePlans {
		if plan == planID {
			return ReasonNone
		}
	}
	return ReasonNotApplicablePlan
}

// CheckMinimumPurchase 判断订单金额是否达到使用门槛
func CheckMinimumPurchase(s Snapshot, amount decimal.Decimal) Reason {
	if amount.LessThan(s.MinPurchaseAmount) {
		return ReasonBelowMinimumPurchase
	}
	return ReasonNone
}

// CalculateDiscount 计算折扣金额
// 结果始终落在 [0, amount] 区间，最后按分位四舍五入
func CalculateDiscount(s Snapshot, amount decimal.Decimal) (decimal.Decimal, error) {
	var discount decimal.Decimal
	switch s.DiscountType {
	case DiscountTypePercentage:
		discount = amount.Mul(s.DiscountValue).Div(hundred)
		if s.MaxDiscount != nil && discount.GreaterThan(*s.MaxDiscount) {
			discount = *s.MaxDiscount
		}
	case DiscountTypeFixed:
		discount = s.DiscountValue
	case DiscountTypeFixedPrice:
		if amount.GreaterThan(s.DiscountValue) {
			discount = amount.Sub(s.DiscountValue)
		} else {
			discount = decimal.Zero
		}
	default:
		return decimal.Zero, fmt.Errorf("%w: %q (code %s)", ErrUnknownDiscountType, s.DiscountType, s.Code)
	}

	if discount.GreaterThan(amount) {
		discount = amount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.Round(2), nil
}

// Evaluate 纯函数：依次执行有效性、用户资格、套餐范围、门槛校验，最后计算折扣
// 同样的输入（且期间无提交）总是得到同样的结果
func Evaluate(s Snapshot, userID uint, planID string, amount decimal.Decimal, now time.Time) (Decision, error) {
	if reason := CheckValidity(s, now); reason != ReasonNone {
		return Reject(reason), nil
	}
	if reason := CheckUserEligibility(s, userID); reason != ReasonNone {
		return Reject(reason), nil
	}
	if reason := CheckPlan(s, planID); reason != ReasonNone {
		return Reject(reason), nil
	}
	if reason := CheckMinimumPurchase(s, amount); reason != ReasonNone {
		return Reject(reason), nil
	}
	discount, err := CalculateDiscount(s, amount)
	if err != nil {
		return Reject(ReasonDataIntegrityFault), err
	}
	return Decision{Eligible: true, Discount: discount}, nil
}
