package service

import (
	"errors"

	"github.com/prepvio/prepvio-api/internal/promo"
)

// 通用错误
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// 优惠码评估与兑换错误，与 promo.Reason 一一对应
var (
	ErrPromoCodeInactive             = errors.New("promo code inactive")
	ErrPromoCodeNotYetValid          = errors.New("promo code not yet valid")
	ErrPromoCodeExpired              = errors.New("promo code expired")
	ErrPromoCodeUsageLimitReached    = errors.New("promo code usage limit reached")
	ErrPromoCodeAlreadyUsed          = errors.New("promo code already used by user")
	ErrPromoCodeNotApplicablePlan    = errors.New("promo code not applicable to plan")
	ErrPromoCodeBelowMinimumPurchase = errors.New("amount below promo code minimum purchase")
	ErrPromoCodeCommitConflict       = errors.New("promo code commit conflict")
	ErrPromoCodeNotFound             = errors.New("promo code not found")
	ErrPromoCodeDataIntegrity        = errors.New("promo code data integrity fault")
	ErrPromoCodeUserRequired         = errors.New("promo code requires authenticated user")
)

// 优惠码管理错误
var (
	ErrPromoCodeInvalid              = errors.New("promo code invalid")
	ErrPromoCodeExists               = errors.New("promo code already exists")
	ErrPromoCodeUsageLimitBelowCount = errors.New("usage limit below current usage count")
	ErrPromoCodePlanInvalid          = errors.New("promo code plan invalid")
	ErrPromoCodeAmountInvalid        = errors.New("promo code amount invalid")
	ErrPromoCodeBatchTooLarge        = errors.New("promo code batch too large")
	ErrPromoCodeBatchNotFound        = errors.New("promo code batch not found")
	ErrPromoCodeStale                = errors.New("promo code modified concurrently")
)

var reasonErrors = map[promo.Reason]error{
	promo.ReasonInactive:             ErrPromoCodeInactive,
	promo.ReasonNotYetValid:          ErrPromoCodeNotYetValid,
	promo.ReasonExpired:              ErrPromoCodeExpired,
	promo.ReasonUsageLimitReached:    ErrPromoCodeUsageLimitReached,
	promo.ReasonAlreadyUsed:          ErrPromoCodeAlreadyUsed,
	promo.ReasonNotApplicablePlan:    ErrPromoCodeNotApplicablePlan,
	promo.ReasonBelowMinimumPurchase: ErrPromoCodeBelowMinimumPurchase,
	promo.ReasonCommitConflict:       ErrPromoCodeCommitConflict,
	promo.ReasonRecordNotFound:       ErrPromoCodeNotFound,
	promo.ReasonDataIntegrityFault:   ErrPromoCodeDataIntegrity,
}

// ErrorForReason 拒绝原因转错误，ReasonNone 返回 nil
func ErrorForReason(reason promo.Reason) error {
	if reason == promo.ReasonNone {
		return nil
	}
	if err, ok := reasonErrors[reason]; ok {
		return err
	}
	return ErrPromoCodeDataIntegrity
}

// ReasonFromError 错误转拒绝原因，非优惠码拒绝错误返回 ReasonNone
func ReasonFromError(err error) promo.Reason {
	if err == nil {
		return promo.ReasonNone
	}
	for reason, target := range reasonErrors {
		if errors.Is(err, target) {
			return reason
		}
	}
	return promo.ReasonNone
}
