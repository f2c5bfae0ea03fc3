package shared

import (
	"errors"

	"github.com/prepvio/prepvio-api/internal/http/response"
	"github.com/prepvio/prepvio-api/internal/i18n"
	"github.com/prepvio/prepvio-api/internal/promo"
	"github.com/prepvio/prepvio-api/internal/service"

	"github.com/gin-gonic/gin"
)

// promoRejection 优惠码拒绝原因对应的响应
type promoRejection struct {
	target error
	code   int
	key    string
}

var promoRejections = []promoRejection{
	{target: service.ErrPromoCodeNotFound, code: response.CodeNotFound, key: "promo.not_found"},
	{target: service.ErrPromoCodeInactive, code: response.CodeUnprocessable, key: "promo.inactive"},
	{target: service.ErrPromoCodeNotYetValid, code: response.CodeUnprocessable, key: "promo.not_yet_valid"},
	{target: service.ErrPromoCodeExpired, code: response.CodeUnprocessable, key: "promo.expired"},
	{target: service.ErrPromoCodeUsageLimitReached, code: response.CodeUnprocessable, key: "promo.usage_limit_reached"},
	{target: service.ErrPromoCodeAlreadyUsed, code: response.CodeUnprocessable, key: "promo.already_used"},
	{target: service.ErrPromoCodeNotApplicablePlan, code: response.CodeUnprocessable, key: "promo.not_applicable_plan"},
	{target: service.ErrPromoCodeBelowMinimumPurchase, code: response.CodeUnprocessable, key: "promo.below_minimum_purchase"},
	{target: service.ErrPromoCodeCommitConflict, code: response.CodeConflict, key: "promo.commit_conflict"},
	{target: service.ErrPromoCodeDataIntegrity, code: response.CodeUnprocessable, key: "promo.data_integrity_fault"},
}

// RespondPromoRejection 若 err 为优惠码拒绝原因则输出带 reason 的拒绝响应并返回 true。
func RespondPromoRejection(c *gin.Context, err error) bool {
	for _, rule := range promoRejections {
		if !errors.Is(err, rule.target) {
			continue
		}
		reason := service.ReasonFromError(err)
		msg := i18n.T(i18n.ResolveLocale(c), rule.key)
		RequestLog(c).Debugw("promo_code_rejected", "reason", reason)
		response.Rejected(c, rule.code, msg, string(reason), reason == promo.ReasonCommitConflict)
		return true
	}
	return false
}
