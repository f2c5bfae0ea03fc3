package public

import (
	"errors"

	"github.com/prepvio/prepvio-api/internal/http/handlers/shared"
	"github.com/prepvio/prepvio-api/internal/http/response"
	"github.com/prepvio/prepvio-api/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	if shared.RespondPromoRejection(c, err) {
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var promoCodeInputErrorRules = []mappedHandlerError{
	{target: service.ErrPromoCodeUserRequired, code: response.CodeUnauthorized, key: "promo.user_required"},
	{target: service.ErrPromoCodeAmountInvalid, code: response.CodeBadRequest, key: "promo.amount_invalid"},
}

func respondPromoCodeEvaluateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, promoCodeInputErrorRules, response.CodeInternal, "promo.evaluate_failed")
}

func respondPromoCodeRedeemError(c *gin.Context, err error) {
	respondWithMappedError(c, err, promoCodeInputErrorRules, response.CodeInternal, "promo.redeem_failed")
}
