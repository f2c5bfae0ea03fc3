package admin

import (
	"errors"

	handlershared "github.com/prepvio/prepvio-api/internal/http/handlers/shared"
	"github.com/prepvio/prepvio-api/internal/http/response"
	"github.com/prepvio/prepvio-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var promoCodeAdminErrorRules = []mappedHandlerError{
	{target: service.ErrPromoCodeNotFound, code: response.CodeNotFound, key: "promo.not_found"},
	{target: service.ErrPromoCodeBatchNotFound, code: response.CodeNotFound, key: "promo.batch_not_found"},
	{target: service.ErrPromoCodeInvalid, code: response.CodeBadRequest, key: "promo.invalid"},
	{target: service.ErrPromoCodeAmountInvalid, code: response.CodeBadRequest, key: "promo.amount_invalid"},
	{target: service.ErrPromoCodePlanInvalid, code: response.CodeBadRequest, key: "promo.plan_invalid"},
	{target: service.ErrPromoCodeBatchTooLarge, code: response.CodeBadRequest, key: "promo.batch_too_large"},
	{target: service.ErrPromoCodeExists, code: response.CodeConflict, key: "promo.code_exists"},
	{target: service.ErrPromoCodeStale, code: response.CodeConflict, key: "promo.stale"},
	{target: service.ErrPromoCodeUsageLimitBelowCount, code: response.CodeBadRequest, key: "promo.usage_limit_below"},
}

func respondPromoCodeAdminError(c *gin.Context, err error, fallbackKey string) {
	respondWithMappedError(c, err, promoCodeAdminErrorRules, response.CodeInternal, fallbackKey)
}
