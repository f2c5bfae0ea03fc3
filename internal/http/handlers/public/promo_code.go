package public

import (
	"strings"

	"github.com/prepvio/prepvio-api/internal/http/response"
	"github.com/prepvio/prepvio-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// EvaluatePromoCodeRequest 校验优惠码请求
type EvaluatePromoCodeRequest struct {
	Code   string          `json:"code" binding:"required"`
	PlanID string          `json:"plan_id" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// RedeemPromoCodeRequest 使用优惠码请求
type RedeemPromoCodeRequest struct {
	EvaluatePromoCodeRequest
	OrderID string `json:"order_id"`
}

// CommitPromoCodeRequest 按评估结果提交使用请求
type CommitPromoCodeRequest struct {
	RedeemPromoCodeRequest
	Discount decimal.Decimal `json:"discount"`
	Version  uint64          `json:"version"`
}

// EvaluatePromoCode 校验优惠码并返回折扣，不占用名额
func (h *Handler) EvaluatePromoCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req EvaluatePromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	evaluation, err := h.PromoCodeService.Evaluate(c.Request.Context(), service.EvaluatePromoCodeInput{
		Code:   req.Code,
		UserID: uid,
		PlanID: strings.TrimSpace(req.PlanID),
		Amount: req.Amount,
	})
	if err != nil {
		respondPromoCodeEvaluateError(c, err)
		return
	}
	response.Success(c, evaluation)
}

// RedeemPromoCode 校验并占用优惠码，冲突时自动重试
func (h *Handler) RedeemPromoCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req RedeemPromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.PromoCodeService.Redeem(c.Request.Context(), service.RedeemPromoCodeInput{
		Code:    req.Code,
		UserID:  uid,
		PlanID:  strings.TrimSpace(req.PlanID),
		Amount:  req.Amount,
		OrderID: req.OrderID,
	})
	if err != nil {
		respondPromoCodeRedeemError(c, err)
		return
	}
	requestLog(c).Infow("promo_code_redeem_succeeded", "code", result.Code, "user_id", uid, "attempts", result.Attempts)
	response.Success(c, result)
}

// CommitPromoCode 使用评估时返回的版本与折扣提交一次，不重试
func (h *Handler) CommitPromoCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CommitPromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.PromoCodeService.Commit(c.Request.Context(), service.CommitPromoCodeInput{
		Code:            req.Code,
		UserID:          uid,
		PlanID:          strings.TrimSpace(req.PlanID),
		Amount:          req.Amount,
		Discount:        req.Discount,
		ExpectedVersion: req.Version,
		OrderID:         req.OrderID,
	})
	if err != nil {
		respondPromoCodeRedeemError(c, err)
		return
	}
	response.Success(c, result)
}
