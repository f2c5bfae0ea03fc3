package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/prepvio/prepvio-api/internal/http/handlers/shared"
	"github.com/prepvio/prepvio-api/internal/http/response"
	"github.com/prepvio/prepvio-api/internal/repository"
	"github.com/prepvio/prepvio-api/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePromoCodesBatchRequest 批量创建请求
type CreatePromoCodesBatchRequest struct {
	Codes []service.PromoCodeInput `json:"codes" binding:"required,min=1"`
}

// GeneratePromoCodesRequest 随机生成请求
type GeneratePromoCodesRequest struct {
	Prefix   string                 `json:"prefix"`
	Quantity int                    `json:"quantity" binding:"required,min=1"`
	Template service.PromoCodeInput `json:"template"`
}

// UpdatePromoCodeRequest 更新请求
type UpdatePromoCodeRequest struct {
	service.PromoCodeInput
	Version uint64 `json:"version"`
}

// SetPromoCodeActiveRequest 启停请求
type SetPromoCodeActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func parsePromoCodeID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", err)
		return 0, false
	}
	return uint(id), true
}

// GetPromoCodes 获取优惠码列表
func (h *Handler) GetPromoCodes(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	var active *bool
	if raw := strings.TrimSpace(c.Query("active")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		active = &parsed
	}

	codes, total, err := h.PromoCodeAdminService.List(repository.PromoCodeListFilter{
		Page:         page,
		PageSize:     pageSize,
		Code:         c.Query("code"),
		Keyword:      c.Query("keyword"),
		BatchNo:      strings.TrimSpace(c.Query("batch_no")),
		DiscountType: strings.TrimSpace(c.Query("discount_type")),
		Plan:         strings.ToLower(strings.TrimSpace(c.Query("plan"))),
		Active:       active,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "promo.fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, codes, response.NewPagination(page, pageSize, total))
}

// GetPromoCode 获取优惠码详情
func (h *Handler) GetPromoCode(c *gin.Context) {
	id, ok := parsePromoCodeID(c)
	if !ok {
		return
	}
	record, err := h.PromoCodeAdminService.Get(id)
	if err != nil {
		respondPromoCodeAdminError(c, err, "promo.fetch_failed")
		return
	}
	response.Success(c, record)
}

// GetPromoCodeUsages 获取优惠码使用记录
func (h *Handler) GetPromoCodeUsages(c *gin.Context) {
	id, ok := parsePromoCodeID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.QueryPagination(c)
	usages, total, err := h.PromoCodeAdminService.ListUsages(id, page, pageSize)
	if err != nil {
		respondPromoCodeAdminError(c, err, "promo.fetch_failed")
		return
	}
	response.SuccessWithPage(c, usages, response.NewPagination(page, pageSize, total))
}

// CreatePromoCode 创建优惠码
func (h *Handler) CreatePromoCode(c *gin.Context) {
	var req service.PromoCodeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	record, err := h.PromoCodeAdminService.Create(req, getAdminName(c))
	if err != nil {
		respondPromoCodeAdminError(c, err, "promo.create_failed")
		return
	}
	response.Success(c, record)
}

// CreatePromoCodesBatch 批量创建优惠码，全部成功或全部失败
func (h *Handler) CreatePromoCodesBatch(c *gin.Context) {
	var req CreatePromoCodesBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	records, err := h.PromoCodeAdminService.CreateBatch(req.Codes, getAdminName(c))
	if err != nil {
		respondPromoCodeAdminError(c, err, "promo.create_failed")
		return
	}
	response.Success(c, gin.H{
		"created": len(records),
		"codes":   records,
	})
}

// GeneratePromoCodes 按前缀随机生成优惠码
func (h *Handler) GeneratePromoCodes(c *gin.Context) {
	var req GeneratePromoCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.PromoCodeAdminService.Generate(c.Request.Context(), service.GeneratePromoCodesInput{
		Prefix:    req.Prefix,
		Quantity:  req.Quantity,
		Template:  req.Template,
		CreatedBy: getAdminName(c),
	})
	if err != nil {
		respondPromoCodeAdminError(c, err, "promo.generate_failed")
		return
	}
	requestLog(c).Infow("admin_promo_code_generate",
		"batch_no", result.Batch.BatchNo,
		"quantity", req.Quantity,
		"queued", result.Queued,
	)
	response.Success(c, result)
}

// GetPromoCodeBatch 获取生成批次
func (h *Handler) GetPromoCodeBatch(c *gin.Context) {
	batch, err := h.PromoCodeAdminService.GetBatch(c.Param("batch_no"))
	if err != nil {
		respondPromoCodeAdminError(c, err, "promo.fetch_failed")
		return
	}
	response.Success(c, batch)
}

// UpdatePromoCode 更新优惠码
func (h *Handler) UpdatePromoCode(c *gin.Context) {
	id, ok := parsePromoCodeID(c)
	if !ok {
		return
	}
	var req UpdatePromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	record, err := h.PromoCodeAdminService.Update(c.Request.Context(), id, service.UpdatePromoCodeInput{
		PromoCodeInput: req.PromoCodeInput,
		Version:        req.Version,
	})
	if err != nil {
		respondPromoCodeAdminError(c, err, "promo.update_failed")
		return
	}
	response.Success(c, record)
}

// SetPromoCodeActive 启用或停用优惠码
func (h *Handler) SetPromoCodeActive(c *gin.Context) {
	id, ok := parsePromoCodeID(c)
	if !ok {
		return
	}
	var req SetPromoCodeActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	record, err := h.PromoCodeAdminService.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondPromoCodeAdminError(c, err, "promo.update_failed")
		return
	}
	response.Success(c, record)
}

// PurgePromoCode 彻底删除优惠码及其使用记录
func (h *Handler) PurgePromoCode(c *gin.Context) {
	id, ok := parsePromoCodeID(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	if err := h.PromoCodeAdminService.Purge(c.Request.Context(), id); err != nil {
		respondPromoCodeAdminError(c, err, "promo.purge_failed")
		return
	}
	requestLog(c).Warnw("admin_promo_code_purge", "promo_code_id", id, "admin_id", adminID)
	response.Success(c, gin.H{"purged": true})
}
