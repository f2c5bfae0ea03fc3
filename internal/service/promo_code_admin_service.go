package service

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prepvio/prepvio-api/internal/cache"
	"github.com/prepvio/prepvio-api/internal/config"
	"github.com/prepvio/prepvio-api/internal/logger"
	"github.com/prepvio/prepvio-api/internal/metrics"
	"github.com/prepvio/prepvio-api/internal/models"
	"github.com/prepvio/prepvio-api/internal/promo"
	"github.com/prepvio/prepvio-api/internal/queue"
	"github.com/prepvio/prepvio-api/internal/repository"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	promoCodeMaxLength   = 64
	promoCodePrefixMax   = 16
	promoCodeBatchPrefix = "PB"
	// 去掉易混淆字符后正好 32 个，取模无偏差
	promoCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var hundred = decimal.NewFromInt(100)

// PromoCodeAdminService 优惠码管理服务
type PromoCodeAdminService struct {
	repo      repository.PromoCodeRepository
	batchRepo repository.PromoCodeBatchRepository
	queue     *queue.Client
	cfg       config.PromoConfig
	now       func() time.Time
}

// NewPromoCodeAdminService 创建优惠码管理服务
func NewPromoCodeAdminService(repo repository.PromoCodeRepository, batchRepo repository.PromoCodeBatchRepository, queueClient *queue.Client, cfg config.PromoConfig) *PromoCodeAdminService {
	return &PromoCodeAdminService{
		repo:      repo,
		batchRepo: batchRepo,
		queue:     queueClient,
		cfg:       cfg,
		now:       time.Now,
	}
}

// PromoCodeInput 创建或更新优惠码的参数
// 同时作为批量生成的模板持久化到批次记录
type PromoCodeInput struct {
	Code              string           `json:"code,omitempty"`
	Description       string           `json:"description,omitempty"`
	DiscountType      string           `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MaxDiscount       *decimal.Decimal `json:"max_discount,omitempty"`
	MinPurchaseAmount decimal.Decimal  `json:"min_purchase_amount"`
	ApplicablePlans   []string         `json:"applicable_plans,omitempty"`
	UsageLimit        *int             `json:"usage_limit,omitempty"`
	PerUserLimit      int              `json:"per_user_limit,omitempty"`
	Active            *bool            `json:"active,omitempty"`
	ValidFrom         *time.Time       `json:"valid_from,omitempty"`
	ValidUntil        *time.Time       `json:"valid_until,omitempty"`
}

// UpdatePromoCodeInput 更新参数，Version 非零时校验管理端看到的版本
type UpdatePromoCodeInput struct {
	PromoCodeInput
	Version uint64
}

// GeneratePromoCodesInput 批量随机生成参数
type GeneratePromoCodesInput struct {
	Prefix    string
	Quantity  int
	Template  PromoCodeInput
	CreatedBy string
}

// GeneratePromoCodesResult 批量生成结果，Queued 为 true 时 Codes 为空
type GeneratePromoCodesResult struct {
	Batch  *models.PromoCodeBatch `json:"batch"`
	Codes  []models.PromoCode     `json:"codes,omitempty"`
	Queued bool                   `json:"queued"`
}

// validatedPromoCode 校验后的字段集合
type validatedPromoCode struct {
	code              string
	description       string
	discountType      promo.DiscountType
	discountValue     decimal.Decimal
	maxDiscount       *decimal.Decimal
	minPurchaseAmount decimal.Decimal
	plans             models.StringList
	usageLimit        *int
	perUserLimit      int
	active            bool
	validFrom         *time.Time
	validUntil        *time.Time
}

func validatePromoCodeCode(raw string) (string, error) {
	code := promo.NormalizeCode(raw)
	if code == "" || len(code) > promoCodeMaxLength {
		return "", ErrPromoCodeInvalid
	}
	for _, r := range code {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			continue
		}
		return "", ErrPromoCodeInvalid
	}
	return code, nil
}

// validatePromoCodeInput 校验配置，负数一律拒绝
func validatePromoCodeInput(input PromoCodeInput, requireCode bool) (*validatedPromoCode, error) {
	out := &validatedPromoCode{
		description: strings.TrimSpace(input.Description),
		active:      true,
	}
	if requireCode {
		code, err := validatePromoCodeCode(input.Code)
		if err != nil {
			return nil, err
		}
		out.code = code
	}
	if len(out.description) > 500 {
		return nil, ErrPromoCodeInvalid
	}

	discountType, ok := promo.ParseDiscountType(input.DiscountType)
	if !ok {
		return nil, ErrPromoCodeInvalid
	}
	out.discountType = discountType

	value := input.DiscountValue
	switch discountType {
	case promo.DiscountTypePercentage:
		if !value.IsPositive() || value.GreaterThan(hundred) {
			return nil, ErrPromoCodeAmountInvalid
		}
	case promo.DiscountTypeFixed:
		if !value.IsPositive() {
			return nil, ErrPromoCodeAmountInvalid
		}
	case promo.DiscountTypeFixedPrice:
		if value.IsNegative() {
			return nil, ErrPromoCodeAmountInvalid
		}
	}
	out.discountValue = value

	if input.MaxDiscount != nil {
		if input.MaxDiscount.IsNegative() {
			return nil, ErrPromoCodeAmountInvalid
		}
		if discountType == promo.DiscountTypePercentage {
			capped := input.MaxDiscount.Round(2)
			out.maxDiscount = &capped
		}
	}
	if input.MinPurchaseAmount.IsNegative() {
		return nil, ErrPromoCodeAmountInvalid
	}
	out.minPurchaseAmount = input.MinPurchaseAmount.Round(2)

	plans := make(models.StringList, 0, len(input.ApplicablePlans))
	for _, raw := range input.ApplicablePlans {
		plan := strings.ToLower(strings.TrimSpace(raw))
		if !isKnownPlan(plan) {
			return nil, ErrPromoCodePlanInvalid
		}
		if !plans.Contains(plan) {
			plans = append(plans, plan)
		}
	}
	out.plans = plans

	if input.UsageLimit != nil {
		if *input.UsageLimit < 1 {
			return nil, ErrPromoCodeInvalid
		}
		limit := *input.UsageLimit
		out.usageLimit = &limit
	}
	out.perUserLimit = input.PerUserLimit
	if out.perUserLimit == 0 {
		out.perUserLimit = 1
	}
	if out.perUserLimit < 0 {
		return nil, ErrPromoCodeInvalid
	}

	if input.ValidFrom != nil && input.ValidUntil != nil && input.ValidUntil.Before(*input.ValidFrom) {
		return nil, ErrPromoCodeInvalid
	}
	out.validFrom = input.ValidFrom
	out.validUntil = input.ValidUntil
	if input.Active != nil {
		out.active = *input.Active
	}
	return out, nil
}

func isKnownPlan(plan string) bool {
	for _, known := range models.KnownPlans {
		if known == plan {
			return true
		}
	}
	return false
}

func (v *validatedPromoCode) apply(record *models.PromoCode) {
	record.Description = v.description
	record.DiscountType = string(v.discountType)
	record.DiscountValue = v.discountValue
	record.MaxDiscount = nil
	if v.maxDiscount != nil {
		record.MaxDiscount = models.MoneyPtr(*v.maxDiscount)
	}
	record.MinPurchaseAmount = models.NewMoneyFromDecimal(v.minPurchaseAmount)
	record.ApplicablePlans = v.plans
	record.UsageLimit = v.usageLimit
	record.PerUserLimit = v.perUserLimit
	record.Active = v.active
	record.ValidFrom = v.validFrom
	record.ValidUntil = v.validUntil
}

func (v *validatedPromoCode) build(code, createdBy, batchNo string) models.PromoCode {
	record := models.PromoCode{
		Code:      code,
		CreatedBy: strings.TrimSpace(createdBy),
		BatchNo:   batchNo,
	}
	v.apply(&record)
	return record
}

// Create 创建单个优惠码
func (s *PromoCodeAdminService) Create(input PromoCodeInput, createdBy string) (*models.PromoCode, error) {
	validated, err := validatePromoCodeInput(input, true)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ExistingCodes([]string{validated.code})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrPromoCodeExists
	}
	record := validated.build(validated.code, createdBy, "")
	if err := s.repo.Create(&record); err != nil {
		return nil, err
	}
	logger.Infow("promo_code_created", "promo_code_id", record.ID, "code", record.Code, "created_by", record.CreatedBy)
	return &record, nil
}

// CreateBatch 批量创建，任一条校验失败或重复则整体失败
func (s *PromoCodeAdminService) CreateBatch(inputs []PromoCodeInput, createdBy string) ([]models.PromoCode, error) {
	if len(inputs) == 0 {
		return nil, ErrPromoCodeInvalid
	}
	if len(inputs) > s.cfg.Generate.MaxBatch {
		return nil, ErrPromoCodeBatchTooLarge
	}
	records := make([]models.PromoCode, 0, len(inputs))
	codes := make([]string, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		validated, err := validatePromoCodeInput(input, true)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[validated.code]; dup {
			return nil, ErrPromoCodeExists
		}
		seen[validated.code] = struct{}{}
		codes = append(codes, validated.code)
		records = append(records, validated.build(validated.code, createdBy, ""))
	}

	existing, err := s.repo.ExistingCodes(codes)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrPromoCodeExists
	}
	if err := s.repo.Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateBatch(records)
	}); err != nil {
		return nil, err
	}
	logger.Infow("promo_code_batch_created", "count", len(records), "created_by", createdBy)
	return records, nil
}

// Generate 按前缀随机生成一批优惠码，数量超过阈值且队列可用时异步执行
func (s *PromoCodeAdminService) Generate(ctx context.Context, input GeneratePromoCodesInput) (*GeneratePromoCodesResult, error) {
	if input.Quantity < 1 {
		return nil, ErrPromoCodeInvalid
	}
	if input.Quantity > s.cfg.Generate.MaxBatch {
		return nil, ErrPromoCodeBatchTooLarge
	}
	prefix := promo.NormalizeCode(input.Prefix)
	if len(prefix) > promoCodePrefixMax {
		return nil, ErrPromoCodeInvalid
	}
	if prefix != "" {
		if _, err := validatePromoCodeCode(prefix); err != nil {
			return nil, err
		}
	}
	if _, err := validatePromoCodeInput(input.Template, false); err != nil {
		return nil, err
	}
	template, err := encodeTemplate(input.Template)
	if err != nil {
		return nil, err
	}

	batch := &models.PromoCodeBatch{
		BatchNo:   promoCodeBatchPrefix + ulid.Make().String(),
		Prefix:    prefix,
		Quantity:  input.Quantity,
		Status:    models.PromoCodeBatchStatusPending,
		Template:  template,
		CreatedBy: strings.TrimSpace(input.CreatedBy),
	}
	if err := s.batchRepo.Create(batch); err != nil {
		return nil, err
	}

	if s.queue.Enabled() && input.Quantity > s.cfg.Generate.AsyncAbove {
		err := s.queue.EnqueuePromoCodeGenerateBatch(queue.PromoCodeGenerateBatchPayload{BatchNo: batch.BatchNo})
		if err == nil {
			logger.Infow("promo_code_generate_queued", "batch_no", batch.BatchNo, "quantity", batch.Quantity)
			return &GeneratePromoCodesResult{Batch: batch, Queued: true}, nil
		}
		logger.Warnw("promo_code_generate_enqueue_failed",
			"batch_no", batch.BatchNo,
			"error", err,
			"fallback", "sync",
		)
	}

	codes, err := s.ProcessBatch(ctx, batch.BatchNo)
	if err != nil {
		return nil, err
	}
	refreshed, err := s.batchRepo.GetByBatchNo(batch.BatchNo)
	if err != nil {
		return nil, err
	}
	if refreshed != nil {
		batch = refreshed
	}
	return &GeneratePromoCodesResult{Batch: batch, Codes: codes}, nil
}

// ProcessBatch 执行批次生成，已完成的批次直接返回
func (s *PromoCodeAdminService) ProcessBatch(ctx context.Context, batchNo string) ([]models.PromoCode, error) {
	batch, err := s.batchRepo.GetByBatchNo(batchNo)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrPromoCodeBatchNotFound
	}
	if batch.Status == models.PromoCodeBatchStatusCompleted {
		return nil, nil
	}

	codes, err := s.generateBatchCodes(ctx, batch)
	if err != nil {
		if markErr := s.batchRepo.MarkFailed(batch.BatchNo, err.Error()); markErr != nil {
			logger.Errorw("promo_code_batch_mark_failed_error", "batch_no", batch.BatchNo, "error", markErr)
		}
		logger.Errorw("promo_code_generate_failed", "batch_no", batch.BatchNo, "error", err)
		return nil, err
	}
	metrics.AddPromoCodesGenerated(len(codes))
	logger.Infow("promo_code_generate_completed", "batch_no", batch.BatchNo, "created", len(codes))
	return codes, nil
}

func (s *PromoCodeAdminService) generateBatchCodes(ctx context.Context, batch *models.PromoCodeBatch) ([]models.PromoCode, error) {
	input, err := decodeTemplate(batch.Template)
	if err != nil {
		return nil, err
	}
	validated, err := validatePromoCodeInput(input, false)
	if err != nil {
		return nil, err
	}

	length := s.cfg.Generate.CodeLength
	codes := make([]string, 0, batch.Quantity)
	seen := make(map[string]struct{}, batch.Quantity)
	// 碰撞极少，有限轮次内补齐
	for round := 0; len(codes) < batch.Quantity && round < 5; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates := make([]string, 0, batch.Quantity-len(codes))
		for len(candidates) < batch.Quantity-len(codes) {
			candidate, err := randomPromoCode(batch.Prefix, length)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			candidates = append(candidates, candidate)
		}
		taken, err := s.repo.ExistingCodes(candidates)
		if err != nil {
			return nil, err
		}
		takenSet := make(map[string]struct{}, len(taken))
		for _, code := range taken {
			takenSet[code] = struct{}{}
		}
		for _, candidate := range candidates {
			if _, ok := takenSet[candidate]; !ok {
				codes = append(codes, candidate)
			}
		}
	}
	if len(codes) < batch.Quantity {
		return nil, fmt.Errorf("generate promo codes: only %d of %d unique codes", len(codes), batch.Quantity)
	}

	records := make([]models.PromoCode, 0, len(codes))
	for _, code := range codes {
		records = append(records, validated.build(code, batch.CreatedBy, batch.BatchNo))
	}
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateBatch(records); err != nil {
			return err
		}
		return s.batchRepo.WithTx(tx).MarkCompleted(batch.BatchNo, len(records))
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func randomPromoCode(prefix string, length int) (string, error) {
	buf := make([]byte, length)
	if _, err := crand.Read(buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(prefix) + length + 1)
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('-')
	}
	for _, v := range buf {
		b.WriteByte(promoCodeAlphabet[int(v)%len(promoCodeAlphabet)])
	}
	return b.String(), nil
}

func encodeTemplate(input PromoCodeInput) (models.JSON, error) {
	input.Code = ""
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	template := models.JSON{}
	if err := json.Unmarshal(raw, &template); err != nil {
		return nil, err
	}
	return template, nil
}

func decodeTemplate(template models.JSON) (PromoCodeInput, error) {
	var input PromoCodeInput
	raw, err := json.Marshal(template)
	if err != nil {
		return input, err
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return input, err
	}
	return input, nil
}

// GetBatch 获取批次
func (s *PromoCodeAdminService) GetBatch(batchNo string) (*models.PromoCodeBatch, error) {
	batchNo = strings.TrimSpace(batchNo)
	if batchNo == "" {
		return nil, ErrPromoCodeBatchNotFound
	}
	batch, err := s.batchRepo.GetByBatchNo(batchNo)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrPromoCodeBatchNotFound
	}
	return batch, nil
}

// Get 获取优惠码详情
func (s *PromoCodeAdminService) Get(id uint) (*models.PromoCode, error) {
	if id == 0 {
		return nil, ErrPromoCodeInvalid
	}
	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrPromoCodeNotFound
	}
	return record, nil
}

// List 获取优惠码列表
func (s *PromoCodeAdminService) List(filter repository.PromoCodeListFilter) ([]models.PromoCode, int64, error) {
	return s.repo.List(filter)
}

// ListUsages 获取某个优惠码的使用记录
func (s *PromoCodeAdminService) ListUsages(id uint, page, pageSize int) ([]models.PromoCodeUsage, int64, error) {
	if _, err := s.Get(id); err != nil {
		return nil, 0, err
	}
	return s.repo.ListUsages(repository.PromoCodeUsageListFilter{
		Page:        page,
		PageSize:    pageSize,
		PromoCodeID: id,
	})
}

// Update 更新优惠码配置，优惠码本身不可修改
func (s *PromoCodeAdminService) Update(ctx context.Context, id uint, input UpdatePromoCodeInput) (*models.PromoCode, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if input.Version != 0 && input.Version != existing.Version {
		return nil, ErrPromoCodeStale
	}
	validated, err := validatePromoCodeInput(input.PromoCodeInput, false)
	if err != nil {
		return nil, err
	}
	if input.Active == nil {
		validated.active = existing.Active
	}
	if validated.usageLimit != nil && *validated.usageLimit < existing.UsageCount {
		return nil, ErrPromoCodeUsageLimitBelowCount
	}

	validated.apply(existing)
	if err := s.save(ctx, existing); err != nil {
		return nil, err
	}
	logger.Infow("promo_code_updated", "promo_code_id", existing.ID, "code", existing.Code, "version", existing.Version)
	return existing, nil
}

// SetActive 启用或停用优惠码
func (s *PromoCodeAdminService) SetActive(ctx context.Context, id uint, active bool) (*models.PromoCode, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if existing.Active == active {
		return existing, nil
	}
	existing.Active = active
	if err := s.save(ctx, existing); err != nil {
		return nil, err
	}
	logger.Infow("promo_code_active_changed", "promo_code_id", existing.ID, "code", existing.Code, "active", active)
	return existing, nil
}

func (s *PromoCodeAdminService) save(ctx context.Context, record *models.PromoCode) error {
	if err := s.repo.Update(record); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return ErrPromoCodeStale
		}
		return err
	}
	s.invalidate(ctx, record.Code)
	return nil
}

// Purge 物理删除优惠码及全部使用记录
func (s *PromoCodeAdminService) Purge(ctx context.Context, id uint) error {
	existing, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.repo.Purge(existing.ID); err != nil {
		return err
	}
	s.invalidate(ctx, existing.Code)
	logger.Warnw("promo_code_purged", "promo_code_id", existing.ID, "code", existing.Code, "usage_count", existing.UsageCount)
	return nil
}

func (s *PromoCodeAdminService) invalidate(ctx context.Context, code string) {
	if err := cache.DelPromoCode(ctx, code); err != nil {
		logger.Warnw("promo_code_cache_invalidate_failed", "code", code, "error", err)
	}
}
