package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prepvio/prepvio-api/internal/cache"
	"github.com/prepvio/prepvio-api/internal/config"
	"github.com/prepvio/prepvio-api/internal/logger"
	"github.com/prepvio/prepvio-api/internal/metrics"
	"github.com/prepvio/prepvio-api/internal/models"
	"github.com/prepvio/prepvio-api/internal/promo"
	"github.com/prepvio/prepvio-api/internal/repository"

	"github.com/shopspring/decimal"
)

// PromoCodeService 优惠码评估与兑换服务
type PromoCodeService struct {
	repo repository.PromoCodeRepository
	cfg  config.PromoConfig
	now  func() time.Time
}

// NewPromoCodeService 创建优惠码服务
func NewPromoCodeService(repo repository.PromoCodeRepository, cfg config.PromoConfig) *PromoCodeService {
	return &PromoCodeService{repo: repo, cfg: cfg, now: time.Now}
}

// SetClock 替换时间源
func (s *PromoCodeService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// EvaluatePromoCodeInput 评估输入
type EvaluatePromoCodeInput struct {
	Code   string
	UserID uint
	PlanID string
	Amount decimal.Decimal
}

// PromoCodeEvaluation 评估结果
// Version 为评估时看到的记录版本，提交时原样带回
type PromoCodeEvaluation struct {
	Code         string          `json:"code"`
	PromoCodeID  uint            `json:"promo_code_id,omitempty"`
	DiscountType string          `json:"discount_type,omitempty"`
	Eligible     bool            `json:"eligible"`
	Reason       promo.Reason    `json:"reason,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Discount     decimal.Decimal `json:"discount"`
	FinalAmount  decimal.Decimal `json:"final_amount"`
	Version      uint64          `json:"version"`
	EvaluatedAt  time.Time       `json:"evaluated_at"`
}

// CommitPromoCodeInput 单次提交输入
type CommitPromoCodeInput struct {
	Code            string
	UserID          uint
	PlanID          string
	Amount          decimal.Decimal
	Discount        decimal.Decimal
	ExpectedVersion uint64
	OrderID         string
}

// RedeemPromoCodeInput 兑换输入
type RedeemPromoCodeInput struct {
	Code    string
	UserID  uint
	PlanID  string
	Amount  decimal.Decimal
	OrderID string
}

// PromoCodeCommitResult 提交结果
type PromoCodeCommitResult struct {
	Status        repository.CommitStatus `json:"status"`
	Reason        promo.Reason            `json:"reason,omitempty"`
	PromoCodeID   uint                    `json:"promo_code_id,omitempty"`
	Code          string                  `json:"code"`
	Amount        decimal.Decimal         `json:"amount"`
	Discount      decimal.Decimal         `json:"discount"`
	FinalAmount   decimal.Decimal         `json:"final_amount"`
	NewUsageCount int                     `json:"new_usage_count,omitempty"`
	Attempts      int                     `json:"attempts"`
	Usage         *models.PromoCodeUsage  `json:"usage,omitempty"`
}

// Evaluate 评估优惠码是否可用及折扣金额，不产生任何写入
// 配置优先读缓存，用户使用记录始终读库
func (s *PromoCodeService) Evaluate(ctx context.Context, input EvaluatePromoCodeInput) (*PromoCodeEvaluation, error) {
	if input.UserID == 0 {
		return nil, ErrPromoCodeUserRequired
	}
	if input.Amount.IsNegative() {
		return nil, ErrPromoCodeAmountInvalid
	}
	code := promo.NormalizeCode(input.Code)
	now := s.now()
	evaluation := &PromoCodeEvaluation{
		Code:        code,
		Amount:      input.Amount,
		Discount:    decimal.Zero,
		FinalAmount: input.Amount,
		EvaluatedAt: now,
	}
	if code == "" {
		return s.rejectEvaluation(evaluation, promo.ReasonRecordNotFound)
	}

	record, err := s.loadConfig(ctx, code)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return s.rejectEvaluation(evaluation, promo.ReasonRecordNotFound)
	}
	usages, err := s.repo.ListUserUsages(record.ID, input.UserID)
	if err != nil {
		return nil, err
	}
	snapshotSource := *record
	snapshotSource.UsedBy = usages

	evaluation.PromoCodeID = record.ID
	evaluation.DiscountType = record.DiscountType
	evaluation.Version = record.Version

	decision, err := promo.Evaluate(snapshotSource.Snapshot(), input.UserID, input.PlanID, input.Amount, now)
	if err != nil {
		logger.Errorw("promo_code_evaluate_data_integrity",
			"promo_code_id", record.ID,
			"code", code,
			"discount_type", record.DiscountType,
			"error", err,
		)
		return s.rejectEvaluation(evaluation, promo.ReasonDataIntegrityFault)
	}
	if !decision.Eligible {
		return s.rejectEvaluation(evaluation, decision.Reason)
	}

	evaluation.Eligible = true
	evaluation.Discount = decision.Discount
	evaluation.FinalAmount = finalAmount(input.Amount, decision.Discount)
	metrics.IncPromoEvaluation("")
	return evaluation, nil
}

func (s *PromoCodeService) rejectEvaluation(evaluation *PromoCodeEvaluation, reason promo.Reason) (*PromoCodeEvaluation, error) {
	evaluation.Eligible = false
	evaluation.Reason = reason
	metrics.IncPromoEvaluation(string(reason))
	return evaluation, ErrorForReason(reason)
}

// Commit 单次提交，不重试
// 版本变化或折扣不一致返回 ErrPromoCodeCommitConflict，由调用方重新评估
func (s *PromoCodeService) Commit(ctx context.Context, input CommitPromoCodeInput) (*PromoCodeCommitResult, error) {
	if input.UserID == 0 {
		return nil, ErrPromoCodeUserRequired
	}
	if input.Amount.IsNegative() || input.Discount.IsNegative() {
		return nil, ErrPromoCodeAmountInvalid
	}
	result, err := s.commitOnce(ctx, input)
	if result != nil {
		result.Attempts = 1
	}
	return result, err
}

// Redeem 评估并提交，冲突时重新读取最新状态重试，最多重试 commit_max_retries 次
func (s *PromoCodeService) Redeem(ctx context.Context, input RedeemPromoCodeInput) (*PromoCodeCommitResult, error) {
	if input.UserID == 0 {
		return nil, ErrPromoCodeUserRequired
	}
	if input.Amount.IsNegative() {
		return nil, ErrPromoCodeAmountInvalid
	}
	start := time.Now()
	defer func() { metrics.ObserveRedeemDuration(time.Since(start)) }()

	code := promo.NormalizeCode(input.Code)
	maxAttempts := s.maxAttempts()
	var last *PromoCodeCommitResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		record, err := s.repo.FindForRedemption(code, input.UserID)
		if err != nil {
			return nil, err
		}
		if record == nil {
			metrics.IncPromoCommit(string(repository.CommitRejected))
			return s.rejectedResult(code, input.Amount, promo.ReasonRecordNotFound, 0, attempt), ErrPromoCodeNotFound
		}

		decision, err := promo.Evaluate(record.Snapshot(), input.UserID, input.PlanID, input.Amount, s.now())
		if err != nil {
			logger.Errorw("promo_code_redeem_data_integrity",
				"promo_code_id", record.ID,
				"code", code,
				"discount_type", record.DiscountType,
				"error", err,
			)
			metrics.IncPromoCommit(string(repository.CommitRejected))
			return s.rejectedResult(code, input.Amount, promo.ReasonDataIntegrityFault, record.ID, attempt), ErrPromoCodeDataIntegrity
		}
		if !decision.Eligible {
			metrics.IncPromoCommit(string(repository.CommitRejected))
			return s.rejectedResult(code, input.Amount, decision.Reason, record.ID, attempt), ErrorForReason(decision.Reason)
		}

		result, err := s.commitOnce(ctx, CommitPromoCodeInput{
			Code:            code,
			UserID:          input.UserID,
			PlanID:          input.PlanID,
			Amount:          input.Amount,
			Discount:        decision.Discount,
			ExpectedVersion: record.Version,
			OrderID:         input.OrderID,
		})
		if result != nil {
			result.Attempts = attempt
		}
		if !errors.Is(err, ErrPromoCodeCommitConflict) {
			return result, err
		}
		last = result
		if attempt < maxAttempts {
			metrics.IncPromoCommitRetry()
			logger.Debugw("promo_code_redeem_retry",
				"code", code,
				"user_id", input.UserID,
				"attempt", attempt,
			)
		}
	}

	logger.Warnw("promo_code_redeem_conflict_exhausted",
		"code", code,
		"user_id", input.UserID,
		"attempts", maxAttempts,
	)
	if last == nil {
		last = s.rejectedResult(code, input.Amount, promo.ReasonCommitConflict, 0, maxAttempts)
		last.Status = repository.CommitConflict
	}
	return last, ErrPromoCodeCommitConflict
}

func (s *PromoCodeService) commitOnce(ctx context.Context, input CommitPromoCodeInput) (*PromoCodeCommitResult, error) {
	code := promo.NormalizeCode(input.Code)
	outcome, err := s.repo.CommitUsage(repository.CommitRequest{
		Code:            code,
		ExpectedVersion: input.ExpectedVersion,
		UserID:          input.UserID,
		PlanID:          input.PlanID,
		Amount:          input.Amount,
		Discount:        input.Discount,
		OrderID:         strings.TrimSpace(input.OrderID),
		Now:             s.now(),
	})
	if err != nil {
		if outcome != nil && outcome.Reason == promo.ReasonDataIntegrityFault {
			logger.Errorw("promo_code_commit_data_integrity",
				"promo_code_id", outcome.PromoCodeID,
				"code", code,
				"error", err,
			)
			metrics.IncPromoCommit(string(repository.CommitRejected))
			return s.rejectedResult(code, input.Amount, promo.ReasonDataIntegrityFault, outcome.PromoCodeID, 0), ErrPromoCodeDataIntegrity
		}
		logger.Errorw("promo_code_commit_failed", "code", code, "user_id", input.UserID, "error", err)
		metrics.IncPromoCommit("error")
		return nil, err
	}
	metrics.IncPromoCommit(string(outcome.Status))

	switch outcome.Status {
	case repository.CommitApplied:
		if cacheErr := cache.DelPromoCode(ctx, code); cacheErr != nil {
			logger.Warnw("promo_code_cache_invalidate_failed", "code", code, "error", cacheErr)
		}
		logger.Infow("promo_code_redeemed",
			"promo_code_id", outcome.PromoCodeID,
			"code", code,
			"user_id", input.UserID,
			"order_id", input.OrderID,
			"discount", input.Discount.StringFixed(2),
			"usage_count", outcome.NewUsageCount,
		)
		discount := input.Discount.Round(2)
		return &PromoCodeCommitResult{
			Status:        repository.CommitApplied,
			PromoCodeID:   outcome.PromoCodeID,
			Code:          code,
			Amount:        input.Amount,
			Discount:      discount,
			FinalAmount:   finalAmount(input.Amount, discount),
			NewUsageCount: outcome.NewUsageCount,
			Usage:         outcome.Usage,
		}, nil
	case repository.CommitConflict:
		result := s.rejectedResult(code, input.Amount, promo.ReasonCommitConflict, outcome.PromoCodeID, 0)
		result.Status = repository.CommitConflict
		return result, ErrPromoCodeCommitConflict
	default:
		return s.rejectedResult(code, input.Amount, outcome.Reason, outcome.PromoCodeID, 0), ErrorForReason(outcome.Reason)
	}
}

func (s *PromoCodeService) rejectedResult(code string, amount decimal.Decimal, reason promo.Reason, promoCodeID uint, attempts int) *PromoCodeCommitResult {
	return &PromoCodeCommitResult{
		Status:      repository.CommitRejected,
		Reason:      reason,
		PromoCodeID: promoCodeID,
		Code:        code,
		Amount:      amount,
		Discount:    decimal.Zero,
		FinalAmount: amount,
		Attempts:    attempts,
	}
}

// loadConfig 读取优惠码配置，缓存未命中时回源并回填
func (s *PromoCodeService) loadConfig(ctx context.Context, code string) (*models.PromoCode, error) {
	if cached, hit, err := cache.GetPromoCode(ctx, code); err == nil && hit && cached != nil {
		return cached, nil
	} else if err != nil {
		logger.Warnw("promo_code_cache_read_failed", "code", code, "error", err)
	}
	record, err := s.repo.GetByCode(code)
	if err != nil || record == nil {
		return record, err
	}
	if err := cache.SetPromoCode(ctx, record, s.cacheTTL()); err != nil {
		logger.Warnw("promo_code_cache_write_failed", "code", code, "error", err)
	}
	return record, nil
}

func (s *PromoCodeService) cacheTTL() time.Duration {
	if s.cfg.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(s.cfg.CacheTTLSeconds) * time.Second
}

// maxAttempts 首次提交加重试次数
func (s *PromoCodeService) maxAttempts() int {
	retries := s.cfg.CommitMaxRetries
	if retries < 0 {
		retries = 0
	}
	return retries + 1
}

func finalAmount(amount, discount decimal.Decimal) decimal.Decimal {
	final := amount.Sub(discount)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final.Round(2)
}
