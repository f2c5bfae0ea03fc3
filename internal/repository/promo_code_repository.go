package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/prepvio/prepvio-api/internal/models"
	"github.com/prepvio/prepvio-api/internal/promo"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrStaleVersion 更新时版本号已变化
var ErrStaleVersion = errors.New("promo code version changed")

// PromoCodeRepository 优惠码数据访问接口
type PromoCodeRepository interface {
	GetByID(id uint) (*models.PromoCode, error)
	GetByCode(code string) (*models.PromoCode, error)
	FindForRedemption(code string, userID uint) (*models.PromoCode, error)
	ExistingCodes(codes []string) ([]string, error)
	Create(code *models.PromoCode) error
	CreateBatch(codes []models.PromoCode) error
	Update(code *models.PromoCode) error
	Purge(id uint) error
	List(filter PromoCodeListFilter) ([]models.PromoCode, int64, error)
	ListUsages(filter PromoCodeUsageListFilter) ([]models.PromoCodeUsage, int64, error)
	ListUserUsages(promoCodeID, userID uint) ([]models.PromoCodeUsage, error)
	CountByState(now time.Time) (map[string]int64, error)
	CommitUsage(req CommitRequest) (*CommitOutcome, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormPromoCodeRepository
}

// CommitStatus 提交结果
type CommitStatus string

const (
	CommitApplied  CommitStatus = "applied"
	CommitConflict CommitStatus = "conflict"
	CommitRejected CommitStatus = "rejected"
)

// CommitRequest 提交一次使用所需的参数
// ExpectedVersion 与 Discount 来自调用方之前的评估结果
type CommitRequest struct {
	Code            string
	ExpectedVersion uint64
	UserID          uint
	PlanID          string
	Amount          decimal.Decimal
	Discount        decimal.Decimal
	OrderID         string
	Now             time.Time
}

// CommitOutcome 提交结果
type CommitOutcome struct {
	Status        CommitStatus
	Reason        promo.Reason
	PromoCodeID   uint
	NewUsageCount int
	NewVersion    uint64
	Usage         *models.PromoCodeUsage
}

// GormPromoCodeRepository GORM 实现
type GormPromoCodeRepository struct {
	db *gorm.DB
}

// NewPromoCodeRepository 创建优惠码仓库
func NewPromoCodeRepository(db *gorm.DB) *GormPromoCodeRepository {
	return &GormPromoCodeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromoCodeRepository) WithTx(tx *gorm.DB) *GormPromoCodeRepository {
	if tx == nil {
		return r
	}
	return &GormPromoCodeRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormPromoCodeRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByID 根据ID获取优惠码（不含使用记录）
func (r *GormPromoCodeRepository) GetByID(id uint) (*models.PromoCode, error) {
	var code models.PromoCode
	if err := r.db.First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetByCode 根据优惠码获取记录，入参会先归一化
func (r *GormPromoCodeRepository) GetByCode(code string) (*models.PromoCode, error) {
	normalized := promo.NormalizeCode(code)
	if normalized == "" {
		return nil, nil
	}
	var record models.PromoCode
	if err := r.db.Where("code = ?", normalized).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindForRedemption 获取优惠码及指定用户的使用记录
// 只加载该用户的记录即可完成每人限额判断，总次数以 usage_count 为准
func (r *GormPromoCodeRepository) FindForRedemption(code string, userID uint) (*models.PromoCode, error) {
	normalized := promo.NormalizeCode(code)
	if normalized == "" {
		return nil, nil
	}
	var record models.PromoCode
	err := r.db.
		Preload("UsedBy", func(db *gorm.DB) *gorm.DB {
			return db.Where("user_id = ?", userID).Order("id ASC")
		}).
		Where("code = ?", normalized).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ExistingCodes 返回已被占用的优惠码（包含软删除记录，唯一索引仍然生效）
func (r *GormPromoCodeRepository) ExistingCodes(codes []string) ([]string, error) {
	if len(codes) == 0 {
		return []string{}, nil
	}
	existing := make([]string, 0)
	if err := r.db.Unscoped().Model(&models.PromoCode{}).Where("code IN ?", codes).Pluck("code", &existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// Create 创建优惠码
func (r *GormPromoCodeRepository) Create(code *models.PromoCode) error {
	return r.db.Create(code).Error
}

// CreateBatch 批量创建，调用方负责事务
func (r *GormPromoCodeRepository) CreateBatch(codes []models.PromoCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.CreateInBatches(codes, 200).Error
}

// Update 按版本号条件更新配置字段，成功后版本号加一
func (r *GormPromoCodeRepository) Update(code *models.PromoCode) error {
	if code == nil || code.ID == 0 {
		return gorm.ErrMissingWhereClause
	}
	result := r.db.Model(&models.PromoCode{}).
		Where("id = ? AND version = ?", code.ID, code.Version).
		Updates(map[string]interface{}{
			"description":         code.Description,
			"discount_type":       code.DiscountType,
			"discount_value":      code.DiscountValue,
			"max_discount":        code.MaxDiscount,
			"min_purchase_amount": code.MinPurchaseAmount,
			"applicable_plans":    code.ApplicablePlans,
			"usage_limit":         code.UsageLimit,
			"per_user_limit":      code.PerUserLimit,
			"active":              code.Active,
			"valid_from":          code.ValidFrom,
			"valid_until":         code.ValidUntil,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleVersion
	}
	code.Version++
	return nil
}

// Purge 物理删除优惠码及其使用记录
func (r *GormPromoCodeRepository) Purge(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("promo_code_id = ?", id).Delete(&models.PromoCodeUsage{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.PromoCode{}, id).Error
	})
}

// List 获取优惠码列表
func (r *GormPromoCodeRepository) List(filter PromoCodeListFilter) ([]models.PromoCode, int64, error) {
	var codes []models.PromoCode
	query := r.db.Model(&models.PromoCode{})

	if code := promo.NormalizeCode(filter.Code); code != "" {
		query = query.Where("code LIKE ?", "%"+code+"%")
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"code", "description"})
		query = query.Where("("+condition+")", repeatLikeArgs("%"+keyword+"%", argCount)...)
	}
	if filter.BatchNo != "" {
		query = query.Where("batch_no = ?", filter.BatchNo)
	}
	if filter.DiscountType != "" {
		query = query.Where("discount_type = ?", filter.DiscountType)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.Plan != "" {
		// 空数组表示适用全部套餐
		query = query.Where("(applicable_plans = ? OR "+jsonArrayContainsExprByDialect(dbDialectName(r.db), "applicable_plans")+")", "[]", filter.Plan)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id desc").Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// ListUsages 获取使用记录
func (r *GormPromoCodeRepository) ListUsages(filter PromoCodeUsageListFilter) ([]models.PromoCodeUsage, int64, error) {
	var usages []models.PromoCodeUsage
	query := r.db.Model(&models.PromoCodeUsage{})
	if filter.PromoCodeID > 0 {
		query = query.Where("promo_code_id = ?", filter.PromoCodeID)
	}
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id asc").Find(&usages).Error; err != nil {
		return nil, 0, err
	}
	return usages, total, nil
}

// ListUserUsages 获取指定用户对某个优惠码的全部使用记录
func (r *GormPromoCodeRepository) ListUserUsages(promoCodeID, userID uint) ([]models.PromoCodeUsage, error) {
	usages := make([]models.PromoCodeUsage, 0)
	if promoCodeID == 0 || userID == 0 {
		return usages, nil
	}
	if err := r.db.Where("promo_code_id = ? AND user_id = ?", promoCodeID, userID).Order("id asc").Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

// CountByState 按状态统计优惠码数量，各状态互斥
func (r *GormPromoCodeRepository) CountByState(now time.Time) (map[string]int64, error) {
	counts := map[string]int64{}
	base := func() *gorm.DB { return r.db.Model(&models.PromoCode{}) }

	var inactive, scheduled, expired, exhausted, total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("active = ?", false).Count(&inactive).Error; err != nil {
		return nil, err
	}
	if err := base().Where("active = ? AND valid_from IS NOT NULL AND valid_from > ?", true, now).Count(&scheduled).Error; err != nil {
		return nil, err
	}
	if err := base().
		Where("active = ? AND (valid_from IS NULL OR valid_from <= ?)", true, now).
		Where("valid_until IS NOT NULL AND valid_until < ?", now).
		Count(&expired).Error; err != nil {
		return nil, err
	}
	if err := base().
		Where("active = ? AND (valid_from IS NULL OR valid_from <= ?)", true, now).
		Where("(valid_until IS NULL OR valid_until >= ?)", now).
		Where("usage_limit IS NOT NULL AND usage_count >= usage_limit").
		Count(&exhausted).Error; err != nil {
		return nil, err
	}

	counts["inactive"] = inactive
	counts["scheduled"] = scheduled
	counts["expired"] = expired
	counts["exhausted"] = exhausted
	counts["valid"] = total - inactive - scheduled - expired - exhausted
	return counts, nil
}

// CommitUsage 原子提交一次使用
// 同一事务内：读取当前记录 -> 校验版本 -> 按当前状态重新评估 -> 条件自增 -> 写入使用记录
func (r *GormPromoCodeRepository) CommitUsage(req CommitRequest) (*CommitOutcome, error) {
	code := promo.NormalizeCode(req.Code)
	if code == "" {
		return &CommitOutcome{Status: CommitRejected, Reason: promo.ReasonRecordNotFound}, nil
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	var outcome *CommitOutcome
	err := r.db.Transaction(func(tx *gorm.DB) error {
		current, err := r.WithTx(tx).FindForRedemption(code, req.UserID)
		if err != nil {
			return err
		}
		if current == nil {
			outcome = &CommitOutcome{Status: CommitRejected, Reason: promo.ReasonRecordNotFound}
			return nil
		}
		if current.Version != req.ExpectedVersion {
			outcome = &CommitOutcome{Status: CommitConflict, Reason: promo.ReasonCommitConflict, PromoCodeID: current.ID}
			return nil
		}

		decision, err := promo.Evaluate(current.Snapshot(), req.UserID, req.PlanID, req.Amount, now)
		if err != nil {
			outcome = &CommitOutcome{Status: CommitRejected, Reason: promo.ReasonDataIntegrityFault, PromoCodeID: current.ID}
			return err
		}
		if !decision.Eligible {
			outcome = &CommitOutcome{Status: CommitRejected, Reason: decision.Reason, PromoCodeID: current.ID}
			return nil
		}
		if !decision.Discount.Equal(req.Discount.Round(2)) {
			outcome = &CommitOutcome{Status: CommitConflict, Reason: promo.ReasonCommitConflict, PromoCodeID: current.ID}
			return nil
		}

		result := tx.Model(&models.PromoCode{}).
			Where("id = ? AND version = ?", current.ID, current.Version).
			Updates(map[string]interface{}{
				"usage_count": gorm.Expr("usage_count + ?", 1),
				"version":     gorm.Expr("version + ?", 1),
				"updated_at":  now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			outcome = &CommitOutcome{Status: CommitConflict, Reason: promo.ReasonCommitConflict, PromoCodeID: current.ID}
			return nil
		}

		usage := &models.PromoCodeUsage{
			PromoCodeID:     current.ID,
			UserID:          req.UserID,
			OrderID:         strings.TrimSpace(req.OrderID),
			DiscountApplied: models.NewMoneyFromDecimal(decision.Discount),
			UsedAt:          now,
		}
		if err := tx.Create(usage).Error; err != nil {
			return err
		}

		outcome = &CommitOutcome{
			Status:        CommitApplied,
			PromoCodeID:   current.ID,
			NewUsageCount: current.UsageCount + 1,
			NewVersion:    current.Version + 1,
			Usage:         usage,
		}
		return nil
	})
	if err != nil {
		if outcome != nil && outcome.Reason == promo.ReasonDataIntegrityFault {
			return outcome, err
		}
		return nil, err
	}
	return outcome, nil
}
