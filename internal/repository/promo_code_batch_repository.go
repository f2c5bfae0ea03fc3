package repository

import (
	"errors"
	"strings"

	"github.com/prepvio/prepvio-api/internal/models"

	"gorm.io/gorm"
)

// PromoCodeBatchRepository 优惠码生成批次数据访问接口
type PromoCodeBatchRepository interface {
	Create(batch *models.PromoCodeBatch) error
	GetByBatchNo(batchNo string) (*models.PromoCodeBatch, error)
	MarkCompleted(batchNo string, created int) error
	MarkFailed(batchNo string, reason string) error
	WithTx(tx *gorm.DB) *GormPromoCodeBatchRepository
}

// GormPromoCodeBatchRepository GORM 实现
type GormPromoCodeBatchRepository struct {
	db *gorm.DB
}

// NewPromoCodeBatchRepository 创建批次仓库
func NewPromoCodeBatchRepository(db *gorm.DB) *GormPromoCodeBatchRepository {
	return &GormPromoCodeBatchRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromoCodeBatchRepository) WithTx(tx *gorm.DB) *GormPromoCodeBatchRepository {
	if tx == nil {
		return r
	}
	return &GormPromoCodeBatchRepository{db: tx}
}

// Create 创建批次
func (r *GormPromoCodeBatchRepository) Create(batch *models.PromoCodeBatch) error {
	return r.db.Create(batch).Error
}

// GetByBatchNo 根据批次号获取
func (r *GormPromoCodeBatchRepository) GetByBatchNo(batchNo string) (*models.PromoCodeBatch, error) {
	batchNo = strings.TrimSpace(batchNo)
	if batchNo == "" {
		return nil, nil
	}
	var batch models.PromoCodeBatch
	if err := r.db.Where("batch_no = ?", batchNo).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// MarkCompleted 标记批次完成
func (r *GormPromoCodeBatchRepository) MarkCompleted(batchNo string, created int) error {
	return r.db.Model(&models.PromoCodeBatch{}).
		Where("batch_no = ?", batchNo).
		Updates(map[string]interface{}{
			"status":  models.PromoCodeBatchStatusCompleted,
			"created": created,
			"error":   "",
		}).Error
}

// MarkFailed 标记批次失败
func (r *GormPromoCodeBatchRepository) MarkFailed(batchNo string, reason string) error {
	return r.db.Model(&models.PromoCodeBatch{}).
		Where("batch_no = ?", batchNo).
		Updates(map[string]interface{}{
			"status": models.PromoCodeBatchStatusFailed,
			"error":  reason,
		}).Error
}
