package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prepvio/prepvio-api/internal/config"
	"github.com/prepvio/prepvio-api/internal/models"
	"github.com/prepvio/prepvio-api/internal/provider"
	"github.com/prepvio/prepvio-api/internal/queue"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupWorkerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.Admin{}, &models.User{}, &models.PromoCode{}, &models.PromoCodeUsage{}, &models.PromoCodeBatch{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	cfg := &config.Config{
		Promo: config.PromoConfig{
			CommitMaxRetries: 3,
			Generate:         config.PromoGenerateConfig{CodeLength: 6, MaxBatch: 100, AsyncAbove: 10},
		},
	}
	return NewConsumer(provider.NewContainerWithDB(cfg, db)), db
}

func TestHandlePromoCodeGenerateBatch(t *testing.T) {
	consumer, db := setupWorkerTest(t)
	batch := &models.PromoCodeBatch{
		BatchNo:  "PBTESTBATCH",
		Prefix:   "VIP",
		Quantity: 12,
		Status:   models.PromoCodeBatchStatusPending,
		Template: models.JSON{
			"discount_type":  "fixed",
			"discount_value": "15",
		},
	}
	if err := db.Create(batch).Error; err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	task, err := queue.NewPromoCodeGenerateBatchTask(queue.PromoCodeGenerateBatchPayload{BatchNo: batch.BatchNo})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handlePromoCodeGenerateBatch(context.Background(), task); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}

	var count int64
	db.Model(&models.PromoCode{}).Where("batch_no = ?", batch.BatchNo).Count(&count)
	if count != 12 {
		t.Fatalf("expected 12 generated codes, got %d", count)
	}
	var stored models.PromoCodeBatch
	db.Where("batch_no = ?", batch.BatchNo).First(&stored)
	if stored.Status != models.PromoCodeBatchStatusCompleted || stored.Created != 12 {
		t.Fatalf("unexpected batch state: %+v", stored)
	}

	// 重复投递不会重复生成
	if err := consumer.handlePromoCodeGenerateBatch(context.Background(), task); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	db.Model(&models.PromoCode{}).Where("batch_no = ?", batch.BatchNo).Count(&count)
	if count != 12 {
		t.Fatalf("redelivery must not duplicate codes, got %d", count)
	}
}

func TestHandlePromoCodeGenerateBatchInvalidPayload(t *testing.T) {
	consumer, _ := setupWorkerTest(t)
	err := consumer.handlePromoCodeGenerateBatch(context.Background(), asynq.NewTask(queue.TaskPromoCodeGenerateBatch, []byte(`{}`)))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for invalid payload, got %v", err)
	}

	missing, _ := queue.NewPromoCodeGenerateBatchTask(queue.PromoCodeGenerateBatchPayload{BatchNo: "PBMISSING"})
	if err := consumer.handlePromoCodeGenerateBatch(context.Background(), missing); err != nil {
		t.Fatalf("missing batch should be skipped, got %v", err)
	}
}

func TestHandlePromoCodeGenerateBatchBadTemplateMarksFailed(t *testing.T) {
	consumer, db := setupWorkerTest(t)
	batch := &models.PromoCodeBatch{
		BatchNo:  "PBBADTEMPLATE",
		Quantity: 3,
		Status:   models.PromoCodeBatchStatusPending,
		Template: models.JSON{"discount_type": "bogus", "discount_value": "15"},
	}
	if err := db.Create(batch).Error; err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	task, _ := queue.NewPromoCodeGenerateBatchTask(queue.PromoCodeGenerateBatchPayload{BatchNo: batch.BatchNo})
	if err := consumer.handlePromoCodeGenerateBatch(context.Background(), task); err == nil {
		t.Fatalf("expected error for invalid template")
	}
	var stored models.PromoCodeBatch
	db.Where("batch_no = ?", batch.BatchNo).First(&stored)
	if stored.Status != models.PromoCodeBatchStatusFailed || stored.Error == "" {
		t.Fatalf("expected failed batch with error, got %+v", stored)
	}
}

func TestStatsServiceRunOnce(t *testing.T) {
	consumer, db := setupWorkerTest(t)
	now := time.Now()
	past := now.Add(-time.Hour)
	limit := 1
	records := []models.PromoCode{
		{Code: "LIVE", DiscountType: "fixed", DiscountValue: decimalFromInt(5), PerUserLimit: 1, Active: true},
		{Code: "OFF", DiscountType: "fixed", DiscountValue: decimalFromInt(5), PerUserLimit: 1, Active: false},
		{Code: "OLD", DiscountType: "fixed", DiscountValue: decimalFromInt(5), PerUserLimit: 1, Active: true, ValidUntil: &past},
		{Code: "USED", DiscountType: "fixed", DiscountValue: decimalFromInt(5), PerUserLimit: 1, Active: true, UsageLimit: &limit, UsageCount: 1},
	}
	for i := range records {
		if err := db.Create(&records[i]).Error; err != nil {
			t.Fatalf("create promo code failed: %v", err)
		}
	}

	stats := NewStatsService(consumer.PromoCodeRepo, 0)
	counts := stats.RunOnce()
	if counts["valid"] != 1 || counts["inactive"] != 1 || counts["expired"] != 1 || counts["exhausted"] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if stats.interval != defaultStatsInterval {
		t.Fatalf("expected default interval, got %s", stats.interval)
	}
}

func TestStatsServiceStopsOnContext(t *testing.T) {
	consumer, _ := setupWorkerTest(t)
	stats := NewStatsService(consumer.PromoCodeRepo, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stats.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stats service did not stop")
	}
}
