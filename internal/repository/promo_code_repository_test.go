package repository

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prepvio/prepvio-api/internal/models"
	"github.com/prepvio/prepvio-api/internal/promo"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPromoCodeRepositoryTest(t *testing.T) (*GormPromoCodeRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:promo_code_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	if err := db.AutoMigrate(&models.PromoCode{}, &models.PromoCodeUsage{}, &models.PromoCodeBatch{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewPromoCodeRepository(db), db
}

func createTestPromoCode(t *testing.T, repo *GormPromoCodeRepository, code string, mutate func(*models.PromoCode)) *models.PromoCode {
	t.Helper()
	limit := 100
	record := &models.PromoCode{
		Code:          code,
		DiscountType:  string(promo.DiscountTypePercentage),
		DiscountValue: decimal.NewFromInt(10),
		MaxDiscount:   models.MoneyPtr(decimal.NewFromInt(100)),
		UsageLimit:    &limit,
		PerUserLimit:  1,
		Active:        true,
	}
	if mutate != nil {
		mutate(record)
	}
	if err := repo.Create(record); err != nil {
		t.Fatalf("create promo code failed: %v", err)
	}
	return record
}

func commitRequestFor(t *testing.T, repo *GormPromoCodeRepository, code string, userID uint, amount string) CommitRequest {
	t.Helper()
	record, err := repo.FindForRedemption(code, userID)
	if err != nil || record == nil {
		t.Fatalf("find for redemption failed: %v", err)
	}
	decision, err := promo.Evaluate(record.Snapshot(), userID, models.PlanMonthly, decimal.RequireFromString(amount), time.Now())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	return CommitRequest{
		Code:            code,
		ExpectedVersion: record.Version,
		UserID:          userID,
		PlanID:          models.PlanMonthly,
		Amount:          decimal.RequireFromString(amount),
		Discount:        decision.Discount,
		OrderID:         fmt.Sprintf("order-%d", userID),
	}
}

func TestPromoCodeRepositoryGetByCodeNormalizes(t *testing.T) {
	repo, _ := setupPromoCodeRepositoryTest(t)
	createTestPromoCode(t, repo, "WELCOME10", nil)

	got, err := repo.GetByCode("  welcome10 ")
	if err != nil {
		t.Fatalf("get by code failed: %v", err)
	}
	if got == nil || got.Code != "WELCOME10" {
		t.Fatalf("expected WELCOME10, got %+v", got)
	}

	missing, err := repo.GetByCode("NOPE")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing code, got %+v err=%v", missing, err)
	}
}

func TestPromoCodeRepositoryStringListRoundTrip(t *testing.T) {
	repo, _ := setupPromoCodeRepositoryTest(t)
	created := createTestPromoCode(t, repo, "PREMIUM20", func(p *models.PromoCode) {
		p.ApplicablePlans = models.StringList{models.PlanPremium, models.PlanYearly}
	})

	got, err := repo.GetByID(created.ID)
	if err != nil || got == nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if len(got.ApplicablePlans) != 2 || !got.ApplicablePlans.Contains(models.PlanYearly) {
		t.Fatalf("unexpected plans: %+v", got.ApplicablePlans)
	}
	if got.MaxDiscount == nil || got.MaxDiscount.String() != "100.00" {
		t.Fatalf("unexpected max discount: %+v", got.MaxDiscount)
	}
}

func TestPromoCodeRepositoryCommitUsageApplied(t *testing.T) {
	repo, db := setupPromoCodeRepositoryTest(t)
	createTestPromoCode(t, repo, "WELCOME10", nil)

	req := commitRequestFor(t, repo, "WELCOME10", 7, "500")
	outcome, err := repo.CommitUsage(req)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if outcome.Status != CommitApplied || outcome.NewUsageCount != 1 {
		t.Fatalf("expected applied with count 1, got %+v", outcome)
	}
	if outcome.Usage == nil || outcome.Usage.DiscountApplied.String() != "50.00" {
		t.Fatalf("unexpected usage row: %+v", outcome.Usage)
	}

	var stored models.PromoCode
	if err := db.Preload("UsedBy").Where("code = ?", "WELCOME10").First(&stored).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.UsageCount != 1 || len(stored.UsedBy) != 1 || stored.Version != 1 {
		t.Fatalf("expected count=1 usages=1 version=1, got %d/%d/%d", stored.UsageCount, len(stored.UsedBy), stored.Version)
	}
}

func TestPromoCodeRepositoryCommitUsageStaleVersion(t *testing.T) {
	repo, _ := setupPromoCodeRepositoryTest(t)
	createTestPromoCode(t, repo, "WELCOME10", nil)

	first := commitRequestFor(t, repo, "WELCOME10", 7, "100")
	second := commitRequestFor(t, repo, "WELCOME10", 8, "100")

	if outcome, err := repo.CommitUsage(first); err != nil || outcome.Status != CommitApplied {
		t.Fatalf("first commit should apply, got %+v err=%v", outcome, err)
	}
	outcome, err := repo.CommitUsage(second)
	if err != nil {
		t.Fatalf("second commit failed: %v", err)
	}
	if outcome.Status != CommitConflict || outcome.Reason != promo.ReasonCommitConflict {
		t.Fatalf("expected conflict for stale version, got %+v", outcome)
	}
}

func TestPromoCodeRepositoryCommitUsageDiscountMismatch(t *testing.T) {
	repo, _ := setupPromoCodeRepositoryTest(t)
	createTestPromoCode(t, repo, "WELCOME10", nil)

	req := commitRequestFor(t, repo, "WELCOME10", 7, "100")
	req.Discount = decimal.NewFromInt(99)
	outcome, err := repo.CommitUsage(req)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if outcome.Status != CommitConflict {
		t.Fatalf("expected conflict on discount mismatch, got %+v", outcome)
	}
}

func TestPromoCodeRepositoryCommitUsageRejected(t *testing.T) {
	repo, db := setupPromoCodeRepositoryTest(t)
	created := createTestPromoCode(t, repo, "WELCOME10", nil)

	req := commitRequestFor(t, repo, "WELCOME10", 7, "100")
	if err := db.Model(&models.PromoCode{}).Where("id = ?", created.ID).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	outcome, err := repo.CommitUsage(req)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if outcome.Status != CommitRejected || outcome.Reason != promo.ReasonInactive {
		t.Fatalf("expected inactive rejection, got %+v", outcome)
	}

	var count int64
	db.Model(&models.PromoCodeUsage{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected commit must not append usage, got %d", count)
	}
}

func TestPromoCodeRepositoryCommitUsageRecordNotFound(t *testing.T) {
	repo, _ := setupPromoCodeRepositoryTest(t)
	outcome, err := repo.CommitUsage(CommitRequest{Code: "MISSING", UserID: 1})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if outcome.Status != CommitRejected || outcome.Reason != promo.ReasonRecordNotFound {
		t.Fatalf("expected record-not-found, got %+v", outcome)
	}
}

func TestPromoCodeRepositoryCommitUsageUnknownType(t *testing.T) {
	repo, db := setupPromoCodeRepositoryTest(t)
	createTestPromoCode(t, repo, "BROKEN", func(p *models.PromoCode) {
		p.DiscountType = "bogus"
	})

	outcome, err := repo.CommitUsage(CommitRequest{Code: "BROKEN", UserID: 1, Amount: decimal.NewFromInt(10)})
	if !errors.Is(err, promo.ErrUnknownDiscountType) {
		t.Fatalf("expected ErrUnknownDiscountType, got %v", err)
	}
	if outcome == nil || outcome.Reason != promo.ReasonDataIntegrityFault {
		t.Fatalf("expected data-integrity-fault outcome, got %+v", outcome)
	}
	var stored models.PromoCode
	db.Where("code = ?", "BROKEN").First(&stored)
	if stored.UsageCount != 0 {
		t.Fatalf("usage count must not change, got %d", stored.UsageCount)
	}
}

func TestPromoCodeRepositoryConcurrentCommitSingleSlot(t *testing.T) {
	repo, db := setupPromoCodeRepositoryTest(t)
	createTestPromoCode(t, repo, "LASTONE", func(p *models.PromoCode) {
		limit := 1
		p.UsageLimit = &limit
	})

	const workers = 8
	requests := make([]CommitRequest, 0, workers)
	for i := 0; i < workers; i++ {
		requests = append(requests, commitRequestFor(t, repo, "LASTONE", uint(i+1), "100"))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for _, req := range requests {
		wg.Add(1)
		go func(req CommitRequest) {
			defer wg.Done()
			outcome, err := repo.CommitUsage(req)
			if err != nil {
				t.Errorf("commit failed: %v", err)
				return
			}
			if outcome.Status == CommitApplied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}(req)
	}
	wg.Wait()

	if applied != 1 {
		t.Fatalf("expected exactly one applied commit, got %d", applied)
	}
	var stored models.PromoCode
	if err := db.Preload("UsedBy").Where("code = ?", "LASTONE").First(&stored).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.UsageCount != 1 || len(stored.UsedBy) != 1 {
		t.Fatalf("expected one usage recorded, got count=%d rows=%d", stored.UsageCount, len(stored.UsedBy))
	}
}

func TestPromoCodeRepositoryUpdateRequiresCurrentVersion(t *testing.T) {
	repo, _ := setupPromoCodeRepositoryTest(t)
	created := createTestPromoCode(t, repo, "EDITME", nil)

	stale := *created
	created.Description = "first edit"
	if err := repo.Update(created); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1 after update, got %d", created.Version)
	}

	stale.Description = "stale edit"
	if err := repo.Update(&stale); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}

	got, _ := repo.GetByID(created.ID)
	if got.Description != "first edit" {
		t.Fatalf("unexpected description: %s", got.Description)
	}
}

func TestPromoCodeRepositoryPurgeRemovesUsages(t *testing.T) {
	repo, db := setupPromoCodeRepositoryTest(t)
	created := createTestPromoCode(t, repo, "PURGE", nil)
	if outcome, err := repo.CommitUsage(commitRequestFor(t, repo, "PURGE", 3, "50")); err != nil || outcome.Status != CommitApplied {
		t.Fatalf("commit failed: %+v err=%v", outcome, err)
	}

	if err := repo.Purge(created.ID); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	var codes, usages int64
	db.Unscoped().Model(&models.PromoCode{}).Count(&codes)
	db.Model(&models.PromoCodeUsage{}).Count(&usages)
	if codes != 0 || usages != 0 {
		t.Fatalf("expected everything purged, got codes=%d usages=%d", codes, usages)
	}
}

func TestPromoCodeRepositoryListFilters(t *testing.T) {
	repo, _ := setupPromoCodeRepositoryTest(t)
	createTestPromoCode(t, repo, "ALLPLANS", nil)
	createTestPromoCode(t, repo, "YEARLYONLY", func(p *models.PromoCode) {
		p.ApplicablePlans = models.StringList{models.PlanYearly}
	})
	createTestPromoCode(t, repo, "LIFETIMEONLY", func(p *models.PromoCode) {
		p.ApplicablePlans = models.StringList{models.PlanLifetime}
		p.BatchNo = "B1"
	})

	codes, total, err := repo.List(PromoCodeListFilter{Plan: models.PlanYearly, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(codes) != 2 {
		t.Fatalf("expected ALLPLANS and YEARLYONLY, got total=%d", total)
	}

	codes, total, err = repo.List(PromoCodeListFilter{BatchNo: "B1"})
	if err != nil || total != 1 || codes[0].Code != "LIFETIMEONLY" {
		t.Fatalf("unexpected batch filter result: total=%d err=%v", total, err)
	}

	codes, total, err = repo.List(PromoCodeListFilter{Keyword: "only"})
	if err != nil || total != 2 {
		t.Fatalf("unexpected keyword filter result: total=%d err=%v", total, err)
	}

	existing, err := repo.ExistingCodes([]string{"ALLPLANS", "FRESH"})
	if err != nil || len(existing) != 1 || existing[0] != "ALLPLANS" {
		t.Fatalf("unexpected existing codes: %+v err=%v", existing, err)
	}
}

func TestPromoCodeRepositoryCountByState(t *testing.T) {
	repo, _ := setupPromoCodeRepositoryTest(t)
	createTestPromoCode(t, repo, "VALID", nil)
	createTestPromoCode(t, repo, "OFF", func(p *models.PromoCode) { p.Active = false })
	createTestPromoCode(t, repo, "FULL", func(p *models.PromoCode) {
		limit := 2
		p.UsageLimit = &limit
		p.UsageCount = 2
	})

	counts, err := repo.CountByState(time.Now())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if counts["valid"] != 1 || counts["inactive"] != 1 || counts["exhausted"] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
