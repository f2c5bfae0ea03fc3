package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prepvio/prepvio-api/internal/models"
	"github.com/prepvio/prepvio-api/internal/promo"
	"github.com/prepvio/prepvio-api/internal/queue"
	"github.com/prepvio/prepvio-api/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPromoCodeAdminServiceTest(t *testing.T) (*PromoCodeAdminService, *gorm.DB) {
	t.Helper()
	db := openPromoTestDB(t, "promo_code_admin_service_test")
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	svc := NewPromoCodeAdminService(
		repository.NewPromoCodeRepository(db),
		repository.NewPromoCodeBatchRepository(db),
		queueClient,
		testPromoConfig(),
	)
	return svc, db
}

func percentageInput(code string) PromoCodeInput {
	maxDiscount := decimal.NewFromInt(100)
	return PromoCodeInput{
		Code:          code,
		Description:   "10% off",
		DiscountType:  string(promo.DiscountTypePercentage),
		DiscountValue: decimal.NewFromInt(10),
		MaxDiscount:   &maxDiscount,
	}
}

func TestPromoCodeAdminCreate(t *testing.T) {
	svc, _ := setupPromoCodeAdminServiceTest(t)

	input := percentageInput(" welcome10 ")
	input.ApplicablePlans = []string{"Yearly", "premium", "yearly"}
	created, err := svc.Create(input, "admin")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Code != "WELCOME10" || !created.Active || created.PerUserLimit != 1 {
		t.Fatalf("unexpected record: %+v", created)
	}
	if len(created.ApplicablePlans) != 2 || !created.ApplicablePlans.Contains(models.PlanYearly) {
		t.Fatalf("expected deduplicated plans, got %+v", created.ApplicablePlans)
	}

	if _, err := svc.Create(percentageInput("WELCOME10"), "admin"); !errors.Is(err, ErrPromoCodeExists) {
		t.Fatalf("expected ErrPromoCodeExists, got %v", err)
	}
}

func TestPromoCodeAdminCreateValidation(t *testing.T) {
	svc, _ := setupPromoCodeAdminServiceTest(t)
	negative := decimal.NewFromInt(-5)
	zero := 0
	later := time.Now().Add(time.Hour)
	earlier := time.Now()

	cases := []struct {
		name   string
		mutate func(*PromoCodeInput)
		want   error
	}{
		{name: "empty code", mutate: func(in *PromoCodeInput) { in.Code = "  " }, want: ErrPromoCodeInvalid},
		{name: "bad chars", mutate: func(in *PromoCodeInput) { in.Code = "SAVE 50!" }, want: ErrPromoCodeInvalid},
		{name: "unknown type", mutate: func(in *PromoCodeInput) { in.DiscountType = "bogo" }, want: ErrPromoCodeInvalid},
		{name: "percentage over 100", mutate: func(in *PromoCodeInput) { in.DiscountValue = decimal.NewFromInt(101) }, want: ErrPromoCodeAmountInvalid},
		{name: "negative value", mutate: func(in *PromoCodeInput) { in.DiscountValue = negative }, want: ErrPromoCodeAmountInvalid},
		{name: "negative cap", mutate: func(in *PromoCodeInput) { in.MaxDiscount = &negative }, want: ErrPromoCodeAmountInvalid},
		{name: "negative min purchase", mutate: func(in *PromoCodeInput) { in.MinPurchaseAmount = negative }, want: ErrPromoCodeAmountInvalid},
		{name: "unknown plan", mutate: func(in *PromoCodeInput) { in.ApplicablePlans = []string{"weekly"} }, want: ErrPromoCodePlanInvalid},
		{name: "zero usage limit", mutate: func(in *PromoCodeInput) { in.UsageLimit = &zero }, want: ErrPromoCodeInvalid},
		{name: "negative per user", mutate: func(in *PromoCodeInput) { in.PerUserLimit = -1 }, want: ErrPromoCodeInvalid},
		{name: "window reversed", mutate: func(in *PromoCodeInput) { in.ValidFrom = &later; in.ValidUntil = &earlier }, want: ErrPromoCodeInvalid},
	}
	for _, tc := range cases {
		input := percentageInput("VALID1")
		tc.mutate(&input)
		if _, err := svc.Create(input, "admin"); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestPromoCodeAdminCreateFixedPriceAllowsZero(t *testing.T) {
	svc, _ := setupPromoCodeAdminServiceTest(t)
	input := PromoCodeInput{Code: "FREEMONTH", DiscountType: string(promo.DiscountTypeFixedPrice), DiscountValue: decimal.Zero}
	created, err := svc.Create(input, "admin")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.MaxDiscount != nil {
		t.Fatalf("cap only applies to percentage codes, got %+v", created.MaxDiscount)
	}
}

func TestPromoCodeAdminCreateBatchAllOrNothing(t *testing.T) {
	svc, db := setupPromoCodeAdminServiceTest(t)
	if _, err := svc.Create(percentageInput("TAKEN"), "admin"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := svc.CreateBatch([]PromoCodeInput{percentageInput("NEW1"), percentageInput("taken")}, "admin")
	if !errors.Is(err, ErrPromoCodeExists) {
		t.Fatalf("expected ErrPromoCodeExists, got %v", err)
	}
	_, err = svc.CreateBatch([]PromoCodeInput{percentageInput("DUP"), percentageInput("dup")}, "admin")
	if !errors.Is(err, ErrPromoCodeExists) {
		t.Fatalf("expected duplicate-in-batch rejection, got %v", err)
	}
	var count int64
	db.Model(&models.PromoCode{}).Count(&count)
	if count != 1 {
		t.Fatalf("failed batches must not create rows, got %d", count)
	}

	created, err := svc.CreateBatch([]PromoCodeInput{percentageInput("NEW1"), percentageInput("NEW2")}, "admin")
	if err != nil || len(created) != 2 {
		t.Fatalf("expected 2 created, got %d err=%v", len(created), err)
	}
}

func TestPromoCodeAdminGenerateSync(t *testing.T) {
	svc, db := setupPromoCodeAdminServiceTest(t)
	limit := 1
	template := percentageInput("")
	template.UsageLimit = &limit

	result, err := svc.Generate(context.Background(), GeneratePromoCodesInput{
		Prefix:    "spring",
		Quantity:  20,
		Template:  template,
		CreatedBy: "admin",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if result.Queued || len(result.Codes) != 20 {
		t.Fatalf("expected 20 codes synchronously, got %d queued=%v", len(result.Codes), result.Queued)
	}
	if result.Batch.Status != models.PromoCodeBatchStatusCompleted || result.Batch.Created != 20 {
		t.Fatalf("unexpected batch: %+v", result.Batch)
	}
	if !strings.HasPrefix(result.Batch.BatchNo, promoCodeBatchPrefix) {
		t.Fatalf("unexpected batch no: %s", result.Batch.BatchNo)
	}
	seen := map[string]bool{}
	for _, code := range result.Codes {
		if !strings.HasPrefix(code.Code, "SPRING-") || len(code.Code) != len("SPRING-")+8 {
			t.Fatalf("unexpected generated code %q", code.Code)
		}
		if seen[code.Code] {
			t.Fatalf("duplicate generated code %q", code.Code)
		}
		seen[code.Code] = true
		if code.UsageLimit == nil || *code.UsageLimit != 1 || code.BatchNo != result.Batch.BatchNo {
			t.Fatalf("template not applied: %+v", code)
		}
	}

	var stored int64
	db.Model(&models.PromoCode{}).Where("batch_no = ?", result.Batch.BatchNo).Count(&stored)
	if stored != 20 {
		t.Fatalf("expected 20 stored codes, got %d", stored)
	}

	again, err := svc.ProcessBatch(context.Background(), result.Batch.BatchNo)
	if err != nil || again != nil {
		t.Fatalf("reprocessing a completed batch must be a no-op, got %d err=%v", len(again), err)
	}
}

func TestPromoCodeAdminGenerateLimits(t *testing.T) {
	svc, _ := setupPromoCodeAdminServiceTest(t)
	if _, err := svc.Generate(context.Background(), GeneratePromoCodesInput{Quantity: 101, Template: percentageInput("")}); !errors.Is(err, ErrPromoCodeBatchTooLarge) {
		t.Fatalf("expected ErrPromoCodeBatchTooLarge, got %v", err)
	}
	if _, err := svc.Generate(context.Background(), GeneratePromoCodesInput{Quantity: 0, Template: percentageInput("")}); !errors.Is(err, ErrPromoCodeInvalid) {
		t.Fatalf("expected ErrPromoCodeInvalid, got %v", err)
	}
	if _, err := svc.GetBatch("PBMISSING"); !errors.Is(err, ErrPromoCodeBatchNotFound) {
		t.Fatalf("expected ErrPromoCodeBatchNotFound, got %v", err)
	}
}

func TestPromoCodeAdminUpdate(t *testing.T) {
	svc, db := setupPromoCodeAdminServiceTest(t)
	limit := 5
	input := percentageInput("LIMITED")
	input.UsageLimit = &limit
	created, err := svc.Create(input, "admin")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := db.Model(&models.PromoCode{}).Where("id = ?", created.ID).Update("usage_count", 3).Error; err != nil {
		t.Fatalf("set usage count failed: %v", err)
	}

	lower := 2
	update := UpdatePromoCodeInput{PromoCodeInput: percentageInput("")}
	update.UsageLimit = &lower
	if _, err := svc.Update(context.Background(), created.ID, update); !errors.Is(err, ErrPromoCodeUsageLimitBelowCount) {
		t.Fatalf("expected ErrPromoCodeUsageLimitBelowCount, got %v", err)
	}

	higher := 10
	update.UsageLimit = &higher
	update.DiscountValue = decimal.NewFromInt(15)
	updated, err := svc.Update(context.Background(), created.ID, update)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if *updated.UsageLimit != 10 || !updated.DiscountValue.Equal(decimal.NewFromInt(15)) || updated.Version != 1 {
		t.Fatalf("unexpected updated record: %+v", updated)
	}
	if updated.Code != "LIMITED" || !updated.Active {
		t.Fatalf("update must keep code and active flag: %+v", updated)
	}

	stale := update
	stale.Version = 99
	if _, err := svc.Update(context.Background(), created.ID, stale); !errors.Is(err, ErrPromoCodeStale) {
		t.Fatalf("expected ErrPromoCodeStale, got %v", err)
	}
}

func TestPromoCodeAdminSetActiveAndPurge(t *testing.T) {
	svc, db := setupPromoCodeAdminServiceTest(t)
	created, err := svc.Create(percentageInput("TOGGLE"), "admin")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	toggled, err := svc.SetActive(context.Background(), created.ID, false)
	if err != nil || toggled.Active {
		t.Fatalf("expected inactive, got %+v err=%v", toggled, err)
	}
	var stored models.PromoCode
	db.First(&stored, created.ID)
	if stored.Active {
		t.Fatalf("active flag not persisted")
	}

	usage := models.PromoCodeUsage{PromoCodeID: created.ID, UserID: 1, UsedAt: time.Now()}
	if err := db.Create(&usage).Error; err != nil {
		t.Fatalf("create usage failed: %v", err)
	}
	usages, total, err := svc.ListUsages(created.ID, 1, 20)
	if err != nil || total != 1 || len(usages) != 1 {
		t.Fatalf("expected one usage, got %d/%d err=%v", len(usages), total, err)
	}

	if err := svc.Purge(context.Background(), created.ID); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if _, err := svc.Get(created.ID); !errors.Is(err, ErrPromoCodeNotFound) {
		t.Fatalf("expected not found after purge, got %v", err)
	}
	var remaining int64
	db.Model(&models.PromoCodeUsage{}).Count(&remaining)
	if remaining != 0 {
		t.Fatalf("purge must remove usages, got %d", remaining)
	}
	if err := svc.Purge(context.Background(), created.ID); !errors.Is(err, ErrPromoCodeNotFound) {
		t.Fatalf("expected not found on second purge, got %v", err)
	}
}

func TestPromoCodeTemplateRoundTrip(t *testing.T) {
	input := percentageInput("IGNORED")
	input.ApplicablePlans = []string{models.PlanLifetime}
	template, err := encodeTemplate(input)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, ok := template["code"]; ok {
		t.Fatalf("template must not carry a code")
	}
	decoded, err := decodeTemplate(template)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.DiscountType != input.DiscountType || !decoded.DiscountValue.Equal(input.DiscountValue) || len(decoded.ApplicablePlans) != 1 {
		t.Fatalf("unexpected decoded template: %+v", decoded)
	}
}
