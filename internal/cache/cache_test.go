package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prepvio/prepvio-api/internal/config"
	"github.com/prepvio/prepvio-api/internal/models"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init disabled redis failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("cache should be disabled")
	}
	ctx := context.Background()
	if err := SetPromoCode(ctx, &models.PromoCode{Code: "WELCOME10"}, time.Minute); err != nil {
		t.Fatalf("set should be noop, got %v", err)
	}
	record, hit, err := GetPromoCode(ctx, "welcome10")
	if err != nil || hit || record != nil {
		t.Fatalf("expected miss, got %+v hit=%v err=%v", record, hit, err)
	}
	if err := DelPromoCode(ctx, "WELCOME10", ""); err != nil {
		t.Fatalf("del should be noop, got %v", err)
	}
}

func TestPromoCodeKeyNormalizes(t *testing.T) {
	if promoCodeKey(" save50 ") != "promo:code:SAVE50" {
		t.Fatalf("unexpected key: %s", promoCodeKey(" save50 "))
	}
	if BuildKey("promo:code:SAVE50") != redisPrefix+":promo:code:SAVE50" {
		t.Fatalf("unexpected full key: %s", BuildKey("promo:code:SAVE50"))
	}
}

func TestBuildAuthStates(t *testing.T) {
	invalidBefore := time.Unix(1700000000, 0)
	admin := BuildAdminAuthState(&models.Admin{ID: 3, Role: models.AdminRoleSuperAdmin, IsSuper: true, TokenVersion: 2, TokenInvalidBefore: &invalidBefore})
	if admin.Kind != AuthKindAdmin || admin.SubjectID != 3 || !admin.IsSuper || admin.TokenInvalidBefore != 1700000000 {
		t.Fatalf("unexpected admin state: %+v", admin)
	}
	user := BuildUserAuthState(&models.User{ID: 9, Status: "active"})
	if user.Kind != AuthKindUser || user.Status != "active" || user.TokenInvalidBefore != 0 {
		t.Fatalf("unexpected user state: %+v", user)
	}
	if authStateKey(AuthKindUser, 9) != "auth:user:9" {
		t.Fatalf("unexpected key: %s", authStateKey(AuthKindUser, 9))
	}
}
