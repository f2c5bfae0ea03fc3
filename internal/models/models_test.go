package models

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func useTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:models_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	previous := DB
	DB = db
	t.Cleanup(func() {
		DB = previous
		_ = sqlDB.Close()
	})
	if err := AutoMigrate(); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
}

func TestInitDefaultAdminCreatesSuperAdmin(t *testing.T) {
	useTestDB(t)
	if err := InitDefaultAdmin(" root ", "s3cret-pass"); err != nil {
		t.Fatalf("init default admin failed: %v", err)
	}
	var admin Admin
	if err := DB.Where("username = ?", "root").First(&admin).Error; err != nil {
		t.Fatalf("load admin failed: %v", err)
	}
	if admin.Role != AdminRoleSuperAdmin || !admin.IsSuper {
		t.Fatalf("expected superadmin, got role=%s is_super=%v", admin.Role, admin.IsSuper)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret-pass")) != nil {
		t.Fatalf("password hash mismatch")
	}

	// 已有其他管理员时不再创建
	if err := InitDefaultAdmin("another", ""); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	var count int64
	DB.Model(&Admin{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one admin, got %d", count)
	}
}

func TestInitDefaultAdminPromotesExisting(t *testing.T) {
	useTestDB(t)
	if err := DB.Create(&Admin{Username: "admin", PasswordHash: "x", Role: AdminRoleAdmin}).Error; err != nil {
		t.Fatalf("seed admin failed: %v", err)
	}
	if err := InitDefaultAdmin("admin", ""); err != nil {
		t.Fatalf("init default admin failed: %v", err)
	}
	var admin Admin
	DB.Where("username = ?", "admin").First(&admin)
	if admin.Role != AdminRoleSuperAdmin || !admin.IsSuper {
		t.Fatalf("expected promotion to superadmin, got %+v", admin)
	}
}

func TestPromoCodeState(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	one := 1

	cases := []struct {
		name   string
		mutate func(p *PromoCode)
		want   string
	}{
		{"valid", func(p *PromoCode) {}, "valid"},
		{"inactive", func(p *PromoCode) { p.Active = false }, "inactive"},
		{"scheduled", func(p *PromoCode) { p.ValidFrom = &future }, "scheduled"},
		{"expired", func(p *PromoCode) { p.ValidUntil = &past }, "expired"},
		{"exhausted", func(p *PromoCode) { p.UsageLimit = &one; p.UsageCount = 1 }, "exhausted"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &PromoCode{
				Code:          "STATE",
				DiscountType:  "percentage",
				DiscountValue: decimal.NewFromInt(10),
				PerUserLimit:  1,
				Active:        true,
			}
			tc.mutate(p)
			if got := p.State(now); got != tc.want {
				t.Fatalf("state want %s got %s", tc.want, got)
			}
		})
	}
}

func TestStringListScan(t *testing.T) {
	var list StringList
	if err := list.Scan(`["yearly","premium"]`); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(list) != 2 || !list.Contains("premium") {
		t.Fatalf("unexpected list: %v", list)
	}
	if err := list.Scan(nil); err != nil || len(list) != 0 {
		t.Fatalf("nil should scan to empty list, got %v err=%v", list, err)
	}
	value, err := StringList(nil).Value()
	if err != nil || value != "[]" {
		t.Fatalf("empty list should store [], got %v err=%v", value, err)
	}
}

func TestMoneyJSON(t *testing.T) {
	var payload struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"12.345","b":7}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.A.String() != "12.35" || payload.B.String() != "7.00" {
		t.Fatalf("unexpected money values: %s %s", payload.A, payload.B)
	}
	raw, _ := json.Marshal(payload.B)
	if string(raw) != `"7.00"` {
		t.Fatalf("marshal want \"7.00\" got %s", raw)
	}
}
