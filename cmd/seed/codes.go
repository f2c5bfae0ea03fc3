package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prepvio/prepvio-api/internal/service"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// seedFile 种子文件结构
type seedFile struct {
	Codes []seedCode `yaml:"codes"`
}

// seedCode 单个优惠码种子，有效期以天数表示，相对于执行时间
type seedCode struct {
	Code              string   `yaml:"code"`
	Description       string   `yaml:"description"`
	DiscountType      string   `yaml:"discount_type"`
	DiscountValue     float64  `yaml:"discount_value"`
	MaxDiscount       *float64 `yaml:"max_discount"`
	MinPurchaseAmount float64  `yaml:"min_purchase_amount"`
	ApplicablePlans   []string `yaml:"applicable_plans"`
	UsageLimit        *int     `yaml:"usage_limit"`
	PerUserLimit      int      `yaml:"per_user_limit"`
	Active            *bool    `yaml:"active"`
	ValidDays         int      `yaml:"valid_days"` // 0 表示永久有效
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// builtinSeedCodes 未指定种子文件时使用的示例优惠码
func builtinSeedCodes() []seedCode {
	return []seedCode{
		{Code: "WELCOME10", Description: "10% off for new users", DiscountType: "percentage", DiscountValue: 10, MaxDiscount: floatPtr(100), UsageLimit: intPtr(100), PerUserLimit: 1, ValidDays: 30},
		{Code: "SAVE50", Description: "Flat 50 off on any plan", DiscountType: "fixed", DiscountValue: 50, MinPurchaseAmount: 100, UsageLimit: intPtr(50), PerUserLimit: 1, ValidDays: 15},
		{Code: "PREMIUM20", Description: "20% off on Premium and Yearly plans", DiscountType: "percentage", DiscountValue: 20, MaxDiscount: floatPtr(200), ApplicablePlans: []string{"premium", "yearly"}, UsageLimit: intPtr(30), PerUserLimit: 1, ValidDays: 60},
		{Code: "LIFETIME100", Description: "100 off on Lifetime plan", DiscountType: "fixed", DiscountValue: 100, MinPurchaseAmount: 500, ApplicablePlans: []string{"lifetime"}, UsageLimit: intPtr(20), PerUserLimit: 1, ValidDays: 90},
		{Code: "EARLYBIRD", Description: "25% off, limited time offer", DiscountType: "percentage", DiscountValue: 25, MaxDiscount: floatPtr(250), MinPurchaseAmount: 200, PerUserLimit: 1, ValidDays: 7},
		{Code: "PREP29", Description: "Get any plan for just 29", DiscountType: "fixed_price", DiscountValue: 29, PerUserLimit: 1},
	}
}

func loadSeedCodes(path string) ([]seedCode, error) {
	if path == "" {
		return builtinSeedCodes(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if len(file.Codes) == 0 {
		return nil, fmt.Errorf("seed file %s has no codes", path)
	}
	return file.Codes, nil
}

func (s seedCode) toInput(now time.Time) service.PromoCodeInput {
	input := service.PromoCodeInput{
		Code:              s.Code,
		Description:       s.Description,
		DiscountType:      s.DiscountType,
		DiscountValue:     decimal.NewFromFloat(s.DiscountValue),
		MinPurchaseAmount: decimal.NewFromFloat(s.MinPurchaseAmount),
		ApplicablePlans:   s.ApplicablePlans,
		UsageLimit:        s.UsageLimit,
		PerUserLimit:      s.PerUserLimit,
		Active:            s.Active,
	}
	if s.MaxDiscount != nil {
		capped := decimal.NewFromFloat(*s.MaxDiscount)
		input.MaxDiscount = &capped
	}
	validFrom := now
	input.ValidFrom = &validFrom
	if s.ValidDays > 0 {
		validUntil := now.AddDate(0, 0, s.ValidDays)
		input.ValidUntil = &validUntil
	}
	return input
}
