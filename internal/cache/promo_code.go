package cache

import (
	"context"
	"time"

	"github.com/prepvio/prepvio-api/internal/models"
	"github.com/prepvio/prepvio-api/internal/promo"
)

func promoCodeKey(code string) string {
	return "promo:code:" + promo.NormalizeCode(code)
}

// GetPromoCode 读取优惠码配置缓存（不含使用记录）
func GetPromoCode(ctx context.Context, code string) (*models.PromoCode, bool, error) {
	if promo.NormalizeCode(code) == "" {
		return nil, false, nil
	}
	var record models.PromoCode
	hit, err := GetJSON(ctx, promoCodeKey(code), &record)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &record, true, nil
}

// SetPromoCode 写入优惠码配置缓存
func SetPromoCode(ctx context.Context, record *models.PromoCode, ttl time.Duration) error {
	if record == nil || record.Code == "" || ttl <= 0 {
		return nil
	}
	entry := *record
	entry.UsedBy = nil
	return SetJSON(ctx, promoCodeKey(record.Code), &entry, ttl)
}

// DelPromoCode 失效优惠码配置缓存
func DelPromoCode(ctx context.Context, codes ...string) error {
	keys := make([]string, 0, len(codes))
	for _, code := range codes {
		if promo.NormalizeCode(code) != "" {
			keys = append(keys, promoCodeKey(code))
		}
	}
	return Del(ctx, keys...)
}
