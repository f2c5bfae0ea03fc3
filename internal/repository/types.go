package repository

// PromoCodeListFilter 查询优惠码列表的过滤条件
type PromoCodeListFilter struct {
	Page         int
	PageSize     int
	Code         string
	Keyword      string
	BatchNo      string
	DiscountType string
	Plan         string
	Active       *bool
}

// PromoCodeUsageListFilter 查询使用记录的过滤条件
type PromoCodeUsageListFilter struct {
	Page        int
	PageSize    int
	PromoCodeID uint
	UserID      uint
}
