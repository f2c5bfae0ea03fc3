package worker

import "github.com/shopspring/decimal"

func decimalFromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
