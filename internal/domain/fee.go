package domain

import "github.com/shopspring/decimal"

type FeeType struct {
	ID            string
	FeeName       string
	DefaultAmount decimal.Decimal
}
