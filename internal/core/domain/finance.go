// internal/core/domain/finance.go
package domain

import "github.com/shopspring/decimal"

// flatMonthlyRate is the flat financing factor applied to the financed
// amount to estimate a monthly installment. Kept as a package default;
// tenant-specific rates come in through FinanceConfig overrides.
var flatMonthlyRate = decimal.RequireFromString("0.035")

// EstimateMonthlyEMI returns the estimated monthly installment for a
// vehicle at the given price and downpayment, rounded to the nearest
// rupee. A downpayment at or above the price yields zero, never a
// negative installment.
func EstimateMonthlyEMI(price, downpayment decimal.Decimal) decimal.Decimal {
	return EstimateMonthlyEMIAtRate(price, downpayment, flatMonthlyRate)
}

// EstimateMonthlyEMIAtRate is EstimateMonthlyEMI with an explicit flat
// monthly rate.
func EstimateMonthlyEMIAtRate(price, downpayment, rate decimal.Decimal) decimal.Decimal {
	financed := price.Sub(downpayment)
	if financed.IsNegative() {
		financed = decimal.Zero
	}
	return financed.Mul(rate).Round(0)
}
