package balance

import (
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/account-ledger-service/internal/models"
)

// Fold combines a running balance with one transaction's effect.
// Credit adds the amount, debit subtracts it, and set discards the prior
// balance entirely and replaces it with the amount.
// Pure and total: kind is guaranteed valid by upstream validation.
func Fold(balance decimal.Decimal, kind models.Kind, amount decimal.Decimal) decimal.Decimal {
	switch kind {
	case models.KindCredit:
		return balance.Add(amount)
	case models.KindDebit:
		return balance.Sub(amount)
	default:
		// set: absolute override
		return amount
	}
}
