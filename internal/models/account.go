package models

import "github.com/shopspring/decimal"

// Account holds the denormalized current balance for one account.
// Balance always mirrors the balance of the chronologically last transaction
// in the account's ledger, or zero when the ledger is empty.
type Account struct {
	AccountID string          `json:"account_id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
}
