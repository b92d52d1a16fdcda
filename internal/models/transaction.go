package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies the effect a transaction has on the running balance.
type Kind string

const (
	KindCredit Kind = "credit" // adds the amount to the running balance
	KindDebit  Kind = "debit"  // subtracts the amount from the running balance
	KindSet    Kind = "set"    // replaces the running balance with the amount
)

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCredit, KindDebit, KindSet:
		return true
	}
	return false
}

// Transaction is a single ledger record for an account.
//
// When is the ledger ordering key; ties are broken by TransactionID so window
// order stays reproducible. Balance is derived: it is written only by the
// recalculator and never trusted from a caller. Sequence is an opaque display
// label and has nothing to do with ordering.
type Transaction struct {
	AccountID     string          `json:"account_id"`
	TransactionID string          `json:"transaction_id"`
	Kind          Kind            `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	When          time.Time       `json:"when"`
	Balance       decimal.Decimal `json:"balance"`
	Sequence      string          `json:"sequence"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
}

// Before reports whether t sorts before other in ledger order
// (When ascending, TransactionID ascending on ties).
func (t Transaction) Before(other Transaction) bool {
	if t.When.Equal(other.When) {
		return t.TransactionID < other.TransactionID
	}
	return t.When.Before(other.When)
}
