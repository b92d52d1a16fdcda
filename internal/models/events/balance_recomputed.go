package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceRecomputed is emitted after a recalculation pass has committed.
type BalanceRecomputed struct {
	AccountID     string          `json:"account_id"`
	TransactionID string          `json:"transaction_id"`
	Operation     string          `json:"operation"`
	Balance       decimal.Decimal `json:"balance"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
