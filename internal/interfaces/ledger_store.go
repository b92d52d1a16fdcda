package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/account-ledger-service/internal/models"
)

// TransactionIterator walks an account's ledger in ascending (When,
// TransactionID) order. It is forward-only and not resumable; restarting a
// scan means calling ScanFrom again. Usage mirrors sql.Rows:
//
//	for it.Next() { txn := it.Transaction() ... }
//	if err := it.Err(); err != nil { ... }
type TransactionIterator interface {
	Next() bool
	Transaction() models.Transaction
	Err() error
	Close() error
}

// BalanceUpdate is one corrected balance produced by a recalculation pass.
type BalanceUpdate struct {
	TransactionID string
	Balance       decimal.Decimal
}

// LedgerStore is the persistence boundary for per-account transaction
// ledgers. Implementations must keep scans streaming (bounded memory) and
// must apply ApplyRecomputedTail atomically: either every balance in the
// batch plus the account tail is written, or none of them are.
type LedgerStore interface {
	// FindPreceding returns the most recent transaction strictly before the
	// given instant, or nil when the account has none.
	FindPreceding(ctx context.Context, accountID string, before time.Time) (*models.Transaction, error)

	// FindLatest returns the chronologically last transaction for the
	// account, or nil when the ledger is empty.
	FindLatest(ctx context.Context, accountID string) (*models.Transaction, error)

	// ScanFrom streams every transaction with When >= from, ascending.
	ScanFrom(ctx context.Context, accountID string, from time.Time) (TransactionIterator, error)

	// ApplyRecomputedTail persists a batch of corrected transaction balances
	// together with the account's new cached balance as one atomic change.
	ApplyRecomputedTail(ctx context.Context, accountID string, updates []BalanceUpdate, tail decimal.Decimal) error

	// Fetch returns a single transaction by id.
	Fetch(ctx context.Context, accountID, transactionID string) (*models.Transaction, error)

	// CRUD surface used by the service layer around the recompute hook.
	Insert(ctx context.Context, txn models.Transaction) error
	Update(ctx context.Context, txn models.Transaction) error
	Delete(ctx context.Context, accountID, transactionID string) error
	ListByAccount(ctx context.Context, accountID string) ([]models.Transaction, error)
}

// AccountStore holds the denormalized per-account balance alongside the
// account records themselves.
type AccountStore interface {
	CreateAccount(ctx context.Context, account models.Account) error
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal) error
}
