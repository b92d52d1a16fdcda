package balance

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/account-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/account-ledger-service/internal/models"
)

// Operation tells the recalculator what just happened to the transaction it
// was handed. For OpRemove the transaction must be the removed record,
// captured before deletion; the store's delete acknowledgement is not enough.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpRemove Operation = "remove"
)

// ErrWindowHeadMismatch reports a violated precondition: an inserted or
// updated set-kind transaction must be the first record streamed in its own
// recompute window (it defines the window's lower bound). If another record
// sorts ahead of it, resetting the balance from the head would corrupt the
// ledger, so the pass aborts instead.
var ErrWindowHeadMismatch = errors.New("mutated set transaction is not the head of its recompute window")

// Recalculator restores the running-balance invariant across the suffix of
// the ledger affected by one mutation, and mirrors the final balance onto the
// account record.
//
// The pass is read-fold-commit: it streams the affected window once, folds
// corrected balances in memory (buffering only transaction id and balance per
// affected row), then applies the whole batch plus the account tail in a
// single atomic store call. A failure anywhere leaves the previous consistent
// state untouched.
//
// Callers must serialize passes per account through a Serializer; the
// recalculator itself does no locking.
type Recalculator struct {
	ledger interfaces.LedgerStore
	log    *zap.Logger
}

func NewRecalculator(ledger interfaces.LedgerStore, log *zap.Logger) *Recalculator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recalculator{ledger: ledger, log: log}
}

// Recompute runs one recalculation pass after the given operation has been
// applied to the ledger. It returns the mutated transaction carrying its
// freshly computed balance, taken directly from the in-memory fold (for
// OpRemove, the captured record is returned unchanged).
func (r *Recalculator) Recompute(ctx context.Context, op Operation, txn models.Transaction) (models.Transaction, error) {
	seed, err := r.seedBalance(ctx, op, txn)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("recompute %s %s/%s: seed: %w", op, txn.AccountID, txn.TransactionID, err)
	}
	r.log.Debug("recompute pass",
		zap.String("account_id", txn.AccountID),
		zap.String("transaction_id", txn.TransactionID),
		zap.String("operation", string(op)),
		zap.String("seed", seed.String()))

	it, err := r.ledger.ScanFrom(ctx, txn.AccountID, txn.When)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("recompute %s %s/%s: scan: %w", op, txn.AccountID, txn.TransactionID, err)
	}
	defer it.Close()

	running := seed
	corrected := txn
	first := true
	var updates []interfaces.BalanceUpdate

	for it.Next() {
		rec := it.Transaction()
		if first && op != OpRemove && txn.Kind == models.KindSet {
			// The mutated set transaction defines the window's lower bound,
			// so it must be the record streamed first.
			if rec.TransactionID != txn.TransactionID {
				return models.Transaction{}, fmt.Errorf("recompute %s %s/%s: %w",
					op, txn.AccountID, txn.TransactionID, ErrWindowHeadMismatch)
			}
			running = rec.Amount
		} else {
			running = Fold(running, rec.Kind, rec.Amount)
		}
		first = false

		updates = append(updates, interfaces.BalanceUpdate{TransactionID: rec.TransactionID, Balance: running})
		if rec.TransactionID == txn.TransactionID {
			corrected = rec
			corrected.Balance = running
		}
		r.log.Debug("fold",
			zap.String("transaction_id", rec.TransactionID),
			zap.String("balance", running.String()))
	}
	if err := it.Err(); err != nil {
		return models.Transaction{}, fmt.Errorf("recompute %s %s/%s: scan: %w", op, txn.AccountID, txn.TransactionID, err)
	}

	// The window has no upper bound, so the last folded value is the
	// account's new current balance. An empty window (removal of the last
	// transaction) commits the seed as the tail.
	if err := r.ledger.ApplyRecomputedTail(ctx, txn.AccountID, updates, running); err != nil {
		return models.Transaction{}, fmt.Errorf("recompute %s %s/%s: commit: %w", op, txn.AccountID, txn.TransactionID, err)
	}
	r.log.Debug("tail committed",
		zap.String("account_id", txn.AccountID),
		zap.Int("updated", len(updates)),
		zap.String("balance", running.String()))

	return corrected, nil
}

// seedBalance determines the balance carried into the start of the window.
// A set insert/update is seeded from the record itself only pro forma: the
// value is superseded by the absolute reset at the window head, but the seed
// step must not fail on it. Everything else seeds from the nearest preceding
// transaction, falling back to zero for an empty ledger or a first
// transaction.
func (r *Recalculator) seedBalance(ctx context.Context, op Operation, txn models.Transaction) (decimal.Decimal, error) {
	if op != OpRemove && txn.Kind == models.KindSet {
		return txn.Balance, nil
	}
	prev, err := r.ledger.FindPreceding(ctx, txn.AccountID, txn.When)
	if err != nil {
		return decimal.Zero, err
	}
	if prev == nil {
		return decimal.Zero, nil
	}
	return prev.Balance, nil
}
