package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/account-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/account-ledger-service/internal/models"
	"github.com/sheikh-saqib/account-ledger-service/internal/storage"
)

// Store is an in-memory implementation of interfaces.LedgerStore and
// interfaces.AccountStore, used by tests and local development. Ledgers are
// kept sorted in (When, TransactionID) order so scans and preceding lookups
// read straight off the slice.
type Store struct {
	mu       sync.Mutex
	ledgers  map[string][]models.Transaction
	accounts map[string]models.Account
}

func NewStore() *Store {
	return &Store{
		ledgers:  make(map[string][]models.Transaction),
		accounts: make(map[string]models.Account),
	}
}

// sortLedger restores (When, TransactionID) order after a mutation.
func sortLedger(ledger []models.Transaction) {
	sort.SliceStable(ledger, func(i, j int) bool {
		return ledger[i].Before(ledger[j])
	})
}

func (s *Store) Insert(ctx context.Context, txn models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.ledgers[txn.AccountID] {
		if rec.TransactionID == txn.TransactionID {
			return fmt.Errorf("insert %s/%s: %w", txn.AccountID, txn.TransactionID, storage.ErrDuplicateTransaction)
		}
	}
	ledger := append(s.ledgers[txn.AccountID], txn)
	sortLedger(ledger)
	s.ledgers[txn.AccountID] = ledger
	return nil
}

func (s *Store) Update(ctx context.Context, txn models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledgers[txn.AccountID]
	for i, rec := range ledger {
		if rec.TransactionID == txn.TransactionID {
			ledger[i] = txn
			// When may have changed, so the record can move in the timeline.
			sortLedger(ledger)
			return nil
		}
	}
	return fmt.Errorf("update %s/%s: %w", txn.AccountID, txn.TransactionID, storage.ErrTransactionNotFound)
}

func (s *Store) Delete(ctx context.Context, accountID, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledgers[accountID]
	for i, rec := range ledger {
		if rec.TransactionID == transactionID {
			s.ledgers[accountID] = append(ledger[:i:i], ledger[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %s/%s: %w", accountID, transactionID, storage.ErrTransactionNotFound)
}

func (s *Store) Fetch(ctx context.Context, accountID, transactionID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.ledgers[accountID] {
		if rec.TransactionID == transactionID {
			cp := rec
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("fetch %s/%s: %w", accountID, transactionID, storage.ErrTransactionNotFound)
}

func (s *Store) ListByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledgers[accountID]
	out := make([]models.Transaction, len(ledger))
	copy(out, ledger)
	return out, nil
}

// FindPreceding walks the sorted ledger backwards and returns the last record
// strictly before the given instant, or nil when none exists.
func (s *Store) FindPreceding(ctx context.Context, accountID string, before time.Time) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledgers[accountID]
	for i := len(ledger) - 1; i >= 0; i-- {
		if ledger[i].When.Before(before) {
			cp := ledger[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) FindLatest(ctx context.Context, accountID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledgers[accountID]
	if len(ledger) == 0 {
		return nil, nil
	}
	cp := ledger[len(ledger)-1]
	return &cp, nil
}

// ScanFrom iterates a snapshot of the window, so a recalculation pass sees a
// stable view even while it holds no store lock between Next calls.
func (s *Store) ScanFrom(ctx context.Context, accountID string, from time.Time) (interfaces.TransactionIterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var window []models.Transaction
	for _, rec := range s.ledgers[accountID] {
		if !rec.When.Before(from) {
			window = append(window, rec)
		}
	}
	return &sliceIterator{window: window, pos: -1}, nil
}

// ApplyRecomputedTail validates the whole batch, then applies every balance
// and the account tail under the one lock. Nothing is mutated on a failed
// validation, keeping the old-or-new guarantee the recalculator relies on.
func (s *Store) ApplyRecomputedTail(ctx context.Context, accountID string, updates []interfaces.BalanceUpdate, tail decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledgers[accountID]
	index := make(map[string]int, len(ledger))
	for i, rec := range ledger {
		index[rec.TransactionID] = i
	}
	for _, upd := range updates {
		if _, ok := index[upd.TransactionID]; !ok {
			return fmt.Errorf("apply tail %s/%s: %w", accountID, upd.TransactionID, storage.ErrTransactionNotFound)
		}
	}
	acct, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("apply tail %s: %w", accountID, storage.ErrAccountNotFound)
	}

	for _, upd := range updates {
		ledger[index[upd.TransactionID]].Balance = upd.Balance
	}
	acct.Balance = tail
	s.accounts[accountID] = acct
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.AccountID]; ok {
		return fmt.Errorf("create account %s: %w", account.AccountID, storage.ErrDuplicateAccount)
	}
	s.accounts[account.AccountID] = account
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("get account %s: %w", accountID, storage.ErrAccountNotFound)
	}
	cp := acct
	return &cp, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (s *Store) UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("update balance %s: %w", accountID, storage.ErrAccountNotFound)
	}
	acct.Balance = balance
	s.accounts[accountID] = acct
	return nil
}

type sliceIterator struct {
	window []models.Transaction
	pos    int
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.window) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Transaction() models.Transaction { return it.window[it.pos] }
func (it *sliceIterator) Err() error                      { return nil }
func (it *sliceIterator) Close() error                    { return nil }

// Compile-time checks: Store implements both store contracts.
var (
	_ interfaces.LedgerStore  = (*Store)(nil)
	_ interfaces.AccountStore = (*Store)(nil)
)
