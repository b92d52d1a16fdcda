package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/account-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/account-ledger-service/internal/models"
	"github.com/sheikh-saqib/account-ledger-service/internal/storage"
)

var when = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func entry(id string, minutes int) models.Transaction {
	return models.Transaction{
		AccountID:     "a1",
		TransactionID: id,
		Kind:          models.KindCredit,
		Amount:        decimal.NewFromInt(1),
		When:          when.Add(time.Duration(minutes) * time.Minute),
	}
}

func seeded(t *testing.T, entries ...models.Transaction) *Store {
	t.Helper()
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, models.Account{AccountID: "a1"}))
	for _, e := range entries {
		require.NoError(t, s.Insert(ctx, e))
	}
	return s
}

func collect(t *testing.T, it interfaces.TransactionIterator) []string {
	t.Helper()
	defer it.Close()
	var ids []string
	for it.Next() {
		ids = append(ids, it.Transaction().TransactionID)
	}
	require.NoError(t, it.Err())
	return ids
}

func TestScanFromOrderAndTieBreak(t *testing.T) {
	// Inserted out of order, with b/c sharing a timestamp.
	s := seeded(t, entry("c", 5), entry("a", 0), entry("b", 5), entry("d", 10))
	ctx := context.Background()

	it, err := s.ScanFrom(ctx, "a1", when)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, collect(t, it))

	// Window lower bound is inclusive.
	it, err = s.ScanFrom(ctx, "a1", when.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, collect(t, it))
}

func TestFindPrecedingIsStrict(t *testing.T) {
	s := seeded(t, entry("a", 0), entry("b", 5))
	ctx := context.Background()

	// A record at exactly the boundary does not precede itself.
	prev, err := s.FindPreceding(ctx, "a1", when.Add(5*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "a", prev.TransactionID)

	prev, err = s.FindPreceding(ctx, "a1", when)
	require.NoError(t, err)
	assert.Nil(t, prev)

	prev, err = s.FindPreceding(ctx, "missing", when)
	require.NoError(t, err)
	assert.Nil(t, prev)
}

func TestFindLatest(t *testing.T) {
	ctx := context.Background()

	s := seeded(t)
	latest, err := s.FindLatest(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	s = seeded(t, entry("a", 0), entry("c", 10), entry("b", 5))
	latest, err = s.FindLatest(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "c", latest.TransactionID)
}

func TestUpdateResortsLedger(t *testing.T) {
	s := seeded(t, entry("a", 0), entry("b", 5))
	ctx := context.Background()

	// Move "a" past "b".
	moved := entry("a", 10)
	require.NoError(t, s.Update(ctx, moved))

	it, err := s.ScanFrom(ctx, "a1", when)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, collect(t, it))
}

func TestInsertRejectsDuplicate(t *testing.T) {
	s := seeded(t, entry("a", 0))
	err := s.Insert(context.Background(), entry("a", 5))
	require.ErrorIs(t, err, storage.ErrDuplicateTransaction)
}

func TestDeleteAndFetchNotFound(t *testing.T) {
	s := seeded(t, entry("a", 0))
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "a1", "a"))
	require.ErrorIs(t, s.Delete(ctx, "a1", "a"), storage.ErrTransactionNotFound)

	_, err := s.Fetch(ctx, "a1", "a")
	require.ErrorIs(t, err, storage.ErrTransactionNotFound)
}

func TestApplyRecomputedTail(t *testing.T) {
	s := seeded(t, entry("a", 0), entry("b", 5))
	ctx := context.Background()

	updates := []interfaces.BalanceUpdate{
		{TransactionID: "a", Balance: decimal.NewFromInt(1)},
		{TransactionID: "b", Balance: decimal.NewFromInt(2)},
	}
	require.NoError(t, s.ApplyRecomputedTail(ctx, "a1", updates, decimal.NewFromInt(2)))

	rec, err := s.Fetch(ctx, "a1", "b")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(rec.Balance))
	acct, err := s.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(acct.Balance))
}

// A batch with an unknown transaction mutates nothing, keeping the
// old-or-new guarantee.
func TestApplyRecomputedTailIsAtomic(t *testing.T) {
	s := seeded(t, entry("a", 0))
	ctx := context.Background()

	updates := []interfaces.BalanceUpdate{
		{TransactionID: "a", Balance: decimal.NewFromInt(9)},
		{TransactionID: "ghost", Balance: decimal.NewFromInt(9)},
	}
	err := s.ApplyRecomputedTail(ctx, "a1", updates, decimal.NewFromInt(9))
	require.ErrorIs(t, err, storage.ErrTransactionNotFound)

	rec, err := s.Fetch(ctx, "a1", "a")
	require.NoError(t, err)
	assert.True(t, rec.Balance.IsZero(), "balance was written despite the failed batch")
	acct, err := s.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.IsZero())
}

func TestAccountCRUD(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.CreateAccount(ctx, models.Account{AccountID: "a1", Name: "Checking"}))
	require.ErrorIs(t, s.CreateAccount(ctx, models.Account{AccountID: "a1"}), storage.ErrDuplicateAccount)

	_, err := s.GetAccount(ctx, "nope")
	require.ErrorIs(t, err, storage.ErrAccountNotFound)

	require.NoError(t, s.UpdateBalance(ctx, "a1", decimal.NewFromInt(42)))
	acct, err := s.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(42).Equal(acct.Balance))

	require.NoError(t, s.CreateAccount(ctx, models.Account{AccountID: "a0"}))
	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "a0", accounts[0].AccountID)
}
