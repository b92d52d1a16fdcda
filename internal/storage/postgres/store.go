package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/account-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/account-ledger-service/internal/models"
	"github.com/sheikh-saqib/account-ledger-service/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const txnColumns = `account_id, transaction_id, kind, amount, "when", balance, sequence, category, description`

// Store is the postgres implementation of interfaces.LedgerStore and
// interfaces.AccountStore. Scans stream directly off sql.Rows; the
// recomputed-tail batch runs inside a single database transaction so a
// failure never leaves a half-updated window.
type Store struct {
	db *sql.DB
}

// NewStore opens the database, verifies the connection, and brings the schema
// up to date from the embedded migrations.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("set up migrate driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("set up migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("set up migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func scanTxn(row interface{ Scan(...any) error }) (models.Transaction, error) {
	var txn models.Transaction
	err := row.Scan(
		&txn.AccountID,
		&txn.TransactionID,
		&txn.Kind,
		&txn.Amount,
		&txn.When,
		&txn.Balance,
		&txn.Sequence,
		&txn.Category,
		&txn.Description,
	)
	return txn, err
}

func (s *Store) Insert(ctx context.Context, txn models.Transaction) error {
	query := `INSERT INTO transactions (` + txnColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		txn.AccountID, txn.TransactionID, txn.Kind, txn.Amount, txn.When,
		txn.Balance, txn.Sequence, txn.Category, txn.Description)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert %s/%s: %w", txn.AccountID, txn.TransactionID, storage.ErrDuplicateTransaction)
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, txn models.Transaction) error {
	query := `UPDATE transactions
	SET kind = $3, amount = $4, "when" = $5, sequence = $6, category = $7, description = $8
	WHERE account_id = $1 AND transaction_id = $2`

	result, err := s.db.ExecContext(ctx, query,
		txn.AccountID, txn.TransactionID, txn.Kind, txn.Amount, txn.When,
		txn.Sequence, txn.Category, txn.Description)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s/%s: %w", txn.AccountID, txn.TransactionID, storage.ErrTransactionNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, accountID, transactionID string) error {
	query := `DELETE FROM transactions WHERE account_id = $1 AND transaction_id = $2`

	result, err := s.db.ExecContext(ctx, query, accountID, transactionID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete %s/%s: %w", accountID, transactionID, storage.ErrTransactionNotFound)
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context, accountID, transactionID string) (*models.Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions
	WHERE account_id = $1 AND transaction_id = $2`

	txn, err := scanTxn(s.db.QueryRowContext(ctx, query, accountID, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fetch %s/%s: %w", accountID, transactionID, storage.ErrTransactionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch transaction: %w", err)
	}
	return &txn, nil
}

func (s *Store) ListByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions
	WHERE account_id = $1
	ORDER BY "when" ASC, transaction_id ASC`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		txn, err := scanTxn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (s *Store) FindPreceding(ctx context.Context, accountID string, before time.Time) (*models.Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions
	WHERE account_id = $1 AND "when" < $2
	ORDER BY "when" DESC, transaction_id DESC
	LIMIT 1`

	txn, err := scanTxn(s.db.QueryRowContext(ctx, query, accountID, before))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find preceding transaction: %w", err)
	}
	return &txn, nil
}

func (s *Store) FindLatest(ctx context.Context, accountID string) (*models.Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions
	WHERE account_id = $1
	ORDER BY "when" DESC, transaction_id DESC
	LIMIT 1`

	txn, err := scanTxn(s.db.QueryRowContext(ctx, query, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest transaction: %w", err)
	}
	return &txn, nil
}

// ScanFrom streams the window straight off the driver cursor; the ledger may
// be arbitrarily long, so rows are never materialized in full.
func (s *Store) ScanFrom(ctx context.Context, accountID string, from time.Time) (interfaces.TransactionIterator, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions
	WHERE account_id = $1 AND "when" >= $2
	ORDER BY "when" ASC, transaction_id ASC`

	rows, err := s.db.QueryContext(ctx, query, accountID, from)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	return &rowsIterator{rows: rows}, nil
}

// ApplyRecomputedTail writes the corrected window balances and the account
// tail in one database transaction: a failure rolls everything back.
func (s *Store) ApplyRecomputedTail(ctx context.Context, accountID string, updates []interfaces.BalanceUpdate, tail decimal.Decimal) (err error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply tail: begin: %w", err)
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	stmt, err := dbTx.PrepareContext(ctx, `UPDATE transactions SET balance = $3
	WHERE account_id = $1 AND transaction_id = $2`)
	if err != nil {
		return fmt.Errorf("apply tail: prepare: %w", err)
	}
	defer stmt.Close()

	for _, upd := range updates {
		result, execErr := stmt.ExecContext(ctx, accountID, upd.TransactionID, upd.Balance)
		if execErr != nil {
			err = fmt.Errorf("apply tail %s/%s: %w", accountID, upd.TransactionID, execErr)
			return err
		}
		affected, raErr := result.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("apply tail %s/%s: %w", accountID, upd.TransactionID, raErr)
			return err
		}
		if affected == 0 {
			err = fmt.Errorf("apply tail %s/%s: %w", accountID, upd.TransactionID, storage.ErrTransactionNotFound)
			return err
		}
	}

	result, execErr := dbTx.ExecContext(ctx, `UPDATE accounts SET balance = $2 WHERE account_id = $1`, accountID, tail)
	if execErr != nil {
		err = fmt.Errorf("apply tail %s: account: %w", accountID, execErr)
		return err
	}
	affected, raErr := result.RowsAffected()
	if raErr != nil {
		err = fmt.Errorf("apply tail %s: account: %w", accountID, raErr)
		return err
	}
	if affected == 0 {
		err = fmt.Errorf("apply tail %s: %w", accountID, storage.ErrAccountNotFound)
		return err
	}

	return dbTx.Commit()
}

func (s *Store) CreateAccount(ctx context.Context, account models.Account) error {
	query := `INSERT INTO accounts (account_id, name, balance) VALUES ($1, $2, $3)`

	_, err := s.db.ExecContext(ctx, query, account.AccountID, account.Name, account.Balance)
	if isUniqueViolation(err) {
		return fmt.Errorf("create account %s: %w", account.AccountID, storage.ErrDuplicateAccount)
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	query := `SELECT account_id, name, balance FROM accounts WHERE account_id = $1`

	var acct models.Account
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(&acct.AccountID, &acct.Name, &acct.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account %s: %w", accountID, storage.ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acct, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	query := `SELECT account_id, name, balance FROM accounts ORDER BY account_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		var acct models.Account
		if err := rows.Scan(&acct.AccountID, &acct.Name, &acct.Balance); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $2 WHERE account_id = $1`

	result, err := s.db.ExecContext(ctx, query, accountID, balance)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update balance %s: %w", accountID, storage.ErrAccountNotFound)
	}
	return nil
}

type rowsIterator struct {
	rows *sql.Rows
	cur  models.Transaction
	err  error
}

func (it *rowsIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	txn, err := scanTxn(it.rows)
	if err != nil {
		it.err = err
		return false
	}
	it.cur = txn
	return true
}

func (it *rowsIterator) Transaction() models.Transaction { return it.cur }

func (it *rowsIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *rowsIterator) Close() error { return it.rows.Close() }

// Compile-time checks: Store implements both store contracts.
var (
	_ interfaces.LedgerStore  = (*Store)(nil)
	_ interfaces.AccountStore = (*Store)(nil)
)
