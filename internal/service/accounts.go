package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/account-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/account-ledger-service/internal/models"
)

// AccountService handles account records. The cached balance is owned by the
// recalculator's tail step; this service only seeds it to zero on creation
// (the empty-ledger base case) and reads it back.
type AccountService struct {
	accounts interfaces.AccountStore
}

func NewAccountService(accounts interfaces.AccountStore) *AccountService {
	return &AccountService{accounts: accounts}
}

func (s *AccountService) Create(ctx context.Context, account models.Account) (models.Account, error) {
	if account.AccountID == "" {
		return models.Account{}, fmt.Errorf("%w: account id missing", ErrValidation)
	}
	account.Balance = decimal.Zero
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, accountID string) (models.Account, error) {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, err
	}
	return *acct, nil
}

func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	return s.accounts.ListAccounts(ctx)
}

// Balance returns the account's cached current balance. No ledger scan: the
// cache mirrors the chronologically last transaction by construction.
func (s *AccountService) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}
