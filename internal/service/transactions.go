package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/account-ledger-service/internal/balance"
	"github.com/sheikh-saqib/account-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/account-ledger-service/internal/models"
	"github.com/sheikh-saqib/account-ledger-service/internal/models/events"
)

const topicBalanceRecomputed = "balance_recomputed"

// ErrValidation marks a request rejected for shape before it reaches the
// balance core. Handlers map it to a 400.
var ErrValidation = errors.New("validation failed")

// TransactionService is the CRUD layer around the ledger. Every mutation runs
// the same way: validate shape, take the account's serializer gate, commit
// the primary change, then invoke the recalculator as a post-mutation hook
// and return the corrected record. The gate spans the whole
// persist-then-recompute sequence so interleaved mutations on one account can
// never observe each other halfway through.
type TransactionService struct {
	ledger     interfaces.LedgerStore
	accounts   interfaces.AccountStore
	recalc     *balance.Recalculator
	serializer *balance.Serializer
	publisher  interfaces.EventPublisher
	log        *zap.Logger
}

func NewTransactionService(
	ledger interfaces.LedgerStore,
	accounts interfaces.AccountStore,
	recalc *balance.Recalculator,
	serializer *balance.Serializer,
	publisher interfaces.EventPublisher,
	log *zap.Logger,
) *TransactionService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TransactionService{
		ledger:     ledger,
		accounts:   accounts,
		recalc:     recalc,
		serializer: serializer,
		publisher:  publisher,
		log:        log,
	}
}

func validateShape(txn models.Transaction) error {
	if txn.AccountID == "" {
		return fmt.Errorf("%w: account id missing", ErrValidation)
	}
	if !txn.Kind.Valid() {
		return fmt.Errorf("%w: transaction kind %q invalid", ErrValidation, txn.Kind)
	}
	if txn.Description == "" {
		return fmt.Errorf("%w: transaction description missing", ErrValidation)
	}
	return nil
}

// Create inserts a new transaction and recomputes the affected suffix of the
// ledger. The service owns identity and labeling: it assigns the transaction
// id, stamps When when absent, and allocates the next display sequence from
// the chronologically last transaction.
func (s *TransactionService) Create(ctx context.Context, txn models.Transaction) (models.Transaction, error) {
	if err := validateShape(txn); err != nil {
		return models.Transaction{}, err
	}
	if _, err := s.accounts.GetAccount(ctx, txn.AccountID); err != nil {
		return models.Transaction{}, err
	}
	if txn.TransactionID == "" {
		txn.TransactionID = uuid.NewString()
	}
	if txn.When.IsZero() {
		txn.When = time.Now().UTC()
	}

	release, err := s.serializer.Acquire(ctx, txn.AccountID)
	if err != nil {
		return models.Transaction{}, err
	}
	defer release()

	if txn.Sequence == "" {
		latest, err := s.ledger.FindLatest(ctx, txn.AccountID)
		if err != nil {
			return models.Transaction{}, err
		}
		previous := ""
		if latest != nil {
			previous = latest.Sequence
		}
		txn.Sequence = strconv.Itoa(balance.NextSequence(previous))
	}

	if err := s.ledger.Insert(ctx, txn); err != nil {
		return models.Transaction{}, err
	}
	corrected, err := s.recalc.Recompute(ctx, balance.OpInsert, txn)
	if err != nil {
		return models.Transaction{}, err
	}
	s.publishRecomputed(ctx, balance.OpInsert, corrected)
	return corrected, nil
}

// Update persists an edit and recomputes from the edited transaction's
// position in the timeline.
func (s *TransactionService) Update(ctx context.Context, txn models.Transaction) (models.Transaction, error) {
	if err := validateShape(txn); err != nil {
		return models.Transaction{}, err
	}
	if txn.TransactionID == "" {
		return models.Transaction{}, fmt.Errorf("%w: transaction id missing", ErrValidation)
	}

	release, err := s.serializer.Acquire(ctx, txn.AccountID)
	if err != nil {
		return models.Transaction{}, err
	}
	defer release()

	existing, err := s.ledger.Fetch(ctx, txn.AccountID, txn.TransactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	if txn.When.IsZero() {
		txn.When = existing.When
	}
	if txn.Sequence == "" {
		txn.Sequence = existing.Sequence
	}

	if err := s.ledger.Update(ctx, txn); err != nil {
		return models.Transaction{}, err
	}
	var corrected models.Transaction
	if existing.When.Before(txn.When) {
		// The edit moved the record later in the timeline. The window must
		// open at the abandoned slot, seeded from the record preceding it,
		// which is exactly the fold a removal performs; the record itself is
		// refolded mid-window at its new position.
		moved := txn
		moved.When = existing.When
		corrected, err = s.recalc.Recompute(ctx, balance.OpRemove, moved)
	} else {
		corrected, err = s.recalc.Recompute(ctx, balance.OpUpdate, txn)
	}
	if err != nil {
		return models.Transaction{}, err
	}
	s.publishRecomputed(ctx, balance.OpUpdate, corrected)
	return corrected, nil
}

// Remove deletes a transaction and refolds everything that followed it. The
// full record is captured before deletion: the recalculator needs its When,
// kind, and amount, which a bare delete acknowledgement does not carry.
func (s *TransactionService) Remove(ctx context.Context, accountID, transactionID string) (models.Transaction, error) {
	release, err := s.serializer.Acquire(ctx, accountID)
	if err != nil {
		return models.Transaction{}, err
	}
	defer release()

	captured, err := s.ledger.Fetch(ctx, accountID, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := s.ledger.Delete(ctx, accountID, transactionID); err != nil {
		return models.Transaction{}, err
	}
	removed, err := s.recalc.Recompute(ctx, balance.OpRemove, *captured)
	if err != nil {
		return models.Transaction{}, err
	}
	s.publishRecomputed(ctx, balance.OpRemove, removed)
	return removed, nil
}

func (s *TransactionService) Get(ctx context.Context, accountID, transactionID string) (models.Transaction, error) {
	txn, err := s.ledger.Fetch(ctx, accountID, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	return *txn, nil
}

func (s *TransactionService) List(ctx context.Context, accountID string) ([]models.Transaction, error) {
	return s.ledger.ListByAccount(ctx, accountID)
}

// publishRecomputed emits the post-commit event. Publishing is best effort:
// the ledger is already consistent, so a broker failure is logged, not
// surfaced to the caller.
func (s *TransactionService) publishRecomputed(ctx context.Context, op balance.Operation, txn models.Transaction) {
	event := events.BalanceRecomputed{
		AccountID:     txn.AccountID,
		TransactionID: txn.TransactionID,
		Operation:     string(op),
		Balance:       txn.Balance,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, topicBalanceRecomputed, event); err != nil {
		s.log.Warn("publish balance recomputed event",
			zap.String("account_id", txn.AccountID),
			zap.String("transaction_id", txn.TransactionID),
			zap.Error(err))
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }
