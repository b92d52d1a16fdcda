package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/account-ledger-service/internal/models"
	"github.com/sheikh-saqib/account-ledger-service/internal/service"
)

// Server exposes the service layer over plain net/http. Routing, auth, and
// token handling belong to the deployment in front of it; this surface only
// decodes JSON, dispatches by method, and maps errors to status codes.
type Server struct {
	transactions *service.TransactionService
	accounts     *service.AccountService
	log          *zap.Logger
}

func NewServer(transactions *service.TransactionService, accounts *service.AccountService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{transactions: transactions, accounts: accounts, log: log}
}

func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/accounts", s.handleAccounts)
	mux.HandleFunc("/accounts/balance", s.handleAccountBalance)
	mux.HandleFunc("/transactions", s.handleTransactions)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var account models.Account
		if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		created, err := s.accounts.Create(r.Context(), account)
		if err != nil {
			s.log.Error("create account", zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		accounts, err := s.accounts.List(r.Context())
		if err != nil {
			s.log.Error("list accounts", zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, accounts)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "account_id is a mandatory field"})
		return
	}
	bal, err := s.accounts.Balance(r.Context(), accountID)
	if err != nil {
		s.log.Error("get balance", zap.String("account_id", accountID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		AccountID string `json:"account_id"`
		Balance   string `json:"balance"`
	}{AccountID: accountID, Balance: bal.String()})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var txn models.Transaction
		if err := json.NewDecoder(r.Body).Decode(&txn); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		created, err := s.transactions.Create(r.Context(), txn)
		if err != nil {
			s.log.Error("create transaction", zap.String("account_id", txn.AccountID), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodPut:
		var txn models.Transaction
		if err := json.NewDecoder(r.Body).Decode(&txn); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		updated, err := s.transactions.Update(r.Context(), txn)
		if err != nil {
			s.log.Error("update transaction",
				zap.String("account_id", txn.AccountID),
				zap.String("transaction_id", txn.TransactionID),
				zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		accountID := r.URL.Query().Get("account_id")
		transactionID := r.URL.Query().Get("transaction_id")
		if accountID == "" || transactionID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "account_id and transaction_id are mandatory fields"})
			return
		}
		removed, err := s.transactions.Remove(r.Context(), accountID, transactionID)
		if err != nil {
			s.log.Error("remove transaction",
				zap.String("account_id", accountID),
				zap.String("transaction_id", transactionID),
				zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, removed)

	case http.MethodGet:
		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "account_id is a mandatory field"})
			return
		}
		if transactionID := r.URL.Query().Get("transaction_id"); transactionID != "" {
			txn, err := s.transactions.Get(r.Context(), accountID, transactionID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, txn)
			return
		}
		txns, err := s.transactions.List(r.Context(), accountID)
		if err != nil {
			s.log.Error("list transactions", zap.String("account_id", accountID), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, txns)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
