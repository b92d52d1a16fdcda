package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/account-ledger-service/internal/balance"
	"github.com/sheikh-saqib/account-ledger-service/internal/models"
	"github.com/sheikh-saqib/account-ledger-service/internal/service"
	"github.com/sheikh-saqib/account-ledger-service/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	recalc := balance.NewRecalculator(store, nil)
	transactions := service.NewTransactionService(store, store, recalc, balance.NewSerializer(), nil, nil)
	accounts := service.NewAccountService(store)
	ts := httptest.NewServer(NewServer(transactions, accounts, nil).Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccountAndTransactionFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/accounts", map[string]string{"account_id": "a1", "name": "Checking"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Duplicate account conflicts.
	resp = postJSON(t, ts.URL+"/accounts", map[string]string{"account_id": "a1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	post := func(kind, amount, when string) models.Transaction {
		resp := postJSON(t, ts.URL+"/transactions", map[string]string{
			"account_id":  "a1",
			"kind":        kind,
			"amount":      amount,
			"when":        when,
			"description": "via http",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		return decode[models.Transaction](t, resp)
	}

	post("set", "100", "2024-03-01T10:00:00Z")
	post("credit", "50", "2024-03-01T10:05:00Z")
	t3 := post("debit", "30", "2024-03-01T10:10:00Z")
	assert.Equal(t, "120", t3.Balance.String())

	// Backdated insert refolds the suffix.
	t2b := post("credit", "20", "2024-03-01T10:07:00Z")
	assert.Equal(t, "170", t2b.Balance.String())

	resp, err := http.Get(ts.URL + "/accounts/balance?account_id=a1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bal := decode[struct {
		AccountID string `json:"account_id"`
		Balance   string `json:"balance"`
	}](t, resp)
	assert.Equal(t, "140", bal.Balance)

	// Remove the backdated credit again.
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete,
		fmt.Sprintf("%s/transactions?account_id=a1&transaction_id=%s", ts.URL, t2b.TransactionID), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/transactions?account_id=a1")
	require.NoError(t, err)
	txns := decode[[]models.Transaction](t, resp)
	require.Len(t, txns, 3)
	assert.Equal(t, "120", txns[len(txns)-1].Balance.String())
}

func TestTransactionValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/accounts", map[string]string{"account_id": "a1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Bad kind.
	resp = postJSON(t, ts.URL+"/transactions", map[string]string{
		"account_id": "a1", "kind": "transfer", "amount": "10", "description": "x",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown account.
	resp = postJSON(t, ts.URL+"/transactions", map[string]string{
		"account_id": "ghost", "kind": "credit", "amount": "10", "description": "x",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Missing query parameter.
	resp, err := http.Get(ts.URL + "/transactions")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unsupported method.
	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/transactions", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}
