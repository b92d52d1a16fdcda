package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sheikh-saqib/account-ledger-service/internal/service"
	"github.com/sheikh-saqib/account-ledger-service/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes. Store failures stay
// generic: the caller sees a processing failure, the detail goes to the log.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err))
	case errors.Is(err, storage.ErrTransactionNotFound), errors.Is(err, storage.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err))
	case errors.Is(err, storage.ErrDuplicateTransaction), errors.Is(err, storage.ErrDuplicateAccount):
		writeJSON(w, http.StatusConflict, errorBody(err))
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
