package storage

import "errors"

// Domain errors shared by every store backend. Handlers map these onto HTTP
// status codes; the balance core just propagates them.
var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrDuplicateTransaction = errors.New("transaction already exists")
	ErrDuplicateAccount     = errors.New("account already exists")
)
