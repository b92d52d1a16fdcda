package balance

import (
	"context"
	"sync"
)

// Serializer grants at most one recalculation per account at a time.
// Requests for the same account queue behind the holder; requests for
// distinct accounts are independent and proceed in parallel.
//
// Each account gets a one-slot channel gate. Acquire blocks until the slot is
// free or the context expires, so callers can bound how long they wait behind
// a slow pass. The gate map itself is guarded by a mutex, the same shape the
// per-account lock map takes in the ledger service this grew out of.
type Serializer struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func NewSerializer() *Serializer {
	return &Serializer{gates: make(map[string]chan struct{})}
}

func (s *Serializer) gate(accountID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[accountID]
	if !ok {
		g = make(chan struct{}, 1)
		s.gates[accountID] = g
	}
	return g
}

// Acquire takes the account's gate, blocking until it is free or ctx is done.
// On success it returns a release function that must be called on every exit
// path, typically via defer.
func (s *Serializer) Acquire(ctx context.Context, accountID string) (release func(), err error) {
	g := s.gate(accountID)
	select {
	case g <- struct{}{}:
		return func() { <-g }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do runs fn while holding the account's gate.
func (s *Serializer) Do(ctx context.Context, accountID string, fn func() error) error {
	release, err := s.Acquire(ctx, accountID)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
