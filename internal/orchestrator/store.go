package orchestrator

import (
	"sync"

	"github.com/yourorg/sips-gateway/internal/processor"
)

// transactionStore keeps transactions by merchant and order id. Each entry
// carries its own lock so notifications for one order are applied in turn.
type transactionStore struct {
	mu      sync.Mutex
	entries map[string]*storeEntry
}

type storeEntry struct {
	mu sync.Mutex
	tx *processor.Transaction
}

func newTransactionStore() *transactionStore {
	return &transactionStore{entries: make(map[string]*storeEntry)}
}

func storeKey(merchantID, orderID string) string {
	return merchantID + "/" + orderID
}

func (s *transactionStore) get(merchantID, orderID string) (*storeEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[storeKey(merchantID, orderID)]
	return e, ok
}

// getOrCreate returns the entry for the order, creating it with newTx when
// absent.
func (s *transactionStore) getOrCreate(merchantID, orderID string, newTx func() *processor.Transaction) *storeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey(merchantID, orderID)
	if e, ok := s.entries[key]; ok {
		return e
	}
	e := &storeEntry{tx: newTx()}
	s.entries[key] = e
	return e
}

func (s *transactionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
