package notifier

import "sync"

// DedupKey identifies one (subscription, threshold) notification pair.
type DedupKey struct {
	SubscriptionID uint
	Threshold      int
}

// DedupStore records the calendar date on which a pair last fired. The
// interface exists so a durable backing store can replace the in-process
// map without touching evaluator logic. The current in-memory contract
// tolerates at most one duplicate notification per process restart.
type DedupStore interface {
	// Get returns the last-fired date for key, if any.
	Get(key DedupKey) (string, bool)
	// Set overwrites the last-fired date for key.
	Set(key DedupKey, date string)
}

// MemoryDedupStore is the process-local DedupStore. Entries are never
// evicted; keys are tiny and subscriptions number in the dozens.
type MemoryDedupStore struct {
	mu      sync.RWMutex
	lastRun map[DedupKey]string
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{lastRun: make(map[DedupKey]string)}
}

func (s *MemoryDedupStore) Get(key DedupKey) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	date, ok := s.lastRun[key]
	return date, ok
}

func (s *MemoryDedupStore) Set(key DedupKey, date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[key] = date
}
