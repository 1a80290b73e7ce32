package lsps1

import "sync"

// orderLocks serializes state transitions per order id. Locks are never
// removed; the set of orders a single process touches stays small.
type orderLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOrderLocks() *orderLocks {
	return &orderLocks{locks: map[string]*sync.Mutex{}}
}

// lock acquires the mutex for orderID and returns its unlock function.
func (l *orderLocks) lock(orderID string) func() {
	l.mu.Lock()
	m, ok := l.locks[orderID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[orderID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
