package entitlement

import "sync"

// keyedMutex hands out one mutex per key so concurrent requests for the same
// account serialize while different accounts proceed in parallel. Entries are
// never evicted; the per-account footprint is one mutex.
type keyedMutex struct {
	locks sync.Map
}

func (k *keyedMutex) lock(key string) func() {
	value, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
