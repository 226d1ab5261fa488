// Package mempool maintains the payloads waiting to be mined into a block.
package mempool

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry represents a payload waiting to be mined.
type Entry struct {
	ID       string    `json:"id"`
	Data     string    `json:"data"`
	Received time.Time `json:"received"`
}

// Mempool represents a first in first out cache of payloads keyed by a
// unique id.
type Mempool struct {
	mu    sync.RWMutex
	pool  map[string]Entry
	order []string
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]Entry),
	}
}

// Count returns the current number of payloads in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add places a new payload at the back of the pool.
func (mp *Mempool) Add(data string, received time.Time) Entry {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	entry := Entry{
		ID:       uuid.NewString(),
		Data:     data,
		Received: received,
	}

	mp.pool[entry.ID] = entry
	mp.order = append(mp.order, entry.ID)

	return entry
}

// Next returns the oldest payload in the pool without removing it.
func (mp *Mempool) Next() (Entry, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if len(mp.order) == 0 {
		return Entry{}, false
	}

	return mp.pool[mp.order[0]], true
}

// Delete removes a payload from the pool.
func (mp *Mempool) Delete(id string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[id]; !exists {
		return
	}

	delete(mp.pool, id)
	for i, key := range mp.order {
		if key == id {
			mp.order = append(mp.order[:i], mp.order[i+1:]...)
			break
		}
	}
}

// Copy returns the payloads in the pool oldest first.
func (mp *Mempool) Copy() []Entry {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	entries := make([]Entry, len(mp.order))
	for i, id := range mp.order {
		entries[i] = mp.pool[id]
	}

	return entries
}

// Truncate clears all the payloads from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]Entry)
	mp.order = nil
}
