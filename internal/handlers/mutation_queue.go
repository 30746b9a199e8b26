package handlers

import (
	"sync"
)

// MutationQueue serialises read-modify-write cycles per trip. Stores save whole
// trip snapshots, so two unserialised mutations of one trip lose an update.
type MutationQueue struct {
	locks map[string]*tripLock
	mu    sync.Mutex
}

type tripLock struct {
	mu   sync.Mutex
	refs int
}

// NewMutationQueue creates an empty queue
func NewMutationQueue() *MutationQueue {
	return &MutationQueue{
		locks: make(map[string]*tripLock),
	}
}

// Do runs fn while holding the lock for tripID. Mutations of different trips
// run concurrently.
func (q *MutationQueue) Do(tripID string, fn func() error) error {
	l := q.acquire(tripID)
	defer q.release(tripID, l)
	return fn()
}

func (q *MutationQueue) acquire(tripID string) *tripLock {
	q.mu.Lock()
	l := q.locks[tripID]
	if l == nil {
		l = &tripLock{}
		q.locks[tripID] = l
	}
	l.refs++
	q.mu.Unlock()

	l.mu.Lock()
	return l
}

func (q *MutationQueue) release(tripID string, l *tripLock) {
	l.mu.Unlock()

	q.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(q.locks, tripID)
	}
	q.mu.Unlock()
}

// Len returns the number of trips with a pending or running mutation
func (q *MutationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.locks)
}
