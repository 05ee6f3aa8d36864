package service

import "sync"

// ListingLocks serializes every mutation touching one listing, so
// discard-then-replace and disarm-then-arm sequences stay atomic with
// respect to concurrent callers. Appointment and post services share
// one instance.
type ListingLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewListingLocks creates an empty lock table.
func NewListingLocks() *ListingLocks {
	return &ListingLocks{locks: make(map[string]*sync.Mutex)}
}

// ForListing returns the mutex guarding one listing's mutations.
func (l *ListingLocks) ForListing(postID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[postID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[postID] = lock
	}
	return lock
}
