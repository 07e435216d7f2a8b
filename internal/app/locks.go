package app

import (
	"context"
	"sync"
	"time"

	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionLocks serializes all state-mutating operations on a given auction id.
// Bid acceptance and lifecycle closure for the same auction are totally
// ordered through it; operations on different auctions proceed in parallel.
type AuctionLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// NewAuctionLocks creates an empty lock table
func NewAuctionLocks() *AuctionLocks {
	return &AuctionLocks{
		locks: make(map[uuid.UUID]*lockEntry),
	}
}

// Acquire takes exclusive access to one auction. With a positive timeout the
// call fails with shared.ErrLockTimeout rather than waiting indefinitely, to
// bound observer-facing latency. A zero timeout waits until the context is
// cancelled. The returned release function must be called exactly once.
func (l *AuctionLocks) Acquire(ctx context.Context, auctionID uuid.UUID, timeout time.Duration) (func(), error) {
	entry := l.retain(auctionID)

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-entry.sem
				l.put(auctionID)
			})
		}
		return release, nil
	case <-timeoutCh:
		l.put(auctionID)
		return nil, shared.ErrLockTimeout
	case <-ctx.Done():
		l.put(auctionID)
		return nil, ctx.Err()
	}
}

func (l *AuctionLocks) retain(auctionID uuid.UUID) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.locks[auctionID]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[auctionID] = entry
	}
	entry.refs++
	return entry
}

func (l *AuctionLocks) put(auctionID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.locks[auctionID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, auctionID)
	}
}
