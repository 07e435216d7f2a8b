package app

import (
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/shared"
)

// ValidateBid decides whether a proposed bid is admissible against the given
// auction snapshot. Pure decision function, no side effects; rules are
// evaluated in order and the first match wins. The caller must hold the
// auction's lock so the snapshot is the freshest committed state.
//
// Returns nil when the bid is accepted, otherwise one of
// shared.ErrAuctionNotFound, shared.ErrAuctionClosed, shared.ErrBidTooLow.
func ValidateBid(a *auction.Auction, amount float64, now time.Time) error {
	if a == nil {
		return shared.ErrAuctionNotFound
	}

	// An auction whose deadline has passed is treated as closed even when a
	// sweep has not yet flipped IsActive. This closes the race window between
	// bid arrival and the scheduler's tick.
	if !a.BiddingOpen(now) {
		return shared.ErrAuctionClosed
	}

	// Strict increase only; equal bids are rejected.
	if amount <= a.CurrentHighestBid {
		return shared.ErrBidTooLow
	}

	return nil
}
