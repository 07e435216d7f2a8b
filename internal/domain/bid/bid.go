package bid

import (
	"time"

	"github.com/google/uuid"
)

// Bid is an append-only record of one accepted bid. Bids are never mutated
// after creation except for the single winning flag set at auction closure,
// and never deleted.
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	IsWinning bool      `json:"is_winning"`
	BidTime   time.Time `json:"bid_time"`
}

// New creates an accepted bid record stamped with the current time
func New(auctionID, bidderID uuid.UUID, amount float64) *Bid {
	return &Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		IsWinning: false,
		BidTime:   time.Now(),
	}
}
