package inbound

import (
	"context"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/bid"
	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// BidService defines the bid placement use case
type BidService interface {
	// PlaceBid validates and commits one bid attempt. On success the new
	// state has already been broadcast to the auction's room; the result is
	// returned to the submitting observer. Validation rejections come back
	// as shared.ErrAuctionNotFound, shared.ErrAuctionClosed or
	// shared.ErrBidTooLow.
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*PlaceBidResult, error)

	// GetBids retrieves the bid history for an auction
	GetBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)
}

// AuctionService defines the auction lifecycle use cases
type AuctionService interface {
	// CreateAuction registers a new pending auction
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error)

	// ApproveAuction opens a pending auction for bidding
	ApproveAuction(ctx context.Context, auctionID uuid.UUID) error

	// GetAuction retrieves an auction snapshot
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)

	// CloseExpiredAuction closes one auction past its deadline, determining
	// the winner exactly once. Returns shared.ErrAuctionAlreadyClosed when a
	// previous sweep got there first.
	CloseExpiredAuction(ctx context.Context, auctionID uuid.UUID) (*shared.ClosureResult, error)
}

// PlaceBidRequest is one bid attempt submitted over an observer's channel
type PlaceBidRequest struct {
	AuctionID  uuid.UUID `json:"auction_id"`
	BidderID   uuid.UUID `json:"bidder_id"`
	ObserverID string    `json:"observer_id"`
	Amount     float64   `json:"amount"`
}

// PlaceBidResult is the authoritative state after an accepted bid
type PlaceBidResult struct {
	AuctionID                uuid.UUID `json:"auction_id"`
	NewHighestBid            float64   `json:"new_highest_bid"`
	HighestBidderID          uuid.UUID `json:"highest_bidder_id"`
	HighestBidderDisplayName string    `json:"highest_bidder_display_name"`
	Timestamp                time.Time `json:"timestamp"`
}

// CreateAuctionRequest registers a new item for timed bidding
type CreateAuctionRequest struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	SellerID      uuid.UUID `json:"seller_id"`
	StartingPrice float64   `json:"starting_price"`
	EndTime       time.Time `json:"end_time"`
}
