package outbound

import (
	"context"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/bid"

	"github.com/google/uuid"
)

// AuctionStore is the durable record of auction items. It is the only shared
// mutable resource in the engine; all writes to a given auction go through the
// per-auction serialization in the application layer.
type AuctionStore interface {
	// CreateAuction persists a new auction
	CreateAuction(ctx context.Context, a *auction.Auction) error

	// GetAuction retrieves an auction by ID
	GetAuction(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// SaveAuction persists the mutable auction fields
	SaveAuction(ctx context.Context, a *auction.Auction) error

	// FindActiveExpired returns auctions still flagged active whose end time
	// is at or before now. Drives the lifecycle sweep.
	FindActiveExpired(ctx context.Context, now time.Time) ([]*auction.Auction, error)
}

// BidStore is the append-only record of accepted bids
type BidStore interface {
	// AppendBid records one accepted bid
	AppendBid(ctx context.Context, b *bid.Bid) error

	// GetBidsByAuction returns all bids for an auction, highest amount first
	GetBidsByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// FindBidByAuctionAndBidder returns the bidder's highest bid on the
	// auction, or shared.ErrNoBidsFound.
	FindBidByAuctionAndBidder(ctx context.Context, auctionID, bidderID uuid.UUID) (*bid.Bid, error)

	// MarkWinningBid flags the bidder's highest bid on the auction as the
	// winning one. A no-op if the auction already has a winning bid, so a
	// repeated sweep can never flag a second bid.
	MarkWinningBid(ctx context.Context, auctionID, bidderID uuid.UUID) error
}

// UserDirectory resolves display names for broadcast payloads. User
// registration and authentication live in an external collaborator.
type UserDirectory interface {
	GetDisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}
