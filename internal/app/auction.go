package app

import (
	"context"
	"errors"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/shared"
	"livebid-service/internal/ports/inbound"
	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuctionService implements the auction lifecycle use cases. Closure shares
// the per-auction lock table with the bid service, so a bid racing a closure
// lands consistently before or after it, never interleaved.
type AuctionService struct {
	auctionStore outbound.AuctionStore
	bidStore     outbound.BidStore
	users        outbound.UserDirectory
	locks        *AuctionLocks
	logger       zerolog.Logger
}

type AuctionServiceParams struct {
	AuctionStore outbound.AuctionStore
	BidStore     outbound.BidStore
	Users        outbound.UserDirectory
	Locks        *AuctionLocks
	Logger       zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	return &AuctionService{
		auctionStore: params.AuctionStore,
		bidStore:     params.BidStore,
		users:        params.Users,
		locks:        params.Locks,
		logger:       params.Logger.With().Str("component", "auction_service").Logger(),
	}
}

// CreateAuction registers a new pending auction
func (s *AuctionService) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (*auction.Auction, error) {
	if req.StartingPrice <= 0 {
		return nil, shared.ErrInvalidStartingPrice
	}
	if !req.EndTime.After(time.Now()) {
		return nil, shared.ErrInvalidEndTime
	}

	a := auction.New(req.Title, req.Description, req.SellerID, req.StartingPrice, req.EndTime)
	if err := s.auctionStore.CreateAuction(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to persist auction")
		return nil, err
	}

	s.logger.Info().
		Str("auction_id", a.ID.String()).
		Str("title", a.Title).
		Time("end_time", a.EndTime).
		Float64("starting_price", a.StartingPrice).
		Msg("Auction created")

	return a, nil
}

// ApproveAuction opens a pending auction for bidding
func (s *AuctionService) ApproveAuction(ctx context.Context, auctionID uuid.UUID) error {
	release, err := s.locks.Acquire(ctx, auctionID, 0)
	if err != nil {
		return err
	}
	defer release()

	a, err := s.auctionStore.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	if a.Status != auction.StatusPending {
		return shared.ErrAuctionNotPending
	}

	a.Approve()
	if err := s.auctionStore.SaveAuction(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to persist approval")
		return err
	}

	s.logger.Info().Str("auction_id", auctionID.String()).Msg("Auction approved and open for bidding")
	return nil
}

// GetAuction retrieves an auction snapshot
func (s *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	return s.auctionStore.GetAuction(ctx, auctionID)
}

// CloseExpiredAuction closes one auction past its deadline. The IsActive
// check under the lock makes the operation idempotent: a second invocation
// sees the flag already flipped and returns ErrAuctionAlreadyClosed without
// touching state or producing a second winning bid.
func (s *AuctionService) CloseExpiredAuction(ctx context.Context, auctionID uuid.UUID) (*shared.ClosureResult, error) {
	release, err := s.locks.Acquire(ctx, auctionID, 0)
	if err != nil {
		return nil, err
	}
	defer release()

	a, err := s.auctionStore.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, shared.ErrAuctionAlreadyClosed
	}

	a.Close()
	if err := s.auctionStore.SaveAuction(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to persist auction closure")
		return nil, err
	}

	result := &shared.ClosureResult{
		AuctionID: a.ID,
		Title:     a.Title,
		FinalBid:  a.CurrentHighestBid,
	}

	if !a.HasBids() {
		s.logger.Info().Str("auction_id", auctionID.String()).Msg("Auction closed with no bids")
		return result, nil
	}

	winnerID := *a.HighestBidder
	result.WinnerID = &winnerID
	result.WinnerUsername = s.resolveWinnerName(ctx, winnerID)

	if err := s.bidStore.MarkWinningBid(ctx, a.ID, winnerID); err != nil {
		// The closure itself is committed; the winning flag is an audit
		// marker on the bid trail.
		s.logger.Error().Err(err).
			Str("auction_id", auctionID.String()).
			Str("winner_id", winnerID.String()).
			Msg("Failed to flag winning bid")
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Str("winner_id", winnerID.String()).
		Float64("final_bid", result.FinalBid).
		Msg("Auction closed with winner")

	return result, nil
}

func (s *AuctionService) resolveWinnerName(ctx context.Context, userID uuid.UUID) string {
	name, err := s.users.GetDisplayName(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrUserNotFound) {
			s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to resolve winner display name")
		}
		return fallbackDisplayName
	}
	return name
}
