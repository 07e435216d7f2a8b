package app

import (
	"context"
	"errors"
	"time"

	"livebid-service/internal/domain/bid"
	"livebid-service/internal/domain/shared"
	"livebid-service/internal/ports/inbound"
	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// fallbackDisplayName stands in when the user directory cannot resolve a
// bidder. The broadcast still goes out with the authoritative amount.
const fallbackDisplayName = "Unknown"

// BidService implements the bid placement use case. All mutating work on one
// auction runs under that auction's lock: re-fetch snapshot, validate, update
// the auction, append the bid record, resolve the display name. The broadcast
// happens after the lock is released and never affects the committed state.
type BidService struct {
	auctionStore outbound.AuctionStore
	bidStore     outbound.BidStore
	users        outbound.UserDirectory
	broadcaster  outbound.Broadcaster
	locks        *AuctionLocks
	lockTimeout  time.Duration
	logger       zerolog.Logger
}

type BidServiceParams struct {
	AuctionStore outbound.AuctionStore
	BidStore     outbound.BidStore
	Users        outbound.UserDirectory
	Broadcaster  outbound.Broadcaster
	Locks        *AuctionLocks
	LockTimeout  time.Duration
	Logger       zerolog.Logger
}

// NewBidService creates a new bid service
func NewBidService(params BidServiceParams) *BidService {
	return &BidService{
		auctionStore: params.AuctionStore,
		bidStore:     params.BidStore,
		users:        params.Users,
		broadcaster:  params.Broadcaster,
		locks:        params.Locks,
		lockTimeout:  params.LockTimeout,
		logger:       params.Logger.With().Str("component", "bid_service").Logger(),
	}
}

// PlaceBid validates and commits one bid attempt
func (s *BidService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*inbound.PlaceBidResult, error) {
	s.logger.Debug().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Float64("amount", req.Amount).
		Msg("Processing bid attempt")

	// Acquire reports shared.ErrLockTimeout on contention and the context's
	// error on cancellation; both pass through so the caller can tell them
	// apart.
	release, err := s.locks.Acquire(ctx, req.AuctionID, s.lockTimeout)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Could not acquire auction lock")
		return nil, err
	}

	result, err := s.placeBidLocked(ctx, req)
	release()
	if err != nil {
		return nil, err
	}

	event := outbound.NewBidUpdateEvent(outbound.BidUpdate{
		AuctionID:                result.AuctionID,
		NewBid:                   result.NewHighestBid,
		HighestBidderID:          result.HighestBidderID,
		HighestBidderDisplayName: result.HighestBidderDisplayName,
		Timestamp:                result.Timestamp,
	})
	if err := s.broadcaster.Publish(ctx, req.AuctionID, event); err != nil {
		// Delivery is best-effort; the bid stays committed.
		s.logger.Error().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Failed to broadcast bid update")
	}

	s.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Float64("amount", req.Amount).
		Msg("Bid accepted")

	return result, nil
}

// placeBidLocked runs the validate-and-commit sequence. Caller holds the
// auction's lock.
func (s *BidService) placeBidLocked(ctx context.Context, req inbound.PlaceBidRequest) (*inbound.PlaceBidResult, error) {
	a, err := s.auctionStore.GetAuction(ctx, req.AuctionID)
	if err != nil {
		if errors.Is(err, shared.ErrAuctionNotFound) {
			s.logger.Warn().Str("auction_id", req.AuctionID.String()).Msg("Bid on unknown auction")
			return nil, shared.ErrAuctionNotFound
		}
		s.logger.Error().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Failed to fetch auction")
		return nil, shared.ErrInternal
	}

	if err := ValidateBid(a, req.Amount, time.Now()); err != nil {
		s.logger.Warn().
			Err(err).
			Str("auction_id", req.AuctionID.String()).
			Float64("amount", req.Amount).
			Float64("current_highest_bid", a.CurrentHighestBid).
			Msg("Bid rejected")
		return nil, err
	}

	// The auction update is the authoritative write and goes first. The bid
	// record is an audit trail appended afterwards; if it fails the accepted
	// amount still stands.
	a.AcceptBid(req.BidderID, req.Amount)
	if err := s.auctionStore.SaveAuction(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Failed to persist auction update")
		return nil, shared.ErrInternal
	}

	newBid := bid.New(req.AuctionID, req.BidderID, req.Amount)
	if err := s.bidStore.AppendBid(ctx, newBid); err != nil {
		s.logger.Error().Err(err).
			Str("auction_id", req.AuctionID.String()).
			Str("bid_id", newBid.ID.String()).
			Msg("Failed to append bid record; auction update already committed")
	}

	displayName := s.resolveDisplayName(ctx, req.BidderID)

	return &inbound.PlaceBidResult{
		AuctionID:                req.AuctionID,
		NewHighestBid:            a.CurrentHighestBid,
		HighestBidderID:          req.BidderID,
		HighestBidderDisplayName: displayName,
		Timestamp:                newBid.BidTime,
	}, nil
}

// GetBids retrieves the bid history for an auction
func (s *BidService) GetBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	return s.bidStore.GetBidsByAuction(ctx, auctionID)
}

func (s *BidService) resolveDisplayName(ctx context.Context, userID uuid.UUID) string {
	name, err := s.users.GetDisplayName(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("Could not resolve bidder display name")
		return fallbackDisplayName
	}
	return name
}
